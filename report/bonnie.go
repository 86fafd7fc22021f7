// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package report

import (
	"fmt"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/fsbench/results"
)

// bonnieTests are the bonnie++ tests in table order, each reported
// as a rate, a CPU percentage and their quotient.
var bonnieTests = []struct {
	name   string
	header string
	rate   func(*results.BonnieResult) float64
	cpu    func(*results.BonnieResult) float64
	// cpuFloor replaces a zero CPU percentage; bonnie++ reports 0
	// for tests too short to measure.
	cpuFloor float64
}{
	{"putc", "Per Char", func(r *results.BonnieResult) float64 { return r.Putc }, func(r *results.BonnieResult) float64 { return r.PutcCPU }, 0},
	{"put_block", "Block", func(r *results.BonnieResult) float64 { return r.PutBlock }, func(r *results.BonnieResult) float64 { return r.PutBlockCPU }, 0},
	{"rewrite", "Rewrite", func(r *results.BonnieResult) float64 { return r.Rewrite }, func(r *results.BonnieResult) float64 { return r.RewriteCPU }, 0},
	{"getc", "Per Char", func(r *results.BonnieResult) float64 { return r.Getc }, func(r *results.BonnieResult) float64 { return r.GetcCPU }, 0},
	{"get_block", "Block", func(r *results.BonnieResult) float64 { return r.GetBlock }, func(r *results.BonnieResult) float64 { return r.GetBlockCPU }, 0},
	{"seeks", "Seeks", func(r *results.BonnieResult) float64 { return r.Seeks }, func(r *results.BonnieResult) float64 { return r.SeeksCPU }, 0.1},
	{"seq_create", "Create", func(r *results.BonnieResult) float64 { return r.SeqCreate }, func(r *results.BonnieResult) float64 { return r.SeqCreateCPU }, 0},
	{"seq_stat", "Read", func(r *results.BonnieResult) float64 { return r.SeqStat }, func(r *results.BonnieResult) float64 { return r.SeqStatCPU }, 0},
	{"seq_del", "Delete", func(r *results.BonnieResult) float64 { return r.SeqDel }, func(r *results.BonnieResult) float64 { return r.SeqDelCPU }, 0},
	{"ran_create", "Create", func(r *results.BonnieResult) float64 { return r.RanCreate }, func(r *results.BonnieResult) float64 { return r.RanCreateCPU }, 0},
	{"ran_stat", "Read", func(r *results.BonnieResult) float64 { return r.RanStat }, func(r *results.BonnieResult) float64 { return r.RanStatCPU }, 0.1},
	{"ran_del", "Delete", func(r *results.BonnieResult) float64 { return r.RanDel }, func(r *results.BonnieResult) float64 { return r.RanDelCPU }, 0.1},
}

// BonnieColumns returns the columns of the bonnie++ report.
func BonnieColumns() ([]Section, []Column) {
	sections := []Section{
		{"", 3},
		{"Sequential Output", 9},
		{"Sequential Input", 6},
		{"Random Seeks", 3},
		{"", 1},
		{"Sequential Create", 9},
		{"Random Create", 9},
		{"", 1},
		{"Other", 8},
	}
	cols := []Column{
		{Name: "fs_type", Header: "FS"},
		{Name: "file_size", Header: "Size"},
		{Name: "num_files", Header: "Num Files (*1000)"},
	}
	for i, t := range bonnieTests {
		if i == 6 {
			cols = append(cols, Column{Name: "fs_type", Header: "FS"})
		}
		unit := "K/sec"
		if i >= 6 {
			unit = "/ sec"
		}
		cols = append(cols,
			Column{Name: t.name, Header: t.header, Unit: unit, Kind: HigherBetter},
			Column{Name: t.name + "_cpu", Header: t.header, Unit: "% CPU", Kind: LowerBetter},
			Column{Name: t.name + "_wrk_per_unit", Header: t.header, Unit: "Work / CPU", Kind: HigherBetter},
		)
	}
	cols = append(cols,
		Column{Name: "fs_type", Header: "FS"},
		Column{Name: "avg_wrk_per_unit", Header: "Avg Work / CPU", Kind: HigherBetter},
		Column{Name: "avg_wrk_per_unit_percent", Header: "Avg Work / CPU %", Kind: HigherBetter},
		Column{Name: "total_time", Header: "Total Run Time (secs)", Kind: LowerBetter},
		Column{Name: "total_time_percent", Header: "Total Run Time %", Kind: HigherBetter},
		Column{Name: "eff_rating", Header: "Overall Rating", Kind: HigherBetter, Format: "%0.4f"},
		Column{Name: "tally", Header: "Best case : Worst case", Kind: Tally},
		Column{Name: "fs_version", Header: "FS Version"},
		Column{Name: "kernel_version", Header: "Kernel Version"},
	)
	return sections, cols
}

// Bonnie builds the bonnie++ report from the runs of the newest
// benches invocations that ran bonnie++.
func Bonnie(store *results.Store, benches int) (*Report, error) {
	runs, err := latestRuns(store, results.Bonnie, benches)
	if err != nil {
		return nil, err
	}
	var rows []Row
	for _, run := range runs {
		rs, err := store.Bonnie(run.ID)
		if err != nil {
			return nil, errors.E(fmt.Sprintf("reading results of run %d", run.ID), err)
		}
		if len(rs) == 0 {
			continue
		}
		rows = append(rows, bonnieRow(run, rs))
	}
	sortRows(rows, "file_size", "num_files")
	relativeToBatch(rows)
	sections, cols := BonnieColumns()
	return &Report{
		Title:     "Bonnie++ Benchmarks",
		Sections:  sections,
		Columns:   cols,
		Rows:      rows,
		Generated: time.Now(),
	}, nil
}

// bonnieRow averages the results of a run and derives the
// per-CPU work figures.
func bonnieRow(run results.Run, rs []results.BonnieResult) Row {
	row := runRow(run)
	row.Labels["file_size"] = rs[0].FileSize
	row.Labels["num_files"] = rs[0].NumFiles
	var total float64
	for _, t := range bonnieTests {
		var rate, cpu float64
		for i := range rs {
			rate += t.rate(&rs[i])
			cpu += t.cpu(&rs[i])
		}
		rate /= float64(len(rs))
		cpu /= float64(len(rs))
		if cpu == 0 && t.cpuFloor > 0 {
			cpu = t.cpuFloor
		}
		work := workPerCPU(rate, cpu)
		row.Values[t.name] = rate
		row.Values[t.name+"_cpu"] = cpu
		row.Values[t.name+"_wrk_per_unit"] = work
		total += work
	}
	avg := total / float64(len(bonnieTests))
	row.Values["total_wrk_per_unit"] = total
	row.Values["avg_wrk_per_unit"] = avg
	timings := make([]results.Timing, len(rs))
	for i := range rs {
		timings[i] = rs[i].Timing
	}
	elapsed := meanElapsed(timings)
	row.Values["total_time"] = elapsed
	if elapsed > 0 {
		row.Values["eff_rating"] = avg / elapsed
	}
	return row
}

func workPerCPU(rate, cpu float64) float64 {
	if rate <= 0 || cpu <= 0 {
		return 0
	}
	return rate / cpu
}

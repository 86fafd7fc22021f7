// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/fsbench/results"
)

var iozoneTests = []struct {
	name, header string
	rate         func(*results.IozoneResult) float64
}{
	{"io_write", "Write", func(r *results.IozoneResult) float64 { return r.Write }},
	{"io_rewrite", "Re-Write", func(r *results.IozoneResult) float64 { return r.Rewrite }},
	{"io_read", "Read", func(r *results.IozoneResult) float64 { return r.Read }},
	{"io_reread", "Re-Read", func(r *results.IozoneResult) float64 { return r.Reread }},
	{"ran_read", "Random Read", func(r *results.IozoneResult) float64 { return r.RandRead }},
	{"ran_write", "Random Write", func(r *results.IozoneResult) float64 { return r.RandWrite }},
	{"bkwd_read", "Read Backwards", func(r *results.IozoneResult) float64 { return r.BackRead }},
	{"record_rewrite", "Record Re-Write", func(r *results.IozoneResult) float64 { return r.RecordRewrite }},
	{"stride_read", "Read Strided", func(r *results.IozoneResult) float64 { return r.StrideRead }},
	{"fwrite", "F Write", func(r *results.IozoneResult) float64 { return r.FWrite }},
	{"frewrite", "F Re-Write", func(r *results.IozoneResult) float64 { return r.FRewrite }},
	{"fread", "F Read", func(r *results.IozoneResult) float64 { return r.FRead }},
	{"freread", "F Re-Read", func(r *results.IozoneResult) float64 { return r.FReread }},
}

// IozoneColumns returns the columns of the iozone report.
func IozoneColumns() []Column {
	cols := []Column{
		{Name: "fs_type", Header: "FS"},
		{Name: "file_size", Header: "Size (KB)"},
		{Name: "reclen", Header: "Record Length"},
	}
	for _, t := range iozoneTests {
		cols = append(cols, Column{Name: t.name, Header: t.header, Unit: "K/sec", Kind: HigherBetter})
	}
	return append(cols,
		Column{Name: "fs_type", Header: "FS"},
		Column{Name: "total_time", Header: "Total Run Time (secs)", Kind: LowerBetter},
		Column{Name: "total_time_percent", Header: "Total Run Time %", Kind: HigherBetter},
		Column{Name: "tally", Header: "Best case : Worst case", Kind: Tally},
		Column{Name: "fs_version", Header: "FS Version"},
		Column{Name: "kernel_version", Header: "Kernel Version"},
	)
}

// Iozone builds the iozone report from the runs of the newest
// benches invocations that ran iozone.
func Iozone(store *results.Store, benches int) (*Report, error) {
	runs, err := latestRuns(store, results.Iozone, benches)
	if err != nil {
		return nil, err
	}
	var rows []Row
	for _, run := range runs {
		rs, err := store.Iozone(run.ID)
		if err != nil {
			return nil, errors.E(fmt.Sprintf("reading results of run %d", run.ID), err)
		}
		if len(rs) == 0 {
			continue
		}
		rows = append(rows, iozoneRow(run, rs))
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		switch {
		case a.RunID != b.RunID:
			return a.RunID < b.RunID
		case a.Batch != b.Batch:
			return a.Batch < b.Batch
		case a.Labels["file_size"] != b.Labels["file_size"]:
			return lessLabel(a.Labels["file_size"], b.Labels["file_size"])
		default:
			return a.Values["io_write"] > b.Values["io_write"]
		}
	})
	relativeToBatch(rows)
	return &Report{
		Title:     "IOZone Benchmarks",
		Columns:   IozoneColumns(),
		Rows:      rows,
		Generated: time.Now(),
	}, nil
}

func iozoneRow(run results.Run, rs []results.IozoneResult) Row {
	row := runRow(run)
	row.Labels["file_size"] = rs[0].FileSize
	row.Labels["reclen"] = rs[0].RecLen
	timings := make([]results.Timing, len(rs))
	for _, t := range iozoneTests {
		var rate float64
		for i := range rs {
			rate += t.rate(&rs[i])
			timings[i] = rs[i].Timing
		}
		row.Values[t.name] = rate / float64(len(rs))
	}
	row.Values["total_time"] = meanElapsed(timings)
	return row
}

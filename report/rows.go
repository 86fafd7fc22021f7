// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package report

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/fsbench/results"
)

// latestRuns returns the runs of program that belong to its newest
// benches bench IDs, in run ID order. Only benches that stored results
// count.
func latestRuns(store *results.Store, program string, benches int) ([]results.Run, error) {
	if benches < 1 {
		return nil, errors.E(errors.Invalid, "report needs at least one bench")
	}
	ids, err := store.ResultBenchIDs(program)
	if err != nil {
		return nil, errors.E("listing benches", err)
	}
	if len(ids) == 0 {
		return nil, errors.E(errors.NotExist, "no "+program+" benches with results")
	}
	if len(ids) > benches {
		ids = ids[:benches]
	}
	keep := make(map[int]bool)
	for _, id := range ids {
		keep[id] = true
	}
	all, err := store.Runs(program)
	if err != nil {
		return nil, errors.E("listing runs", err)
	}
	var runs []results.Run
	for _, run := range all {
		if keep[run.BenchID] {
			runs = append(runs, run)
		}
	}
	return runs, nil
}

func runRow(run results.Run) Row {
	row := newRow(run.ID, run.Batch)
	row.Labels["fs_type"] = run.FSType
	row.Labels["fs_version"] = run.FSVersion
	row.Labels["kernel_version"] = run.Kernel
	return row
}

func meanElapsed(timings []results.Timing) float64 {
	if len(timings) == 0 {
		return 0
	}
	var total float64
	for _, t := range timings {
		total += t.Elapsed()
	}
	return total / float64(len(timings))
}

var sizePattern = regexp.MustCompile(`^([0-9]+)([KMGT]?)$`)

// sizeValue interprets sizes such as "1G" or "2048M" in kilobytes,
// returning false if s is not a size.
func sizeValue(s string) (float64, bool) {
	m := sizePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	switch m[2] {
	case "M":
		v *= 1 << 10
	case "G":
		v *= 1 << 20
	case "T":
		v *= 1 << 30
	}
	return v, true
}

// lessLabel orders labels numerically when both are sizes and
// lexically otherwise.
func lessLabel(a, b string) bool {
	av, aok := sizeValue(a)
	bv, bok := sizeValue(b)
	if aok && bok && av != bv {
		return av < bv
	}
	return a < b
}

// sortRows orders rows by the provided labels, then by batch, so
// that the rows of a batch are adjacent, and finally by filesystem
// and kernel.
func sortRows(rows []Row, labels ...string) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		for _, l := range labels {
			if a.Labels[l] != b.Labels[l] {
				return lessLabel(a.Labels[l], b.Labels[l])
			}
		}
		if a.Batch != b.Batch {
			return a.Batch < b.Batch
		}
		if a.Labels["fs_type"] != b.Labels["fs_type"] {
			return a.Labels["fs_type"] < b.Labels["fs_type"]
		}
		return a.Labels["kernel_version"] < b.Labels["kernel_version"]
	})
}

// relativeToBatch computes each row's average work and run time
// relative to the first row of its batch, as percentages. Run time
// percentages are inverted so that faster rows score higher.
func relativeToBatch(rows []Row) {
	var first Row
	for i, row := range rows {
		if i == 0 || row.Batch != rows[i-1].Batch {
			first = row
		}
		if v := first.Values["avg_wrk_per_unit"]; v > 0 {
			row.Values["avg_wrk_per_unit_percent"] = row.Values["avg_wrk_per_unit"] / v * 100
		}
		if v := row.Values["total_time"]; v > 0 {
			row.Values["total_time_percent"] = first.Values["total_time"] / v * 100
		}
	}
}

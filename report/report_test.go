// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/grailbio/testutil/expect"
)

func testReport() *Report {
	cols := []Column{
		{Name: "fs_type", Header: "FS"},
		{Name: "write", Header: "Write", Unit: "K/sec", Kind: HigherBetter},
		{Name: "write_cpu", Header: "Write CPU", Unit: "% CPU", Kind: LowerBetter},
		{Name: "tally", Header: "Best case : Worst case", Kind: Tally},
	}
	row := func(batch int, fs string, write, cpu float64) Row {
		r := newRow(0, batch)
		r.Labels["fs_type"] = fs
		r.Values["write"] = write
		r.Values["write_cpu"] = cpu
		return r
	}
	return &Report{
		Title:   "Test <Benchmarks>",
		Columns: cols,
		Rows: []Row{
			row(0, "ext2", 10, 5),
			row(0, "ext3", 20, 5),
			row(0, "xfs", 30, 1),
			row(1, "ext2", -1, 2),
			row(1, "xfs", 40, 2),
		},
		Generated: time.Date(2019, 10, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestScore(t *testing.T) {
	batches := testReport().Score()
	white := "#ffffff"
	want := []Batch{
		{ID: 0, Cells: [][]Cell{
			{{white, "ext2", false}, {"#ff0000", "10.0", false}, {"#ff0000", "5.0", false}, {white, "0:2", false}},
			{{white, "ext3", false}, {white, "20.0", false}, {"#ff0000", "5.0", false}, {white, "0:1", false}},
			{{white, "xfs", false}, {"#00ff00", "30.0", false}, {"#00ff00", "1.0", false}, {white, "2:0", false}},
		}},
		{ID: 1, Cells: [][]Cell{
			// A lone measurement is both best and worst, hence neutral.
			{{white, "ext2", false}, {white, "", true}, {white, "2.0", false}, {white, "0:0", false}},
			{{white, "xfs", false}, {white, "40.0", false}, {white, "2.0", false}, {white, "0:0", false}},
		}},
	}
	if diff := cmp.Diff(want, batches); diff != "" {
		t.Errorf("scores (-want +got):\n%s", diff)
	}
}

func TestScoreSplitBatch(t *testing.T) {
	r := testReport()
	row := func(batch int, fs string, write float64) Row {
		row := newRow(0, batch)
		row.Labels["fs_type"] = fs
		row.Values["write"] = write
		row.Values["write_cpu"] = 1
		return row
	}
	// Batch 0 appears twice, on either side of batch 1.
	r.Rows = []Row{
		row(0, "ext2", 10),
		row(0, "xfs", 20),
		row(1, "ext2", 100),
		row(0, "ext2", 1000),
		row(0, "xfs", 2000),
	}
	batches := r.Score()
	var (
		ids    []int
		colors [][]string
	)
	for _, b := range batches {
		ids = append(ids, b.ID)
		var c []string
		for _, cells := range b.Cells {
			c = append(c, cells[1].Color)
		}
		colors = append(colors, c)
	}
	expect.EQ(t, ids, []int{0, 1, 0})
	expect.EQ(t, colors, [][]string{
		{"#ff0000", "#00ff00"},
		{"#ffffff"},
		{"#ff0000", "#00ff00"},
	})
}

func TestScoreIdempotent(t *testing.T) {
	r := testReport()
	expect.EQ(t, r.Score(), r.Score())
}

func TestFormatValue(t *testing.T) {
	for _, c := range []struct {
		col   Column
		v     float64
		text  string
		blank bool
	}{
		{Column{}, 12.345, "12.3", false},
		{Column{Format: "%0.4f"}, 0.123456, "0.1235", false},
		{Column{}, 0, "", true},
		{Column{}, -1, "", true},
	} {
		text, blank := formatValue(c.col, c.v)
		expect.EQ(t, text, c.text)
		expect.EQ(t, blank, c.blank)
	}
}

func TestRender(t *testing.T) {
	var b bytes.Buffer
	expect.NoError(t, Render(&b, testReport()))
	out := b.String()
	for _, want := range []string{
		"<b>Test &lt;Benchmarks&gt;</b>",
		`<td bgcolor="#00ff00">30.0</td>`,
		`<td bgcolor="#ff0000">10.0</td>`,
		`<td bgcolor="#ffffff"><br></td>`,
		`<td bgcolor="#ffffff">2:0</td>`,
		`<td class="unit">K/sec</td>`,
		"Tue Oct 1 12:00:00 2019",
	} {
		expect.HasSubstr(t, out, want)
	}
	// One header per batch.
	expect.EQ(t, strings.Count(out, `<td align="center">Write</td>`), 2)
	expect.EQ(t, strings.Count(out, `<tr><td colspan="4"><br></td></tr>`), 1)
}

func TestColumnCatalogs(t *testing.T) {
	sections, cols := BonnieColumns()
	span := 0
	for _, s := range sections {
		span += s.Span
	}
	expect.EQ(t, span, len(cols))
	for _, col := range append(cols, IozoneColumns()...) {
		switch {
		case strings.HasSuffix(col.Name, "_cpu"), col.Name == "total_time":
			expect.EQ(t, col.Kind, LowerBetter, col.Name)
		case col.Name == "tally":
			expect.EQ(t, col.Kind, Tally)
		case col.Kind == Label:
			expect.True(t, map[string]bool{
				"fs_type": true, "file_size": true, "num_files": true,
				"reclen": true, "fs_version": true, "kernel_version": true,
			}[col.Name], col.Name)
		default:
			expect.EQ(t, col.Kind, HigherBetter, col.Name)
		}
	}
}

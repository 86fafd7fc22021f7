// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package report renders stored benchmark results as HTML tables.
// Rows are grouped by batch; every measurement is colored by its rank
// among the measurements of the same column in the same batch, and
// each row is tallied with its number of best and worst cells.
package report

import (
	"fmt"
	"time"

	"github.com/grailbio/fsbench/score"
)

// Kind determines how a column is rendered and scored.
type Kind int

const (
	// Label columns identify a row and are never scored.
	Label Kind = iota
	// HigherBetter columns are scored with the maximum as best.
	HigherBetter
	// LowerBetter columns are scored with the minimum as best.
	LowerBetter
	// Tally columns show the row's best and worst cell counts so far.
	Tally
)

// A Column is one column of a report table.
type Column struct {
	// Name keys the row's values or labels.
	Name string
	// Header and Unit are shown in the table header.
	Header, Unit string
	Kind         Kind
	// Format is the verb used for numeric values; "%0.1f" by default.
	Format string
}

func (c Column) direction() score.Direction {
	if c.Kind == LowerBetter {
		return score.LowerIsBetter
	}
	return score.HigherIsBetter
}

func (c Column) scored() bool {
	return c.Kind == HigherBetter || c.Kind == LowerBetter
}

// A Section spans a number of columns in the table header.
type Section struct {
	Title string
	Span  int
}

// A Row is one aggregated run.
type Row struct {
	RunID  int64
	Batch  int
	Labels map[string]string
	Values map[string]float64
}

func newRow(runID int64, batch int) Row {
	return Row{
		RunID:  runID,
		Batch:  batch,
		Labels: make(map[string]string),
		Values: make(map[string]float64),
	}
}

// A Report is a table of rows to be scored and rendered.
type Report struct {
	Title    string
	Sections []Section
	Columns  []Column
	Rows     []Row
	// Generated is shown in the footer.
	Generated time.Time
}

// A Cell is a rendered table cell. Blank cells hold no measurement.
type Cell struct {
	Color string
	Text  string
	Blank bool
}

// Batch is a run of consecutive rows that share a batch.
type Batch struct {
	ID    int
	Cells [][]Cell
}

// Score colors every cell of the report. Observations are added to
// the score table in row order, so rows tie for best or worst in the
// order they appear.
func (r *Report) Score() []Batch {
	blocks := r.blocks()
	table := score.NewTable()
	for i, row := range r.Rows {
		for _, col := range r.Columns {
			if !col.scored() {
				continue
			}
			table.Add(observation(row, i, blocks[i], col))
		}
	}
	var batches []Batch
	for i, row := range r.Rows {
		if len(batches) <= blocks[i] {
			batches = append(batches, Batch{ID: row.Batch})
		}
		var (
			tally score.Tally
			cells = make([]Cell, len(r.Columns))
		)
		for j, col := range r.Columns {
			cell := Cell{Color: score.White.String()}
			switch col.Kind {
			case Label:
				cell.Text = row.Labels[col.Name]
				cell.Blank = cell.Text == ""
			case Tally:
				cell.Text = tally.String()
			default:
				scored := table.Score(observation(row, i, blocks[i], col), col.direction())
				tally.Count(scored)
				cell.Color = scored.Color.String()
				cell.Text, cell.Blank = formatValue(col, row.Values[col.Name])
			}
			cells[j] = cell
		}
		b := &batches[blocks[i]]
		b.Cells = append(b.Cells, cells)
	}
	return batches
}

// blocks returns the index of the rendered block of each row. A new
// block starts wherever the batch differs from the previous row's.
func (r *Report) blocks() []int {
	blocks := make([]int, len(r.Rows))
	for i := 1; i < len(r.Rows); i++ {
		blocks[i] = blocks[i-1]
		if r.Rows[i].Batch != r.Rows[i-1].Batch {
			blocks[i]++
		}
	}
	return blocks
}

// observation keys row's value in col by its block, so that rows are
// only compared with the rows rendered alongside them.
func observation(row Row, i, block int, col Column) score.Observation {
	return score.Observation{
		Key:   score.Key{Batch: block, Column: col.Name},
		Row:   i,
		Value: row.Values[col.Name],
	}
}

func formatValue(col Column, v float64) (string, bool) {
	if v <= 0 {
		return "", true
	}
	format := col.Format
	if format == "" {
		format = "%0.1f"
	}
	return fmt.Sprintf(format, v), false
}

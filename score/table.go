// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package score

import "fmt"

// Key identifies a column group: one metric within one block of rows.
type Key struct {
	Batch  int
	Column string
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%s", k.Batch, k.Column)
}

// Observation is a single measurement of a column in a report row.
type Observation struct {
	Key
	Row   int
	Value float64
}

// Group accumulates the observations of a column group.
type Group struct {
	Values   []float64
	Max, Min Extremum

	ranked []float64
}

// Ranked returns the group's distinct valid values in ascending order.
func (g *Group) Ranked() []float64 {
	if g.ranked == nil {
		g.ranked = Rank(g.Values)
	}
	return g.ranked
}

func (g *Group) add(row int, v float64) {
	g.Values = append(g.Values, v)
	g.ranked = nil
	g.Max.TrackMax(v, row)
	g.Min.TrackMin(v, row)
}

// Class is the best/worst classification of a cell.
type Class int

const (
	Neutral Class = iota
	Best
	Worst
)

func (c Class) String() string {
	switch c {
	case Best:
		return "best"
	case Worst:
		return "worst"
	default:
		return "neutral"
	}
}

// Cell is the scored rendering of one observation.
type Cell struct {
	Color Color
	Class Class
}

// Table holds the column groups of one report pass. A Table is
// built by adding every observation in row order and is then
// queried with Score. The zero Table is not usable; use NewTable.
type Table struct {
	groups map[Key]*Group
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{groups: make(map[Key]*Group)}
}

// Add records an observation in its column group.
func (t *Table) Add(o Observation) {
	g := t.groups[o.Key]
	if g == nil {
		g = new(Group)
		t.groups[o.Key] = g
	}
	g.add(o.Row, o.Value)
}

// Group returns the column group for k, or nil if nothing was added
// under k.
func (t *Table) Group(k Key) *Group {
	return t.groups[k]
}

// Score colors and classifies observation o for a column with the
// provided direction. A cell that holds both the group maximum and
// minimum (every valid value in the group is equal) is neutral and
// white.
func (t *Table) Score(o Observation, dir Direction) Cell {
	g := t.groups[o.Key]
	if g == nil {
		return Cell{Color: White}
	}
	var best, worst bool
	switch dir {
	case HigherIsBetter:
		best, worst = g.Max.Has(o.Row), g.Min.Has(o.Row)
	case LowerIsBetter:
		best, worst = g.Min.Has(o.Row), g.Max.Has(o.Row)
	}
	switch {
	case best && worst:
		return Cell{Color: White}
	case best:
		return Cell{Color: ColorFor(o.Value, g.Ranked(), dir), Class: Best}
	case worst:
		return Cell{Color: ColorFor(o.Value, g.Ranked(), dir), Class: Worst}
	default:
		return Cell{Color: ColorFor(o.Value, g.Ranked(), dir)}
	}
}

// Tally counts the best and worst cells of a row.
type Tally struct {
	Best, Worst int
}

// Count adds c to the tally.
func (t *Tally) Count(c Cell) {
	switch c.Class {
	case Best:
		t.Best++
	case Worst:
		t.Worst++
	}
}

// String renders the tally as "best:worst".
func (t Tally) String() string {
	return fmt.Sprintf("%d:%d", t.Best, t.Worst)
}

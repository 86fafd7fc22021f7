// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package score

// Extremum tracks the extreme value of a column group together with
// every row that holds it, in the order the rows were observed.
type Extremum struct {
	Value float64
	Rows  []int
	set   bool
}

// TrackMax folds value, observed at row, into a maximum record.
func (e *Extremum) TrackMax(value float64, row int) {
	e.track(value, row, func(v, cur float64) bool { return v > cur })
}

// TrackMin folds value, observed at row, into a minimum record.
func (e *Extremum) TrackMin(value float64, row int) {
	e.track(value, row, func(v, cur float64) bool { return v < cur })
}

func (e *Extremum) track(value float64, row int, beats func(v, cur float64) bool) {
	if !Valid(value) {
		return
	}
	switch {
	case !e.set:
		e.Value, e.Rows, e.set = value, []int{row}, true
	case beats(value, e.Value):
		e.Value, e.Rows = value, []int{row}
	case value == e.Value:
		e.Rows = append(e.Rows, row)
	}
}

// Empty reports whether no valid value has been tracked.
func (e *Extremum) Empty() bool { return !e.set }

// Has reports whether row holds the extreme value.
func (e *Extremum) Has(row int) bool {
	for _, r := range e.Rows {
		if r == row {
			return true
		}
	}
	return false
}

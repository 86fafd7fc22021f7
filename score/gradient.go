// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package score implements the rank-based color scale used by fsbench
// reports. Values in a column group are ranked among the distinct
// values of that group and mapped onto a diverging red-white-green
// scale; the rows holding a group's extremes are tracked so that
// reports can mark best and worst cells.
package score

import (
	"fmt"
	"math"
	"sort"
)

// Direction tells which end of a column's range is good.
type Direction int

const (
	// HigherIsBetter is used for throughput-like metrics (K/sec,
	// ops/sec): the group maximum is green.
	HigherIsBetter Direction = iota
	// LowerIsBetter is used for CPU consumption and elapsed time:
	// the group minimum is green.
	LowerIsBetter
)

func (d Direction) String() string {
	switch d {
	case HigherIsBetter:
		return "ascending"
	case LowerIsBetter:
		return "descending"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Color is an RGB color as rendered into a bgcolor attribute.
type Color struct {
	R, G, B uint8
}

var (
	White = Color{255, 255, 255}
	Red   = Color{255, 0, 0}
	Green = Color{0, 255, 0}
)

// String returns the color as "#rrggbb".
func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Valid reports whether v is a real measurement. Non-positive values
// (-1 by convention) and NaNs mark values that were not measured.
func Valid(v float64) bool {
	return v > 0 && !math.IsNaN(v)
}

// Rank returns the distinct valid values of values in ascending order.
func Rank(values []float64) []float64 {
	seen := make(map[float64]bool, len(values))
	ranked := make([]float64, 0, len(values))
	for _, v := range values {
		if !Valid(v) || seen[v] {
			continue
		}
		seen[v] = true
		ranked = append(ranked, v)
	}
	sort.Float64s(ranked)
	return ranked
}

// ColorFor returns the color of value among the distinct sorted values
// ranked, as returned by Rank. Sentinels, values missing from ranked,
// and groups with a single distinct value are white.
func ColorFor(value float64, ranked []float64, dir Direction) Color {
	if !Valid(value) || len(ranked) < 2 {
		return White
	}
	idx := sort.SearchFloat64s(ranked, value)
	if idx == len(ranked) || ranked[idx] != value {
		return White
	}
	rank := float64(idx) / float64(len(ranked)-1)
	if dir == LowerIsBetter {
		rank = 1 - rank
	}
	return gradient(rank)
}

// gradient maps rank in [0, 1] to red (0), white (0.5) and green (1).
func gradient(rank float64) Color {
	offset := int(math.Round(510 * rank))
	if rank > 0.5 {
		c := clamp(510 - offset)
		return Color{c, 255, c}
	}
	c := clamp(offset)
	return Color{255, c, c}
}

func clamp(v int) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v)
	}
}

// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package fsbench

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/fsbench/results"
)

// A Step is one option combination a benchmark program is run with:
// the file size in megabytes and a program-specific second
// parameter (thousands of files for bonnie++, the record length in
// kilobytes for iozone).
type Step struct {
	Size  int
	Param int
}

func (s Step) String() string {
	return fmt.Sprintf("size=%dM param=%d", s.Size, s.Param)
}

// A Sweep walks the cross product of sizes and params. Params vary
// fastest, so a sweep over sizes [1 2] and params [a b] yields
// (1,a) (1,b) (2,a) (2,b).
type Sweep struct {
	Sizes, Params []int
	next          int
}

// Next returns the next step, or false when the sweep is done.
func (s *Sweep) Next() (Step, bool) {
	if len(s.Params) == 0 || s.next >= len(s.Sizes)*len(s.Params) {
		return Step{}, false
	}
	step := Step{
		Size:  s.Sizes[s.next/len(s.Params)],
		Param: s.Params[s.next%len(s.Params)],
	}
	s.next++
	return step, true
}

// Len returns the total number of steps in the sweep.
func (s *Sweep) Len() int {
	return len(s.Sizes) * len(s.Params)
}

// A Program is a benchmark program that fsbench drives.
type Program interface {
	// Name is the program's name as recorded in runs.
	Name() string
	// Sweep returns a new sweep over the program's options.
	Sweep() *Sweep
	// Command returns the command that benchmarks the filesystem
	// mounted at mountpoint, running as user.
	Command(step Step, mountpoint, user string) Cmd
	// Record parses the program's output and stores the result
	// under run runID.
	Record(store *results.Store, runID int64, timing results.Timing, output []byte) error
}

// Programs returns the benchmark programs with the provided names.
func Programs(names []string) ([]Program, error) {
	programs := make([]Program, 0, len(names))
	for _, name := range names {
		switch name {
		case results.Bonnie:
			programs = append(programs, NewBonnie())
		case results.Iozone:
			programs = append(programs, NewIozone())
		default:
			return nil, errors.E(errors.NotExist, "unknown benchmark program "+name)
		}
	}
	return programs, nil
}

// Bonnie runs bonnie++.
type Bonnie struct {
	// Sizes are file sizes in megabytes; Files are the numbers of
	// files, in thousands, for the file creation tests.
	Sizes, Files []int
}

// NewBonnie returns a bonnie++ program with the default sweep.
func NewBonnie() *Bonnie {
	return &Bonnie{
		Sizes: []int{1024, 2048, 4096},
		Files: []int{10, 25, 50, 100},
	}
}

func (*Bonnie) Name() string { return results.Bonnie }

func (b *Bonnie) Sweep() *Sweep {
	return &Sweep{Sizes: b.Sizes, Params: b.Files}
}

func (*Bonnie) Command(step Step, mountpoint, user string) Cmd {
	return Cmd{
		Name: "bonnie++",
		Args: []string{
			"-u", user,
			"-d", mountpoint,
			"-s", strconv.Itoa(step.Size),
			"-n", fmt.Sprintf("%d:100000:10:%d", step.Param, step.Param),
			"-x", "1",
		},
	}
}

func (*Bonnie) Record(store *results.Store, runID int64, timing results.Timing, output []byte) error {
	r, err := ParseBonnie(output)
	if err != nil {
		return err
	}
	r.RunID = runID
	r.Timing = timing
	return store.PutBonnie(r)
}

const bonnieFields = 27

// ParseBonnie parses the CSV line printed by bonnie++ -x (the 1.03
// format: name, size, then rate and CPU pairs with the file count
// between the seek and create tests). Tests bonnie++ ran too fast to
// measure are printed as runs of '+' and are recorded as -1, as are
// empty fields.
func ParseBonnie(output []byte) (*results.BonnieResult, error) {
	var line []string
	for _, l := range strings.Split(string(output), "\n") {
		fields := strings.Split(strings.TrimSpace(l), ",")
		if len(fields) < bonnieFields {
			continue
		}
		if _, err := bonnieValue(fields[2]); err != nil {
			// Header line.
			continue
		}
		line = fields
	}
	if line == nil {
		return nil, errors.E(errors.Invalid, "no bonnie++ result line in output")
	}
	var (
		vals [bonnieFields]float64
		err  error
	)
	for i := 2; i < bonnieFields; i++ {
		if i == 14 {
			continue
		}
		if vals[i], err = bonnieValue(line[i]); err != nil {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("bonnie++ field %d", i), err)
		}
	}
	return &results.BonnieResult{
		FileSize:     strings.TrimSpace(line[1]),
		Putc:         vals[2],
		PutcCPU:      vals[3],
		PutBlock:     vals[4],
		PutBlockCPU:  vals[5],
		Rewrite:      vals[6],
		RewriteCPU:   vals[7],
		Getc:         vals[8],
		GetcCPU:      vals[9],
		GetBlock:     vals[10],
		GetBlockCPU:  vals[11],
		Seeks:        vals[12],
		SeeksCPU:     vals[13],
		NumFiles:     strings.TrimSpace(line[14]),
		SeqCreate:    vals[15],
		SeqCreateCPU: vals[16],
		SeqStat:      vals[17],
		SeqStatCPU:   vals[18],
		SeqDel:       vals[19],
		SeqDelCPU:    vals[20],
		RanCreate:    vals[21],
		RanCreateCPU: vals[22],
		RanStat:      vals[23],
		RanStatCPU:   vals[24],
		RanDel:       vals[25],
		RanDelCPU:    vals[26],
	}, nil
}

func bonnieValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "+") {
		return -1, nil
	}
	return strconv.ParseFloat(s, 64)
}

// Iozone runs iozone with one file size and record length per step.
type Iozone struct {
	// Sizes are file sizes in megabytes; RecLens are record lengths
	// in kilobytes.
	Sizes, RecLens []int
}

// NewIozone returns an iozone program with the default sweep.
func NewIozone() *Iozone {
	return &Iozone{
		Sizes:   []int{1024, 2048, 4096},
		RecLens: []int{64, 512, 1024, 4096, 16348},
	}
}

func (*Iozone) Name() string { return results.Iozone }

func (z *Iozone) Sweep() *Sweep {
	return &Sweep{Sizes: z.Sizes, Params: z.RecLens}
}

// Command runs iozone from the mountpoint, where it creates its
// temporary file.
func (*Iozone) Command(step Step, mountpoint, user string) Cmd {
	return Cmd{
		Name: "iozone",
		Args: []string{"-s", fmt.Sprintf("%dM", step.Size), "-r", strconv.Itoa(step.Param)},
		Dir:  mountpoint,
	}
}

func (*Iozone) Record(store *results.Store, runID int64, timing results.Timing, output []byte) error {
	r, err := ParseIozone(output)
	if err != nil {
		return err
	}
	r.RunID = runID
	r.Timing = timing
	return store.PutIozone(r)
}

const iozoneFields = 15

// ParseIozone parses the last result row of iozone's report: the
// file size and record length in kilobytes followed by thirteen
// rates in K/sec.
func ParseIozone(output []byte) (*results.IozoneResult, error) {
	var (
		row  []string
		vals []float64
	)
	for _, l := range strings.Split(string(output), "\n") {
		fields := strings.Fields(l)
		if len(fields) < iozoneFields {
			continue
		}
		v, ok := numbers(fields[:iozoneFields])
		if !ok {
			continue
		}
		row, vals = fields, v
	}
	if row == nil {
		return nil, errors.E(errors.Invalid, "no iozone result row in output")
	}
	return &results.IozoneResult{
		FileSize:      row[0],
		RecLen:        row[1],
		Write:         vals[2],
		Rewrite:       vals[3],
		Read:          vals[4],
		Reread:        vals[5],
		RandRead:      vals[6],
		RandWrite:     vals[7],
		BackRead:      vals[8],
		RecordRewrite: vals[9],
		StrideRead:    vals[10],
		FWrite:        vals[11],
		FRewrite:      vals[12],
		FRead:         vals[13],
		FReread:       vals[14],
	}, nil
}

func numbers(fields []string) ([]float64, bool) {
	vals := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, false
		}
		vals[i] = v
	}
	return vals, true
}

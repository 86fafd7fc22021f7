// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package results stores benchmark runs and the parsed output of the
// benchmark programs run against them.
package results

import "time"

// Program names as recorded in Run.Program.
const (
	Bonnie = "bonnie"
	Iozone = "iozone"
)

// A Run is one execution of a benchmark program against one
// filesystem within a batch. A run may carry several result rows
// when the program is repeated.
type Run struct {
	ID        int64
	BenchID   int
	Program   string
	Batch     int
	Host      string
	Kernel    string
	FSType    string
	FSVersion string
}

// Timing records the command that produced a result and when it ran.
type Timing struct {
	Cmd   string
	Start time.Time
	End   time.Time
}

// Elapsed returns the wall time of the command in seconds.
func (t Timing) Elapsed() float64 {
	return t.End.Sub(t.Start).Seconds()
}

// BonnieResult is one line of bonnie++ CSV output. Fields bonnie++
// did not measure (printed as "+++++" or left empty) are -1. Rates
// are in K/sec for the sequential and seek tests and files/sec for the
// create tests; CPU fields are percentages.
type BonnieResult struct {
	RunID int64
	Timing

	FileSize     string
	Putc         float64
	PutcCPU      float64
	PutBlock     float64
	PutBlockCPU  float64
	Rewrite      float64
	RewriteCPU   float64
	Getc         float64
	GetcCPU      float64
	GetBlock     float64
	GetBlockCPU  float64
	Seeks        float64
	SeeksCPU     float64
	NumFiles     string
	SeqCreate    float64
	SeqCreateCPU float64
	SeqStat      float64
	SeqStatCPU   float64
	SeqDel       float64
	SeqDelCPU    float64
	RanCreate    float64
	RanCreateCPU float64
	RanStat      float64
	RanStatCPU   float64
	RanDel       float64
	RanDelCPU    float64
}

// IozoneResult is the summary line of an iozone run, in K/sec.
type IozoneResult struct {
	RunID int64
	Timing

	FileSize      string
	RecLen        string
	Write         float64
	Rewrite       float64
	Read          float64
	Reread        float64
	RandRead      float64
	RandWrite     float64
	BackRead      float64
	RecordRewrite float64
	StrideRead    float64
	FWrite        float64
	FRewrite      float64
	FRead         float64
	FReread       float64
}

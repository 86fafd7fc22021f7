// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package fsbench

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/grailbio/base/log"
)

// ProgressSnapshot is the state of a benchmark invocation at one
// point in time.
type ProgressSnapshot struct {
	BenchID    int
	Batch      int
	Program    string
	Step       Step
	Filesystem string
	// Runs counts benchmark executions; Failures counts those whose
	// command failed or whose output could not be recorded.
	Runs     int
	Failures int
	Started  time.Time
	Done     bool
}

// Progress tracks a running benchmark invocation. It implements
// expvar.Var so that it can be published with expvar.Publish.
type Progress struct {
	mu sync.Mutex
	s  ProgressSnapshot
}

// Snapshot returns the current state.
func (p *Progress) Snapshot() ProgressSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.s
}

func (p *Progress) update(fn func(*ProgressSnapshot)) {
	p.mu.Lock()
	fn(&p.s)
	p.mu.Unlock()
}

// String returns the JSON-formatted progress.
func (p *Progress) String() string {
	b, err := json.Marshal(p.Snapshot())
	if err != nil {
		log.Error.Printf("progress marshal: %v", err)
		return `"error"`
	}
	return string(b)
}

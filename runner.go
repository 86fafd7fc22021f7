// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package fsbench

import (
	"context"
	"fmt"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/fsbench/results"
	"golang.org/x/time/rate"
)

// A Runner benchmarks a set of filesystems with a set of benchmark
// programs. Each program walks its sweep one step per batch; within
// a batch every filesystem is formatted, mounted and benchmarked in
// turn. Runs are recorded in the store as they start, results as
// they are parsed.
type Runner struct {
	// Exec runs external commands; DryRun logs them instead.
	Exec  Executor
	Store *results.Store

	Device     Device
	Mountpoint string
	// User and Group own the mountpoint while benchmarks run.
	User, Group string

	Filesystems []Filesystem
	Programs    []Program
	// Runs is the number of times each program is run per
	// filesystem and step. The filesystem is recreated before each.
	Runs int
	// Pause is the minimum interval between benchmarked filesystems.
	Pause time.Duration
	// Host is recorded with every run.
	Host HostInfo
	// Progress, if non-nil, is updated as the runner proceeds.
	Progress *Progress
}

func (r *Runner) validate() error {
	switch {
	case r.Exec == nil:
		return errors.E(errors.Invalid, "runner has no executor")
	case r.Store == nil:
		return errors.E(errors.Invalid, "runner has no results store")
	case r.Device.Path == "":
		return errors.E(errors.Precondition, "no partition configured")
	case r.Mountpoint == "":
		return errors.E(errors.Precondition, "no mountpoint configured")
	case len(r.Filesystems) == 0:
		return errors.E(errors.Unavailable, "no filesystems to benchmark")
	case len(r.Programs) == 0:
		return errors.E(errors.Unavailable, "no benchmark programs")
	case r.Runs < 1:
		return errors.E(errors.Invalid, fmt.Sprintf("runs must be positive, got %d", r.Runs))
	}
	if r.Device.Journal == "" {
		for _, fs := range r.Filesystems {
			if fs.NeedsJournal() {
				return errors.E(errors.Precondition, fmt.Sprintf("filesystem %s needs a journal device", fs.Name))
			}
		}
	}
	return nil
}

// Run runs every program against every filesystem until all sweeps
// are exhausted. Failing benchmark commands are logged and skipped;
// failures to format or mount a filesystem stop the runner.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.validate(); err != nil {
		return err
	}
	if r.Progress == nil {
		r.Progress = new(Progress)
	}
	benchID, err := r.Store.NextBenchID()
	if err != nil {
		return errors.E("allocating bench id", err)
	}
	versions := make([]string, len(r.Filesystems))
	for i, fs := range r.Filesystems {
		versions[i] = fs.DetectVersion(ctx, r.Exec)
		log.Printf("%s: version %s", fs.Name, versions[i])
	}
	r.Progress.update(func(s *ProgressSnapshot) {
		*s = ProgressSnapshot{BenchID: benchID, Started: time.Now()}
	})
	log.Printf("bench %d: %d filesystems, %d programs, %d runs each on %s (%s)",
		benchID, len(r.Filesystems), len(r.Programs), r.Runs, r.Host.Hostname, r.Host.Kernel)

	var pacer *rate.Limiter
	if r.Pause > 0 {
		pacer = rate.NewLimiter(rate.Every(r.Pause), 1)
	}
	sweeps := make([]*Sweep, len(r.Programs))
	for i, prog := range r.Programs {
		sweeps[i] = prog.Sweep()
	}
	active := len(r.Programs)
	for batch := 0; active > 0; {
		for i, prog := range r.Programs {
			if sweeps[i] == nil {
				continue
			}
			step, ok := sweeps[i].Next()
			if !ok {
				log.Printf("%s: sweep done", prog.Name())
				sweeps[i] = nil
				active--
				continue
			}
			log.Printf("batch %d: %s %s", batch, prog.Name(), step)
			for j, fs := range r.Filesystems {
				if pacer != nil {
					if err := pacer.Wait(ctx); err != nil {
						return err
					}
				}
				run := &results.Run{
					BenchID:   benchID,
					Program:   prog.Name(),
					Batch:     batch,
					Host:      r.Host.Hostname,
					Kernel:    r.Host.Kernel,
					FSType:    fs.Name,
					FSVersion: versions[j],
				}
				if err := r.benchmark(ctx, prog, step, fs, run); err != nil {
					return err
				}
			}
			batch++
		}
	}
	r.Progress.update(func(s *ProgressSnapshot) { s.Done = true })
	log.Printf("bench %d: done", benchID)
	return nil
}

// benchmark records run and executes it r.Runs times on a freshly
// created filesystem.
func (r *Runner) benchmark(ctx context.Context, prog Program, step Step, fs Filesystem, run *results.Run) error {
	if err := r.Store.PutRun(run); err != nil {
		return errors.E("recording run", err)
	}
	r.Progress.update(func(s *ProgressSnapshot) {
		s.Batch, s.Program, s.Step, s.Filesystem = run.Batch, run.Program, step, fs.Name
	})
	for i := 0; i < r.Runs; i++ {
		log.Printf("run %d: %s on %s (%d/%d)", run.ID, prog.Name(), fs.Name, i+1, r.Runs)
		if err := Unmount(ctx, r.Exec, r.Device); err != nil {
			return err
		}
		if err := fs.Format(ctx, r.Exec, r.Device); err != nil {
			return err
		}
		if err := fs.Mount(ctx, r.Exec, r.Device, r.Mountpoint, owner(r.User, r.Group)); err != nil {
			return err
		}
		cmd := prog.Command(step, r.Mountpoint, r.User)
		timing := results.Timing{Cmd: cmd.String(), Start: time.Now()}
		out, err := r.Exec.Run(ctx, cmd)
		timing.End = time.Now()
		if _, dry := r.Exec.(dryRunExecutor); err == nil && !dry {
			if err = prog.Record(r.Store, run.ID, timing, out); err != nil {
				err = errors.E(fmt.Sprintf("recording %s output", prog.Name()), err)
			}
		}
		r.Progress.update(func(s *ProgressSnapshot) {
			s.Runs++
			if err != nil {
				s.Failures++
			}
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error.Printf("run %d: %s on %s: %v", run.ID, prog.Name(), fs.Name, err)
		}
		if err := Unmount(ctx, r.Exec, r.Device); err != nil {
			return err
		}
	}
	return nil
}

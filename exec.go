// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package fsbench

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/fsbench/internal/logio"
	"golang.org/x/time/rate"
)

// Cmd describes an external command.
type Cmd struct {
	// Name is the program to run; Args are its arguments.
	Name string
	Args []string
	// Dir is the working directory; empty means the current one.
	Dir string
	// Stderr includes the command's standard error in the returned
	// output, as a shell's 2>&1 would.
	Stderr bool
}

// String returns the command line.
func (c Cmd) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// An Executor runs external commands.
type Executor interface {
	// Run runs cmd to completion and returns its output. The output
	// is returned even if the command fails.
	Run(ctx context.Context, cmd Cmd) ([]byte, error)
}

// Exec is the Executor that runs commands on the local machine.
// Their output is logged at debug level as it is produced.
var Exec Executor = commandExecutor{}

// DryRun is an Executor that logs commands without running them.
var DryRun Executor = dryRunExecutor{}

// outputRate bounds how fast command output is copied to the log;
// benchmark programs can print progress much faster than that.
const outputRate = 20 * time.Millisecond

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, c Cmd) ([]byte, error) {
	log.Debug.Printf("exec: %s", c)
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	var (
		stdout, stderr bytes.Buffer
		w              = logio.NewWriter(log.Debug, c.Name+": ", rate.NewLimiter(rate.Every(outputRate), 100))
	)
	cmd.Stdout = io.MultiWriter(&stdout, w)
	if c.Stderr {
		// The same writer, so that exec serializes writes to it.
		cmd.Stderr = cmd.Stdout
	} else {
		cmd.Stderr = io.MultiWriter(&stderr, w)
	}
	err := cmd.Run()
	w.Flush()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if c.Stderr {
			msg = strings.TrimSpace(stdout.String())
		}
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		if msg != "" {
			return stdout.Bytes(), errors.E(fmt.Sprintf("running %s: %s", c, tail(msg, 512)), err)
		}
		return stdout.Bytes(), errors.E("running "+c.String(), err)
	}
	return stdout.Bytes(), nil
}

// tail returns at most the last n bytes of s.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}

type dryRunExecutor struct{}

func (dryRunExecutor) Run(ctx context.Context, c Cmd) ([]byte, error) {
	if c.Dir != "" {
		log.Printf("dry run: (cd %s; %s)", c.Dir, c)
	} else {
		log.Printf("dry run: %s", c)
	}
	return nil, ctx.Err()
}

// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package logio forwards the output of external commands to the log,
// one line at a time.
package logio

import (
	"bytes"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

var newline = []byte{'\n'}

// Printer is the subset of a log level used by Writer; log.Debug and
// log.Error are Printers.
type Printer interface {
	Print(v ...interface{})
}

// Writer is an io.Writer that prints each line written to it,
// prefixed by a fixed string. Lines written faster than the writer's
// rate limit are dropped; the number of dropped lines is reported
// with the next line that is let through, or on Flush.
type Writer struct {
	out     Printer
	prefix  string
	limiter *rate.Limiter

	mu      sync.Mutex
	partial []byte
	dropped int
}

// NewWriter returns a Writer that prints lines to out with the
// provided prefix. A nil limiter prints every line.
func NewWriter(out Printer, prefix string, limiter *rate.Limiter) *Writer {
	return &Writer{out: out, prefix: prefix, limiter: limiter}
}

// Write implements io.Writer. It never fails.
func (w *Writer) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n = len(p)
	for {
		i := bytes.Index(p, newline)
		if i < 0 {
			w.partial = append(w.partial, p...)
			return n, nil
		}
		w.partial = append(w.partial, p[:i]...)
		w.emit()
		p = p[i+1:]
	}
}

// Flush prints any trailing partial line and the count of lines
// that are still unreported.
func (w *Writer) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.partial) > 0 {
		w.emit()
	}
	if w.dropped > 0 {
		w.out.Print(w.prefix + dropped(w.dropped))
		w.dropped = 0
	}
}

func (w *Writer) emit() {
	line := w.prefix + string(w.partial)
	w.partial = w.partial[:0]
	if w.limiter != nil && !w.limiter.Allow() {
		w.dropped++
		return
	}
	if w.dropped > 0 {
		line += " " + dropped(w.dropped)
		w.dropped = 0
	}
	w.out.Print(line)
}

func dropped(n int) string {
	if n == 1 {
		return "(1 line dropped)"
	}
	return fmt.Sprintf("(%d lines dropped)", n)
}

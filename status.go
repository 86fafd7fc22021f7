// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package fsbench

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"text/tabwriter"
	"text/template"
	"time"

	"github.com/grailbio/base/data"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/shirou/gopsutil/disk"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/load"
	"github.com/shirou/gopsutil/mem"
	"golang.org/x/sync/errgroup"
)

// HostInfo describes the machine benchmarks run on. Hostname and
// Kernel are recorded with every run; the rest is informational and
// may be nil when unavailable.
type HostInfo struct {
	Hostname string
	Kernel   string
	Mem      *mem.VirtualMemoryStat
	Load     *load.AvgStat
	Disk     *disk.UsageStat
}

// GatherHostInfo collects information about the local machine. Disk
// usage is reported for the filesystem containing path.
func GatherHostInfo(ctx context.Context, path string) (HostInfo, error) {
	var info HostInfo
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h, err := host.InfoWithContext(ctx)
		if err != nil {
			return errors.E("reading host info", err)
		}
		info.Hostname, info.Kernel = h.Hostname, h.KernelVersion
		return nil
	})
	g.Go(func() error {
		m, err := mem.VirtualMemoryWithContext(ctx)
		if err != nil {
			log.Debug.Printf("reading memory info: %v", err)
			return nil
		}
		info.Mem = m
		return nil
	})
	g.Go(func() error {
		l, err := load.AvgWithContext(ctx)
		if err != nil {
			log.Debug.Printf("reading load averages: %v", err)
			return nil
		}
		info.Load = l
		return nil
	})
	g.Go(func() error {
		d, err := disk.UsageWithContext(ctx, path)
		if err != nil {
			log.Debug.Printf("reading disk usage of %s: %v", path, err)
			return nil
		}
		info.Disk = d
		return nil
	})
	err := g.Wait()
	return info, err
}

var startTime = time.Now()

var statusTemplate = template.Must(template.New("status").
	Funcs(template.FuncMap{
		"human": func(v uint64) string {
			return data.Size(v).String()
		},
	}).
	Parse(`{{.host.Hostname}} ({{.host.Kernel}})
	uptime:	{{.uptime}}
{{- with .host.Mem}}
	memory:
		total:	{{human .Total}}
		available:	{{human .Available}}
		(percent used):	{{printf "%.1f%%" .UsedPercent}}
{{- end}}
{{- with .host.Load}}
	load:	{{printf "%.1f %.1f %.1f" .Load1 .Load5 .Load15}}
{{- end}}
{{- with .host.Disk}}
	disk {{.Path}} ({{.Fstype}}):
		total:	{{human .Total}}
		used:	{{human .Used}}
		(percent):	{{printf "%.1f%%" .UsedPercent}}
{{- end}}
{{- with .progress}}
	bench:	{{.BenchID}}
	batch:	{{.Batch}}
	program:	{{.Program}} {{.Step}}
	filesystem:	{{.Filesystem}}
	runs:	{{.Runs}} ({{.Failures}} failed)
{{- end}}
`))

// WriteStatus writes a human-readable status of the host and of the
// benchmark in progress, if p is non-nil.
func WriteStatus(w io.Writer, info HostInfo, p *Progress) error {
	var tw tabwriter.Writer
	tw.Init(w, 4, 4, 1, ' ', 0)
	vars := map[string]interface{}{
		"host":   info,
		"uptime": time.Since(startTime).Round(time.Second),
	}
	if p != nil {
		vars["progress"] = p.Snapshot()
	}
	if err := statusTemplate.Execute(&tw, vars); err != nil {
		return err
	}
	return tw.Flush()
}

// StatusHandler serves the status of the host and of the benchmark
// tracked by Progress.
type StatusHandler struct {
	Path     string
	Progress *Progress
}

func (s *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	info, err := GatherHostInfo(r.Context(), s.Path)
	if err != nil {
		http.Error(w, fmt.Sprint(err), 500)
		return
	}
	if err := WriteStatus(w, info, s.Progress); err != nil {
		log.Error.Printf("writing status: %v", err)
	}
}

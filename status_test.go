// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package fsbench

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/shirou/gopsutil/disk"
	"github.com/shirou/gopsutil/load"
	"github.com/shirou/gopsutil/mem"
)

func TestWriteStatus(t *testing.T) {
	info := HostInfo{
		Hostname: "bench1",
		Kernel:   "5.4.0",
		Mem:      &mem.VirtualMemoryStat{Total: 16 << 30, Available: 8 << 30, UsedPercent: 50},
		Load:     &load.AvgStat{Load1: 1, Load5: 0.5, Load15: 0.3},
		Disk:     &disk.UsageStat{Path: "/mnt/fsbench", Fstype: "xfs", Total: 100 << 30, Used: 25 << 30, UsedPercent: 25},
	}
	p := new(Progress)
	p.update(func(s *ProgressSnapshot) {
		s.BenchID = 3
		s.Program = "bonnie"
		s.Step = Step{Size: 1024, Param: 10}
		s.Filesystem = "xfs"
		s.Runs = 7
		s.Failures = 1
	})
	var b bytes.Buffer
	assert.NoError(t, WriteStatus(&b, info, p))
	out := b.String()
	for _, want := range []string{
		"bench1 (5.4.0)",
		"50.0%",
		"1.0 0.5 0.3",
		"disk /mnt/fsbench (xfs)",
		"bonnie size=1024M param=10",
		"7 (1 failed)",
	} {
		expect.HasSubstr(t, out, want)
	}

	// Missing information is omitted.
	b.Reset()
	assert.NoError(t, WriteStatus(&b, HostInfo{Hostname: "bench1"}, nil))
	expect.False(t, bytes.Contains(b.Bytes(), []byte("memory")))
	expect.False(t, bytes.Contains(b.Bytes(), []byte("bench:")))
}

func TestProgressVar(t *testing.T) {
	p := new(Progress)
	p.update(func(s *ProgressSnapshot) { s.Runs = 2 })
	var snap ProgressSnapshot
	assert.NoError(t, json.Unmarshal([]byte(p.String()), &snap))
	expect.EQ(t, snap.Runs, 2)
}

func TestGatherHostInfo(t *testing.T) {
	info, err := GatherHostInfo(context.Background(), os.TempDir())
	assert.NoError(t, err)
	expect.True(t, info.Hostname != "")
}

func TestStatusHandler(t *testing.T) {
	h := &StatusHandler{Path: os.TempDir(), Progress: new(Progress)}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/status", nil))
	expect.EQ(t, w.Code, 200)
	expect.HasSubstr(t, w.Body.String(), "runs:")
}

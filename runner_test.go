// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package fsbench

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/fsbench/results"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func newTestRunner(t *testing.T, x Executor) (*Runner, func()) {
	t.Helper()
	store, err := results.Open("")
	assert.NoError(t, err)
	fss, err := Lookup([]string{"ext2", "xfs"}, nil)
	assert.NoError(t, err)
	r := &Runner{
		Exec:        x,
		Store:       store,
		Device:      Device{Path: "/dev/sdb1"},
		Mountpoint:  "/mnt/fsbench",
		User:        "nobody",
		Group:       "nogroup",
		Filesystems: fss,
		Programs: []Program{
			&Bonnie{Sizes: []int{1024}, Files: []int{10, 25}},
			&Iozone{Sizes: []int{1024}, RecLens: []int{64}},
		},
		Runs:     2,
		Host:     HostInfo{Hostname: "bench1", Kernel: "5.4.0"},
		Progress: new(Progress),
	}
	return r, func() { assert.NoError(t, store.Close()) }
}

type runKey struct {
	Program string
	Batch   int
	FSType  string
}

func TestRunner(t *testing.T) {
	defer withFastUnmount(t)()
	x := newFakeExecutor()
	x.output["mkfs.xfs"] = "mkfs.xfs version 5.0.0\n"
	r, cleanup := newTestRunner(t, x)
	defer cleanup()
	assert.NoError(t, r.Run(context.Background()))

	runs, err := r.Store.Runs("")
	assert.NoError(t, err)
	var keys []runKey
	for _, run := range runs {
		keys = append(keys, runKey{run.Program, run.Batch, run.FSType})
		expect.EQ(t, run.BenchID, 0)
		expect.EQ(t, run.Host, "bench1")
		expect.EQ(t, run.Kernel, "5.4.0")
		switch run.FSType {
		case "xfs":
			expect.EQ(t, run.FSVersion, "5.0.0")
		case "ext2":
			expect.EQ(t, run.FSVersion, "unknown")
		}
	}
	want := []runKey{
		{"bonnie", 0, "ext2"},
		{"bonnie", 0, "xfs"},
		{"iozone", 1, "ext2"},
		{"iozone", 1, "xfs"},
		{"bonnie", 2, "ext2"},
		{"bonnie", 2, "xfs"},
	}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Errorf("runs (-want +got):\n%s", diff)
	}

	for _, run := range runs {
		switch run.Program {
		case results.Bonnie:
			rs, err := r.Store.Bonnie(run.ID)
			assert.NoError(t, err)
			assert.EQ(t, len(rs), 2)
			expect.EQ(t, rs[0].RunID, run.ID)
			expect.EQ(t, rs[0].Putc, 45678.0)
			expect.HasSubstr(t, rs[0].Cmd, "bonnie++ -u nobody -d /mnt/fsbench")
			expect.False(t, rs[0].End.Before(rs[0].Start))
		case results.Iozone:
			rs, err := r.Store.Iozone(run.ID)
			assert.NoError(t, err)
			expect.EQ(t, len(rs), 2)
		}
	}

	expect.EQ(t, x.commands("bonnie++"), []string{
		"bonnie++ -u nobody -d /mnt/fsbench -s 1024 -n 10:100000:10:10 -x 1",
		"bonnie++ -u nobody -d /mnt/fsbench -s 1024 -n 10:100000:10:10 -x 1",
		"bonnie++ -u nobody -d /mnt/fsbench -s 1024 -n 10:100000:10:10 -x 1",
		"bonnie++ -u nobody -d /mnt/fsbench -s 1024 -n 10:100000:10:10 -x 1",
		"bonnie++ -u nobody -d /mnt/fsbench -s 1024 -n 25:100000:10:25 -x 1",
		"bonnie++ -u nobody -d /mnt/fsbench -s 1024 -n 25:100000:10:25 -x 1",
		"bonnie++ -u nobody -d /mnt/fsbench -s 1024 -n 25:100000:10:25 -x 1",
		"bonnie++ -u nobody -d /mnt/fsbench -s 1024 -n 25:100000:10:25 -x 1",
	})
	// Every run is formatted and mounted afresh.
	expect.EQ(t, len(x.commands("mount")), 12)
	expect.EQ(t, len(x.commands("chown")), 12)
	expect.EQ(t, x.commands("chown")[0], "chown -R nobody:nogroup /mnt/fsbench")
	expect.EQ(t, len(x.commands("umount")), 24)

	p := r.Progress.Snapshot()
	expect.EQ(t, p.Runs, 12)
	expect.EQ(t, p.Failures, 0)
	expect.True(t, p.Done)

	// A second invocation gets the next bench ID.
	r.Programs = []Program{&Iozone{Sizes: []int{1024}, RecLens: []int{64}}}
	assert.NoError(t, r.Run(context.Background()))
	ids, err := r.Store.BenchIDs(results.Iozone)
	assert.NoError(t, err)
	expect.EQ(t, ids, []int{1, 0})
	ids, err = r.Store.BenchIDs(results.Bonnie)
	assert.NoError(t, err)
	expect.EQ(t, ids, []int{0})
}

func TestRunnerBenchmarkFailure(t *testing.T) {
	defer withFastUnmount(t)()
	x := newFakeExecutor()
	x.fail["bonnie++"] = 1
	x.output["iozone"] = "garbage"
	r, cleanup := newTestRunner(t, x)
	defer cleanup()
	assert.NoError(t, r.Run(context.Background()))

	p := r.Progress.Snapshot()
	expect.EQ(t, p.Runs, 12)
	// One bonnie++ failure and four unparseable iozone outputs.
	expect.EQ(t, p.Failures, 5)

	runs, err := r.Store.Runs(results.Bonnie)
	assert.NoError(t, err)
	rs, err := r.Store.Bonnie(runs[0].ID)
	assert.NoError(t, err)
	expect.EQ(t, len(rs), 1)
	rs, err = r.Store.Bonnie(runs[1].ID)
	assert.NoError(t, err)
	expect.EQ(t, len(rs), 2)
}

func TestRunnerMountFailure(t *testing.T) {
	defer withFastUnmount(t)()
	x := newFakeExecutor()
	x.fail["mount"] = -1
	r, cleanup := newTestRunner(t, x)
	defer cleanup()
	err := r.Run(context.Background())
	expect.HasSubstr(t, err.Error(), "mounting /dev/sdb1 (ext2)")
	expect.EQ(t, len(x.commands("bonnie++")), 0)
}

func TestRunnerDryRun(t *testing.T) {
	r, cleanup := newTestRunner(t, DryRun)
	defer cleanup()
	assert.NoError(t, r.Run(context.Background()))
	runs, err := r.Store.Runs("")
	assert.NoError(t, err)
	expect.EQ(t, len(runs), 6)
	for _, run := range runs {
		rs, err := r.Store.Bonnie(run.ID)
		assert.NoError(t, err)
		expect.EQ(t, len(rs), 0)
	}
	expect.EQ(t, r.Progress.Snapshot().Failures, 0)
}

func TestRunnerValidate(t *testing.T) {
	r, cleanup := newTestRunner(t, newFakeExecutor())
	defer cleanup()
	ctx := context.Background()

	saved := *r
	r.Filesystems = nil
	expect.True(t, errors.Is(errors.Unavailable, r.Run(ctx)))

	*r = saved
	r.Programs = nil
	expect.True(t, errors.Is(errors.Unavailable, r.Run(ctx)))

	*r = saved
	r.Runs = 0
	expect.True(t, errors.Is(errors.Invalid, r.Run(ctx)))

	*r = saved
	r.Device = Device{}
	expect.True(t, errors.Is(errors.Precondition, r.Run(ctx)))
}

func TestRunnerJournalDevice(t *testing.T) {
	defer withFastUnmount(t)()
	x := newFakeExecutor()
	r, cleanup := newTestRunner(t, x)
	defer cleanup()
	fss, err := Lookup([]string{"ext2", "ext3_ordered_ext_journal"}, nil)
	assert.NoError(t, err)
	r.Filesystems = fss
	r.Programs = r.Programs[:1]
	r.Runs = 1

	err = r.Run(context.Background())
	expect.True(t, errors.Is(errors.Precondition, err))
	expect.HasSubstr(t, err.Error(), "ext3_ordered_ext_journal needs a journal device")
	expect.EQ(t, len(x.cmds), 0)
	runs, err := r.Store.Runs("")
	assert.NoError(t, err)
	expect.EQ(t, len(runs), 0)

	r.Device.Journal = "/dev/ram0"
	assert.NoError(t, r.Run(context.Background()))
	expect.EQ(t, x.commands("mke2fs")[0], "mke2fs -F -O journal_dev /dev/ram0")
}

func TestRunnerOwner(t *testing.T) {
	defer withFastUnmount(t)()
	x := newFakeExecutor()
	r, cleanup := newTestRunner(t, x)
	defer cleanup()
	r.Programs = r.Programs[:1]
	r.Runs = 1
	r.Group = ""
	assert.NoError(t, r.Run(context.Background()))
	c := Config{User: r.User, Group: r.Group}
	for _, line := range x.commands("chown") {
		expect.EQ(t, line, "chown -R "+c.Owner()+" /mnt/fsbench")
	}
	expect.EQ(t, x.commands("chown")[0], "chown -R nobody /mnt/fsbench")
}

func TestRunnerCanceled(t *testing.T) {
	x := newFakeExecutor()
	r, cleanup := newTestRunner(t, x)
	defer cleanup()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	expect.NotNil(t, r.Run(ctx))
	expect.EQ(t, len(x.commands("bonnie++")), 0)
}

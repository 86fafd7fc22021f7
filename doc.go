// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

/*
	Package fsbench benchmarks Linux filesystems. A benchmark
	invocation repeatedly formats a scratch partition with each of a
	set of filesystems, mounts it, and runs benchmark programs
	(bonnie++ and iozone) against it, recording every run and its
	parsed results in a results store.

	Programs are run over a sweep of option combinations. Each step
	of a program's sweep is a batch: within a batch, every filesystem
	is benchmarked with the same options, so that results in a batch
	are directly comparable. Package report renders these batches,
	coloring each measurement by its rank within its batch.

	A typical invocation:

		runner := &fsbench.Runner{
			Exec:        fsbench.Exec,
			Store:       store,
			Device:      fsbench.Device{Path: "/dev/sdb1"},
			Mountpoint:  "/mnt/fsbench",
			User:        "nobody",
			Filesystems: filesystems,
			Programs:    programs,
			Runs:        1,
		}
		err := runner.Run(ctx)

	Filesystems beyond the builtin set may be described in a YAML plan:

		journal: /dev/sdc1
		filesystems:
		- name: ext4_nobarrier
		  type: ext4
		  mount_options: barrier=0
		  mkfs:
		  - [mkfs.ext4, -F, "{{dev}}"]
		  version: [mkfs.ext4, -V]
		  version_pattern: 'mke2fs ([0-9.]+)'

	Running a benchmark erases the scratch partition. The status of a
	running invocation is available through WriteStatus and, over
	HTTP, StatusHandler.
*/
package fsbench

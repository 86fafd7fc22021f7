// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package fsbench

import (
	"fmt"
	"strings"
	"time"

	"github.com/grailbio/base/config"
	"github.com/grailbio/base/errors"
)

// Config holds the settings of a benchmark invocation. It is
// constructed from the "fsbench" config instance.
type Config struct {
	// Partition is the scratch partition, e.g. "sdb1" or "/dev/loop1".
	Partition string
	// Journal is the partition used for external journals.
	Journal     string
	Mountpoint  string
	User, Group string
	Filesystems []string
	Programs    []string
	Runs        int
	DryRun      bool
	// Store is the results directory; empty keeps results in memory.
	Store string
	// Plan is an optional YAML file of additional filesystems.
	Plan  string
	Pause time.Duration
	// HTTP is the address on which the status page is served; empty
	// disables it.
	HTTP string
	// Bucket and Prefix locate published reports in S3; an empty
	// bucket disables uploads.
	Bucket, Prefix string
}

func init() {
	config.Register("fsbench", func(constr *config.Constructor) {
		var c Config
		constr.StringVar(&c.Partition, "partition", "", "the scratch partition that is formatted for every run")
		constr.StringVar(&c.Journal, "journal", "", "the partition used for external journals")
		constr.StringVar(&c.Mountpoint, "mountpoint", "/mnt/fsbench", "where the scratch partition is mounted")
		constr.StringVar(&c.User, "user", "nobody", "user that owns the mountpoint and runs the benchmarks")
		constr.StringVar(&c.Group, "group", "nogroup", "group that owns the mountpoint")
		filesystems := constr.String("filesystems", "ext2,ext3_ordered,xfs", "comma-separated list of filesystems to benchmark")
		programs := constr.String("programs", "bonnie,iozone", "comma-separated list of benchmark programs")
		runs := constr.Int("runs", 1, "number of runs per filesystem and option combination")
		constr.BoolVar(&c.DryRun, "dryrun", false, "log commands instead of running them")
		constr.StringVar(&c.Store, "store", "fsbench.db", "directory of the results database")
		constr.StringVar(&c.Plan, "plan", "", "YAML file with additional filesystem definitions")
		pause := constr.String("pause", "1s", "minimum interval between benchmarked filesystems")
		constr.StringVar(&c.HTTP, "http", "", "address on which to serve status")
		constr.StringVar(&c.Bucket, "bucket", "", "S3 bucket to which reports are published")
		constr.StringVar(&c.Prefix, "prefix", "fsbench/", "S3 key prefix for published reports")
		constr.Doc = "fsbench configures filesystem benchmark runs and reports"
		constr.New = func() (interface{}, error) {
			var err error
			if c.Pause, err = time.ParseDuration(*pause); err != nil {
				return nil, errors.E(errors.Invalid, fmt.Sprintf("pause %q", *pause), err)
			}
			c.Runs = *runs
			c.Filesystems = splitList(*filesystems)
			c.Programs = splitList(*programs)
			return &c, nil
		}
	})
}

func splitList(s string) []string {
	var list []string
	for _, elem := range strings.Split(s, ",") {
		if elem = strings.TrimSpace(elem); elem != "" {
			list = append(list, elem)
		}
	}
	return list
}

// Owner returns the "user:group" owner of the mountpoint.
func (c *Config) Owner() string {
	return owner(c.User, c.Group)
}

func owner(user, group string) string {
	if group == "" {
		return user
	}
	return user + ":" + group
}

// Device returns the devices described by the configuration.
func (c *Config) Device() Device {
	d := Device{Path: DevicePath(c.Partition)}
	if c.Journal != "" {
		d.Journal = DevicePath(c.Journal)
	}
	return d
}

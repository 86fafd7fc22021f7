// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package fsbench

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/retry"
)

// Placeholders substituted in filesystem command arguments.
const (
	devPlaceholder     = "{{dev}}"
	journalPlaceholder = "{{journal}}"
)

// A Filesystem describes how to create and mount one filesystem
// configuration under test. Several configurations may share a
// filesystem type and differ in mkfs or mount options.
type Filesystem struct {
	// Name identifies the configuration in results and reports.
	Name string `yaml:"name"`
	// Type is the type passed to mount -t.
	Type string `yaml:"type"`
	// MountOptions are passed to mount -o when non-empty.
	MountOptions string `yaml:"mount_options"`
	// Mkfs lists the commands that create the filesystem, in order.
	Mkfs [][]string `yaml:"mkfs"`
	// Version is the command that prints the mkfs version, and
	// VersionPattern a regular expression whose first group
	// extracts it.
	Version        []string `yaml:"version"`
	VersionPattern string   `yaml:"version_pattern"`
}

// Validate checks that fs is complete.
func (fs Filesystem) Validate() error {
	switch {
	case fs.Name == "":
		return errors.E(errors.Invalid, "filesystem has no name")
	case fs.Type == "":
		return errors.E(errors.Invalid, fmt.Sprintf("filesystem %s: no type", fs.Name))
	case len(fs.Mkfs) == 0:
		return errors.E(errors.Invalid, fmt.Sprintf("filesystem %s: no mkfs commands", fs.Name))
	}
	for _, argv := range fs.Mkfs {
		if len(argv) == 0 {
			return errors.E(errors.Invalid, fmt.Sprintf("filesystem %s: empty mkfs command", fs.Name))
		}
	}
	if fs.VersionPattern != "" {
		if _, err := regexp.Compile(fs.VersionPattern); err != nil {
			return errors.E(errors.Invalid, fmt.Sprintf("filesystem %s: version pattern", fs.Name), err)
		}
	}
	return nil
}

// NeedsJournal tells whether formatting fs uses a separate journal
// device.
func (fs Filesystem) NeedsJournal() bool {
	for _, argv := range fs.Mkfs {
		for _, arg := range argv {
			if strings.Contains(arg, journalPlaceholder) {
				return true
			}
		}
	}
	return false
}

const (
	twoPartVersion   = `([0-9]{1,2}\.[0-9]{1,2})`
	threePartVersion = `([0-9]{1,2}\.[0-9]{1,2}\.[0-9]{1,2})`
)

func mkfs(argv ...string) [][]string { return [][]string{argv} }

// Builtin lists the filesystem configurations fsbench knows about.
var Builtin = []Filesystem{
	{
		Name:           "ext2",
		Type:           "ext2",
		Mkfs:           mkfs("mkfs.ext2", "-F", devPlaceholder),
		Version:        []string{"mkfs.ext2", "-V"},
		VersionPattern: twoPartVersion,
	},
	{
		Name:           "ext3_ordered",
		Type:           "ext3",
		MountOptions:   "data=ordered",
		Mkfs:           mkfs("mkfs.ext3", "-F", devPlaceholder),
		Version:        []string{"mkfs.ext3", "-V"},
		VersionPattern: twoPartVersion,
	},
	{
		Name:         "ext3_ordered_ext_journal",
		Type:         "ext3",
		MountOptions: "data=ordered",
		Mkfs: [][]string{
			{"dd", "if=/dev/zero", "of=" + journalPlaceholder, "bs=1k", "count=32768"},
			{"mke2fs", "-F", "-O", "journal_dev", journalPlaceholder},
			{"mkfs.ext3", "-F", "-J", "device=" + journalPlaceholder, devPlaceholder},
		},
		Version:        []string{"mkfs.ext3", "-V"},
		VersionPattern: twoPartVersion,
	},
	{
		Name:           "ext3_journal",
		Type:           "ext3",
		MountOptions:   "data=journal",
		Mkfs:           mkfs("mkfs.ext3", "-F", devPlaceholder),
		Version:        []string{"mkfs.ext3", "-V"},
		VersionPattern: twoPartVersion,
	},
	{
		Name:           "ext3_writeback",
		Type:           "ext3",
		MountOptions:   "data=writeback",
		Mkfs:           mkfs("mkfs.ext3", "-F", devPlaceholder),
		Version:        []string{"mkfs.ext3", "-V"},
		VersionPattern: twoPartVersion,
	},
	{
		Name:           "xfs",
		Type:           "xfs",
		Mkfs:           mkfs("mkfs.xfs", "-f", devPlaceholder),
		Version:        []string{"mkfs.xfs", "-V"},
		VersionPattern: threePartVersion,
	},
	{
		Name:           "jfs",
		Type:           "jfs",
		Mkfs:           mkfs("mkfs.jfs", "-q", devPlaceholder),
		Version:        []string{"mkfs.jfs", "-V"},
		VersionPattern: threePartVersion,
	},
	{
		Name:           "reiserfs",
		Type:           "reiserfs",
		Mkfs:           mkfs("mkfs.reiserfs", "-f", devPlaceholder),
		Version:        []string{"mkfs.reiserfs", "-V"},
		VersionPattern: threePartVersion,
	},
	{
		Name: "reiserfs_ext_journal",
		Type: "reiserfs",
		Mkfs: [][]string{
			{"dd", "if=/dev/zero", "of=" + journalPlaceholder, "bs=1k", "count=32768"},
			{"mkfs.reiserfs", "-j", journalPlaceholder, "-f", devPlaceholder},
		},
		Version:        []string{"mkfs.reiserfs", "-V"},
		VersionPattern: threePartVersion,
	},
	{
		Name:           "reiserfs_notail",
		Type:           "reiserfs",
		MountOptions:   "notail",
		Mkfs:           mkfs("mkfs.reiserfs", "-f", devPlaceholder),
		Version:        []string{"mkfs.reiserfs", "-V"},
		VersionPattern: threePartVersion,
	},
	{
		Name:           "reiser4",
		Type:           "reiser4",
		Mkfs:           mkfs("mkfs.reiser4", "-fq", devPlaceholder),
		Version:        []string{"mkfs.reiser4", "-V"},
		VersionPattern: threePartVersion,
	},
	{
		Name:           "reiser4_extents",
		Type:           "reiser4",
		Mkfs:           mkfs("mkfs.reiser4", "-fq", "-o", "policy=extents", devPlaceholder),
		Version:        []string{"mkfs.reiser4", "-V"},
		VersionPattern: threePartVersion,
	},
	{
		Name: "vfat",
		Type: "vfat",
		Mkfs: mkfs("mkfs.vfat", "-F", "32", devPlaceholder),
		// mkdosfs prints its banner and exits non-zero without arguments.
		Version:        []string{"mkdosfs"},
		VersionPattern: `([0-9]\.[0-9])`,
	},
}

// Lookup returns the filesystems named by names, searching extra
// before the builtin configurations.
func Lookup(names []string, extra []Filesystem) ([]Filesystem, error) {
	byName := make(map[string]Filesystem)
	for _, fs := range Builtin {
		byName[fs.Name] = fs
	}
	for _, fs := range extra {
		byName[fs.Name] = fs
	}
	filesystems := make([]Filesystem, 0, len(names))
	for _, name := range names {
		fs, ok := byName[name]
		if !ok {
			return nil, errors.E(errors.NotExist, "unknown filesystem "+name)
		}
		filesystems = append(filesystems, fs)
	}
	return filesystems, nil
}

// Device holds the block devices a filesystem is created on.
type Device struct {
	// Path is the scratch partition, for example /dev/loop1. It is
	// erased by every Format.
	Path string
	// Journal is the device used for external journals.
	Journal string
}

// DevicePath turns a partition name such as "sdb1" into a device path.
func DevicePath(partition string) string {
	if strings.HasPrefix(partition, "/") {
		return partition
	}
	return "/dev/" + partition
}

func (d Device) expand(argv []string) Cmd {
	args := make([]string, len(argv)-1)
	for i, arg := range argv[1:] {
		arg = strings.Replace(arg, devPlaceholder, d.Path, -1)
		args[i] = strings.Replace(arg, journalPlaceholder, d.Journal, -1)
	}
	return Cmd{Name: argv[0], Args: args}
}

// Format creates the filesystem on dev, destroying its contents.
func (fs Filesystem) Format(ctx context.Context, x Executor, dev Device) error {
	for _, argv := range fs.Mkfs {
		if _, err := x.Run(ctx, dev.expand(argv)); err != nil {
			return errors.E(fmt.Sprintf("formatting %s as %s", dev.Path, fs.Name), err)
		}
	}
	return nil
}

// Mount mounts dev at mountpoint and hands the mountpoint to owner
// ("user:group") so that benchmarks need not run as root.
func (fs Filesystem) Mount(ctx context.Context, x Executor, dev Device, mountpoint, owner string) error {
	args := []string{"-t", fs.Type}
	if fs.MountOptions != "" {
		args = append(args, "-o", fs.MountOptions)
	}
	args = append(args, dev.Path, mountpoint)
	if _, err := x.Run(ctx, Cmd{Name: "mount", Args: args}); err != nil {
		return errors.E(fmt.Sprintf("mounting %s (%s) at %s", dev.Path, fs.Name, mountpoint), err)
	}
	if _, err := x.Run(ctx, Cmd{Name: "chown", Args: []string{"-R", owner, mountpoint}}); err != nil {
		return errors.E(fmt.Sprintf("chown %s %s", owner, mountpoint), err)
	}
	return nil
}

var (
	unmountPolicy   = retry.Backoff(500*time.Millisecond, 5*time.Second, 2)
	maxUnmountTries = 6
)

// Unmount unmounts dev. A device that is not mounted is not an
// error; a busy device is retried for a while, since benchmark
// processes may still be exiting.
func Unmount(ctx context.Context, x Executor, dev Device) error {
	for retries := 0; ; retries++ {
		out, err := x.Run(ctx, Cmd{Name: "umount", Args: []string{dev.Path}, Stderr: true})
		if err == nil {
			return nil
		}
		if !isBusy(out, err) {
			log.Debug.Printf("umount %s: %v", dev.Path, err)
			return nil
		}
		if retries+1 >= maxUnmountTries {
			return errors.E(errors.Unavailable, "unmounting "+dev.Path, err)
		}
		log.Printf("umount %s: device busy; retrying (%d)", dev.Path, retries)
		if err := retry.Wait(ctx, unmountPolicy, retries); err != nil {
			return errors.E("unmounting "+dev.Path, err)
		}
	}
}

func isBusy(out []byte, err error) bool {
	return strings.Contains(string(out), "busy") || strings.Contains(err.Error(), "busy")
}

// DetectVersion runs the filesystem's version command and extracts
// the version from its output; it returns "unknown" if none is found.
func (fs Filesystem) DetectVersion(ctx context.Context, x Executor) string {
	if len(fs.Version) == 0 || fs.VersionPattern == "" {
		return "unknown"
	}
	cmd := Cmd{Name: fs.Version[0], Args: fs.Version[1:], Stderr: true}
	out, err := x.Run(ctx, cmd)
	if err != nil {
		log.Debug.Printf("%s: %v", cmd, err)
	}
	m := regexp.MustCompile(fs.VersionPattern).FindSubmatch(out)
	if len(m) < 2 {
		log.Printf("%s: no version found in output of %s", fs.Name, cmd)
		return "unknown"
	}
	return string(m[1])
}

// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

/*
	Fsbench benchmarks Linux filesystems and reports the results.

		fsbench [flags] run
		fsbench [flags] report bonnie|iozone
		fsbench [flags] status

	Run formats the configured scratch partition with each configured
	filesystem in turn and runs bonnie++ and iozone against it,
	storing every run in the results database. Run erases the scratch
	partition; it must be run as root.

	Report renders the results of the newest benchmark invocations
	as an HTML table, coloring each measurement from red (worst)
	through white to green (best) among the filesystems benchmarked
	with the same options. Reports are written to standard output or
	to the directory named by -out, and uploaded to S3 when a bucket
	is configured.

	Status prints information about the host benchmarks run on.

	Settings are read from the "fsbench" instance of the grail
	profile, for example:

		% fsbench -set fsbench.partition=sdb1 -set fsbench.filesystems=ext2,xfs run
		2019/10/01 12:00:00 ext2: version 1.45
		2019/10/01 12:00:00 xfs: version 5.0.0
		2019/10/01 12:00:00 bench 0: 2 filesystems, 2 programs, 1 runs each on bench1 (5.4.0)
		2019/10/01 12:00:00 batch 0: bonnie size=1024M param=10
		2019/10/01 12:00:01 run 1: bonnie on ext2 (1/1)
		...

	When fsbench.http is set, run serves its progress at /status and
	/debug/vars.
*/
package main

import (
	"context"
	"expvar"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/grailbio/base/config"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/must"
	"github.com/grailbio/fsbench"
	"github.com/grailbio/fsbench/report"
	"github.com/grailbio/fsbench/results"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage:
	fsbench [flags] run
	fsbench [flags] report bonnie|iozone
	fsbench [flags] status

flags:
`)
	flag.PrintDefaults()
	os.Exit(2)
}

func main() {
	var (
		benches = flag.Int("benches", 0, "number of newest benches to report; 0 uses 2 for bonnie and 1 for iozone")
		out     = flag.String("out", "", "directory to write reports to; reports go to stdout if empty")
	)
	flag.Usage = usage
	grail.Init()
	if flag.NArg() == 0 {
		flag.Usage()
	}
	var cfg *fsbench.Config
	must.Nil(config.Instance("fsbench", &cfg))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
		sig := <-sigc
		log.Printf("%s: stopping after the current command", sig)
		cancel()
	}()

	var err error
	switch cmd, args := flag.Arg(0), flag.Args()[1:]; cmd {
	case "run":
		err = run(ctx, cfg)
	case "report":
		if len(args) != 1 {
			flag.Usage()
		}
		err = publish(ctx, cfg, args[0], *benches, *out)
	case "status":
		var info fsbench.HostInfo
		info, err = fsbench.GatherHostInfo(ctx, cfg.Mountpoint)
		if err == nil {
			err = fsbench.WriteStatus(os.Stdout, info, nil)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %s\n", cmd)
		flag.Usage()
	}
	if err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg *fsbench.Config) error {
	plan, err := fsbench.LoadPlan(cfg.Plan)
	if err != nil {
		return err
	}
	dev := cfg.Device()
	if plan.Journal != "" {
		dev.Journal = plan.Journal
	}
	filesystems, err := fsbench.Lookup(cfg.Filesystems, plan.Filesystems)
	if err != nil {
		return err
	}
	programs, err := fsbench.Programs(cfg.Programs)
	if err != nil {
		return err
	}
	info, err := fsbench.GatherHostInfo(ctx, cfg.Mountpoint)
	if err != nil {
		return err
	}
	// Dry runs record into memory so they never shadow real benches.
	dir := cfg.Store
	if cfg.DryRun {
		dir = ""
	}
	store, err := results.Open(dir)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error.Printf("closing results store: %v", err)
		}
	}()
	runner := &fsbench.Runner{
		Exec:        fsbench.Exec,
		Store:       store,
		Device:      dev,
		Mountpoint:  cfg.Mountpoint,
		User:        cfg.User,
		Group:       cfg.Group,
		Filesystems: filesystems,
		Programs:    programs,
		Runs:        cfg.Runs,
		Pause:       cfg.Pause,
		Host:        info,
		Progress:    new(fsbench.Progress),
	}
	if cfg.DryRun {
		runner.Exec = fsbench.DryRun
	}
	if cfg.HTTP != "" {
		expvar.Publish("fsbench", runner.Progress)
		http.Handle("/status", &fsbench.StatusHandler{Path: cfg.Mountpoint, Progress: runner.Progress})
		go func() {
			log.Printf("serving status on %s", cfg.HTTP)
			err := http.ListenAndServe(cfg.HTTP, nil)
			log.Error.Printf("http.ListenAndServe: %v", err)
		}()
	}
	return runner.Run(ctx)
}

func publish(ctx context.Context, cfg *fsbench.Config, program string, benches int, out string) error {
	store, err := results.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()
	var r *report.Report
	switch program {
	case results.Bonnie:
		if benches == 0 {
			benches = 2
		}
		r, err = report.Bonnie(store, benches)
	case results.Iozone:
		if benches == 0 {
			benches = 1
		}
		r, err = report.Iozone(store, benches)
	default:
		return errors.E(errors.Invalid, "unknown benchmark program "+program)
	}
	if err != nil {
		return err
	}
	pubs := []report.Publisher{report.Stdout}
	if out != "" {
		pubs[0] = report.Dir(out)
	}
	if cfg.Bucket != "" {
		sess, err := session.NewSession()
		if err != nil {
			return err
		}
		pubs = append(pubs, report.NewS3(sess, cfg.Bucket, cfg.Prefix))
	}
	return report.Publish(ctx, r, program+".html", pubs...)
}

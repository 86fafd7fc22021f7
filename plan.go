// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package fsbench

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"

	"github.com/grailbio/base/errors"
	"gopkg.in/yaml.v2"
)

// A Plan adds filesystem configurations to the builtin ones. Plans
// are written in YAML:
//
//	journal: /dev/ram0
//	filesystems:
//	- name: ext4_nobarrier
//	  type: ext4
//	  mount_options: barrier=0
//	  mkfs:
//	  - [mkfs.ext4, -F, "{{dev}}"]
//	  version: [mkfs.ext4, -V]
//	  version_pattern: '([0-9]+\.[0-9]+)'
type Plan struct {
	// Journal overrides the external journal device.
	Journal     string       `yaml:"journal"`
	Filesystems []Filesystem `yaml:"filesystems"`
}

// ReadPlan parses a plan and validates its filesystems.
func ReadPlan(r io.Reader) (Plan, error) {
	var plan Plan
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return plan, errors.E("reading plan", err)
	}
	if err := yaml.UnmarshalStrict(b, &plan); err != nil {
		return plan, errors.E(errors.Invalid, "parsing plan", err)
	}
	seen := make(map[string]bool)
	for _, fs := range plan.Filesystems {
		if err := fs.Validate(); err != nil {
			return plan, err
		}
		if seen[fs.Name] {
			return plan, errors.E(errors.Invalid, fmt.Sprintf("filesystem %s defined twice", fs.Name))
		}
		seen[fs.Name] = true
	}
	return plan, nil
}

// LoadPlan reads the plan at path. An empty path is an empty plan.
func LoadPlan(path string) (Plan, error) {
	if path == "" {
		return Plan{}, nil
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return Plan{}, errors.E(errors.NotExist, "opening plan", err)
	} else if err != nil {
		return Plan{}, errors.E("opening plan", err)
	}
	defer f.Close()
	return ReadPlan(f)
}

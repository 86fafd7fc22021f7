// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package fsbench

import (
	"context"
	"errors"
	"sync"
)

const (
	bonnieOutput = `name,file_size,putc,putc_cpu,put_block,put_block_cpu,rewrite,rewrite_cpu,getc,getc_cpu,get_block,get_block_cpu,seeks,seeks_cpu,num_files,seq_create,seq_create_cpu,seq_stat,seq_stat_cpu,seq_del,seq_del_cpu,ran_create,ran_create_cpu,ran_stat,ran_stat_cpu,ran_del,ran_del_cpu
bench1,1G,45678,98,56789,20,23456,8,34567,80,67890,10,234.5,1,10,1234,20,+++++,+++,2345,15,1300,22,+++++,+++,2100,14
`
	iozoneOutput = `	Iozone: Performance Test of File I/O
	        Version $Revision: 3.429 $

	Record Size 64 kB
	File size set to 1048576 kB
                                                              random    random     bkwd    record    stride
              kB  reclen    write  rewrite    read    reread    read     write     read   rewrite      read   fwrite frewrite    fread  freread
         1048576      64   123456   234567   345678   456789    12345    23456    34567    45678     56789    67890    78901    89012    90123

iozone test complete.
`
)

// fakeExecutor records the commands it is asked to run and replies
// with canned output.
type fakeExecutor struct {
	mu   sync.Mutex
	cmds []Cmd
	// output maps a command name to its output.
	output map[string]string
	// fail maps a command name to the number of times it should fail
	// before succeeding; negative values fail forever.
	fail map[string]int
	// failOutput is returned alongside failures.
	failOutput string
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		output: map[string]string{
			"bonnie++": bonnieOutput,
			"iozone":   iozoneOutput,
		},
		fail: make(map[string]int),
	}
}

func (x *fakeExecutor) Run(ctx context.Context, cmd Cmd) ([]byte, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.cmds = append(x.cmds, cmd)
	if n := x.fail[cmd.Name]; n != 0 {
		if n > 0 {
			x.fail[cmd.Name] = n - 1
		}
		return []byte(x.failOutput), errors.New(cmd.Name + " failed")
	}
	return []byte(x.output[cmd.Name]), ctx.Err()
}

// commands returns the recorded command lines with the provided name.
func (x *fakeExecutor) commands(name string) []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	var lines []string
	for _, cmd := range x.cmds {
		if cmd.Name == name {
			lines = append(lines, cmd.String())
		}
	}
	return lines
}

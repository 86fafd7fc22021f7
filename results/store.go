// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package results

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v2"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

const (
	runPrefix    = "run/"
	bonniePrefix = "bonnie/"
	iozonePrefix = "iozone/"

	runSeqKey    = "seq/run"
	resultSeqKey = "seq/result"

	seqBandwidth = 16
)

// Store is a badger-backed store of runs and results.
type Store struct {
	db        *badger.DB
	runSeq    *badger.Sequence
	resultSeq *badger.Sequence
}

// Open opens the store in directory dir, creating it if needed. An
// empty dir opens a store that lives only in memory.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{})
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.E(fmt.Sprintf("opening results store %q", dir), err)
	}
	s := &Store{db: db}
	if s.runSeq, err = db.GetSequence([]byte(runSeqKey), seqBandwidth); err != nil {
		db.Close()
		return nil, errors.E("allocating run sequence", err)
	}
	if s.resultSeq, err = db.GetSequence([]byte(resultSeqKey), seqBandwidth); err != nil {
		s.runSeq.Release()
		db.Close()
		return nil, errors.E("allocating result sequence", err)
	}
	return s, nil
}

// Close releases the store's sequences and closes the database.
func (s *Store) Close() error {
	if err := s.runSeq.Release(); err != nil {
		log.Error.Printf("releasing run sequence: %v", err)
	}
	if err := s.resultSeq.Release(); err != nil {
		log.Error.Printf("releasing result sequence: %v", err)
	}
	return s.db.Close()
}

func runKey(id int64) []byte {
	return []byte(fmt.Sprintf("%s%016x", runPrefix, id))
}

func resultKey(prefix string, runID int64, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%016x/%016x", prefix, runID, seq))
}

func resultPrefix(prefix string, runID int64) []byte {
	return []byte(fmt.Sprintf("%s%016x/", prefix, runID))
}

func (s *Store) put(key []byte, v interface{}) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return errors.E(errors.Invalid, "encoding "+string(key), err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, buf)
	})
}

func (s *Store) get(key []byte, v interface{}) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(buf []byte) error {
			return json.Unmarshal(buf, v)
		})
	})
	if err == badger.ErrKeyNotFound {
		return errors.E(errors.NotExist, string(key))
	}
	return err
}

// scan decodes every value stored under prefix, in key order.
func (s *Store) scan(prefix []byte, decode func([]byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := txn.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := iter.Item().Value(decode); err != nil {
				return errors.E(errors.Invalid, "decoding "+string(iter.Item().Key()), err)
			}
		}
		return nil
	})
}

// keys calls fn with every key stored under prefix, in key order,
// without reading values.
func (s *Store) keys(prefix []byte, fn func(key []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		iter := txn.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := fn(iter.Item().Key()); err != nil {
				return err
			}
		}
		return nil
	})
}

// PutRun stores a new run, assigning its ID.
func (s *Store) PutRun(run *Run) error {
	seq, err := s.runSeq.Next()
	if err != nil {
		return errors.E("allocating run id", err)
	}
	run.ID = int64(seq) + 1
	return s.put(runKey(run.ID), run)
}

// Run returns the run with the provided ID.
func (s *Store) Run(id int64) (Run, error) {
	var run Run
	err := s.get(runKey(id), &run)
	return run, err
}

// Runs returns every run of program in ID order. An empty program
// returns all runs.
func (s *Store) Runs(program string) ([]Run, error) {
	var runs []Run
	err := s.scan([]byte(runPrefix), func(buf []byte) error {
		var run Run
		if err := json.Unmarshal(buf, &run); err != nil {
			return err
		}
		if program == "" || run.Program == program {
			runs = append(runs, run)
		}
		return nil
	})
	return runs, err
}

// BenchIDs returns the distinct bench IDs that ran program, newest
// first.
func (s *Store) BenchIDs(program string) ([]int, error) {
	runs, err := s.Runs(program)
	if err != nil {
		return nil, err
	}
	seen := make(map[int]bool)
	var ids []int
	for _, run := range runs {
		if !seen[run.BenchID] {
			seen[run.BenchID] = true
			ids = append(ids, run.BenchID)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ids)))
	return ids, nil
}

// ResultBenchIDs returns the distinct bench IDs with at least one
// stored result of program, newest first. Benches whose runs produced
// no results, such as dry runs, are omitted.
func (s *Store) ResultBenchIDs(program string) ([]int, error) {
	var prefix string
	switch program {
	case Bonnie:
		prefix = bonniePrefix
	case Iozone:
		prefix = iozonePrefix
	default:
		return nil, errors.E(errors.Invalid, "unknown benchmark program "+program)
	}
	withResults := make(map[int64]bool)
	err := s.keys([]byte(prefix), func(key []byte) error {
		var runID int64
		if _, err := fmt.Sscanf(string(key[len(prefix):]), "%016x/", &runID); err != nil {
			return errors.E(errors.Invalid, "parsing result key "+string(key), err)
		}
		withResults[runID] = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	runs, err := s.Runs(program)
	if err != nil {
		return nil, err
	}
	seen := make(map[int]bool)
	var ids []int
	for _, run := range runs {
		if withResults[run.ID] && !seen[run.BenchID] {
			seen[run.BenchID] = true
			ids = append(ids, run.BenchID)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ids)))
	return ids, nil
}

// NextBenchID returns the bench ID to use for a new invocation.
func (s *Store) NextBenchID() (int, error) {
	ids, err := s.BenchIDs("")
	if err != nil || len(ids) == 0 {
		return 0, err
	}
	return ids[0] + 1, nil
}

func (s *Store) putResult(prefix string, runID int64, v interface{}) error {
	if _, err := s.Run(runID); err != nil {
		return errors.E(errors.Precondition, fmt.Sprintf("result for run %d", runID), err)
	}
	seq, err := s.resultSeq.Next()
	if err != nil {
		return errors.E("allocating result id", err)
	}
	return s.put(resultKey(prefix, runID, seq), v)
}

// PutBonnie stores a bonnie++ result of an existing run.
func (s *Store) PutBonnie(r *BonnieResult) error {
	return s.putResult(bonniePrefix, r.RunID, r)
}

// PutIozone stores an iozone result of an existing run.
func (s *Store) PutIozone(r *IozoneResult) error {
	return s.putResult(iozonePrefix, r.RunID, r)
}

// Bonnie returns the bonnie++ results of a run in insertion order.
func (s *Store) Bonnie(runID int64) ([]BonnieResult, error) {
	var rs []BonnieResult
	err := s.scan(resultPrefix(bonniePrefix, runID), func(buf []byte) error {
		var r BonnieResult
		if err := json.Unmarshal(buf, &r); err != nil {
			return err
		}
		rs = append(rs, r)
		return nil
	})
	return rs, err
}

// Iozone returns the iozone results of a run in insertion order.
func (s *Store) Iozone(runID int64) ([]IozoneResult, error) {
	var rs []IozoneResult
	err := s.scan(resultPrefix(iozonePrefix, runID), func(buf []byte) error {
		var r IozoneResult
		if err := json.Unmarshal(buf, &r); err != nil {
			return err
		}
		rs = append(rs, r)
		return nil
	})
	return rs, err
}

// badgerLogger routes badger's logging through the fsbench log.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	log.Error.Printf("badger: "+format, args...)
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	log.Printf("badger: "+format, args...)
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	log.Debug.Printf("badger: "+format, args...)
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	log.Debug.Printf("badger: "+format, args...)
}

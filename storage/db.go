// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package storage

import (
	"bytes"
	"encoding/binary"

	"github.com/dgraph-io/badger/v3"
)

// data collection prefixes for different data collections
const (
	_             byte = iota
	colEventBySeq      // consensus event by sequence number
	colEventCount      // number of stored events
	colLastDecide      // sequence number of the last decided event
)

var byteOrder = binary.BigEndian

type getter interface {
	Get(key []byte) ([]byte, error)
}

type setter interface {
	Set(key, value []byte) error
}

type updateFunc func(setter setter) error

type badgerGetter struct {
	db *badger.DB
}

func (bg *badgerGetter) Get(key []byte) ([]byte, error) {
	var val []byte
	err := bg.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == nil {
			val, err = item.ValueCopy(nil)
		}
		return err
	})
	return val, err
}

// NewDB opens a badger database under dir, an empty dir keeps it in memory
func NewDB(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	return badger.Open(opts)
}

func updateBadgerDB(db *badger.DB, fns []updateFunc) error {
	return db.Update(func(txn *badger.Txn) error {
		for _, fn := range fns {
			if err := fn(txn); err != nil {
				return err
			}
		}
		return nil
	})
}

func uint64Bytes(n uint64) []byte {
	b := make([]byte, 8)
	byteOrder.PutUint64(b, n)
	return b
}

func concatBytes(srcs ...[]byte) []byte {
	buf := bytes.NewBuffer(nil)
	for _, src := range srcs {
		buf.Grow(len(src))
	}
	for _, src := range srcs {
		buf.Write(src)
	}
	return buf.Bytes()
}

// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package storage

import (
	"errors"
	"sync"

	"github.com/aungmawjj/benor/core"
	"github.com/dgraph-io/badger/v3"
)

// errors
var (
	ErrNotFound = errors.New("not found")
)

// Storage journals the consensus events of a node.
// Events are append only and never read back into consensus state.
type Storage struct {
	db         *badger.DB
	eventStore *eventStore

	mtxAppend sync.Mutex
}

func New(db *badger.DB) *Storage {
	return &Storage{
		db:         db,
		eventStore: &eventStore{&badgerGetter{db}},
	}
}

// Append stores e after the last event
func (strg *Storage) Append(e *core.Event) error {
	strg.mtxAppend.Lock()
	defer strg.mtxAppend.Unlock()

	seq, err := strg.GetEventCount()
	if err != nil {
		return err
	}
	return updateBadgerDB(strg.db, strg.eventStore.setEvent(seq, e))
}

// GetEventCount returns the number of stored events
func (strg *Storage) GetEventCount() (uint64, error) {
	count, err := strg.eventStore.getEventCount()
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	return count, err
}

func (strg *Storage) GetEvent(seq uint64) (*core.Event, error) {
	e, err := strg.eventStore.getEvent(seq)
	return e, notFound(err)
}

// GetEvents returns at most limit events starting from sequence from.
// Limit <= 0 returns all remaining events.
func (strg *Storage) GetEvents(from uint64, limit int) ([]*core.Event, error) {
	count, err := strg.GetEventCount()
	if err != nil {
		return nil, err
	}
	ret := make([]*core.Event, 0)
	for seq := from; seq < count; seq++ {
		if limit > 0 && len(ret) >= limit {
			break
		}
		e, err := strg.GetEvent(seq)
		if err != nil {
			return nil, err
		}
		ret = append(ret, e)
	}
	return ret, nil
}

// GetLastDecision returns the latest decided event
func (strg *Storage) GetLastDecision() (*core.Event, error) {
	seq, err := strg.eventStore.getLastDecideSeq()
	if err != nil {
		return nil, notFound(err)
	}
	return strg.GetEvent(seq)
}

func (strg *Storage) Close() error {
	return strg.db.Close()
}

func notFound(err error) error {
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	return err
}

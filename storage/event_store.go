// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package storage

import (
	"github.com/aungmawjj/benor/core"
)

type eventStore struct {
	getter getter
}

func (es *eventStore) getEventCount() (uint64, error) {
	b, err := es.getter.Get([]byte{colEventCount})
	if err != nil {
		return 0, err
	}
	return byteOrder.Uint64(b), nil
}

func (es *eventStore) getEvent(seq uint64) (*core.Event, error) {
	b, err := es.getter.Get(concatBytes([]byte{colEventBySeq}, uint64Bytes(seq)))
	if err != nil {
		return nil, err
	}
	return core.UnmarshalEvent(b)
}

func (es *eventStore) getLastDecideSeq() (uint64, error) {
	b, err := es.getter.Get([]byte{colLastDecide})
	if err != nil {
		return 0, err
	}
	return byteOrder.Uint64(b), nil
}

func (es *eventStore) setEvent(seq uint64, e *core.Event) []updateFunc {
	ret := []updateFunc{
		func(setter setter) error {
			val, err := e.Marshal()
			if err != nil {
				return err
			}
			return setter.Set(concatBytes([]byte{colEventBySeq}, uint64Bytes(seq)), val)
		},
		func(setter setter) error {
			return setter.Set([]byte{colEventCount}, uint64Bytes(seq+1))
		},
	}
	if e.Type == core.EventDecided {
		ret = append(ret, func(setter setter) error {
			return setter.Set([]byte{colLastDecide}, uint64Bytes(seq))
		})
	}
	return ret
}

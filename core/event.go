// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package core

import (
	"encoding/json"
	"errors"

	"google.golang.org/protobuf/encoding/protowire"
)

// EventType of consensus events
type EventType uint8

// event types
const (
	_ EventType = iota
	EventRoundStarted
	EventVoted
	EventDecided
	EventStopped
	EventKilled
	EventStalled
)

var eventTypeNames = map[EventType]string{
	EventRoundStarted: "round_started",
	EventVoted:        "voted",
	EventDecided:      "decided",
	EventStopped:      "stopped",
	EventKilled:       "killed",
	EventStalled:      "stalled",
}

// errors
var (
	ErrInvalidEventType = errors.New("invalid event type")
)

func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON encodes event type as its name
func (t EventType) MarshalJSON() ([]byte, error) {
	if _, ok := eventTypeNames[t]; !ok {
		return nil, ErrInvalidEventType
	}
	return json.Marshal(t.String())
}

// event field numbers
const (
	fieldEventType  protowire.Number = 1
	fieldEventNode  protowire.Number = 2
	fieldEventRound protowire.Number = 3
	fieldEventValue protowire.Number = 4
	fieldEventTime  protowire.Number = 5
)

// Event records a state transition of a node
type Event struct {
	Type  EventType `json:"type"`
	Node  int       `json:"node"`
	Round uint64    `json:"round"`
	Value *Value    `json:"value"`
	Time  int64     `json:"time"` // unix nano
}

// Marshal encodes event as protobuf wire bytes
func (e *Event) Marshal() ([]byte, error) {
	if e == nil {
		return nil, errors.New("nil event")
	}
	b := make([]byte, 0, 32)
	b = protowire.AppendTag(b, fieldEventType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.Type))
	b = protowire.AppendTag(b, fieldEventNode, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.Node))
	b = protowire.AppendTag(b, fieldEventRound, protowire.VarintType)
	b = protowire.AppendVarint(b, e.Round)
	if e.Value != nil {
		b = protowire.AppendTag(b, fieldEventValue, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(*e.Value)))
	}
	b = protowire.AppendTag(b, fieldEventTime, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(e.Time))
	return b, nil
}

// Unmarshal decodes protobuf wire bytes into event
func (e *Event) Unmarshal(b []byte) error {
	*e = Event{}
	return consumeFields(b, func(num protowire.Number, v uint64) {
		switch num {
		case fieldEventType:
			e.Type = EventType(v)
		case fieldEventNode:
			e.Node = int(v)
		case fieldEventRound:
			e.Round = v
		case fieldEventValue:
			e.Value = NewValue(Value(protowire.DecodeZigZag(v)))
		case fieldEventTime:
			e.Time = protowire.DecodeZigZag(v)
		}
	})
}

// UnmarshalEvent decodes event from bytes
func UnmarshalEvent(b []byte) (*Event, error) {
	e := new(Event)
	if err := e.Unmarshal(b); err != nil {
		return nil, err
	}
	return e, nil
}

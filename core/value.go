// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package core

import (
	"encoding/json"
	"errors"
	"strconv"
)

// Value is a consensus estimate. A nil *Value means no value (null).
type Value int64

// NewValue returns a pointer to a copy of v
func NewValue(v Value) *Value {
	return &v
}

// CopyValue returns an independent copy of v, nil stays nil
func CopyValue(v *Value) *Value {
	if v == nil {
		return nil
	}
	return NewValue(*v)
}

// ValueEqual reports whether a and b hold the same value (both nil counts as equal)
func ValueEqual(a, b *Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// FormatValue is used for logging
func FormatValue(v *Value) string {
	if v == nil {
		return "null"
	}
	return strconv.FormatInt(int64(*v), 10)
}

// Phase of a Ben-Or round
type Phase uint8

// phases
const (
	_ Phase = iota
	PhasePropose
	PhaseVote
)

// errors
var (
	ErrInvalidPhase = errors.New("invalid phase")
)

func (p Phase) String() string {
	switch p {
	case PhasePropose:
		return "propose"
	case PhaseVote:
		return "vote"
	default:
		return "unknown"
	}
}

// Valid returns true for propose and vote
func (p Phase) Valid() bool {
	return p == PhasePropose || p == PhaseVote
}

// MarshalJSON encodes phase as its name
func (p Phase) MarshalJSON() ([]byte, error) {
	if !p.Valid() {
		return nil, ErrInvalidPhase
	}
	return json.Marshal(p.String())
}

// UnmarshalJSON accepts the phase name or its number
func (p *Phase) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		return p.parse(name)
	}
	var n uint8
	if err := json.Unmarshal(b, &n); err != nil {
		return ErrInvalidPhase
	}
	*p = Phase(n)
	if !p.Valid() {
		return ErrInvalidPhase
	}
	return nil
}

func (p *Phase) parse(name string) error {
	switch name {
	case "propose":
		*p = PhasePropose
	case "vote":
		*p = PhaseVote
	default:
		return ErrInvalidPhase
	}
	return nil
}

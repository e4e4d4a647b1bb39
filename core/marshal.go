// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package core

// Marshaler encodes itself for the wire or the journal
type Marshaler interface {
	Marshal() ([]byte, error)
}

// Unmarshaler decodes itself from Marshaler output
type Unmarshaler interface {
	Unmarshal(b []byte) error
}

var (
	_ Marshaler   = (*Message)(nil)
	_ Unmarshaler = (*Message)(nil)
	_ Marshaler   = (*Event)(nil)
	_ Unmarshaler = (*Event)(nil)
)

// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package core

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// errors
var (
	ErrNilMessage    = errors.New("nil message")
	ErrInvalidSender = errors.New("invalid sender")
)

// message field numbers
const (
	fieldSender protowire.Number = 1
	fieldRound  protowire.Number = 2
	fieldPhase  protowire.Number = 3
	fieldValue  protowire.Number = 4
)

// Message is exchanged between nodes during a Ben-Or round
type Message struct {
	Sender int    `json:"sender"`
	Round  uint64 `json:"round"`
	Phase  Phase  `json:"phase"`
	Value  *Value `json:"value"`
}

// NewProposal creates a phase one message
func NewProposal(sender int, round uint64, value *Value) *Message {
	return &Message{
		Sender: sender,
		Round:  round,
		Phase:  PhasePropose,
		Value:  CopyValue(value),
	}
}

// NewVote creates a phase two message, nil value means abstain
func NewVote(sender int, round uint64, value *Value) *Message {
	return &Message{
		Sender: sender,
		Round:  round,
		Phase:  PhaseVote,
		Value:  CopyValue(value),
	}
}

// Validate checks the message against a network of nodeCount nodes
func (msg *Message) Validate(nodeCount int) error {
	if msg == nil {
		return ErrNilMessage
	}
	if msg.Sender < 0 || msg.Sender >= nodeCount {
		return ErrInvalidSender
	}
	if !msg.Phase.Valid() {
		return ErrInvalidPhase
	}
	return nil
}

// Copy returns a deep copy
func (msg *Message) Copy() *Message {
	return &Message{
		Sender: msg.Sender,
		Round:  msg.Round,
		Phase:  msg.Phase,
		Value:  CopyValue(msg.Value),
	}
}

func (msg *Message) String() string {
	return fmt.Sprintf("%s{sender=%d round=%d value=%s}",
		msg.Phase, msg.Sender, msg.Round, FormatValue(msg.Value))
}

// Marshal encodes message as protobuf wire bytes
func (msg *Message) Marshal() ([]byte, error) {
	if msg == nil {
		return nil, ErrNilMessage
	}
	b := make([]byte, 0, 24)
	b = protowire.AppendTag(b, fieldSender, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(msg.Sender))
	b = protowire.AppendTag(b, fieldRound, protowire.VarintType)
	b = protowire.AppendVarint(b, msg.Round)
	b = protowire.AppendTag(b, fieldPhase, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(msg.Phase))
	if msg.Value != nil {
		b = protowire.AppendTag(b, fieldValue, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(*msg.Value)))
	}
	return b, nil
}

// Unmarshal decodes protobuf wire bytes into message
func (msg *Message) Unmarshal(b []byte) error {
	*msg = Message{}
	return consumeFields(b, func(num protowire.Number, v uint64) {
		switch num {
		case fieldSender:
			msg.Sender = int(v)
		case fieldRound:
			msg.Round = v
		case fieldPhase:
			msg.Phase = Phase(v)
		case fieldValue:
			msg.Value = NewValue(Value(protowire.DecodeZigZag(v)))
		}
	})
}

// UnmarshalMessage decodes message from bytes
func UnmarshalMessage(b []byte) (*Message, error) {
	msg := new(Message)
	if err := msg.Unmarshal(b); err != nil {
		return nil, err
	}
	return msg, nil
}

// consumeFields walks varint fields, unknown fields of any type are skipped
func consumeFields(b []byte, onVarint func(num protowire.Number, v uint64)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		if typ != protowire.VarintType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
			continue
		}
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		onVarint(num, v)
	}
	return nil
}

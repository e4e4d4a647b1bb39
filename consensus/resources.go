// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package consensus

import (
	"github.com/aungmawjj/benor/core"
	"github.com/aungmawjj/benor/emitter"
)

// MsgService delivers messages between nodes, sends are fire-and-forget
type MsgService interface {
	Broadcast(msg *core.Message) error
	Send(to int, msg *core.Message) error
	SubscribeMessage(buffer int) *emitter.Subscription
}

// Journal records consensus events, it is never read back into engine state
type Journal interface {
	Append(e *core.Event) error
}

type Resources struct {
	MsgSvc  MsgService
	Journal Journal
}

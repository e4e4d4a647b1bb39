// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package consensus

import (
	"github.com/aungmawjj/benor/core"
	"github.com/aungmawjj/benor/emitter"
	"github.com/stretchr/testify/mock"
)

type MockMsgService struct {
	mock.Mock
}

var _ MsgService = (*MockMsgService)(nil)

func (m *MockMsgService) Broadcast(msg *core.Message) error {
	args := m.Called(msg)
	return args.Error(0)
}

func (m *MockMsgService) Send(to int, msg *core.Message) error {
	args := m.Called(to, msg)
	return args.Error(0)
}

func (m *MockMsgService) SubscribeMessage(buffer int) *emitter.Subscription {
	args := m.Called(buffer)
	return castSubscription(args.Get(0))
}

// broadcasted returns messages passed to Broadcast in call order
func (m *MockMsgService) broadcasted() []*core.Message {
	ret := make([]*core.Message, 0)
	for _, call := range m.Calls {
		if call.Method == "Broadcast" {
			ret = append(ret, call.Arguments.Get(0).(*core.Message))
		}
	}
	return ret
}

type MockJournal struct {
	mock.Mock
}

var _ Journal = (*MockJournal)(nil)

func (m *MockJournal) Append(e *core.Event) error {
	args := m.Called(e)
	return args.Error(0)
}

func castSubscription(val interface{}) *emitter.Subscription {
	if val == nil {
		return nil
	}
	return val.(*emitter.Subscription)
}

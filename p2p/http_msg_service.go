// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package p2p

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aungmawjj/benor/core"
	"github.com/aungmawjj/benor/emitter"
	"github.com/aungmawjj/benor/logger"
)

// errors
var (
	ErrTooManyRequests = errors.New("too many outgoing requests")
)

const defaultMaxInflight = 256

// HTTPMsgService posts JSON messages to peer endpoints.
// Inbound messages arrive through Deliver, called by the node API.
type HTTPMsgService struct {
	self      int
	endpoints map[int]string
	client    *http.Client
	emitter   *emitter.Emitter

	// bounds concurrent outgoing requests
	inflight chan struct{}
}

// NewHTTPMsgService creates a service for node self, endpoints maps node id to base url
func NewHTTPMsgService(self int, endpoints map[int]string, timeout time.Duration) *HTTPMsgService {
	eps := make(map[int]string, len(endpoints))
	for id, ep := range endpoints {
		eps[id] = strings.TrimRight(ep, "/")
	}
	return &HTTPMsgService{
		self:      self,
		endpoints: eps,
		client:    &http.Client{Timeout: timeout},
		emitter:   emitter.New(),
		inflight:  make(chan struct{}, defaultMaxInflight),
	}
}

func (svc *HTTPMsgService) SubscribeMessage(buffer int) *emitter.Subscription {
	return svc.emitter.Subscribe(buffer)
}

// Deliver passes an inbound message to subscribers without blocking
func (svc *HTTPMsgService) Deliver(msg *core.Message) {
	svc.emitter.Emit(msg.Copy())
}

func (svc *HTTPMsgService) Broadcast(msg *core.Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	for id, ep := range svc.endpoints {
		if id != svc.self {
			svc.post(ep, b)
		}
	}
	return nil
}

func (svc *HTTPMsgService) Send(to int, msg *core.Message) error {
	ep, ok := svc.endpoints[to]
	if !ok {
		return ErrPeerNotFound
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return svc.post(ep, b)
}

func (svc *HTTPMsgService) post(endpoint string, body []byte) error {
	select {
	case svc.inflight <- struct{}{}:
	default:
		return ErrTooManyRequests
	}
	go func() {
		defer func() { <-svc.inflight }()
		if err := svc.doPost(endpoint, body); err != nil {
			logger.I().Debugw("post message failed", "endpoint", endpoint, "error", err)
		}
	}()
	return nil
}

func (svc *HTTPMsgService) doPost(endpoint string, body []byte) error {
	resp, err := svc.client.Post(endpoint+"/message", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status code %d", resp.StatusCode)
	}
	return nil
}

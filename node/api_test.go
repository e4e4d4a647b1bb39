// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package node

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aungmawjj/benor/consensus"
	"github.com/aungmawjj/benor/p2p"
	"github.com/aungmawjj/benor/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNode(t *testing.T, ccfg consensus.Config) *Node {
	db, err := storage.NewDB("")
	require.NoError(t, err)

	node := &Node{config: DefaultConfig}
	node.config.ConsensusConfig = ccfg
	node.storage = storage.New(db)
	node.httpMsgSvc = p2p.NewHTTPMsgService(ccfg.NodeID, nil, time.Second)
	node.msgSvc = node.httpMsgSvc
	require.NoError(t, node.setupConsensus())
	t.Cleanup(node.Close)
	return node
}

func singleNodeConfig() consensus.Config {
	cfg := consensus.DefaultConfig
	cfg.NodeCount = 1
	cfg.FaultyCount = 0
	cfg.InitialValue = 1
	return cfg
}

func doRequest(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeStartResult(t *testing.T, w *httptest.ResponseRecorder) StartResult {
	var res StartResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

func TestAPI_Status(t *testing.T) {
	assert := assert.New(t)

	node := newTestNode(t, singleNodeConfig())
	h := newRouter(node)

	w := doRequest(h, http.MethodGet, "/status", "")
	assert.Equal(http.StatusOK, w.Code)
	assert.Equal("live", w.Body.String())

	w = doRequest(h, http.MethodPost, "/kill", "")
	assert.Equal(http.StatusOK, w.Code)

	w = doRequest(h, http.MethodGet, "/status", "")
	assert.Equal(http.StatusServiceUnavailable, w.Code)
	assert.Equal("killed", w.Body.String())
}

func TestAPI_StatusFaulty(t *testing.T) {
	cfg := consensus.DefaultConfig
	cfg.NodeID = 3
	cfg.Faulty = true
	node := newTestNode(t, cfg)

	w := doRequest(newRouter(node), http.MethodGet, "/status", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "faulty", w.Body.String())
}

func TestAPI_StartDecide(t *testing.T) {
	assert := assert.New(t)

	node := newTestNode(t, singleNodeConfig())
	h := newRouter(node)

	w := doRequest(h, http.MethodPost, "/start", "")
	assert.Equal(http.StatusOK, w.Code)
	assert.True(decodeStartResult(t, w).Accepted)

	assert.Eventually(func() bool {
		return node.consensus.GetState().IsDecided()
	}, time.Second, 5*time.Millisecond)

	w = doRequest(h, http.MethodGet, "/start", "")
	assert.Equal(http.StatusConflict, w.Code)
	res := decodeStartResult(t, w)
	assert.False(res.Accepted)
	assert.Equal(consensus.ErrDecided.Error(), res.Reason)

	w = doRequest(h, http.MethodGet, "/getState", "")
	assert.Equal(http.StatusOK, w.Code)
	var state consensus.Snapshot
	assert.NoError(json.Unmarshal(w.Body.Bytes(), &state))
	assert.True(state.IsDecided())
	if assert.NotNil(state.Value) {
		assert.EqualValues(1, *state.Value)
	}
	assert.False(state.Killed)

	w = doRequest(h, http.MethodGet, "/history?from=0&limit=10", "")
	assert.Equal(http.StatusOK, w.Code)
	var events []map[string]interface{}
	assert.NoError(json.Unmarshal(w.Body.Bytes(), &events))
	if assert.NotEmpty(events) {
		assert.Equal("round_started", events[0]["type"])
		assert.Equal("decided", events[len(events)-1]["type"])
	}
}

func TestAPI_StartRunning(t *testing.T) {
	assert := assert.New(t)

	node := newTestNode(t, consensus.DefaultConfig)
	h := newRouter(node)

	w := doRequest(h, http.MethodPost, "/start", "")
	assert.True(decodeStartResult(t, w).Accepted)

	// no peers, round 0 never completes
	w = doRequest(h, http.MethodPost, "/start", "")
	assert.Equal(http.StatusConflict, w.Code)
	assert.Equal(consensus.ErrAlreadyRunning.Error(), decodeStartResult(t, w).Reason)

	w = doRequest(h, http.MethodPost, "/stop", "")
	assert.Equal(http.StatusOK, w.Code)
	w = doRequest(h, http.MethodGet, "/stop", "")
	assert.Equal(http.StatusOK, w.Code)

	w = doRequest(h, http.MethodPost, "/start", "")
	assert.True(decodeStartResult(t, w).Accepted)
}

func TestAPI_StartKilled(t *testing.T) {
	assert := assert.New(t)

	node := newTestNode(t, singleNodeConfig())
	h := newRouter(node)
	doRequest(h, http.MethodPost, "/kill", "")

	w := doRequest(h, http.MethodPost, "/start", "")
	assert.Equal(http.StatusOK, w.Code)
	res := decodeStartResult(t, w)
	assert.False(res.Accepted)
	assert.Equal(consensus.ErrKilled.Error(), res.Reason)

	var state consensus.Snapshot
	w = doRequest(h, http.MethodGet, "/getState", "")
	assert.NoError(json.Unmarshal(w.Body.Bytes(), &state))
	assert.True(state.Killed)
	assert.Nil(state.Round)
}

func TestAPI_Message(t *testing.T) {
	assert := assert.New(t)

	node := newTestNode(t, consensus.DefaultConfig)
	h := newRouter(node)

	w := doRequest(h, http.MethodPost, "/message", "{not json")
	assert.Equal(http.StatusBadRequest, w.Code)

	w = doRequest(h, http.MethodPost, "/message", `{"sender":1,"round":0,"phase":"bogus","value":1}`)
	assert.Equal(http.StatusBadRequest, w.Code)

	doRequest(h, http.MethodPost, "/start", "")
	w = doRequest(h, http.MethodPost, "/message", `{"sender":1,"round":0,"phase":"propose","value":1}`)
	assert.Equal(http.StatusOK, w.Code)

	assert.Eventually(func() bool {
		return node.consensus.GetStatus().ProposalCount == 2
	}, time.Second, 5*time.Millisecond)
}

func TestAPI_ConsensusStatus(t *testing.T) {
	assert := assert.New(t)

	node := newTestNode(t, consensus.DefaultConfig)
	w := doRequest(newRouter(node), http.MethodGet, "/consensus", "")
	assert.Equal(http.StatusOK, w.Code)

	var status consensus.Status
	assert.NoError(json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(4, status.NodeCount)
	assert.Equal(1, status.FaultyCount)
	assert.Equal(3, status.QuorumCount)
	assert.Equal(consensus.HealthLive, status.Health)
}

func TestAPI_HistoryBadQuery(t *testing.T) {
	node := newTestNode(t, consensus.DefaultConfig)
	w := doRequest(newRouter(node), http.MethodGet, "/history?from=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(newRouter(node), http.MethodGet, "/history?limit=x", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package node

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/aungmawjj/benor/consensus"
	"github.com/aungmawjj/benor/core"
	"github.com/aungmawjj/benor/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type nodeAPI struct {
	node *Node
}

// StartResult is the response of /start
type StartResult struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

func newRouter(node *Node) http.Handler {
	api := &nodeAPI{node}

	gin.SetMode(gin.ReleaseMode)
	gin.DefaultWriter = io.Discard
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/status", api.getStatus)
	r.GET("/start", api.start)
	r.POST("/start", api.start)
	r.GET("/stop", api.stop)
	r.POST("/stop", api.stop)
	r.POST("/kill", api.kill)
	r.POST("/message", api.receiveMessage)
	r.GET("/getState", api.getState)

	r.GET("/consensus", api.getConsensusStatus)
	r.GET("/history", api.getHistory)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func (api *nodeAPI) getStatus(c *gin.Context) {
	switch health := api.node.consensus.GetStatus().Health; health {
	case consensus.HealthKilled:
		c.String(http.StatusServiceUnavailable, health)
	case consensus.HealthFaulty:
		c.String(http.StatusInternalServerError, health)
	default:
		c.String(http.StatusOK, health)
	}
}

func (api *nodeAPI) start(c *gin.Context) {
	err := api.node.consensus.Start()
	switch {
	case err == nil:
		c.JSON(http.StatusOK, StartResult{Accepted: true})
	case errors.Is(err, consensus.ErrKilled):
		// killed nodes ignore requests silently
		c.JSON(http.StatusOK, StartResult{Reason: err.Error()})
	case errors.Is(err, consensus.ErrAlreadyRunning), errors.Is(err, consensus.ErrDecided):
		c.JSON(http.StatusConflict, StartResult{Reason: err.Error()})
	default:
		logger.I().Warnw("start failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, StartResult{Reason: err.Error()})
	}
}

func (api *nodeAPI) stop(c *gin.Context) {
	if err := api.node.consensus.Stop(); err != nil {
		c.String(http.StatusServiceUnavailable, err.Error())
		return
	}
	c.String(http.StatusOK, "stopped")
}

func (api *nodeAPI) kill(c *gin.Context) {
	if err := api.node.consensus.Kill(); err != nil {
		c.String(http.StatusServiceUnavailable, err.Error())
		return
	}
	c.String(http.StatusOK, "killed")
}

func (api *nodeAPI) receiveMessage(c *gin.Context) {
	msg := new(core.Message)
	if err := c.ShouldBindJSON(msg); err != nil {
		c.String(http.StatusBadRequest, "cannot parse message")
		return
	}
	api.node.deliver(msg)
	c.String(http.StatusOK, "message received")
}

func (api *nodeAPI) getState(c *gin.Context) {
	c.JSON(http.StatusOK, api.node.consensus.GetState())
}

func (api *nodeAPI) getConsensusStatus(c *gin.Context) {
	c.JSON(http.StatusOK, api.node.consensus.GetStatus())
}

func (api *nodeAPI) getHistory(c *gin.Context) {
	from, err := strconv.ParseUint(c.DefaultQuery("from", "0"), 10, 64)
	if err != nil {
		c.String(http.StatusBadRequest, "cannot parse from")
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil {
		c.String(http.StatusBadRequest, "cannot parse limit")
		return
	}
	events, err := api.node.storage.GetEvents(from, limit)
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, events)
}

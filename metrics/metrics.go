// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "benor"

var (
	once sync.Once

	Round = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "round",
		Help:      "Current consensus round of the node",
	}, []string{"node"})

	RoundsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rounds_total",
		Help:      "Total number of rounds completed without a decision",
	}, []string{"node"})

	DecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "decisions_total",
		Help:      "Total number of decisions taken by the node",
	}, []string{"node"})

	CoinFlipsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "coin_flips_total",
		Help:      "Total number of rounds resolved by the local coin",
	}, []string{"node"})

	MessagesReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "messages",
		Name:      "received_total",
		Help:      "Total number of protocol messages accepted by the node",
	}, []string{"node", "phase"})

	MessagesDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "messages",
		Name:      "dropped_total",
		Help:      "Total number of protocol messages discarded by the node",
	}, []string{"node", "reason"})

	BufferedRounds = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "buffered_rounds",
		Help:      "Number of future rounds holding buffered messages",
	}, []string{"node"})
)

// drop reasons
const (
	DropStale     = "stale"
	DropDuplicate = "duplicate"
	DropInvalid   = "invalid"
	DropKilled    = "killed"
	DropEvicted   = "evicted"
	DropQueueFull = "queue_full"
)

// Register registers metrics into the default Prometheus registry (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(Round)
		prometheus.MustRegister(RoundsTotal)
		prometheus.MustRegister(DecisionsTotal)
		prometheus.MustRegister(CoinFlipsTotal)
		prometheus.MustRegister(MessagesReceived)
		prometheus.MustRegister(MessagesDropped)
		prometheus.MustRegister(BufferedRounds)
	})
}

// NodeLabel formats a node id as label value
func NodeLabel(id int) string {
	return strconv.Itoa(id)
}

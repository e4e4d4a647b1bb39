// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegister(t *testing.T) {
	assert := assert.New(t)

	assert.NotPanics(Register)
	assert.NotPanics(Register)

	err := prometheus.Register(Round)
	assert.IsType(prometheus.AlreadyRegisteredError{}, err)
}

func TestCollectors(t *testing.T) {
	assert := assert.New(t)

	label := NodeLabel(7)
	assert.Equal("7", label)

	DecisionsTotal.WithLabelValues(label).Inc()
	assert.Equal(float64(1), testutil.ToFloat64(DecisionsTotal.WithLabelValues(label)))

	MessagesDropped.WithLabelValues(label, DropStale).Add(3)
	assert.Equal(float64(3), testutil.ToFloat64(MessagesDropped.WithLabelValues(label, DropStale)))
}

// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package consensus

import "errors"

// errors
var (
	// ErrAlreadyRunning is returned by Start while a round is in progress
	ErrAlreadyRunning = errors.New("consensus already running")

	// ErrKilled is returned by operations on a killed node, callers should ignore it silently
	ErrKilled = errors.New("node is killed")

	// ErrDecided is returned by Start once the node has decided
	ErrDecided = errors.New("consensus already decided")

	// ErrEngineClosed is returned when the engine main loop is no longer running
	ErrEngineClosed = errors.New("consensus engine closed")
)

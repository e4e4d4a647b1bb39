// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package logger

import (
	"log"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger supports structured logging
type Logger interface {
	Debugw(msg string, keyValues ...interface{})
	Infow(msg string, keyValues ...interface{})
	Warnw(msg string, keyValues ...interface{})
	Errorw(msg string, keyValues ...interface{})
	Fatalw(msg string, keyValues ...interface{})

	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Fatalf(template string, args ...interface{})
}

var _ Logger = (*zap.SugaredLogger)(nil)

// Config for Logger
type Config struct {
	Debug bool
	Level zapcore.Level
}

// New creates a zap sugared logger
func New(cfg Config) (Logger, error) {
	var (
		inst *zap.Logger
		err  error
	)
	if cfg.Debug {
		inst, err = zap.NewDevelopment()
	} else {
		inst, err = zap.NewProduction(zap.IncreaseLevel(cfg.Level))
	}
	if err != nil {
		return nil, err
	}
	return inst.Sugar(), nil
}

var (
	instance Logger
	mtx      sync.RWMutex
)

// Set replaces the global logger
func Set(l Logger) {
	mtx.Lock()
	defer mtx.Unlock()
	instance = l
}

// I returns the global logger, a production logger is created on first use
func I() Logger {
	mtx.RLock()
	l := instance
	mtx.RUnlock()
	if l != nil {
		return l
	}

	mtx.Lock()
	defer mtx.Unlock()
	if instance == nil {
		l, err := New(Config{Level: zapcore.InfoLevel})
		if err != nil {
			log.Fatalf("can't initialize zap logger: %v", err)
		}
		instance = l
	}
	return instance
}

// Named returns a child logger with the given name if the global one is zap based
func Named(name string) Logger {
	l := I()
	if sl, ok := l.(*zap.SugaredLogger); ok {
		return sl.Named(name)
	}
	return l
}

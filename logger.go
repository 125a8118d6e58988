// Copyright (c) 2026 The fe-php Authors.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package fephp

import (
	"os"
	"sync"

	"github.com/hashicorp/go-hclog"
)

// LogConfig configures the process-wide logger (spec §6).
type LogConfig struct {
	Level      string // "trace", "debug", "info", "warn", "error"
	JSON       bool
	TimeFormat string
}

var (
	loggersLock    sync.RWMutex
	loggerCreators = make(map[string]func(cfg LogConfig) hclog.Logger)
)

// RegisterLogger lets a build register an alternate logger constructor
// under sign, following gorox's own registered-constructor idiom for
// pluggable components (hemi/hemi_logger.go's RegisterLogger). fe-php
// only ever registers "hclog" itself, but the seam is kept so a build
// tag could swap it without touching callers.
func RegisterLogger(sign string, create func(cfg LogConfig) hclog.Logger) {
	loggersLock.Lock()
	defer loggersLock.Unlock()
	loggerCreators[sign] = create
}

func createLogger(sign string, cfg LogConfig) hclog.Logger {
	loggersLock.Lock()
	defer loggersLock.Unlock()
	if create := loggerCreators[sign]; create != nil {
		return create(cfg)
	}
	return nil
}

func init() {
	RegisterLogger("hclog", func(cfg LogConfig) hclog.Logger {
		level := hclog.LevelFromString(cfg.Level)
		if level == hclog.NoLevel {
			level = hclog.Info
		}
		opts := &hclog.LoggerOptions{
			Name:       "fephp",
			Level:      level,
			Output:     os.Stderr,
			JSONFormat: cfg.JSON,
		}
		if cfg.TimeFormat != "" {
			opts.TimeFormat = cfg.TimeFormat
		}
		return hclog.New(opts)
	})
}

// NewLogger builds the process logger from cfg.
func NewLogger(cfg LogConfig) hclog.Logger {
	if logger := createLogger("hclog", cfg); logger != nil {
		return logger
	}
	return hclog.NewNullLogger()
}

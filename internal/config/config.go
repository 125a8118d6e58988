// Copyright (c) 2026 The fe-php Authors.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Package config loads fephp's YAML configuration document (spec §6) into
// the core's Config tree, grounded on devforth-wait0's
// internal/wait0/config.go: read the file, yaml.Unmarshal into a
// yaml-tagged mirror struct, then validate and default the loaded values
// before handing them to the caller.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nzsys/fe-php"
)

// Document mirrors the YAML shape documented in spec §6 exactly, using
// yaml struct tags the way devforth-wait0's Config does.
type Document struct {
	Backend struct {
		EnableHybrid   bool   `yaml:"enableHybrid"`
		DefaultBackend string `yaml:"defaultBackend"`
		RoutingRules   []struct {
			Pattern struct {
				Type  string `yaml:"type"`
				Value string `yaml:"value"`
			} `yaml:"pattern"`
			Backend  string `yaml:"backend"`
			Priority int    `yaml:"priority"`
		} `yaml:"routingRules"`
		StaticFiles struct {
			Root       string   `yaml:"root"`
			IndexFiles []string `yaml:"indexFiles"`
		} `yaml:"staticFiles"`
	} `yaml:"backend"`

	FpmSocket string `yaml:"fpmSocket"`

	Pool struct {
		MaxSize            int `yaml:"maxSize"`
		MaxIdleSecs        int `yaml:"maxIdleSecs"`
		MaxLifetimeSecs    int `yaml:"maxLifetimeSecs"`
		ConnectTimeoutSecs int `yaml:"connectTimeoutSecs"`
		AcquireTimeoutSecs int `yaml:"acquireTimeoutSecs"`
		CircuitBreaker     struct {
			Enable              bool   `yaml:"enable"`
			FailureThreshold    uint32 `yaml:"failureThreshold"`
			SuccessThreshold    uint32 `yaml:"successThreshold"`
			TimeoutSeconds      int    `yaml:"timeoutSeconds"`
			HalfOpenMaxRequests uint32 `yaml:"halfOpenMaxRequests"`
		} `yaml:"circuitBreaker"`
	} `yaml:"pool"`

	Php struct {
		LibraryPath       string `yaml:"libraryPath"`
		DocumentRoot      string `yaml:"documentRoot"`
		WorkerPoolSize    int    `yaml:"workerPoolSize"`
		WorkerMaxRequests int    `yaml:"workerMaxRequests"`
		UseFpm            bool   `yaml:"useFpm"`
	} `yaml:"php"`

	Log struct {
		Level      string `yaml:"level"`
		JSON       bool   `yaml:"json"`
		TimeFormat string `yaml:"timeFormat"`
	} `yaml:"log"`
}

// Load reads path and unmarshals it into a fephp.Config, defaulting and
// validating fields the way devforth-wait0's LoadConfig does for its own
// document (required fields checked, zero-value fields defaulted, no
// silent partial config).
func Load(path string) (fephp.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fephp.Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fephp.Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return fromDocument(doc)
}

func fromDocument(doc Document) (fephp.Config, error) {
	if doc.Backend.StaticFiles.Root == "" {
		return fephp.Config{}, fmt.Errorf("config: backend.staticFiles.root is required")
	}
	if doc.Backend.DefaultBackend == "" {
		return fephp.Config{}, fmt.Errorf("config: backend.defaultBackend is required")
	}

	rules := make([]fephp.RoutingRuleConfig, 0, len(doc.Backend.RoutingRules))
	for i, r := range doc.Backend.RoutingRules {
		if r.Pattern.Type == "" {
			return fephp.Config{}, fmt.Errorf("config: backend.routingRules[%d].pattern.type is required", i)
		}
		rules = append(rules, fephp.RoutingRuleConfig{
			Pattern:  fephp.PatternConfig{Type: r.Pattern.Type, Value: r.Pattern.Value},
			Backend:  fephp.BackendID(r.Backend),
			Priority: r.Priority,
		})
	}

	indexFiles := doc.Backend.StaticFiles.IndexFiles
	if len(indexFiles) == 0 {
		indexFiles = []string{"index.html"}
	}

	cfg := fephp.Config{
		Backend: fephp.BackendConfig{
			EnableHybrid:   doc.Backend.EnableHybrid,
			DefaultBackend: fephp.BackendID(doc.Backend.DefaultBackend),
			RoutingRules:   rules,
			StaticFiles: fephp.StaticConfig{
				Root:       doc.Backend.StaticFiles.Root,
				IndexFiles: indexFiles,
			},
		},
		FpmSocket: doc.FpmSocket,
		Pool: fephp.PoolSecondsConfig{
			MaxSize:            defaultInt(doc.Pool.MaxSize, 10),
			MaxIdleSecs:        defaultInt(doc.Pool.MaxIdleSecs, 60),
			MaxLifetimeSecs:    defaultInt(doc.Pool.MaxLifetimeSecs, 3600),
			ConnectTimeoutSecs: defaultInt(doc.Pool.ConnectTimeoutSecs, 5),
			AcquireTimeoutSecs: defaultInt(doc.Pool.AcquireTimeoutSecs, 5),
			CircuitBreaker: fephp.BreakerSecondsConfig{
				Enable:              doc.Pool.CircuitBreaker.Enable,
				FailureThreshold:    doc.Pool.CircuitBreaker.FailureThreshold,
				SuccessThreshold:    doc.Pool.CircuitBreaker.SuccessThreshold,
				TimeoutSeconds:      defaultInt(doc.Pool.CircuitBreaker.TimeoutSeconds, 30),
				HalfOpenMaxRequests: doc.Pool.CircuitBreaker.HalfOpenMaxRequests,
			},
		},
		Php: fephp.PhpSecondsConfig{
			LibraryPath:       doc.Php.LibraryPath,
			DocumentRoot:      doc.Php.DocumentRoot,
			WorkerPoolSize:    defaultInt(doc.Php.WorkerPoolSize, 4),
			WorkerMaxRequests: doc.Php.WorkerMaxRequests,
			UseFpm:            doc.Php.UseFpm,
		},
		Log: fephp.LogConfig{
			Level:      defaultString(doc.Log.Level, "info"),
			JSON:       doc.Log.JSON,
			TimeFormat: doc.Log.TimeFormat,
		},
	}

	if _, err := fephp.CompileRoutingRules(cfg.Backend.RoutingRules); err != nil {
		return fephp.Config{}, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

func defaultInt(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

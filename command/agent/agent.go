// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

// Package agent wires the judging pipeline to its HTTP surface and
// owns process lifecycle: config, persistence, listener, shutdown.
package agent

import (
	"fmt"
	"sync"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/verdictd/verdictd/drivers"
	"github.com/verdictd/verdictd/judge"
	"github.com/verdictd/verdictd/store"
)

// Agent is one judging replica: driver registry, judge, optional
// persistence, and the HTTP server on top.
type Agent struct {
	config *Config
	logger hclog.Logger

	registry *drivers.Registry
	judge    *judge.Judge
	store    *store.Store

	shutdown     bool
	shutdownLock sync.Mutex
}

// NewAgent builds the pipeline but does not listen; the HTTP server is
// attached by the caller.
func NewAgent(config *Config, logger hclog.Logger) (*Agent, error) {
	a := &Agent{
		config: config,
		logger: logger.Named("agent"),
	}

	a.registry = drivers.NewRegistry(logger)

	var sink judge.Sink
	if config.DatabasePath != "" {
		s, err := store.Open(config.DatabasePath, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open submission store: %w", err)
		}
		a.store = s
		sink = s
	} else {
		a.logger.Warn("no database configured, submissions will not be persisted")
		sink = noopSink{}
	}

	a.judge = judge.New(&judge.Config{
		Logger:      logger,
		Registry:    a.registry,
		Sink:        sink,
		Replica:     config.Replica,
		ContainerID: config.ContainerID,
	})

	for _, fp := range a.registry.Fingerprints() {
		a.logger.Info("detected toolchain", "language", fp.Language,
			"binary", fp.Binary, "available", fp.Available, "version", fp.Version)
	}

	return a, nil
}

// Shutdown releases agent resources. Idempotent.
func (a *Agent) Shutdown() error {
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()

	if a.shutdown {
		return nil
	}
	a.logger.Info("requesting shutdown")
	a.shutdown = true

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			return fmt.Errorf("failed to close submission store: %w", err)
		}
	}
	a.logger.Info("shutdown complete")
	return nil
}

// noopSink stands in when persistence is not configured; every save
// reports failure so metadata shows saved_to_db=false.
type noopSink struct{}

func (noopSink) SaveSubmission(*judge.Submission) error {
	return fmt.Errorf("persistence not configured")
}

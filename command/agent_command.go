// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

package command

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	metrics "github.com/hashicorp/go-metrics"

	"github.com/verdictd/verdictd/command/agent"
	"github.com/verdictd/verdictd/version"
)

// AgentCommand runs a judging replica until signalled.
type AgentCommand struct {
	Meta

	agent      *agent.Agent
	httpServer *agent.HTTPServer
}

func (c *AgentCommand) Help() string {
	helpText := `
Usage: verdictd agent

  Starts the judging agent: the HTTP API plus the sandboxed execution
  pipeline behind it.

  The agent is configured through the environment:

  PORT          HTTP listen port (default 8000)
  BIND          HTTP bind address (default 0.0.0.0)
  DATABASE_URL  Path to the submission database file. Unset disables
                persistence.
  REPLICA_NAME  Replica name reported in response metadata (defaults
                to HOSTNAME)
  LOG_LEVEL     trace, debug, info, warn or error (default INFO)
  ENABLE_DEBUG  Mount the pprof handlers when true
`
	return strings.TrimSpace(helpText)
}

func (c *AgentCommand) Synopsis() string {
	return "Runs the judging agent"
}

func (c *AgentCommand) Name() string { return "agent" }

func (c *AgentCommand) Run(args []string) int {
	if len(args) > 0 {
		c.Ui.Error(fmt.Sprintf("Unexpected arguments: %v", args))
		return 1
	}

	config, err := agent.LoadConfig()
	if err != nil {
		c.Ui.Error(fmt.Sprintf("Invalid configuration: %v", err))
		return 1
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:       "verdictd",
		Level:      hclog.LevelFromString(config.LogLevel),
		JSONFormat: true,
	})

	c.setupTelemetry()

	c.agent, err = agent.NewAgent(config, logger)
	if err != nil {
		c.Ui.Error(fmt.Sprintf("Failed to start agent: %v", err))
		return 1
	}

	c.httpServer, err = agent.NewHTTPServer(c.agent, config)
	if err != nil {
		c.Ui.Error(fmt.Sprintf("Failed to start HTTP server: %v", err))
		_ = c.agent.Shutdown()
		return 1
	}

	c.Ui.Output(version.GetVersion().FullVersionNumber(true))
	c.Ui.Output(fmt.Sprintf("Listening on %s (replica %s)", c.httpServer.Addr, config.Replica))
	logger.Info("agent started", "addr", c.httpServer.Addr,
		"replica", config.Replica, "database", config.DatabasePath)

	return c.handleSignals(logger)
}

// handleSignals blocks until the process is told to exit. SIGHUP is
// logged and ignored; configuration comes from the environment and
// cannot be reloaded in place.
func (c *AgentCommand) handleSignals(logger hclog.Logger) int {
	signalCh := make(chan os.Signal, 4)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	for {
		sig := <-signalCh
		logger.Info("caught signal", "signal", sig)

		if sig == syscall.SIGHUP {
			continue
		}

		c.httpServer.Shutdown()
		if err := c.agent.Shutdown(); err != nil {
			logger.Error("error during shutdown", "error", err)
			return 1
		}
		return 0
	}
}

// setupTelemetry wires the in-memory metrics sink; a SIGUSR1 dumps the
// current metrics to stderr.
func (c *AgentCommand) setupTelemetry() {
	inm := metrics.NewInmemSink(10*time.Second, time.Minute)
	metrics.DefaultInmemSignal(inm)

	conf := metrics.DefaultConfig("verdictd")
	conf.EnableHostname = false
	_, _ = metrics.NewGlobal(conf, inm)
}

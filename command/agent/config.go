// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

package agent

import (
	"fmt"
	"os"
	"strconv"

	hclog "github.com/hashicorp/go-hclog"
)

// Config holds the runtime configuration for one judging replica. The
// service is configured entirely through the environment, the way it is
// deployed.
type Config struct {
	// BindAddr is the address the HTTP listener binds to.
	BindAddr string

	// Port is the HTTP listen port.
	Port int

	// DatabasePath is the bolt file submissions are persisted to. Empty
	// disables persistence; /submit still judges but reports
	// saved_to_db=false.
	DatabasePath string

	// Replica names this instance in response metadata.
	Replica string

	// ContainerID identifies the host, normally the container hostname.
	ContainerID string

	// LogLevel is one of the hclog levels.
	LogLevel string

	// EnableDebug mounts the pprof handlers.
	EnableDebug bool
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() *Config {
	return &Config{
		BindAddr: "0.0.0.0",
		Port:     8000,
		Replica:  "unknown",
		LogLevel: "INFO",
	}
}

// LoadConfig builds a Config from the environment on top of defaults.
func LoadConfig() (*Config, error) {
	config := DefaultConfig()

	if v := os.Getenv("BIND"); v != "" {
		config.BindAddr = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("invalid PORT %q", v)
		}
		config.Port = port
	}
	config.DatabasePath = os.Getenv("DATABASE_URL")

	config.ContainerID = os.Getenv("HOSTNAME")
	if config.ContainerID == "" {
		config.ContainerID = "unknown"
	}
	config.Replica = os.Getenv("REPLICA_NAME")
	if config.Replica == "" {
		config.Replica = config.ContainerID
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if hclog.LevelFromString(v) == hclog.NoLevel {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q", v)
		}
		config.LogLevel = v
	}
	if v := os.Getenv("ENABLE_DEBUG"); v != "" {
		enable, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid ENABLE_DEBUG %q", v)
		}
		config.EnableDebug = enable
	}

	return config, nil
}

// Addr returns the listen address in host:port form.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.BindAddr, c.Port)
}

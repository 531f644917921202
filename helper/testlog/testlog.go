// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

// Package testlog creates hclog loggers backed by testing.T to ease
// logging in tests.
package testlog

import (
	"os"

	"github.com/hashicorp/go-hclog"
)

// LogPrinter is the methods of testing.T (or testing.B) needed by the
// test logger.
type LogPrinter interface {
	Logf(format string, args ...interface{})
}

// writer implements io.Writer on top of a LogPrinter.
type writer struct {
	t LogPrinter
}

// Write to an underlying LogPrinter. Never returns an error.
func (w *writer) Write(p []byte) (n int, err error) {
	w.t.Logf("%s", p)
	return len(p), nil
}

// HCLogger returns a new test logger with the Debug level unless
// VERDICTD_TEST_LOG_LEVEL is set.
func HCLogger(t LogPrinter) hclog.Logger {
	level := "debug"
	if envLogLevel := os.Getenv("VERDICTD_TEST_LOG_LEVEL"); envLogLevel != "" {
		level = envLogLevel
	}
	return hclog.New(&hclog.LoggerOptions{
		Level:           hclog.LevelFromString(level),
		Output:          &writer{t: t},
		IncludeLocation: true,
	})
}

// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

//go:build linux || darwin

package executor

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	hclog "github.com/hashicorp/go-hclog"
	"golang.org/x/sys/unix"

	"github.com/verdictd/verdictd/helper/subproc"
)

// ShimCommandName is the hidden argv[1] that re-invokes this binary as
// the pre-exec shim: it applies rlimits to itself and then execs the
// target, so the limits land between fork and exec.
const ShimCommandName = "sandbox-exec"

// shimSpec is the JSON payload handed to the shim process.
type shimSpec struct {
	Argv    []string `json:"argv"`
	Env     []string `json:"env"`
	Limits  *Limits  `json:"limits"`
	LogFile string   `json:"log_file"`
}

// Install the shim cli handler. This init must run before any other work
// in the child; keep it free of side effects beyond the dispatch.
func init() {
	if len(os.Args) == 3 && os.Args[1] == ShimCommandName {
		runShim(os.Args[2])
		os.Exit(0)
	}
}

func runShim(payload string) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: bad payload: %v\n", ShimCommandName, err)
		os.Exit(127)
	}
	var spec shimSpec
	if err := json.Unmarshal(raw, &spec); err != nil || len(spec.Argv) == 0 {
		fmt.Fprintf(os.Stderr, "%s: bad spec\n", ShimCommandName)
		os.Exit(127)
	}

	// Limit warnings go to a side log file, never to the captured
	// stderr: the parent compares stderr markers and must not see shim
	// noise.
	logger := shimLogger(spec.LogFile)
	if spec.Limits != nil {
		spec.Limits.apply(logger)
	}

	if err := unix.Exec(spec.Argv[0], spec.Argv, spec.Env); err != nil {
		fmt.Fprintf(os.Stderr, "%s: exec %s: %v\n", ShimCommandName, spec.Argv[0], err)
		os.Exit(127)
	}
}

func shimLogger(logFile string) hclog.Logger {
	if logFile != "" {
		if f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600); err == nil {
			return hclog.New(&hclog.LoggerOptions{
				Name:       ShimCommandName,
				JSONFormat: true,
				Output:     f,
			})
		}
	}
	return hclog.New(&hclog.LoggerOptions{Output: io.Discard})
}

// apply installs each limit as a hard+soft pair. Failures are logged and
// skipped; the child proceeds with whatever limits applied.
func (l *Limits) apply(logger hclog.Logger) {
	set := func(name string, resource int, value uint64) {
		lim := unix.Rlimit{Cur: value, Max: value}
		if err := unix.Setrlimit(resource, &lim); err != nil {
			logger.Warn("failed to set rlimit", "limit", name, "value", value, "error", err)
		}
	}
	set("cpu", unix.RLIMIT_CPU, l.CPUSeconds)
	set("as", unix.RLIMIT_AS, l.AddressSpace)
	set("nproc", unix.RLIMIT_NPROC, l.Processes)
	set("fsize", unix.RLIMIT_FSIZE, l.FileSize)
	set("core", unix.RLIMIT_CORE, 0)
	set("nofile", unix.RLIMIT_NOFILE, l.OpenFiles)
}

// buildCmd wraps limit-enforced invocations through the shim; direct
// invocations (toolchain compiles, probes) run as-is.
func (e *Executor) buildCmd(command *ExecCommand) (*exec.Cmd, error) {
	if len(command.Argv) == 0 {
		return nil, errors.New("empty argv")
	}
	if !command.ResourceLimits {
		return exec.Command(command.Argv[0], command.Argv[1:]...), nil
	}

	limits := command.Limits
	if limits == nil {
		limits = DefaultLimits()
	}
	spec := &shimSpec{
		Argv:    command.Argv,
		Env:     command.Env,
		Limits:  limits,
		LogFile: shimLogPath(command.Dir),
	}
	raw, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode shim spec: %w", err)
	}
	payload := base64.StdEncoding.EncodeToString(raw)
	return exec.Command(subproc.Self(), ShimCommandName, payload), nil
}

func shimLogPath(dir string) string {
	if dir == "" {
		return ""
	}
	return dir + string(os.PathSeparator) + ".rlimit.log"
}

// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

// Package executor launches and supervises a single untrusted child
// process per call: it applies resource limits, feeds stdin, captures
// bounded stdout/stderr, enforces a wall-clock timeout, and samples CPU
// and RSS while the child runs. All failures are folded into the
// returned ExecutionRecord; Run never reports an error to the caller.
package executor

import (
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/armon/circbuf"
	hclog "github.com/hashicorp/go-hclog"
)

const (
	// outputBufSize bounds each of the captured stdout and stderr
	// streams. Output beyond the bound is dropped from the head, keeping
	// the tail (circular buffer semantics).
	outputBufSize = 1 << 20 // 1 MiB

	// ExitCodeTimeout is the reserved exit code reported when the child
	// was killed for exceeding its wall-clock timeout. Wire contract;
	// callers key on it.
	ExitCodeTimeout = 124

	// ExitCodeNoExit is reported when the child never reached exec or
	// produced no wait status.
	ExitCodeNoExit = -1

	// gracePeriod is how long the child gets between the shutdown signal
	// and SIGKILL of its process group after a timeout.
	gracePeriod = 250 * time.Millisecond

	// timeoutStderr replaces captured stderr when the child is killed on
	// timeout.
	timeoutStderr = "Time Limit Exceeded"
)

// ExecCommand holds the child invocation and its supervision settings.
type ExecCommand struct {
	// Argv is the command to run; Argv[0] must be an absolute path.
	Argv []string

	// Stdin is written to the child's stdin, which is then closed.
	Stdin string

	// Dir is the working directory for the child.
	Dir string

	// Env is the full environment of the child; nothing is inherited.
	Env []string

	// Timeout is the wall-clock budget. The caller clamps it; zero means
	// no timeout (used for toolchain probes only).
	Timeout time.Duration

	// ResourceLimits determines whether rlimits are applied to the child
	// before exec. Limit application requires re-invoking the verdictd
	// binary as a shim, so toolchain invocations that need headroom may
	// opt out.
	ResourceLimits bool

	// Limits overrides DefaultLimits when ResourceLimits is set.
	Limits *Limits
}

// ExecutionRecord is the normalized result of one supervised child.
type ExecutionRecord struct {
	Stdout         string
	Stderr         string
	ExitCode       int
	WallMillis     int64
	PeakCPUPercent float64
	PeakRSSBytes   int64
}

// TimedOut reports whether the record carries the timeout sentinel.
func (r *ExecutionRecord) TimedOut() bool {
	return r.ExitCode == ExitCodeTimeout
}

// Executor supervises child processes. It is stateless across calls and
// safe for concurrent use.
type Executor struct {
	logger hclog.Logger
}

func New(logger hclog.Logger) *Executor {
	return &Executor{logger: logger.Named("executor")}
}

// supervised tracks one launched child through its lifecycle:
// spawning -> running -> (exited | timed-out -> killed -> exited) -> reaped.
type supervised struct {
	cmd    *exec.Cmd
	logger hclog.Logger
}

// Run launches the command and blocks until the child is reaped. Every
// control path returns a populated record; no child process survives the
// call.
func (e *Executor) Run(command *ExecCommand) *ExecutionRecord {
	record := &ExecutionRecord{ExitCode: ExitCodeNoExit}
	start := time.Now()

	cmd, err := e.buildCmd(command)
	if err != nil {
		record.Stderr = "executor: " + err.Error()
		record.WallMillis = time.Since(start).Milliseconds()
		return record
	}

	stdout, _ := circbuf.NewBuffer(outputBufSize)
	stderr, _ := circbuf.NewBuffer(outputBufSize)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Dir = command.Dir
	cmd.Env = command.Env

	child := &supervised{cmd: cmd, logger: e.logger}
	child.setNewProcessGroup()

	stdin, err := cmd.StdinPipe()
	if err != nil {
		record.Stderr = "executor: " + err.Error()
		record.WallMillis = time.Since(start).Milliseconds()
		return record
	}

	if err := cmd.Start(); err != nil {
		record.Stderr = "executor: failed to start: " + err.Error()
		record.WallMillis = time.Since(start).Milliseconds()
		return record
	}

	pid := cmd.Process.Pid
	e.logger.Debug("launched command", "path", command.Argv[0], "args",
		strings.Join(command.Argv[1:], " "), "pid", pid)

	// Write stdin fully, then close. A child that exits without draining
	// stdin yields EPIPE here, which is not an execution failure.
	go func() {
		_, _ = io.WriteString(stdin, command.Stdin)
		_ = stdin.Close()
	}()

	sampler := newSampler(pid)
	samplerDone := make(chan struct{})
	go sampler.run(samplerDone)

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	var timedOut bool
	var waitErr error
	if command.Timeout > 0 {
		timer := time.NewTimer(command.Timeout)
		defer timer.Stop()
		select {
		case waitErr = <-waitCh:
		case <-timer.C:
			timedOut = true
			child.terminate(pid)
			waitErr = <-waitCh
		}
	} else {
		waitErr = <-waitCh
	}

	close(samplerDone)
	peakCPU, peakRSS := sampler.peaks()
	record.PeakCPUPercent, record.PeakRSSBytes = peakCPU, int64(peakRSS)
	record.WallMillis = time.Since(start).Milliseconds()

	record.Stdout = toValidUTF8(stdout.String())
	record.Stderr = toValidUTF8(stderr.String())

	if timedOut {
		record.ExitCode = ExitCodeTimeout
		record.Stderr = timeoutStderr
	} else {
		record.ExitCode = exitCode(waitErr)
		if record.ExitCode == ExitCodeNoExit && waitErr != nil {
			record.Stderr = "executor: " + waitErr.Error()
		}
	}

	// The child is reaped; sweep any forked stragglers so no process
	// outlives the record.
	child.reapProcessTree(pid)

	return record
}

// terminate performs graceful-then-forceful termination of the child's
// process group after a timeout.
func (s *supervised) terminate(pid int) {
	proc, err := os.FindProcess(pid)
	if err == nil {
		if err := s.shutdownProcess(os.Interrupt, proc); err != nil {
			s.logger.Debug("shutdown signal failed", "pid", pid, "error", err)
		}
	}
	time.Sleep(gracePeriod)
	if err := s.killProcessTree(pid); err != nil {
		s.logger.Warn("failed to kill process tree", "pid", pid, "error", err)
	}
}

// exitCode decodes the error from Cmd.Wait into a wire exit code. A
// process terminated by a signal mirrors the shell convention of
// 128+signal.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return ExitCodeNoExit
	}
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok {
		return ExitCodeNoExit
	}
	if status.Signaled() {
		const exitSignalBase = 128
		return exitSignalBase + int(status.Signal())
	}
	return status.ExitStatus()
}

// toValidUTF8 decodes captured bytes as UTF-8, replacing malformed
// sequences. Child output is data, never fatal.
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "�")
}

var (
	// finishedErr is the error message received when signaling an
	// already exited process.
	finishedErr = "os: process already finished"

	// noSuchProcessErr is the error message received when killing a non
	// existing process (e.g. when killing a process group).
	noSuchProcessErr = "no such process"
)

// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

//go:build unix

package executor

import (
	"fmt"
	"os"
	"syscall"
)

// configure new process group for child process
func (s *supervised) setNewProcessGroup() {
	if s.cmd.SysProcAttr == nil {
		s.cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	s.cmd.SysProcAttr.Setpgid = true
}

// killProcessTree SIGKILLs the process group starting at pid.
func (s *supervised) killProcessTree(pid int) error {
	// If a new process group was created upon command execution we can
	// kill the whole process group now to cleanup any leftovers.
	if s.cmd.SysProcAttr != nil && s.cmd.SysProcAttr.Setpgid {
		negative := -pid // tells unix to kill the entire process group
		s.logger.Trace("sending sigkill to process group", "pid", pid)
		if err := syscall.Kill(negative, syscall.SIGKILL); err != nil && err.Error() != noSuchProcessErr {
			return err
		}
		return nil
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	return proc.Kill()
}

// shutdownProcess only sends the process a shutdown signal (default
// INT), it doesn't necessarily kill it.
func (s *supervised) shutdownProcess(sig os.Signal, proc *os.Process) error {
	if sig == nil {
		sig = os.Interrupt
	}
	if err := proc.Signal(sig); err != nil && err.Error() != finishedErr {
		return fmt.Errorf("executor shutdown error: %v", err)
	}
	return nil
}

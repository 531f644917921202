// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

//go:build windows

package executor

import (
	"os"
)

func (s *supervised) setNewProcessGroup() {}

func (s *supervised) killProcessTree(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	if err := proc.Kill(); err != nil && err.Error() != finishedErr {
		return err
	}
	return nil
}

// Windows has no INT-style shutdown signal for arbitrary children; kill
// outright.
func (s *supervised) shutdownProcess(_ os.Signal, proc *os.Process) error {
	if err := proc.Kill(); err != nil && err.Error() != finishedErr {
		return err
	}
	return nil
}

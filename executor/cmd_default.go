// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

//go:build !linux && !darwin

package executor

import (
	"errors"
	"os/exec"
)

// Rlimits are unavailable on this platform; the child runs uncapped and
// the residual trust boundary is the wall-clock timeout alone.
func (e *Executor) buildCmd(command *ExecCommand) (*exec.Cmd, error) {
	if len(command.Argv) == 0 {
		return nil, errors.New("empty argv")
	}
	if command.ResourceLimits {
		e.logger.Warn("resource limits are not supported on this platform, running uncapped")
	}
	return exec.Command(command.Argv[0], command.Argv[1:]...), nil
}

// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

package drivers

import (
	"fmt"
	"os"
	"path/filepath"

	hclog "github.com/hashicorp/go-hclog"
	multierror "github.com/hashicorp/go-multierror"
)

// Sandbox is a per-invocation working directory under the system temp
// root with owner-only permissions. It is removed unconditionally on
// exit, success or failure.
type Sandbox struct {
	dir    string
	logger hclog.Logger
}

func newSandbox(logger hclog.Logger) (*Sandbox, error) {
	dir, err := os.MkdirTemp("", "exec_")
	if err != nil {
		return nil, fmt.Errorf("failed to create sandbox directory: %w", err)
	}
	if err := os.Chmod(dir, 0700); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to restrict sandbox directory: %w", err)
	}
	return &Sandbox{dir: dir, logger: logger}, nil
}

func (s *Sandbox) Dir() string {
	return s.dir
}

// WriteFile places a source file inside the sandbox and returns its
// absolute path.
func (s *Sandbox) WriteFile(name, contents string) (string, error) {
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return path, nil
}

// Mkdir creates a subdirectory inside the sandbox.
func (s *Sandbox) Mkdir(name string) (string, error) {
	path := filepath.Join(s.dir, name)
	if err := os.MkdirAll(path, 0700); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", name, err)
	}
	return path, nil
}

// Remove destroys the sandbox. Child processes are already reaped by the
// supervisor, so a failure here means filesystem trouble; it is logged
// and returned but never escalated past the driver.
func (s *Sandbox) Remove() error {
	var mErr multierror.Error
	if err := os.RemoveAll(s.dir); err != nil {
		mErr.Errors = append(mErr.Errors, fmt.Errorf("failed to remove sandbox %s: %w", s.dir, err))
	}
	err := mErr.ErrorOrNil()
	if err != nil {
		s.logger.Warn("sandbox cleanup failed", "dir", s.dir, "error", err)
	}
	return err
}

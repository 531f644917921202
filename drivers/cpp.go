// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

package drivers

import (
	"path/filepath"
	"time"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/verdictd/verdictd/executor"
)

// cppDriver compiles main.cpp to main and runs the binary.
type cppDriver struct {
	base
}

func newCppDriver(exec *executor.Executor, logger hclog.Logger) *cppDriver {
	return &cppDriver{base{exec: exec, logger: logger.Named("cpp")}}
}

func (d *cppDriver) Language() string { return "cpp" }

func (d *cppDriver) Limits() *executor.Limits {
	return executor.DefaultLimits()
}

func (d *cppDriver) Run(source, stdin string, timeout time.Duration) *executor.ExecutionRecord {
	start := time.Now()

	sandbox, err := newSandbox(d.logger)
	if err != nil {
		return errorRecord(err)
	}
	defer sandbox.Remove()

	cppFile, err := sandbox.WriteFile("main.cpp", source)
	if err != nil {
		return errorRecord(err)
	}

	gxx, err := lookupBin("g++")
	if err != nil {
		return errorRecord(err)
	}

	binPath := filepath.Join(sandbox.Dir(), "main")
	compileRecord := d.exec.Run(&executor.ExecCommand{
		Argv:    []string{gxx, "-o", binPath, cppFile},
		Dir:     sandbox.Dir(),
		Env:     []string{"PATH=" + restrictedPath},
		Timeout: timeout,
	})
	if compileRecord.ExitCode != 0 {
		compileRecord.PeakCPUPercent = 0
		compileRecord.PeakRSSBytes = 0
		return compileRecord
	}

	remaining := timeout - time.Since(start)
	if remaining <= 0 {
		return budgetExceeded(time.Since(start))
	}

	return d.exec.Run(&executor.ExecCommand{
		Argv:           []string{binPath},
		Stdin:          stdin,
		Dir:            sandbox.Dir(),
		Env:            []string{"PATH=" + restrictedPath},
		Timeout:        remaining,
		ResourceLimits: true,
		Limits:         d.Limits(),
	})
}

// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

package drivers

import (
	"time"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/verdictd/verdictd/executor"
)

// pythonDriver runs source through the interpreter's -c flag; no file
// layout is needed beyond the sandbox working directory.
type pythonDriver struct {
	base
}

func newPythonDriver(exec *executor.Executor, logger hclog.Logger) *pythonDriver {
	return &pythonDriver{base{exec: exec, logger: logger.Named("python")}}
}

func (d *pythonDriver) Language() string { return "python" }

func (d *pythonDriver) Limits() *executor.Limits {
	return executor.DefaultLimits()
}

func (d *pythonDriver) Run(source, stdin string, timeout time.Duration) *executor.ExecutionRecord {
	sandbox, err := newSandbox(d.logger)
	if err != nil {
		return errorRecord(err)
	}
	defer sandbox.Remove()

	bin, err := lookupBin("python3")
	if err != nil {
		return errorRecord(err)
	}

	return d.exec.Run(&executor.ExecCommand{
		Argv:           []string{bin, "-c", source},
		Stdin:          stdin,
		Dir:            sandbox.Dir(),
		Env:            pythonEnv(),
		Timeout:        timeout,
		ResourceLimits: true,
		Limits:         d.Limits(),
	})
}

func pythonEnv() []string {
	return []string{
		"PATH=" + restrictedPath,
		"PYTHONUNBUFFERED=1",
		"PYTHONDONTWRITEBYTECODE=1",
		"PYTHONNOUSERSITE=1",
	}
}

// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

package drivers

import (
	"time"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/verdictd/verdictd/executor"
)

// nodeDriver writes source to main.js and runs it under node with a
// small old-space heap. File-based execution uses less memory than the
// -e flag.
type nodeDriver struct {
	base
}

func newNodeDriver(exec *executor.Executor, logger hclog.Logger) *nodeDriver {
	return &nodeDriver{base{exec: exec, logger: logger.Named("node")}}
}

func (d *nodeDriver) Language() string { return "javascript" }

// V8 reserves a large virtual code range for the JIT, so the
// address-space cap is raised to 1 GiB; the heap itself is capped by
// --max-old-space-size.
func (d *nodeDriver) Limits() *executor.Limits {
	limits := executor.DefaultLimits()
	limits.AddressSpace = 1 << 30
	return limits
}

func (d *nodeDriver) Run(source, stdin string, timeout time.Duration) *executor.ExecutionRecord {
	sandbox, err := newSandbox(d.logger)
	if err != nil {
		return errorRecord(err)
	}
	defer sandbox.Remove()

	jsFile, err := sandbox.WriteFile("main.js", source)
	if err != nil {
		return errorRecord(err)
	}

	bin, err := lookupBin("node")
	if err != nil {
		return errorRecord(err)
	}

	return d.exec.Run(&executor.ExecCommand{
		Argv:           []string{bin, "--max-old-space-size=64", jsFile},
		Stdin:          stdin,
		Dir:            sandbox.Dir(),
		Env:            nodeEnv(),
		Timeout:        timeout,
		ResourceLimits: true,
		Limits:         d.Limits(),
	})
}

// nodeEnv drops every NODE_* variable (NODE_OPTIONS in particular) so a
// host environment cannot inject flags into the child.
func nodeEnv() []string {
	return scrubEnv([]string{"NODE_"}, map[string]string{
		"PATH":     restrictedPath,
		"NODE_ENV": "production",
	})
}

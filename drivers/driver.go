// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

// Package drivers contains the per-language adapters that reduce a
// source string plus a stdin string to one ExecutionRecord. The driver
// set is closed at build time; unknown tags short-circuit at the
// orchestrator boundary.
package drivers

import (
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/verdictd/verdictd/executor"
)

// restrictedPath is the only PATH visible to supervised children.
const restrictedPath = "/usr/local/bin:/usr/bin:/bin"

// Driver is a language adapter: an optional compile step plus a
// supervised run, sharing one wall-clock budget.
type Driver interface {
	// Language returns the canonical language tag.
	Language() string

	// Limits returns the resource caps this adapter runs under. The
	// orchestrator uses the address-space cap for MLE classification.
	Limits() *executor.Limits

	// Run compiles (when applicable) and executes source against stdin.
	// It never returns an error; faults are folded into the record.
	Run(source, stdin string, timeout time.Duration) *executor.ExecutionRecord
}

// aliases maps accepted language spellings to canonical tags.
var aliases = map[string]string{
	"python":     "python",
	"py":         "python",
	"javascript": "javascript",
	"js":         "javascript",
	"node":       "javascript",
	"java":       "java",
	"cpp":        "cpp",
	"c++":        "cpp",
	"csharp":     "csharp",
	"c#":         "csharp",
	"cs":         "csharp",
}

// Canonical resolves a language tag (case-insensitive, including
// aliases) to its canonical form.
func Canonical(language string) (string, bool) {
	tag, ok := aliases[strings.ToLower(language)]
	return tag, ok
}

// Registry is the fixed language -> Driver lookup table.
type Registry struct {
	drivers map[string]Driver
	logger  hclog.Logger
}

func NewRegistry(logger hclog.Logger) *Registry {
	logger = logger.Named("drivers")
	exec := executor.New(logger)
	r := &Registry{
		logger:  logger,
		drivers: make(map[string]Driver),
	}
	for _, d := range []Driver{
		newPythonDriver(exec, logger),
		newNodeDriver(exec, logger),
		newJavaDriver(exec, logger),
		newCppDriver(exec, logger),
		newCsharpDriver(exec, logger),
	} {
		r.drivers[d.Language()] = d
	}
	return r
}

// Get returns the driver for a language tag or alias.
func (r *Registry) Get(language string) (Driver, bool) {
	tag, ok := Canonical(language)
	if !ok {
		return nil, false
	}
	d, ok := r.drivers[tag]
	return d, ok
}

// Languages returns the canonical tags in stable order.
func (r *Registry) Languages() []string {
	out := make([]string, 0, len(r.drivers))
	for tag := range r.drivers {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// base carries what every driver needs.
type base struct {
	exec   *executor.Executor
	logger hclog.Logger
}

// errorRecord folds an adapter-internal fault into a record the
// orchestrator reports as a single failed test.
func errorRecord(err error) *executor.ExecutionRecord {
	return &executor.ExecutionRecord{
		ExitCode: 1,
		Stderr:   fmt.Sprintf("adapter fault: %v", err),
	}
}

// budgetExceeded is returned when the compile step consumed the whole
// wall-clock budget; compile and run share the single per-test timeout.
func budgetExceeded(elapsed time.Duration) *executor.ExecutionRecord {
	return &executor.ExecutionRecord{
		ExitCode:   executor.ExitCodeTimeout,
		Stderr:     "Time Limit Exceeded",
		WallMillis: elapsed.Milliseconds(),
	}
}

// lookupBin resolves a toolchain binary to an absolute path using the
// host PATH. Children always exec absolute paths.
func lookupBin(bin string) (string, error) {
	path, err := exec.LookPath(bin)
	if err != nil {
		return "", fmt.Errorf("binary %q could not be found", bin)
	}
	return path, nil
}

// scrubEnv copies the host environment minus any variable matching a
// denied prefix, then applies overrides. Prevents tool-options injection
// (e.g. JAVA_TOOL_OPTIONS, NODE_OPTIONS) into supervised children.
func scrubEnv(denyPrefixes []string, overrides map[string]string) []string {
	var env []string
	for _, kv := range os.Environ() {
		key := kv
		if idx := strings.IndexByte(kv, '='); idx >= 0 {
			key = kv[:idx]
		}
		denied := false
		for _, prefix := range denyPrefixes {
			if strings.HasPrefix(key, prefix) {
				denied = true
				break
			}
		}
		if _, overridden := overrides[key]; denied || overridden {
			continue
		}
		env = append(env, kv)
	}
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+overrides[k])
	}
	return env
}

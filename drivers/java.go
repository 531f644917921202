// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

package drivers

import (
	"time"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/verdictd/verdictd/executor"
)

// javaDriver compiles Main.java and runs Main under a strictly bounded
// JVM: small heap/metaspace/code-cache, serial GC, and tier-1-only
// compilation to keep the footprint predictable.
type javaDriver struct {
	base
}

func newJavaDriver(exec *executor.Executor, logger hclog.Logger) *javaDriver {
	return &javaDriver{base{exec: exec, logger: logger.Named("java")}}
}

func (d *javaDriver) Language() string { return "java" }

// The JVM maps more virtual address space than it ever touches
// (compressed class space, code cache, GC structures), so the cap is
// raised to 1 GiB; native thread creation needs a higher process cap.
func (d *javaDriver) Limits() *executor.Limits {
	limits := executor.DefaultLimits()
	limits.AddressSpace = 1 << 30
	limits.Processes = 50
	return limits
}

func (d *javaDriver) Run(source, stdin string, timeout time.Duration) *executor.ExecutionRecord {
	start := time.Now()

	sandbox, err := newSandbox(d.logger)
	if err != nil {
		return errorRecord(err)
	}
	defer sandbox.Remove()

	javaFile, err := sandbox.WriteFile("Main.java", source)
	if err != nil {
		return errorRecord(err)
	}

	javac, err := lookupBin("javac")
	if err != nil {
		return errorRecord(err)
	}

	// Compile shares the per-test wall-clock budget. The compiler gets
	// its memory bounds via -J flags rather than rlimits.
	compileRecord := d.exec.Run(&executor.ExecCommand{
		Argv: []string{javac,
			"-J-Xmx32m",
			"-J-Xms16m",
			"-J-XX:ReservedCodeCacheSize=8m",
			"-J-XX:InitialCodeCacheSize=4m",
			"-J-XX:MaxMetaspaceSize=16m",
			"-J-XX:CompressedClassSpaceSize=8m",
			javaFile,
		},
		Dir:     sandbox.Dir(),
		Env:     javaEnv(),
		Timeout: timeout,
	})
	if compileRecord.ExitCode != 0 {
		// compile failure short-circuits; measurements describe the
		// submitted program, not the compiler
		compileRecord.PeakCPUPercent = 0
		compileRecord.PeakRSSBytes = 0
		return compileRecord
	}

	remaining := timeout - time.Since(start)
	if remaining <= 0 {
		return budgetExceeded(time.Since(start))
	}

	java, err := lookupBin("java")
	if err != nil {
		return errorRecord(err)
	}

	return d.exec.Run(&executor.ExecCommand{
		Argv: []string{java,
			"-Xmx32m",
			"-Xms8m",
			"-XX:ReservedCodeCacheSize=4m",
			"-XX:InitialCodeCacheSize=2m",
			"-XX:MaxMetaspaceSize=16m",
			"-XX:+UseSerialGC",
			"-XX:+TieredCompilation",
			"-XX:TieredStopAtLevel=1",
			"-XX:MaxDirectMemorySize=4m",
			"-cp", sandbox.Dir(),
			"Main",
		},
		Stdin:          stdin,
		Dir:            sandbox.Dir(),
		Env:            javaEnv(),
		Timeout:        remaining,
		ResourceLimits: true,
		Limits:         d.Limits(),
	})
}

// javaEnv drops every JAVA*/_JAVA_* variable so JAVA_TOOL_OPTIONS and
// _JAVA_OPTIONS cannot inject flags into javac or the JVM.
func javaEnv() []string {
	return scrubEnv([]string{"JAVA", "_JAVA"}, map[string]string{
		"PATH": restrictedPath,
	})
}

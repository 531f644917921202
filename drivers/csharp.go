// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

package drivers

import (
	"path/filepath"
	"time"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/verdictd/verdictd/executor"
)

// csharpDriver prefers the dotnet SDK (scaffold a console project,
// replace Program.cs, dotnet run); when no SDK is installed it falls
// back to Mono's mcs/mono pair.
type csharpDriver struct {
	base
}

func newCsharpDriver(exec *executor.Executor, logger hclog.Logger) *csharpDriver {
	return &csharpDriver{base{exec: exec, logger: logger.Named("csharp")}}
}

func (d *csharpDriver) Language() string { return "csharp" }

// The CLR maps large virtual regions up front and spawns worker threads
// for GC and the thread pool, so both caps are raised.
func (d *csharpDriver) Limits() *executor.Limits {
	limits := executor.DefaultLimits()
	limits.AddressSpace = 1 << 30
	limits.Processes = 50
	return limits
}

func (d *csharpDriver) Run(source, stdin string, timeout time.Duration) *executor.ExecutionRecord {
	start := time.Now()

	sandbox, err := newSandbox(d.logger)
	if err != nil {
		return errorRecord(err)
	}
	defer sandbox.Remove()

	if dotnet, err := lookupBin("dotnet"); err == nil {
		return d.runDotnet(dotnet, sandbox, source, stdin, timeout, start)
	}
	return d.runMono(sandbox, source, stdin, timeout, start)
}

func (d *csharpDriver) runDotnet(dotnet string, sandbox *Sandbox, source, stdin string, timeout time.Duration, start time.Time) *executor.ExecutionRecord {
	env := dotnetEnv(sandbox.Dir())

	// Scaffolding counts against the wall-clock budget like any compile
	// step. The SDK refuses to run without a writable HOME, which is why
	// env points it into the sandbox.
	scaffold := d.exec.Run(&executor.ExecCommand{
		Argv:    []string{dotnet, "new", "console", "-n", "Solution", "--force"},
		Dir:     sandbox.Dir(),
		Env:     env,
		Timeout: timeout,
	})
	if scaffold.ExitCode != 0 {
		scaffold.PeakCPUPercent = 0
		scaffold.PeakRSSBytes = 0
		return scaffold
	}

	project := filepath.Join(sandbox.Dir(), "Solution")
	if _, err := sandbox.WriteFile(filepath.Join("Solution", "Program.cs"), source); err != nil {
		return errorRecord(err)
	}

	remaining := timeout - time.Since(start)
	if remaining <= 0 {
		return budgetExceeded(time.Since(start))
	}

	// dotnet run builds then executes inside one process tree, so the
	// build portion is supervised under the same caps as the program.
	return d.exec.Run(&executor.ExecCommand{
		Argv:           []string{dotnet, "run", "--project", project},
		Stdin:          stdin,
		Dir:            sandbox.Dir(),
		Env:            env,
		Timeout:        remaining,
		ResourceLimits: true,
		Limits:         d.Limits(),
	})
}

func (d *csharpDriver) runMono(sandbox *Sandbox, source, stdin string, timeout time.Duration, start time.Time) *executor.ExecutionRecord {
	mcs, err := lookupBin("mcs")
	if err != nil {
		return errorRecord(err)
	}

	csFile, err := sandbox.WriteFile("main.cs", source)
	if err != nil {
		return errorRecord(err)
	}

	exePath := filepath.Join(sandbox.Dir(), "main.exe")
	compileRecord := d.exec.Run(&executor.ExecCommand{
		Argv:    []string{mcs, "-out:" + exePath, csFile},
		Dir:     sandbox.Dir(),
		Env:     []string{"PATH=" + restrictedPath, "HOME=" + sandbox.Dir()},
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

	mono, err := lookupBin("mono")
	if err != nil {
		return errorRecord(err)
	}

	return d.exec.Run(&executor.ExecCommand{
		Argv:           []string{mono, exePath},
		Stdin:          stdin,
		Dir:            sandbox.Dir(),
		Env:            []string{"PATH=" + restrictedPath, "HOME=" + sandbox.Dir()},
		Timeout:        remaining,
		ResourceLimits: true,
		Limits:         d.Limits(),
	})
}

// dotnetEnv keeps the SDK quiet and self-contained: telemetry off, no
// first-run banner, HOME and NuGet state confined to the sandbox.
func dotnetEnv(dir string) []string {
	return scrubEnv([]string{"DOTNET_", "NUGET_"}, map[string]string{
		"PATH":                              restrictedPath,
		"HOME":                              dir,
		"DOTNET_CLI_TELEMETRY_OPTOUT":       "1",
		"DOTNET_NOLOGO":                     "1",
		"DOTNET_SKIP_FIRST_TIME_EXPERIENCE": "1",
		"NUGET_PACKAGES":                    filepath.Join(dir, ".nuget"),
	})
}

// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

package drivers

import (
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/shoenig/test/must"
	"go.uber.org/goleak"

	"github.com/verdictd/verdictd/helper/testlog"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func requireBin(t *testing.T, bin string) {
	t.Helper()
	if _, err := exec.LookPath(bin); err != nil {
		t.Skipf("%s not installed", bin)
	}
}

func TestCanonical(t *testing.T) {
	cases := []struct {
		input string
		tag   string
		ok    bool
	}{
		{"python", "python", true},
		{"py", "python", true},
		{"PY", "python", true},
		{"js", "javascript", true},
		{"node", "javascript", true},
		{"JavaScript", "javascript", true},
		{"c++", "cpp", true},
		{"C#", "csharp", true},
		{"cs", "csharp", true},
		{"java", "java", true},
		{"ruby", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		tag, ok := Canonical(tc.input)
		must.Eq(t, tc.ok, ok, must.Sprintf("input %q", tc.input))
		must.Eq(t, tc.tag, tag, must.Sprintf("input %q", tc.input))
	}
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry(testlog.HCLogger(t))

	d, ok := r.Get("py")
	must.True(t, ok)
	must.Eq(t, "python", d.Language())

	_, ok = r.Get("fortran")
	must.False(t, ok)
}

func TestRegistry_Languages(t *testing.T) {
	r := NewRegistry(testlog.HCLogger(t))
	must.Eq(t, []string{"cpp", "csharp", "java", "javascript", "python"}, r.Languages())
}

func TestScrubEnv(t *testing.T) {
	t.Setenv("NODE_OPTIONS", "--max-old-space-size=9999")
	t.Setenv("JAVA_TOOL_OPTIONS", "-Xmx9g")
	t.Setenv("KEEP_ME", "yes")

	env := scrubEnv([]string{"NODE_", "JAVA"}, map[string]string{
		"PATH": restrictedPath,
	})

	joined := strings.Join(env, "\n")
	must.StrNotContains(t, joined, "NODE_OPTIONS")
	must.StrNotContains(t, joined, "JAVA_TOOL_OPTIONS")
	must.StrContains(t, joined, "KEEP_ME=yes")
	must.StrContains(t, joined, "PATH="+restrictedPath)

	// the override wins even when the host already exports the key
	count := 0
	for _, kv := range env {
		if strings.HasPrefix(kv, "PATH=") {
			count++
		}
	}
	must.Eq(t, 1, count)
}

func TestErrorRecord(t *testing.T) {
	rec := errorRecord(os.ErrNotExist)
	must.Eq(t, 1, rec.ExitCode)
	must.StrContains(t, rec.Stderr, "adapter fault")
}

func TestBudgetExceeded(t *testing.T) {
	rec := budgetExceeded(1500 * time.Millisecond)
	must.True(t, rec.TimedOut())
	must.Eq(t, "Time Limit Exceeded", rec.Stderr)
	must.Eq(t, int64(1500), rec.WallMillis)
}

func TestSandbox_Lifecycle(t *testing.T) {
	sandbox, err := newSandbox(testlog.HCLogger(t))
	must.NoError(t, err)

	info, err := os.Stat(sandbox.Dir())
	must.NoError(t, err)
	must.True(t, info.IsDir())
	must.Eq(t, os.FileMode(0700), info.Mode().Perm())

	path, err := sandbox.WriteFile("main.py", "print('hi')")
	must.NoError(t, err)
	contents, err := os.ReadFile(path)
	must.NoError(t, err)
	must.Eq(t, "print('hi')", string(contents))

	must.NoError(t, sandbox.Remove())
	_, err = os.Stat(sandbox.Dir())
	must.True(t, os.IsNotExist(err))
}

func TestPythonDriver_Run(t *testing.T) {
	requireBin(t, "python3")

	r := NewRegistry(testlog.HCLogger(t))
	d, ok := r.Get("python")
	must.True(t, ok)

	rec := d.Run("import sys\nprint(sys.stdin.read().strip())", "hello", 10*time.Second)
	must.Eq(t, 0, rec.ExitCode)
	must.Eq(t, "hello\n", rec.Stdout)
}

func TestPythonDriver_RuntimeError(t *testing.T) {
	requireBin(t, "python3")

	r := NewRegistry(testlog.HCLogger(t))
	d, ok := r.Get("python")
	must.True(t, ok)

	rec := d.Run("raise ValueError('boom')", "", 10*time.Second)
	must.NonZero(t, rec.ExitCode)
	must.StrContains(t, rec.Stderr, "ValueError")
}

func TestPythonDriver_Timeout(t *testing.T) {
	requireBin(t, "python3")

	r := NewRegistry(testlog.HCLogger(t))
	d, ok := r.Get("python")
	must.True(t, ok)

	rec := d.Run("while True:\n    pass", "", 1*time.Second)
	must.True(t, rec.TimedOut())
	must.Eq(t, "Time Limit Exceeded", rec.Stderr)
}

func TestNodeDriver_Run(t *testing.T) {
	requireBin(t, "node")

	r := NewRegistry(testlog.HCLogger(t))
	d, ok := r.Get("js")
	must.True(t, ok)

	rec := d.Run("console.log('hi from node')", "", 10*time.Second)
	must.Eq(t, 0, rec.ExitCode)
	must.Eq(t, "hi from node\n", rec.Stdout)
}

func TestCppDriver_CompileFailure(t *testing.T) {
	requireBin(t, "g++")

	r := NewRegistry(testlog.HCLogger(t))
	d, ok := r.Get("cpp")
	must.True(t, ok)

	rec := d.Run("int main( {", "", 10*time.Second)
	must.NonZero(t, rec.ExitCode)
	must.NonZero(t, len(rec.Stderr))
	// compile measurements must not leak into the record
	must.Eq(t, 0.0, rec.PeakCPUPercent)
	must.Eq(t, int64(0), rec.PeakRSSBytes)
}

func TestJavaDriver_Run(t *testing.T) {
	requireBin(t, "javac")
	requireBin(t, "java")

	r := NewRegistry(testlog.HCLogger(t))
	d, ok := r.Get("java")
	must.True(t, ok)

	src := `public class Main{public static void main(String[] a){System.out.println(42);}}`
	rec := d.Run(src, "", 10*time.Second)
	must.Eq(t, 0, rec.ExitCode)
	must.Eq(t, "42\n", rec.Stdout)
}

func TestJavaDriver_CompileFailure(t *testing.T) {
	requireBin(t, "javac")

	r := NewRegistry(testlog.HCLogger(t))
	d, ok := r.Get("java")
	must.True(t, ok)

	rec := d.Run("public class Main { broken", "", 10*time.Second)
	must.NonZero(t, rec.ExitCode)
	must.Eq(t, 0.0, rec.PeakCPUPercent)
	must.Eq(t, int64(0), rec.PeakRSSBytes)
}

func TestCppDriver_Run(t *testing.T) {
	requireBin(t, "g++")

	r := NewRegistry(testlog.HCLogger(t))
	d, ok := r.Get("cpp")
	must.True(t, ok)

	src := `#include <iostream>
int main() { std::cout << "42" << std::endl; return 0; }`
	rec := d.Run(src, "", 10*time.Second)
	must.Eq(t, 0, rec.ExitCode)
	must.Eq(t, "42\n", rec.Stdout)
}

// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

package validate

import (
	"strings"
	"testing"

	"github.com/shoenig/test/must"
)

func TestSource_Empty(t *testing.T) {
	err := Source("python", "")
	must.Error(t, err)
	must.EqError(t, err, "Empty code")
}

func TestSource_SizeCap(t *testing.T) {
	// exactly at the cap passes, one byte over fails
	at := strings.Repeat("a", MaxSourceBytes)
	must.NoError(t, Source("cpp", at))

	over := at + "a"
	err := Source("cpp", over)
	must.Error(t, err)
	must.StrContains(t, err.Error(), "Code too long")
}

func TestSource_PythonDenylist(t *testing.T) {
	cases := []struct {
		name string
		code string
		ok   bool
	}{
		{"plain print", "print('hello')", true},
		{"import os", "import os\nprint(1)", false},
		{"from os import", "from os import path", false},
		{"import os mixed case", "IMPORT OS", false},
		{"subprocess", "import subprocess", false},
		{"sys", "import sys", false},
		{"dunder import", "__import__('os')", false},
		{"eval", "eval('1+1')", false},
		{"exec", "exec('pass')", false},
		{"open write", `open("f", "w")`, false},
		{"open read", `open("f", "r")`, true},
		{"osmosis is fine", "x = 'osmosis'", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Source("python", tc.code)
			if tc.ok {
				must.NoError(t, err)
			} else {
				must.Error(t, err)
				must.StrContains(t, err.Error(), "Blocked pattern detected")
			}
		})
	}
}

func TestSource_JavascriptDenylist(t *testing.T) {
	must.NoError(t, Source("javascript", "console.log(42)"))

	for _, code := range []string{
		`require('fs')`,
		`require("child_process")`,
		`eval("x")`,
		`process.spawn()`,
	} {
		err := Source("javascript", code)
		must.Error(t, err, must.Sprintf("code %q", code))
	}
}

func TestSource_JavaDenylist(t *testing.T) {
	must.NoError(t, Source("java", "class Main { public static void main(String[] a) {} }"))

	err := Source("java", "Runtime.getRuntime().exec(\"sh\")")
	must.Error(t, err)

	err = Source("java", "new ProcessBuilder()")
	must.Error(t, err)
}

func TestSource_NetworkDenylist(t *testing.T) {
	// the network list applies to every language
	for _, lang := range []string{"python", "javascript", "java", "cpp", "csharp"} {
		err := Source(lang, "x = socket.create()")
		must.Error(t, err, must.Sprintf("language %s", lang))
		must.StrContains(t, err.Error(), "Network operations not allowed")
	}

	err := Source("javascript", `fetch("https://example.com")`)
	must.Error(t, err)
}

func TestSource_UnknownLanguage(t *testing.T) {
	// no per-language list; still subject to the network rules
	must.NoError(t, Source("ruby", "puts 1"))

	err := Source("ruby", "require 'socket'; socket.open")
	must.Error(t, err)
}

func TestSource_ReasonShowsPattern(t *testing.T) {
	err := Source("python", "import os")
	must.Error(t, err)
	// the mode prefix never leaks into the message
	must.StrNotContains(t, err.Error(), "(?im)")
	must.StrContains(t, err.Error(), `import\s+os\b`)
}

// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

// Package validate screens submitted source before anything touches a
// sandbox. It is a cheap lexical gate, not a security boundary; the
// rlimit/process supervision underneath is what actually contains the
// program.
package validate

import (
	"fmt"
	"regexp"
)

// MaxSourceBytes is the largest accepted source payload.
const MaxSourceBytes = 100 * 1024

// Rules are evaluated in order: empty check, size cap, per-language
// denylist, then the shared network denylist. The first hit wins.

// compilePatterns applies case-insensitive multiline matching, the
// semantics the denylists were written against.
func compilePatterns(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?im)` + p)
	}
	return out
}

var languagePatterns = map[string][]*regexp.Regexp{
	"python": compilePatterns([]string{
		`import\s+os\b`,
		`from\s+os\s+import`,
		`import\s+subprocess\b`,
		`from\s+subprocess\s+import`,
		`import\s+sys\b`,
		`from\s+sys\s+import`,
		`__import__\s*\(`,
		`eval\s*\(`,
		`exec\s*\(`,
		`compile\s*\(`,
		`open\s*\([^)]*['"]w['"]`,
		`open\s*\([^)]*['"]a['"]`,
	}),
	"javascript": compilePatterns([]string{
		`require\s*\(\s*['"]fs['"]`,
		`require\s*\(\s*['"]child_process['"]`,
		`require\s*\(\s*['"]os['"]`,
		`eval\s*\(`,
		`Function\s*\(`,
		`process\.(exec|fork|spawn|kill|chdir|cwd|umask|setuid|setgid)`,
		`process\.(nextTick|_kill|_fatalException)`,
	}),
	"java": compilePatterns([]string{
		`java\.io\.File`,
		`java\.net\.`,
		`Runtime\.getRuntime`,
		`ProcessBuilder`,
		`Process`,
	}),
	"cpp": compilePatterns([]string{
		`#include\s*<fstream>`,
		`#include\s*<sys/socket\.h>`,
		`system\s*\(`,
		`popen\s*\(`,
	}),
	"csharp": compilePatterns([]string{
		`System\.IO\.File`,
		`System\.Net\.`,
		`System\.Diagnostics\.Process`,
		`System\.Runtime\.InteropServices`,
		`DllImport`,
		`Marshal\.`,
		`File\.`,
		`Directory\.`,
		`Process\.Start`,
	}),
}

var networkPatterns = compilePatterns([]string{
	`socket\.`,
	`urllib\.`,
	`requests\.`,
	`http\.`,
	`https\.`,
	`fetch\s*\(`,
	`XMLHttpRequest`,
})

// Error is a rejection with the human-readable reason sent back to the
// caller verbatim.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	return e.Reason
}

// Source screens code for a canonical language tag. A language with no
// denylist entry is only subject to the size and network rules.
func Source(language, code string) error {
	if code == "" {
		return &Error{Reason: "Empty code"}
	}
	if len(code) > MaxSourceBytes {
		return &Error{Reason: fmt.Sprintf("Code too long (max %d bytes)", MaxSourceBytes)}
	}
	for _, re := range languagePatterns[language] {
		if re.MatchString(code) {
			return &Error{Reason: fmt.Sprintf("Blocked pattern detected: %s", trimFlags(re.String()))}
		}
	}
	for _, re := range networkPatterns {
		if re.MatchString(code) {
			return &Error{Reason: fmt.Sprintf("Network operations not allowed: %s", trimFlags(re.String()))}
		}
	}
	return nil
}

// trimFlags drops the matching-mode prefix so rejection messages show
// the pattern as written.
func trimFlags(pattern string) string {
	const prefix = `(?im)`
	if len(pattern) > len(prefix) && pattern[:len(prefix)] == prefix {
		return pattern[len(prefix):]
	}
	return pattern
}

// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

package judge

import (
	"strings"
	"time"

	"github.com/verdictd/verdictd/executor"
)

// Per-test statuses, ordered by classification priority.
const (
	StatusPassed       = "passed"
	StatusFailed       = "failed"
	StatusTLE          = "tle"
	StatusMLE          = "mle"
	StatusSyntaxError  = "syntax_error"
	StatusRuntimeError = "runtime_error"
	StatusError        = "error"
)

// mleThreshold is the fraction of the address-space cap at which peak
// RSS is treated as a memory-limit exceeded rather than a plain error.
const mleThreshold = 0.9

// errorMarkers are scanned case-insensitively in stderr to separate
// language-level failures from plain nonzero exits.
var errorMarkers = []string{
	"syntax error",
	"syntaxerror",
	"compile error",
	"compilationerror",
	"error:",
	"exception:",
	"traceback",
}

// Normalize strips trailing whitespace; judged comparisons ignore
// trailing newlines and spaces.
func Normalize(output string) string {
	return strings.TrimRight(output, " \t\r\n")
}

// OutputsMatch reports whether actual and expected agree after
// normalization.
func OutputsMatch(actual, expected string) bool {
	return Normalize(actual) == Normalize(expected)
}

// Classify reduces one execution record to a status. Resource verdicts
// win over error-text verdicts, which win over the exit code; "passed"
// here only means the program completed cleanly, not that its output
// matched.
func Classify(record *executor.ExecutionRecord, timeout time.Duration, memoryCap int64) string {
	if record.TimedOut() || record.WallMillis >= timeout.Milliseconds() {
		return StatusTLE
	}

	if memoryCap > 0 && float64(record.PeakRSSBytes) >= float64(memoryCap)*mleThreshold {
		return StatusMLE
	}

	if record.ExitCode != 0 {
		stderr := strings.ToLower(record.Stderr)
		for _, marker := range errorMarkers {
			if strings.Contains(stderr, marker) {
				if strings.Contains(stderr, "syntax") || strings.Contains(stderr, "compile") {
					return StatusSyntaxError
				}
				return StatusRuntimeError
			}
		}
		return StatusError
	}

	return StatusPassed
}

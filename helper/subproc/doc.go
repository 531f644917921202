// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

// Package subproc provides helper utilities for re-invoking the verdictd
// binary as a child process.
package subproc

// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

// Package pointer provides helpers for pointer manipulation.
package pointer

// Of returns a pointer to a.
func Of[A any](a A) *A {
	return &a
}

// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

package executor

const (
	defaultCPUSeconds   = 10
	defaultAddressSpace = 256 << 20 // 256 MiB
	defaultProcesses    = 10
	defaultFileSize     = 10 << 20 // 10 MiB
	defaultOpenFiles    = 64
)

// Limits describes the rlimits applied to a child between fork and exec.
// Every limit is installed as a hard+soft pair; core dumps are always
// disabled. Limit application happens in untrusted child context, so a
// failed set is logged and skipped rather than aborting the execution.
type Limits struct {
	// CPUSeconds caps consumed CPU time (RLIMIT_CPU).
	CPUSeconds uint64 `json:"cpu_seconds"`

	// AddressSpace caps the virtual address space in bytes (RLIMIT_AS).
	AddressSpace uint64 `json:"address_space"`

	// Processes caps the number of user processes/threads (RLIMIT_NPROC).
	Processes uint64 `json:"processes"`

	// FileSize caps the size of any written file in bytes (RLIMIT_FSIZE).
	FileSize uint64 `json:"file_size"`

	// OpenFiles caps open file descriptors (RLIMIT_NOFILE).
	OpenFiles uint64 `json:"open_files"`
}

// DefaultLimits returns the baseline caps. Language drivers override
// fields where a toolchain legitimately needs more headroom.
func DefaultLimits() *Limits {
	return &Limits{
		CPUSeconds:   defaultCPUSeconds,
		AddressSpace: defaultAddressSpace,
		Processes:    defaultProcesses,
		FileSize:     defaultFileSize,
		OpenFiles:    defaultOpenFiles,
	}
}

// Copy returns a shallow copy the caller may mutate.
func (l *Limits) Copy() *Limits {
	if l == nil {
		return nil
	}
	nl := *l
	return &nl
}

// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"os"

	"github.com/hashicorp/go-set/v3"
	ps "github.com/mitchellh/go-ps"
)

// listProcessTree scans the host process table and returns the set of
// pids descending from root (root included). Used to sweep stragglers a
// child forked before it was reaped.
func listProcessTree(root int) *set.Set[int] {
	result := set.From([]int{root})

	allProcs, err := ps.Processes()
	if err != nil {
		return result
	}

	// pid -> ppid for everything alive right now
	pidsRemaining := make(map[int]int, len(allProcs))
	for _, p := range allProcs {
		pidsRemaining[p.Pid()] = p.PPid()
	}

	for {
		foundNewPid := false
		for pid, ppid := range pidsRemaining {
			if result.Contains(ppid) {
				result.Insert(pid)
				delete(pidsRemaining, pid)
				foundNewPid = true
			}
		}
		if !foundNewPid {
			break
		}
	}

	return result
}

// reapProcessTree kills any process descending from pid that survived
// the child's own exit. The supervisor guarantees no leaked child on any
// control path.
func (s *supervised) reapProcessTree(pid int) {
	for _, straggler := range listProcessTree(pid).Slice() {
		if straggler == pid {
			continue
		}
		proc, err := os.FindProcess(straggler)
		if err != nil {
			continue
		}
		s.logger.Debug("killing straggler process", "pid", straggler)
		if err := proc.Kill(); err != nil && err.Error() != finishedErr && err.Error() != noSuchProcessErr {
			s.logger.Warn("failed to kill straggler process", "pid", straggler, "error", err)
		}
	}
}

// Package proctree walks the OS process tree via the /proc pseudo-filesystem.
//
// The focus resolver uses it to decide whether the process owning the
// focused window is an ancestor of a tracked session's shell. All data
// read here is OS-reported and treated as untrusted: walks are bounded
// and degenerate entries terminate the walk.
package proctree

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// maxWalkDepth bounds the ancestry walk. /proc can report malformed or
// cyclic parent chains; the bound guarantees termination regardless.
const maxWalkDepth = 1024

// ParentPID returns the parent process id of pid, read from the PPid
// field of /proc/<pid>/status.
//
// The second return value is false if the process does not exist, the
// status file is unreadable, or no parseable PPid line is present.
func ParentPID(pid int) (int, bool) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/status", pid))
	if err != nil {
		return 0, false
	}
	for _, line := range strings.Split(string(data), "\n") {
		rest, found := strings.CutPrefix(line, "PPid:")
		if !found {
			continue
		}
		ppid, err := strconv.Atoi(strings.TrimSpace(rest))
		if err != nil {
			return 0, false
		}
		return ppid, true
	}
	return 0, false
}

// IsAncestor reports whether ancestor is a strict ancestor of descendant
// in the process tree.
//
// The walk starts at descendant and follows PPid links upward. It stops
// without a match when it reaches the tree root (pid <= 1), when a step
// makes no progress (parent equals current), or when maxWalkDepth is
// exhausted. Equal pids always return false: ancestry is strict, and
// callers that also want equality check it themselves.
func IsAncestor(ancestor, descendant int) bool {
	if ancestor == descendant {
		return false
	}
	current := descendant
	for i := 0; i < maxWalkDepth; i++ {
		ppid, ok := ParentPID(current)
		if !ok {
			return false
		}
		if ppid == ancestor {
			return true
		}
		if ppid <= 1 || ppid == current {
			return false
		}
		current = ppid
	}
	return false
}

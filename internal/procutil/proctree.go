// Package procutil discovers and terminates process trees, grounded in
// the teacher's internal/state/recovery.go isProcessAlive (signal-0
// liveness probe), generalized to tree discovery and staged
// SIGTERM/SIGKILL signaling (spec §4.5 "process-tree kill").
package procutil

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// IsAlive reports whether pid names a live process, via signal 0.
func IsAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

// Children returns the direct child pids of pid by reading
// /proc/<pid>/task/*/children (Linux-only), as spec §4.5 requires.
func Children(pid int) []int {
	pattern := filepath.Join("/proc", strconv.Itoa(pid), "task", "*", "children")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil
	}

	seen := map[int]bool{}
	var out []int
	for _, m := range matches {
		data, err := os.ReadFile(m)
		if err != nil {
			continue
		}
		for _, tok := range strings.Fields(string(data)) {
			childPID, err := strconv.Atoi(tok)
			if err != nil || seen[childPID] {
				continue
			}
			seen[childPID] = true
			out = append(out, childPID)
		}
	}
	return out
}

// Tree returns every pid in the process tree rooted at pid, root
// included, in an arbitrary order.
func Tree(pid int) []int {
	out := []int{pid}
	for _, child := range Children(pid) {
		out = append(out, Tree(child)...)
	}
	return out
}

// KillTree terminates the process tree rooted at root: every descendant
// is sent SIGTERM first (deepest-first), then after gracePeriod any
// survivor is sent SIGKILL. The root pid is always signaled last in
// each pass (spec §4.5 "Root PID is signaled last").
func KillTree(root int, gracePeriod time.Duration) {
	ordered := orderDeepestFirst(root)

	for _, pid := range ordered {
		signalPid(pid, syscall.SIGTERM)
	}

	time.Sleep(gracePeriod)

	for _, pid := range ordered {
		if IsAlive(pid) {
			signalPid(pid, syscall.SIGKILL)
		}
	}
}

// orderDeepestFirst returns pids in post-order: every pid's descendants
// precede it, so the deepest leaves of the tree are signaled first and
// root is signaled last of all (spec §4.5 "Killing proceeds
// deepest-first... Root PID is signaled last").
func orderDeepestFirst(root int) []int {
	var out []int
	var visit func(pid int)
	visit = func(pid int) {
		for _, child := range Children(pid) {
			visit(child)
		}
		out = append(out, pid)
	}
	visit(root)
	return out
}

func signalPid(pid int, sig syscall.Signal) {
	process, err := os.FindProcess(pid)
	if err != nil {
		return
	}
	_ = process.Signal(sig)
}

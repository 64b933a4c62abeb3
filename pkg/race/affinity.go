package race

import (
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// pinRecursive pins pid and every process it has spawned (direct and
// transitive children, discovered by walking /proc) to core. The original
// implementation calls its equivalent once, 10ms after releasing workers
// from their start barrier; it is called here at the same point, plus once
// more a short while later to catch children forked after the first walk
// (os/exec gives no live process-tree handle the way Python's mp.Process
// does, so a single walk is a floor, not a ceiling, on fidelity).
func pinRecursive(pid int, core int) error {
	var mask unix.CPUSet
	mask.Zero()
	mask.Set(core)

	var firstErr error
	for _, p := range pidTree(pid) {
		if err := unix.SchedSetaffinity(p, &mask); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// pidTree returns root and every descendant pid found by scanning /proc for
// processes whose PPid chains back to root.
func pidTree(root int) []int {
	children := childrenByParent()
	var out []int
	var walk func(pid int)
	walk = func(pid int) {
		out = append(out, pid)
		for _, c := range children[pid] {
			walk(c)
		}
	}
	walk(root)
	return out
}

// childrenByParent scans /proc/*/stat once and returns a parent-pid ->
// child-pid-list map covering the whole system.
func childrenByParent() map[int][]int {
	result := make(map[int][]int)
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return result
	}
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		data, err := os.ReadFile("/proc/" + e.Name() + "/stat")
		if err != nil {
			continue
		}
		ppid, ok := parsePPid(string(data))
		if !ok {
			continue
		}
		result[ppid] = append(result[ppid], pid)
	}
	return result
}

// parsePPid extracts field 4 (ppid) from a /proc/[pid]/stat line, skipping
// past the parenthesized (and possibly space-containing) comm field.
func parsePPid(stat string) (int, bool) {
	close := strings.LastIndexByte(stat, ')')
	if close < 0 || close+2 >= len(stat) {
		return 0, false
	}
	fields := strings.Fields(stat[close+2:])
	if len(fields) < 2 {
		return 0, false
	}
	ppid, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, false
	}
	return ppid, true
}

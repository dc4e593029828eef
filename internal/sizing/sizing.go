// Package sizing computes a resource based default for task parallelism,
// used when the user asks for automatic sizing instead of a fixed cap.
package sizing

import (
	"os"
	"runtime"
	"strconv"
	"strings"
)

const (
	// cpusPerWorker is how many CPUs each parallel worker is assumed to need.
	cpusPerWorker = 2
	// memMBPerWorker is how much memory each parallel worker is assumed to need.
	memMBPerWorker = 4096
	// highLoadRatio is the load1/cpus ratio above which one worker is shed.
	highLoadRatio = 0.8
	// maxWorkers caps the heuristic result.
	maxWorkers = 8

	fallbackMemMB = 8192
)

// Workers returns how many parallel workers fit the given resources: the
// smaller of cpus/2 and memMB/4096, minus one when the 1 minute load average
// is already above 80% of the CPU count, clamped to [1, 8].
func Workers(cpus int, memMB int, load1 float64) int {
	if cpus <= 0 {
		cpus = 1
	}

	n := cpus / cpusPerWorker
	if byMem := memMB / memMBPerWorker; byMem < n {
		n = byMem
	}

	if load1 >= float64(cpus)*highLoadRatio && n > 1 {
		n--
	}

	if n < 1 {
		n = 1
	}
	if n > maxWorkers {
		n = maxWorkers
	}
	return n
}

// Detect returns the host CPU count, total memory and 1 minute load average.
// Memory and load fall back to permissive defaults when /proc is unavailable
// (non-Linux hosts).
func Detect() (cpus int, memMB int, load1 float64) {
	return runtime.NumCPU(), detectMemMB(), detectLoad1()
}

func detectMemMB() int {
	data, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return fallbackMemMB
	}

	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "MemTotal:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			break
		}
		kb, err := strconv.Atoi(fields[1])
		if err != nil {
			break
		}
		return kb / 1024
	}

	return fallbackMemMB
}

func detectLoad1() float64 {
	data, err := os.ReadFile("/proc/loadavg")
	if err != nil {
		return 0
	}

	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0
	}
	load, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0
	}
	return load
}

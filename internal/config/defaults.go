package config

import (
	"runtime"
	"strconv"
)

// defaultJobs mirrors the parallelism a developer would pass by hand:
// one job per logical CPU.
func defaultJobs() int {
	n := runtime.NumCPU()
	if n < 1 {
		return 1
	}
	return n
}

func itoa(n int) string { return strconv.Itoa(n) }

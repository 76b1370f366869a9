// Copyright 2022 Sylvain Müller. All rights reserved.
// Mount of this source code is governed by a Apache-2.0 license that can be found
// at https://github.com/tigerwill90/fox/blob/master/LICENSE.txt.

// Package wrydebug provides diagnostic dump helpers for the rest of this
// module: [Dump] summarizes a [canon.Canon]'s state alongside the host
// process's memory statistics, and [DumpTask] reports a [task.Task]'s state. It is adapted from
// the teacher's foxdebug package, which dumped an HTTP request and router
// tree; here there is no HTTP surface, so it dumps the engines instead.
package wrydebug

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/benjamn/wryware/canon"
	"github.com/benjamn/wryware/task"
)

// Version is the module's own diagnostic version tag, independent of any
// particular git tag.
var Version = "v0.1.0"

// Dump returns a multi-line diagnostic report of c's bookkeeping sizes (if
// c is non-nil) and the current process's memory and runtime statistics.
// It may leak sensitive information (object counts, memory addresses
// indirectly via allocation volume) and is only useful for debugging.
func Dump(c *canon.Canon) string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	var builder strings.Builder
	builder.WriteString("wryware: weak-reference data structures for Go\n")
	builder.WriteString("Version: ")
	builder.WriteString(Version)
	builder.WriteString("\n\n")

	if c != nil {
		stats := c.Stats()
		builder.WriteString("Canon Information:\n")
		builder.WriteString("Known Canonical Values: ")
		builder.WriteString(strconv.Itoa(stats.Known))
		builder.WriteByte('\n')
		builder.WriteString("Resolved Inputs: ")
		builder.WriteString(strconv.Itoa(stats.Resolved))
		builder.WriteString("\n\n")
	}

	builder.WriteString("System Information:\n")
	builder.WriteString("Hostname: ")
	builder.WriteString(hostname)
	builder.WriteByte('\n')
	builder.WriteString("OS: ")
	builder.WriteString(runtime.GOOS)
	builder.WriteByte('\n')
	builder.WriteString("Arch: ")
	builder.WriteString(runtime.GOARCH)
	builder.WriteByte('\n')
	builder.WriteString("Go Version: ")
	builder.WriteString(runtime.Version())
	builder.WriteByte('\n')
	builder.WriteString("Pid: ")
	builder.WriteString(strconv.Itoa(os.Getpid()))
	builder.WriteByte('\n')
	builder.WriteString("CPU Cores: ")
	builder.WriteString(fmt.Sprintf("%d", runtime.NumCPU()))
	builder.WriteByte('\n')
	builder.WriteString("Number of Goroutines: ")
	builder.WriteString(fmt.Sprintf("%d", runtime.NumGoroutine()))
	builder.WriteByte('\n')
	builder.WriteString("Allocated Memory: ")
	builder.WriteString(fmt.Sprintf("%d bytes", memStats.Alloc))
	builder.WriteByte('\n')
	builder.WriteString("Total Allocated Memory: ")
	builder.WriteString(fmt.Sprintf("%d bytes", memStats.TotalAlloc))
	builder.WriteByte('\n')
	builder.WriteString("System Memory: ")
	builder.WriteString(fmt.Sprintf("%d bytes", memStats.Sys))
	builder.WriteByte('\n')
	builder.WriteString("Heap Objects: ")
	builder.WriteString(fmt.Sprintf("%d", memStats.HeapObjects))
	builder.WriteByte('\n')
	builder.WriteString("Num GC: ")
	builder.WriteString(fmt.Sprintf("%d", memStats.NumGC))
	builder.WriteByte('\n')

	return builder.String()
}

// DumpTask returns a short, standalone report of tk's settlement state. It
// does not include the [Dump] report; callers wanting both concatenate the
// two, for correlating a task's lifecycle with the system state.
func DumpTask[T any](tk *task.Task[T]) string {
	var builder strings.Builder
	builder.WriteString("Task Information:\n")
	builder.WriteString("Settled: ")
	builder.WriteString(strconv.FormatBool(tk.Settled()))
	builder.WriteByte('\n')
	return builder.String()
}

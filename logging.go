package taskgraph

import (
	"log/slog"

	"github.com/gogpu/taskgraph/gpu"
)

// SetLogger configures the logger used by the task graph and the
// underlying gpu package it is built on (spec.md §2 ambient stack). By
// default no log output is produced.
//
// Records emitted, all at Debug level:
//   - "taskgraph: compiled" once per successful Compile, with the graph
//     name and id, the permutation count and the transient block size.
//   - "taskgraph: execute" once per Execute call that selects a
//     permutation, with the graph name and id, the mask and the scope
//     count.
//
// Failures are reported only through returned errors; nothing is logged
// at Warn or Error level.
func SetLogger(l *slog.Logger) {
	gpu.SetLogger(l)
}

func logger() *slog.Logger {
	return gpu.Logger()
}

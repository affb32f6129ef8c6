package report

import bcraudit "github.com/albertocavalcante/go-bcr-audit"

// Process exit codes.
const (
	ExitHealthy   = 0
	ExitUnhealthy = 1
	ExitUsage     = 2
)

// ExitCode maps a finished run to a process exit code. A nil summary is a
// critical failure. An empty registry passes unless failOnEmpty is set.
func ExitCode(s *bcraudit.Summary, failOnEmpty bool) int {
	if s == nil {
		return ExitUnhealthy
	}
	switch s.State() {
	case bcraudit.StateHealthy:
		return ExitHealthy
	case bcraudit.StateEmpty:
		if failOnEmpty {
			return ExitUnhealthy
		}
		return ExitHealthy
	default:
		return ExitUnhealthy
	}
}

package domain

import "strings"

// VertexStatus is the lifecycle state of one package build.
type VertexStatus string

const (
	// VertexStatusPending means the package waits for its dependencies.
	VertexStatusPending VertexStatus = "pending"
	// VertexStatusRunning means a worker is building the package.
	VertexStatusRunning VertexStatus = "running"
	// VertexStatusCompleted means the package was built and published.
	VertexStatusCompleted VertexStatus = "completed"
	// VertexStatusFailed means the build or its preconditions failed.
	VertexStatusFailed VertexStatus = "failed"
	// VertexStatusCached means the install tree already held a matching build.
	VertexStatusCached VertexStatus = "cached"
	// VertexStatusSkipped means the package was never attempted.
	VertexStatusSkipped VertexStatus = "skipped"
)

// LogLevel is the severity of a line of build output, mirroring slog levels.
type LogLevel int

const (
	// LogLevelDebug represents debug-level verbosity.
	LogLevelDebug LogLevel = -4
	// LogLevelInfo represents informational verbosity.
	LogLevelInfo LogLevel = 0
	// LogLevelWarn represents warning verbosity.
	LogLevelWarn LogLevel = 4
	// LogLevelError represents error verbosity.
	LogLevelError LogLevel = 8
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// IsTerminal reports whether no further transition can happen.
func (s VertexStatus) IsTerminal() bool {
	switch s {
	case VertexStatusCompleted, VertexStatusFailed, VertexStatusCached, VertexStatusSkipped:
		return true
	default:
		return false
	}
}

// Symbol returns the one-character marker used in build reports.
func (s VertexStatus) Symbol() string {
	switch s {
	case VertexStatusCompleted:
		return "✓"
	case VertexStatusCached:
		return "="
	case VertexStatusFailed:
		return "✗"
	case VertexStatusSkipped:
		return "-"
	default:
		return "·"
	}
}

// NormalizeVertexStatus converts a string to a VertexStatus, defaulting to pending if unknown.
func NormalizeVertexStatus(s string) VertexStatus {
	switch status := VertexStatus(strings.ToLower(strings.TrimSpace(s))); status {
	case VertexStatusPending, VertexStatusRunning, VertexStatusCompleted,
		VertexStatusFailed, VertexStatusCached, VertexStatusSkipped:
		return status
	default:
		return VertexStatusPending
	}
}

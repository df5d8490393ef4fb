package domain

import (
	"time"

	"go.trai.ch/zerr"
)

// CancelPolicy decides what happens to running builds when a build run is
// cancelled.
type CancelPolicy string

const (
	// CancelWait stops dispatching and lets running builds finish.
	CancelWait CancelPolicy = "wait"
	// CancelTerminate stops dispatching and cancels running builds.
	CancelTerminate CancelPolicy = "terminate"
)

// ParseCancelPolicy validates a policy name. The empty string selects CancelWait.
func ParseCancelPolicy(s string) (CancelPolicy, error) {
	switch CancelPolicy(s) {
	case "", CancelWait:
		return CancelWait, nil
	case CancelTerminate:
		return CancelTerminate, nil
	default:
		return "", zerr.With(zerr.New("unknown cancel policy"), "policy", s)
	}
}

// Settings are the user tunables of a project, merged from defaults, the
// settings file, the environment and command line flags.
type Settings struct {
	Root         string
	Parallelism  int
	BuildTimeout time.Duration
	Cancel       CancelPolicy
	IndexURL     string
	IndexFile    string
	CompatTool   string
	LogFormat    string

	// NetworkTimeout bounds index queries and downloads. Zero waits forever.
	NetworkTimeout time.Duration
}

// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/rocks/internal/adapters/config"
	_ "go.trai.ch/rocks/internal/adapters/fetch"
	_ "go.trai.ch/rocks/internal/adapters/flock"
	_ "go.trai.ch/rocks/internal/adapters/fs"
	_ "go.trai.ch/rocks/internal/adapters/index"
	_ "go.trai.ch/rocks/internal/adapters/logger"
	_ "go.trai.ch/rocks/internal/adapters/shell"
	_ "go.trai.ch/rocks/internal/adapters/store"
	_ "go.trai.ch/rocks/internal/adapters/telemetry"
	_ "go.trai.ch/rocks/internal/adapters/telemetry/progrock"
	_ "go.trai.ch/rocks/internal/adapters/toolchain"
	_ "go.trai.ch/rocks/internal/adapters/tree"
	// Register app and engine nodes.
	_ "go.trai.ch/rocks/internal/app"
	_ "go.trai.ch/rocks/internal/engine/backend"
	_ "go.trai.ch/rocks/internal/engine/loader"
	_ "go.trai.ch/rocks/internal/engine/lockfile"
	_ "go.trai.ch/rocks/internal/engine/orchestrator"
	_ "go.trai.ch/rocks/internal/engine/resolver"
)

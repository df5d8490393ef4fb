package ports

import (
	"context"
	"io"
)

// Command is one external process invocation.
type Command struct {
	Name   string
	Args   []string
	Dir    string
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
}

// CommandRunner runs external tools.
//
//go:generate go run go.uber.org/mock/mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type CommandRunner interface {
	// Run executes cmd and waits for it to finish.
	//
	// A non-zero exit is reported as *domain.BuildToolError carrying the
	// exit status and the tail of the tool's output.
	Run(ctx context.Context, cmd Command) error
}

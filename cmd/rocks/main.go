// Package main is the entry point for the rocks package manager.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/grindlemire/graft"
	"github.com/spf13/viper"
	"go.trai.ch/rocks/cmd/rocks/commands"
	"go.trai.ch/rocks/internal/app"
	"go.trai.ch/rocks/internal/core/domain"
	_ "go.trai.ch/rocks/internal/wiring"
)

func main() {
	os.Exit(run())
}

func run() int {
	// 0. Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 1. Components are initialized lazily, once flags are bound
	var components *app.Components
	load := func(ctx context.Context) (commands.Application, error) {
		c, _, err := graft.ExecuteFor[*app.Components](ctx)
		if err != nil {
			return nil, err
		}
		components = c
		return c.App, nil
	}

	// 2. Interface - CLI
	cli := commands.New(load, viper.GetViper())

	// 3. Execution
	if err := cli.Execute(ctx); err != nil {
		if errors.Is(err, domain.ErrBuildFailed) {
			// The report already lists every failure.
			return 1
		}
		if components == nil {
			// Logger is not available yet if initialization failed
			// Write directly to stderr
			_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
			return 1
		}
		components.Logger.Error(err)
		return 1
	}
	return 0
}

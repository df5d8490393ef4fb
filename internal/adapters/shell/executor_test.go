package shell_test

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/rocks/internal/adapters/shell"
	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/rocks/internal/core/ports"
	"go.trai.ch/rocks/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func TestExecutor_Run_MultiLineOutput(t *testing.T) {
	executor := shell.NewExecutor(nil)

	var stdout bytes.Buffer
	err := executor.Run(context.Background(), ports.Command{
		Name:   "sh",
		Args:   []string{"-c", "echo line1; echo line2"},
		Dir:    t.TempDir(),
		Stdout: &stdout,
	})
	require.NoError(t, err)

	assert.Equal(t, "line1\nline2\n", stdout.String())
}

func TestExecutor_Run_EnvironmentVariables(t *testing.T) {
	executor := shell.NewExecutor(nil)
	t.Setenv("ROCKS_SECRET", "leaked")

	var stdout bytes.Buffer
	err := executor.Run(context.Background(), ports.Command{
		Name:   "sh",
		Args:   []string{"-c", "echo $LUADIR:$ROCKS_SECRET"},
		Env:    []string{"LUADIR=/tmp/src"},
		Stdout: &stdout,
	})
	require.NoError(t, err)

	assert.Equal(t, "/tmp/src:\n", stdout.String())
}

func TestExecutor_Run_WorkingDir(t *testing.T) {
	executor := shell.NewExecutor(nil)
	dir := t.TempDir()

	var stdout bytes.Buffer
	err := executor.Run(context.Background(), ports.Command{
		Name:   "/bin/sh",
		Args:   []string{"-c", "pwd -P"},
		Dir:    dir,
		Stdout: &stdout,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, stdout.String())
}

func TestExecutor_Run_CommandFailure(t *testing.T) {
	executor := shell.NewExecutor(nil)

	err := executor.Run(context.Background(), ports.Command{
		Name:   "sh",
		Args:   []string{"-c", "echo compiling; echo 'lfs.c:12: error: boom' >&2; exit 42"},
		Stdout: io.Discard,
		Stderr: io.Discard,
	})
	require.ErrorIs(t, err, domain.ErrBuildToolFailure)

	var toolErr *domain.BuildToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "sh", toolErr.Tool)
	assert.Equal(t, 42, toolErr.ExitCode)
	assert.Contains(t, toolErr.Diagnostic, "compiling")
	assert.Contains(t, toolErr.Diagnostic, "lfs.c:12: error: boom")
}

func TestExecutor_Run_MissingTool(t *testing.T) {
	executor := shell.NewExecutor(nil)

	err := executor.Run(context.Background(), ports.Command{Name: "nonexistent-command-xyz123"})
	require.ErrorIs(t, err, domain.ErrUnresolvedExternalDependency)

	var extErr *domain.ExternalDependencyError
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, "nonexistent-command-xyz123", extErr.Dependency)
}

func TestExecutor_Run_EmptyCommand(t *testing.T) {
	executor := shell.NewExecutor(nil)
	require.Error(t, executor.Run(context.Background(), ports.Command{}))
}

func TestExecutor_Run_Cancelled(t *testing.T) {
	executor := shell.NewExecutor(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := executor.Run(ctx, ports.Command{Name: "sh", Args: []string{"-c", "sleep 10"}})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, domain.ErrBuildToolFailure)
}

func TestExecutor_Run_LogsLines(t *testing.T) {
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Info("out")
	logger.EXPECT().Warn("err")

	executor := shell.NewExecutor(logger)
	err := executor.Run(context.Background(), ports.Command{
		Name: "sh",
		Args: []string{"-c", "printf out; printf err >&2"},
	})
	require.NoError(t, err)
}

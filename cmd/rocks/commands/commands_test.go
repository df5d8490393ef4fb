package commands_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/rocks/cmd/rocks/commands"
	"go.trai.ch/rocks/internal/adapters/config"
	"go.trai.ch/rocks/internal/app"
	"go.trai.ch/rocks/internal/build"
	"go.trai.ch/rocks/internal/core/domain"
)

type call struct {
	method string
	scope  string
	args   []string
	opts   app.BuildOptions
	clean  app.CleanOptions
}

type mockApp struct {
	calls  []call
	result *app.Result
	err    error
	where  string
	packed string
}

func (m *mockApp) Lock(_ context.Context) (*app.SyncReport, error) {
	m.calls = append(m.calls, call{method: "lock"})
	if m.result == nil {
		return nil, m.err
	}
	return m.result.Sync, m.err
}

func (m *mockApp) Install(_ context.Context, opts app.BuildOptions) (*app.Result, error) {
	m.calls = append(m.calls, call{method: "install", opts: opts})
	return m.result, m.err
}

func (m *mockApp) Update(_ context.Context, names []string, opts app.BuildOptions) (*app.Result, error) {
	m.calls = append(m.calls, call{method: "update", args: names, opts: opts})
	return m.result, m.err
}

func (m *mockApp) Add(_ context.Context, scope string, specs []string, opts app.BuildOptions) (*app.Result, error) {
	m.calls = append(m.calls, call{method: "add", scope: scope, args: specs, opts: opts})
	return m.result, m.err
}

func (m *mockApp) Remove(_ context.Context, scope string, names []string, opts app.BuildOptions) (*app.Result, error) {
	m.calls = append(m.calls, call{method: "remove", scope: scope, args: names, opts: opts})
	return m.result, m.err
}

func (m *mockApp) Build(_ context.Context, opts app.BuildOptions) (*app.Result, error) {
	m.calls = append(m.calls, call{method: "build", opts: opts})
	return m.result, m.err
}

func (m *mockApp) Where(scope, name string) (string, error) {
	m.calls = append(m.calls, call{method: "where", scope: scope, args: []string{name}})
	return m.where, m.err
}

func (m *mockApp) Clean(_ context.Context, opts app.CleanOptions) error {
	m.calls = append(m.calls, call{method: "clean", clean: opts})
	return m.err
}

func (m *mockApp) Pack(_ context.Context, name, destDir string) (string, *app.Result, error) {
	m.calls = append(m.calls, call{method: "pack", args: []string{name, destDir}})
	return m.packed, m.result, m.err
}

func newCLI(t *testing.T, m *mockApp, args ...string) (*commands.CLI, *bytes.Buffer) {
	t.Helper()
	cli := commands.New(func(context.Context) (commands.Application, error) {
		return m, nil
	}, viper.New())
	buf := new(bytes.Buffer)
	cli.SetOutput(buf, buf)
	cli.SetArgs(args)
	return cli, buf
}

func TestCommands_WireArguments(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want call
	}{
		{"install", []string{"install"}, call{method: "install"}},
		{"install force", []string{"install", "--force"}, call{method: "install", opts: app.BuildOptions{Force: true}}},
		{"update all", []string{"update"}, call{method: "update", args: []string{}}},
		{"update some", []string{"update", "lpeg", "lfs"}, call{method: "update", args: []string{"lpeg", "lfs"}}},
		{"build targets", []string{"build", "-f", "lpeg"}, call{
			method: "build",
			opts:   app.BuildOptions{Force: true, Packages: []string{"lpeg"}},
		}},
		{"add runtime", []string{"add", "lpeg >= 1.0"}, call{
			method: "add", scope: domain.ScopeRuntime, args: []string{"lpeg >= 1.0"},
		}},
		{"add test", []string{"add", "--test", "busted"}, call{
			method: "add", scope: domain.ScopeTest, args: []string{"busted"},
		}},
		{"remove build", []string{"rm", "--build", "tool"}, call{
			method: "remove", scope: domain.ScopeBuild, args: []string{"tool"},
		}},
		{"clean", []string{"clean"}, call{method: "clean"}},
		{"clean cache", []string{"clean", "--cache"}, call{method: "clean", clean: app.CleanOptions{Cache: true}}},
		{"lock", []string{"lock"}, call{method: "lock"}},
		{"pack", []string{"pack", "lpeg"}, call{method: "pack", args: []string{"lpeg", ""}}},
		{"pack dest", []string{"pack", "-o", "dist", "lpeg"}, call{method: "pack", args: []string{"lpeg", "dist"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockApp{}
			cli, _ := newCLI(t, m, tt.args...)

			require.NoError(t, cli.Execute(context.Background()))
			require.Len(t, m.calls, 1)
			assert.Equal(t, tt.want, m.calls[0])
		})
	}
}

func TestCommands_RendersPartialResultOnFailure(t *testing.T) {
	id := domain.NewPackageID("lpeg", domain.MustParseVersion("1.1.0"), domain.IndexSource())
	report := &domain.BuildReport{Results: []domain.BuildResult{{
		ID:         id,
		Status:     domain.VertexStatusFailed,
		Diagnostic: "cc: not found",
	}}}
	m := &mockApp{result: &app.Result{Build: report}, err: report.Err()}
	cli, buf := newCLI(t, m, "build")
	t.Setenv("NO_COLOR", "1")

	err := cli.Execute(context.Background())
	require.ErrorIs(t, err, domain.ErrBuildFailed)
	assert.Contains(t, buf.String(), "✗ "+id.String())
	assert.Contains(t, buf.String(), "cc: not found")
}

func TestCommands_ReturnsAppErrors(t *testing.T) {
	m := &mockApp{err: errors.New("simulated error")}
	cli, _ := newCLI(t, m, "install")

	err := cli.Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "simulated error")
}

func TestCommands_LoaderFailure(t *testing.T) {
	cli := commands.New(func(context.Context) (commands.Application, error) {
		return nil, errors.New("no settings")
	}, viper.New())
	cli.SetOutput(new(bytes.Buffer), new(bytes.Buffer))
	cli.SetArgs([]string{"install"})

	err := cli.Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no settings")
}

func TestCommands_Where(t *testing.T) {
	m := &mockApp{where: "/project/.rocks/tree/lpeg@1.1.0"}
	cli, buf := newCLI(t, m, "where", "--scope", "app@1.0.0", "lpeg")

	require.NoError(t, cli.Execute(context.Background()))
	assert.Equal(t, "/project/.rocks/tree/lpeg@1.1.0\n", buf.String())
	assert.Equal(t, call{method: "where", scope: "app@1.0.0", args: []string{"lpeg"}}, m.calls[0])
}

func TestCommands_PackPrintsArchive(t *testing.T) {
	m := &mockApp{packed: "/project/lpeg-1.1.0.all.rock"}
	cli, buf := newCLI(t, m, "pack", "lpeg")

	require.NoError(t, cli.Execute(context.Background()))
	assert.Equal(t, "/project/lpeg-1.1.0.all.rock\n", buf.String())

	m = &mockApp{err: domain.ErrNodeNotFound}
	cli, buf = newCLI(t, m, "pack", "missing")
	require.ErrorIs(t, cli.Execute(context.Background()), domain.ErrNodeNotFound)
	assert.Empty(t, buf.String())
}

func TestCommands_Usage(t *testing.T) {
	t.Run("add requires a package", func(t *testing.T) {
		m := &mockApp{}
		cli, _ := newCLI(t, m, "add")
		require.Error(t, cli.Execute(context.Background()))
		assert.Empty(t, m.calls)
	})

	t.Run("scopes are exclusive", func(t *testing.T) {
		m := &mockApp{}
		cli, _ := newCLI(t, m, "add", "--test", "--build", "busted")
		require.Error(t, cli.Execute(context.Background()))
		assert.Empty(t, m.calls)
	})
}

func TestCommands_BindsSettingsFlags(t *testing.T) {
	v := viper.New()
	cli := commands.New(func(context.Context) (commands.Application, error) {
		return &mockApp{}, nil
	}, v)
	cli.SetOutput(new(bytes.Buffer), new(bytes.Buffer))
	cli.SetArgs([]string{
		"install",
		"-j", "3",
		"--build-timeout", "90s",
		"--cancel", "terminate",
		"--index", "https://index.example",
		"--log-format", "json",
	})

	require.NoError(t, cli.Execute(context.Background()))
	assert.Equal(t, 3, v.GetInt(config.KeyParallelism))
	assert.Equal(t, 90*time.Second, v.GetDuration(config.KeyBuildTimeout))
	assert.Equal(t, "terminate", v.GetString(config.KeyCancel))
	assert.Equal(t, "https://index.example", v.GetString(config.KeyIndex))
	assert.Equal(t, "json", v.GetString(config.KeyLogFormat))
}

func TestCommands_Version(t *testing.T) {
	cli, buf := newCLI(t, &mockApp{}, "version")

	require.NoError(t, cli.Execute(context.Background()))
	assert.Contains(t, buf.String(), build.Version)
}

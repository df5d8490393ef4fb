// Package commands implements the CLI commands for the rocks package manager.
package commands

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.trai.ch/rocks/internal/adapters/config"
	"go.trai.ch/rocks/internal/app"
	"go.trai.ch/rocks/internal/build"
	"go.trai.ch/zerr"
)

// Application represents the application logic interface.
type Application interface {
	Lock(ctx context.Context) (*app.SyncReport, error)
	Install(ctx context.Context, opts app.BuildOptions) (*app.Result, error)
	Update(ctx context.Context, names []string, opts app.BuildOptions) (*app.Result, error)
	Add(ctx context.Context, scope string, specs []string, opts app.BuildOptions) (*app.Result, error)
	Remove(ctx context.Context, scope string, names []string, opts app.BuildOptions) (*app.Result, error)
	Build(ctx context.Context, opts app.BuildOptions) (*app.Result, error)
	Where(scope, name string) (string, error)
	Clean(ctx context.Context, opts app.CleanOptions) error
	Pack(ctx context.Context, name, destDir string) (string, *app.Result, error)
}

// Loader builds the Application. It runs after flags are parsed so that
// settings see them.
type Loader func(ctx context.Context) (Application, error)

// CLI represents the command line interface for rocks.
type CLI struct {
	load    Loader
	app     Application
	rootCmd *cobra.Command
}

// New creates a new CLI instance. Persistent flags are bound to v under the
// settings keys.
func New(load Loader, v *viper.Viper) *CLI {
	rootCmd := &cobra.Command{
		Use:           "rocks",
		Short:         "A package manager for Lua projects",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	flags := rootCmd.PersistentFlags()
	flags.StringP("root", "C", "", "Project directory (default: nearest directory with rocks.toml)")
	flags.IntP("parallelism", "j", 0, "Maximum concurrent builds (default: number of CPUs)")
	flags.Duration("build-timeout", 0, "Time limit for each package build (0 disables it)")
	flags.String("cancel", "", "On failure, wait for running builds or abort them (wait|terminate)")
	flags.String("index", "", "Package index URL")
	flags.String("compat-tool", "", "Tool driving compatibility builds")
	flags.String("log-format", "", "Log format (auto|pretty|json)")

	for key, name := range map[string]string{
		config.KeyRoot:         "root",
		config.KeyParallelism:  "parallelism",
		config.KeyBuildTimeout: "build-timeout",
		config.KeyCancel:       "cancel",
		config.KeyIndex:        "index",
		config.KeyCompatTool:   "compat-tool",
		config.KeyLogFormat:    "log-format",
	} {
		// Lookup never returns nil for the flags declared above.
		_ = v.BindPFlag(key, flags.Lookup(name))
	}

	c := &CLI{
		load:    load,
		rootCmd: rootCmd,
	}

	rootCmd.AddCommand(c.newInstallCmd())
	rootCmd.AddCommand(c.newLockCmd())
	rootCmd.AddCommand(c.newBuildCmd())
	rootCmd.AddCommand(c.newUpdateCmd())
	rootCmd.AddCommand(c.newAddCmd())
	rootCmd.AddCommand(c.newRemoveCmd())
	rootCmd.AddCommand(c.newWhereCmd())
	rootCmd.AddCommand(c.newPackCmd())
	rootCmd.AddCommand(c.newCleanCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

// application loads the Application on first use.
func (c *CLI) application(ctx context.Context) (Application, error) {
	if c.app != nil {
		return c.app, nil
	}
	a, err := c.load(ctx)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to initialize")
	}
	c.app = a
	return a, nil
}

// render prints res to the command's output and returns runErr. A partial
// result is printed too, so failed builds show their diagnostics.
func render(cmd *cobra.Command, res *app.Result, runErr error) error {
	if err := app.RenderResult(cmd.OutOrStdout(), res); err != nil && runErr == nil {
		return zerr.Wrap(err, "failed to write report")
	}
	return runErr
}

func buildOptions(cmd *cobra.Command, packages []string) app.BuildOptions {
	force, _ := cmd.Flags().GetBool("force")
	return app.BuildOptions{Force: force, Packages: packages}
}

package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/rocks/internal/core/domain"
)

func addScopeFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("test", false, "Use the test dependency scope")
	cmd.Flags().Bool("build", false, "Use the build dependency scope")
	cmd.MarkFlagsMutuallyExclusive("test", "build")
}

func scopeFromFlags(cmd *cobra.Command) string {
	if test, _ := cmd.Flags().GetBool("test"); test {
		return domain.ScopeTest
	}
	if b, _ := cmd.Flags().GetBool("build"); b {
		return domain.ScopeBuild
	}
	return domain.ScopeRuntime
}

func (c *CLI) newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <package>...",
		Short: "Declare dependencies and install them",
		Long: "Each package is a name, a name followed by a constraint such as " +
			"\"lpeg >= 1.0\", or an exact pin such as \"lpeg@1.1.0\".",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			res, err := a.Add(cmd.Context(), scopeFromFlags(cmd), args, buildOptions(cmd, nil))
			return render(cmd, res, err)
		},
	}
	addScopeFlags(cmd)
	addForceFlag(cmd)
	return cmd
}

func (c *CLI) newRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "remove <package>...",
		Aliases: []string{"rm"},
		Short:   "Drop dependencies from the manifest and reinstall",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			res, err := a.Remove(cmd.Context(), scopeFromFlags(cmd), args, buildOptions(cmd, nil))
			return render(cmd, res, err)
		},
	}
	addScopeFlags(cmd)
	addForceFlag(cmd)
	return cmd
}

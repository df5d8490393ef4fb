package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [packages...]",
		Short: "Build exactly what the lockfile records",
		Long: "Builds the locked packages, or only the named ones and their dependencies. " +
			"Fails when the lockfile is missing or no longer matches the manifest.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			res, err := a.Build(cmd.Context(), buildOptions(cmd, args))
			return render(cmd, res, err)
		},
	}
	addForceFlag(cmd)
	return cmd
}

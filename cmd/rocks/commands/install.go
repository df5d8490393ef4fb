package commands

import (
	"github.com/spf13/cobra"
)

func addForceFlag(cmd *cobra.Command) {
	cmd.Flags().BoolP("force", "f", false, "Rebuild packages the install tree already holds")
}

func (c *CLI) newInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Lock the manifest's dependencies and build them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			res, err := a.Install(cmd.Context(), buildOptions(cmd, nil))
			return render(cmd, res, err)
		},
	}
	addForceFlag(cmd)
	return cmd
}

func (c *CLI) newUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update [packages...]",
		Short: "Move locked packages to the newest allowed versions",
		Long: "Re-resolves the named packages, or every package that is not pinned " +
			"when no name is given, then builds.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			res, err := a.Update(cmd.Context(), args, buildOptions(cmd, nil))
			return render(cmd, res, err)
		},
	}
	addForceFlag(cmd)
	return cmd
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newPackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pack <package>",
		Short: "Archive an installed package as a rock",
		Long: "Installs the package if needed, then writes <name>-<version>.<arch>.rock " +
			"with its modules, libraries, scripts and documentation.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			dest, _ := cmd.Flags().GetString("dest")
			path, res, err := a.Pack(cmd.Context(), args[0], dest)
			if err := render(cmd, res, err); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}
	cmd.Flags().StringP("dest", "o", "", "Directory the rock is written to (default: the project root)")
	return cmd
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newWhereCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "where <package>",
		Short: "Print the install path a package loads from",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			scope, _ := cmd.Flags().GetString("scope")
			path, err := a.Where(scope, args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}
	cmd.Flags().StringP("scope", "s", "", "Identity of the requiring package (default: the project)")
	return cmd
}

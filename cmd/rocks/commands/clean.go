package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/rocks/internal/app"
)

func (c *CLI) newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove the install tree and the loader table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			cache, _ := cmd.Flags().GetBool("cache")
			return a.Clean(cmd.Context(), app.CleanOptions{Cache: cache})
		},
	}
	cmd.Flags().Bool("cache", false, "Also remove downloaded source archives")
	return cmd
}

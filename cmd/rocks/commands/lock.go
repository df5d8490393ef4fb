package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/rocks/internal/app"
)

func (c *CLI) newLockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lock",
		Short: "Resolve the manifest and write the lockfile without building",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			sync, err := a.Lock(cmd.Context())
			return render(cmd, &app.Result{Sync: sync}, err)
		},
	}
}

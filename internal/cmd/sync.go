package cmd

import (
	"errors"
	"fmt"

	"github.com/example/reviewbot/internal/synchronizer"
	"github.com/spf13/cobra"
)

func newSyncCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the local book with the remote store",
		Long: `Pull every remote record and replace the local book with them.

When the remote store can't be read the local book is pushed instead and
the command succeeds with a warning; run it again later.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := app.Bridge.Reconcile(cmd.Context(), app.Store)
			switch {
			case errors.Is(err, synchronizer.ErrSyncUnavailable):
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\nLocal words were pushed; retry sync later.\n", err)
			case err != nil:
				return err
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "Synced %d words\n", app.Store.Len())
			}

			if err := app.Queue.FlushPendingRecords(cmd.Context()); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %d answers not uploaded: %v\n", app.Queue.Pending(), err)
			}
			return nil
		},
	}
}

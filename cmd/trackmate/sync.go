package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/trackmate/internal/theme"
)

func newSyncCmd(opts *rootOptions) *cobra.Command {
	var userRef string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch unread and flagged messages for a user once",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := resolveUser(cmd.Context(), a.Store, userRef)
			if err != nil {
				return err
			}

			summary, err := a.SyncUser(cmd.Context(), user.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, theme.SuccessStyle.Render("Synced "+user.Email))
			fmt.Fprintf(out, "%d messages, %d unread, %d requiring attention\n",
				summary.SyncedCount, summary.NewUnread, summary.RequiresAttention)
			return nil
		},
	}

	cmd.Flags().StringVarP(&userRef, "user", "u", "", "User email or ID")

	return cmd
}

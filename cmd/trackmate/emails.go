package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/trackmate/internal/model"
	"github.com/nhle/trackmate/internal/store"
	"github.com/nhle/trackmate/internal/theme"
)

func newEmailsCmd(opts *rootOptions) *cobra.Command {
	var (
		userRef   string
		unread    bool
		label     string
		timeRange string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "emails",
		Short: "List messages saved by previous syncs",
		RunE: func(cmd *cobra.Command, args []string) error {
			window, err := model.EmailFilter{TimeRange: timeRange}.Window()
			if err != nil {
				return err
			}

			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := resolveUser(cmd.Context(), a.Store, userRef)
			if err != nil {
				return err
			}

			query := store.EmailQuery{UnreadOnly: unread, Label: label, Limit: limit}
			if window > 0 {
				query.Since = time.Now().Add(-window)
			}
			emails, err := a.Store.GetEmails(cmd.Context(), user.ID, query)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(emails) == 0 {
				fmt.Fprintln(out, theme.HelpStyle.Render("No messages. Run trackmate sync to fetch some."))
				return nil
			}
			fmt.Fprintln(out, theme.EmailsTable(emails))
			return nil
		},
	}

	cmd.Flags().StringVarP(&userRef, "user", "u", "", "User email or ID")
	cmd.Flags().BoolVar(&unread, "unread", false, "Only unread messages")
	cmd.Flags().StringVar(&label, "label", "", "Only messages carrying this label")
	cmd.Flags().StringVar(&timeRange, "range", "", "Only messages from the last 24h, 7d or 30d")
	cmd.Flags().IntVarP(&limit, "limit", "l", 50, "Maximum number of messages")

	return cmd
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/trackmate/internal/app"
	"github.com/nhle/trackmate/internal/theme"
)

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var redirect string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with Google and print an API token",
		Long: "Runs the Google consent flow with a local callback listener. The redirect\n" +
			"URI must be registered for the OAuth client and must not be in use by a\n" +
			"running trackmate serve.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, creds, log, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if redirect != "" {
				cfg.Google.RedirectURI = redirect
			}

			a, err := app.New(cfg, creds, log)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.Google.Configured() {
				return fmt.Errorf("google client is not configured; run trackmate setup")
			}

			out := cmd.OutOrStdout()
			code, err := a.Google.LoopbackLogin(cmd.Context(), func(authURL string) {
				fmt.Fprintln(out, theme.HeaderStyle.Render("Sign in with Google"))
				fmt.Fprintln(out, "Open this URL in your browser:")
				fmt.Fprintln(out, authURL)
			})
			if err != nil {
				return err
			}

			user, err := a.Google.SignIn(cmd.Context(), code, a.Store)
			if err != nil {
				return err
			}
			token, err := a.Issuer.IssueToken(user.ID)
			if err != nil {
				return err
			}

			fmt.Fprintln(out, theme.SuccessStyle.Render("Signed in as "+user.Email))
			fmt.Fprintln(out, theme.HelpStyle.Render("user id: "+user.ID))
			fmt.Fprintln(out, token)
			return nil
		},
	}

	cmd.Flags().StringVar(&redirect, "redirect-uri", "", "Override the configured redirect URI")

	return cmd
}

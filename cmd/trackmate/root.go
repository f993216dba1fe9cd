package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nhle/trackmate/internal/app"
	"github.com/nhle/trackmate/internal/credential"
	"github.com/nhle/trackmate/internal/logging"
	"github.com/nhle/trackmate/internal/model"
	"github.com/nhle/trackmate/internal/store"
)

// openCredentials opens the secret store; tests replace it with an
// in-memory keyring.
var openCredentials = credential.Open

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "trackmate",
		Short:         "Track job applications and the email around them",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", model.DefaultConfigPath(), "Path to the config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override the configured log level")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newLoginCmd(opts))
	cmd.AddCommand(newSetupCmd(opts))
	cmd.AddCommand(newSyncCmd(opts))
	cmd.AddCommand(newEmailsCmd(opts))
	cmd.AddCommand(newJobsCmd(opts))

	return cmd
}

// loadConfig reads the configuration and fills secrets from the keyring.
// The returned credential store is nil when no keyring could be opened.
func (o *rootOptions) loadConfig() (*model.AppConfig, *credential.Store, zerolog.Logger, error) {
	cfg, err := model.LoadConfig(o.configPath)
	if err != nil {
		return nil, nil, zerolog.Nop(), err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	log := logging.New(cfg.Logging)

	creds, err := openCredentials()
	if err != nil {
		log.Warn().Err(err).Msg("keyring unavailable; secrets must come from config or environment")
		return cfg, nil, log, nil
	}
	if err := creds.ApplySecrets(cfg); err != nil {
		return nil, nil, log, err
	}
	return cfg, creds, log, nil
}

// openApp loads configuration and builds the application services.
func (o *rootOptions) openApp() (*app.App, error) {
	cfg, creds, log, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(cfg, creds, log)
}

// resolveUser finds the user named by ref, an email address or a user ID.
// An empty ref selects the only signed-in user.
func resolveUser(ctx context.Context, s store.Store, ref string) (*model.User, error) {
	if ref == "" {
		users, err := s.GetUsersWithTokens(ctx)
		if err != nil {
			return nil, err
		}
		switch len(users) {
		case 0:
			return nil, fmt.Errorf("no signed-in users; run trackmate login first")
		case 1:
			return &users[0], nil
		default:
			return nil, fmt.Errorf("%d users are signed in; choose one with --user", len(users))
		}
	}

	var (
		user *model.User
		err  error
	)
	if strings.Contains(ref, "@") {
		user, err = s.GetUserByEmail(ctx, ref)
	} else {
		user, err = s.GetUserByID(ctx, ref)
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("unknown user %q", ref)
	}
	return user, err
}

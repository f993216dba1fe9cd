// Package app assembles the store, auth, sources and poller from
// configuration.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/nhle/trackmate/internal/api"
	"github.com/nhle/trackmate/internal/auth"
	"github.com/nhle/trackmate/internal/credential"
	"github.com/nhle/trackmate/internal/logging"
	"github.com/nhle/trackmate/internal/model"
	"github.com/nhle/trackmate/internal/store"
	appsync "github.com/nhle/trackmate/internal/sync"
)

// App holds the long-lived services shared by the commands.
type App struct {
	Config      *model.AppConfig
	Store       *store.SQLiteStore
	Issuer      *auth.Issuer
	Google      *auth.Google
	Poller      *appsync.Poller
	Credentials *credential.Store
	log         zerolog.Logger

	// gmailOpts are applied to every Gmail client (endpoint overrides).
	gmailOpts []option.ClientOption
}

// New opens the database and builds the services described by cfg.
// creds may be nil when no keyring is available; IMAP sources are then
// skipped.
func New(cfg *model.AppConfig, creds *credential.Store, log zerolog.Logger) (*App, error) {
	issuer, err := auth.NewIssuer(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("configuring session tokens: %w", err)
	}

	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	if cfg.Auth.SecretKey == model.DefaultSecretKey {
		log.Warn().Msg("using the development secret key; set SECRET_KEY or run trackmate setup")
	}

	return &App{
		Config:      cfg,
		Store:       s,
		Issuer:      issuer,
		Google:      auth.NewGoogle(cfg.Google, log),
		Poller:      appsync.New(s, cfg.Sync.AttentionLabel, log),
		Credentials: creds,
		log:         logging.Component(log, "app"),
	}, nil
}

// Logger returns the application logger.
func (a *App) Logger() zerolog.Logger {
	return a.log
}

// Server builds the HTTP API over the app's services.
func (a *App) Server() *api.Server {
	return api.New(api.Deps{
		Store:          a.Store,
		Issuer:         a.Issuer,
		Google:         a.Google,
		Syncer:         a.Poller,
		Sources:        a.GmailSource,
		AttentionLabel: a.Config.Sync.AttentionLabel,
		Config:         a.Config.Server,
		Log:            a.log,
	})
}

// SyncUser runs one synchronization pass over the user's Gmail mailbox.
func (a *App) SyncUser(ctx context.Context, userID string) (model.SyncSummary, error) {
	user, err := a.Store.GetUserByID(ctx, userID)
	if err != nil {
		return model.SyncSummary{}, err
	}

	src, err := a.GmailSource(ctx, user)
	if err != nil {
		return model.SyncSummary{}, err
	}
	return a.Poller.SyncOnce(ctx, src, user.ID)
}

// Close stops the poller and closes the database.
func (a *App) Close() error {
	a.Poller.Stop()
	return a.Store.Close()
}

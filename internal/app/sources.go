package app

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/nhle/trackmate/internal/credential"
	"github.com/nhle/trackmate/internal/model"
	"github.com/nhle/trackmate/internal/source"
	"github.com/nhle/trackmate/internal/source/gmail"
	"github.com/nhle/trackmate/internal/source/imap"
)

// GmailSource opens the user's Gmail mailbox with the stored tokens.
// Refreshed access tokens are written back to the store.
func (a *App) GmailSource(ctx context.Context, user *model.User) (source.Source, error) {
	if !user.HasToken() {
		return nil, &source.AuthError{
			SourceType: model.SourceTypeGmail,
			Message:    "no stored credentials for " + user.Email,
		}
	}

	userID := user.ID
	ts := a.Google.TokenSource(ctx, *user, func(tok *oauth2.Token) error {
		expiry := tok.Expiry
		return a.Store.UpdateUserToken(context.Background(), userID, tok.AccessToken, tok.RefreshToken, &expiry)
	})

	svc, err := gmail.NewService(ctx, ts, a.log, a.gmailOpts...)
	if err != nil {
		return nil, err
	}

	return gmail.NewAdapter(svc, gmail.Config{
		MaxResults:     a.Config.Sync.MaxResults,
		Concurrency:    a.Config.Sync.Concurrency,
		UnreadQuery:    a.Config.Sync.UnreadQuery,
		AttentionLabel: a.Config.Sync.AttentionLabel,
	}, a.log), nil
}

// RegisterSources registers a Gmail entry for every user with stored
// tokens and every enabled IMAP source from the configuration. Sources
// that cannot be built are logged and skipped. It returns the number of
// registered entries.
func (a *App) RegisterSources(ctx context.Context) (int, error) {
	users, err := a.Store.GetUsersWithTokens(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading users: %w", err)
	}

	registered := 0
	for i := range users {
		user := users[i]
		// Token refreshes outlive any single request.
		src, err := a.GmailSource(context.Background(), &user)
		if err != nil {
			a.log.Warn().Err(err).Str("user_id", user.ID).Msg("skipping gmail source")
			continue
		}
		a.Poller.RegisterSource(src, model.SourceConfig{
			ID:              "gmail:" + user.ID,
			Type:            string(model.SourceTypeGmail),
			Name:            user.Email,
			UserID:          user.ID,
			Enabled:         true,
			PollIntervalSec: a.Config.Sync.PollIntervalSec,
		})
		registered++
	}

	for _, cfg := range a.Config.Sources {
		if !cfg.Enabled {
			continue
		}

		switch cfg.Type {
		case string(model.SourceTypeIMAP):
			adapter := a.createIMAPAdapter(cfg)
			if adapter == nil {
				continue
			}
			a.Poller.RegisterSource(adapter, cfg)
			registered++
		default:
			a.log.Warn().Str("source", cfg.ID).Str("type", cfg.Type).Msg("unsupported source type")
		}
	}

	a.log.Info().Int("count", registered).Msg("sources registered")
	return registered, nil
}

// createIMAPAdapter builds an IMAP adapter from a source configuration,
// loading the password from the keyring.
func (a *App) createIMAPAdapter(cfg model.SourceConfig) *imap.Adapter {
	log := a.log.With().Str("source", cfg.ID).Str("name", cfg.Name).Logger()

	if cfg.ID == "" || cfg.UserID == "" {
		log.Warn().Msg("skipping IMAP source: id and user_id are required")
		return nil
	}
	if a.Credentials == nil {
		log.Warn().Msg("skipping IMAP source: no keyring available")
		return nil
	}

	settings, err := imap.SettingsFromConfig(cfg.Config)
	if err != nil {
		log.Warn().Err(err).Msg("skipping IMAP source")
		return nil
	}

	password, err := a.Credentials.Get(credential.IMAPPasswordKey(cfg.ID))
	if err != nil {
		log.Warn().Err(err).Msg("skipping IMAP source: password not found")
		return nil
	}

	return imap.NewAdapter(cfg.ID, settings, password, a.log)
}

// Package auth handles Google sign-in and the application's session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2v2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/nhle/trackmate/internal/model"
)

const loginTimeout = 5 * time.Minute

// Profile is the Google account identity returned after consent.
type Profile struct {
	GoogleID   string
	Email      string
	Name       string
	PictureURL string
}

// UserStore persists signed-in users.
type UserStore interface {
	UpsertUser(ctx context.Context, user model.User) (*model.User, error)
}

// Google wraps the OAuth client registration.
type Google struct {
	config  *oauth2.Config
	apiOpts []option.ClientOption
	log     zerolog.Logger
}

// NewGoogle builds a Google OAuth helper from cfg.
func NewGoogle(cfg model.GoogleConfig, log zerolog.Logger) *Google {
	return &Google{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.Scopes,
			Endpoint:     google.Endpoint,
		},
		log: log.With().Str("component", "auth").Logger(),
	}
}

// WithAPIOptions sets extra client options for Google API calls made on the
// user's behalf (userinfo).
func (g *Google) WithAPIOptions(opts ...option.ClientOption) *Google {
	g.apiOpts = opts
	return g
}

// Configured reports whether a client ID and secret are present.
func (g *Google) Configured() bool {
	return g.config.ClientID != "" && g.config.ClientSecret != ""
}

// NewState returns a fresh opaque state value for the consent round trip.
func NewState() string {
	return uuid.New().String()
}

// AuthURL returns the consent URL. Offline access with a forced consent
// prompt makes Google return a refresh token.
func (g *Google) AuthURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for tokens.
func (g *Google) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}
	return tok, nil
}

// UserInfo fetches the profile of the account that granted tok.
func (g *Google) UserInfo(ctx context.Context, tok *oauth2.Token) (*Profile, error) {
	opts := append([]option.ClientOption{option.WithTokenSource(g.config.TokenSource(ctx, tok))}, g.apiOpts...)
	svc, err := oauth2v2.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating userinfo service: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("fetching user info: %w", err)
	}
	if info.Email == "" {
		return nil, fmt.Errorf("google account has no email address")
	}

	return &Profile{
		GoogleID:   info.Id,
		Email:      info.Email,
		Name:       info.Name,
		PictureURL: info.Picture,
	}, nil
}

// SignIn completes a consent round trip: it exchanges code, loads the
// profile, and stores the user together with the granted tokens.
func (g *Google) SignIn(ctx context.Context, code string, users UserStore) (*model.User, error) {
	tok, err := g.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	profile, err := g.UserInfo(ctx, tok)
	if err != nil {
		return nil, err
	}

	user := model.User{
		GoogleID:     profile.GoogleID,
		Email:        profile.Email,
		Name:         profile.Name,
		PictureURL:   profile.PictureURL,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry
		user.TokenExpiry = &expiry
	}

	stored, err := users.UpsertUser(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("storing user %s: %w", profile.Email, err)
	}

	g.log.Info().Str("user_id", stored.ID).Str("email", stored.Email).Msg("user signed in")
	return stored, nil
}

// TokenSource returns a refreshing token source seeded with the user's
// stored credentials. When a refresh yields a new access token, save is
// called with it.
func (g *Google) TokenSource(
	ctx context.Context,
	user model.User,
	save func(*oauth2.Token) error,
) oauth2.TokenSource {
	tok := &oauth2.Token{
		AccessToken:  user.AccessToken,
		RefreshToken: user.RefreshToken,
		TokenType:    "Bearer",
	}
	if user.TokenExpiry != nil {
		tok.Expiry = *user.TokenExpiry
	}

	return &persistingTokenSource{
		base:    oauth2.ReuseTokenSource(tok, g.config.TokenSource(ctx, tok)),
		current: tok.AccessToken,
		save:    save,
		log:     g.log,
	}
}

type persistingTokenSource struct {
	mu      sync.Mutex
	base    oauth2.TokenSource
	current string
	save    func(*oauth2.Token) error
	log     zerolog.Logger
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != s.current && s.save != nil {
		if err := s.save(tok); err != nil {
			s.log.Warn().Err(err).Msg("persisting refreshed token")
		}
	}
	s.current = tok.AccessToken
	return tok, nil
}

// LoopbackLogin runs the consent flow for a local client: it listens on the
// redirect URI's host, hands the consent URL to open, and waits up to five
// minutes for Google to redirect back with a code.
func (g *Google) LoopbackLogin(ctx context.Context, open func(authURL string)) (string, error) {
	redirect, err := url.Parse(g.config.RedirectURL)
	if err != nil || redirect.Host == "" {
		return "", fmt.Errorf("invalid redirect uri %q", g.config.RedirectURL)
	}

	ln, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return "", fmt.Errorf("listening on %s: %w", redirect.Host, err)
	}
	defer ln.Close()

	return g.awaitCode(ctx, ln, redirect.Path, open)
}

// awaitCode serves the callback path on ln until a code with the expected
// state arrives.
func (g *Google) awaitCode(
	ctx context.Context,
	ln net.Listener,
	callbackPath string,
	open func(authURL string),
) (string, error) {
	if callbackPath == "" {
		callbackPath = "/"
	}
	state := NewState()
	codeCh := make(chan string, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "code missing", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, "Authorization received. You can close this tab.")
		select {
		case codeCh <- code:
		default:
		}
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.log.Debug().Err(err).Msg("loopback server stopped")
		}
	}()
	defer srv.Close()

	open(g.AuthURL(state))

	timer := time.NewTimer(loginTimeout)
	defer timer.Stop()

	select {
	case code := <-codeCh:
		return code, nil
	case <-timer.C:
		return "", fmt.Errorf("authorization timed out after %s", loginTimeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

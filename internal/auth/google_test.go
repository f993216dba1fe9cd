package auth

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/nhle/trackmate/internal/model"
	"github.com/nhle/trackmate/tests/testutil"
)

// fakeGoogle serves the token and userinfo endpoints.
func fakeGoogle(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		switch r.Form.Get("grant_type") {
		case "authorization_code":
			if r.Form.Get("code") != "good-code" {
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(map[string]any{"error": "invalid_grant"})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "access-1",
				"refresh_token": "refresh-1",
				"token_type":    "Bearer",
				"expires_in":    3600,
			})
		case "refresh_token":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "access-2",
				"token_type":   "Bearer",
				"expires_in":   3600,
			})
		}
	})
	mux.HandleFunc("/oauth2/v2/userinfo", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "g-123",
			"email":   "ada@example.com",
			"name":    "Ada",
			"picture": "https://example.com/ada.png",
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestGoogle(srv *httptest.Server) *Google {
	g := NewGoogle(model.GoogleConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost:8000/api/auth/google/callback",
		Scopes:       []string{"openid", "email"},
	}, zerolog.Nop())
	if srv != nil {
		g.config.Endpoint = oauth2.Endpoint{
			AuthURL:   srv.URL + "/auth",
			TokenURL:  srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		}
		g.WithAPIOptions(option.WithEndpoint(srv.URL + "/"))
	}
	return g
}

func TestAuthURL(t *testing.T) {
	g := newTestGoogle(nil)

	u, err := url.Parse(g.AuthURL("state-1"))
	require.NoError(t, err)
	q := u.Query()

	assert.Equal(t, "accounts.google.com", u.Host)
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "openid email", q.Get("scope"))
	assert.True(t, g.Configured())
}

func TestSignInStoresUser(t *testing.T) {
	srv := fakeGoogle(t)
	g := newTestGoogle(srv)
	s := testutil.NewTestStore(t)

	user, err := g.SignIn(context.Background(), "good-code", s)
	require.NoError(t, err)

	assert.Equal(t, "g-123", user.GoogleID)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, "access-1", user.AccessToken)
	assert.Equal(t, "refresh-1", user.RefreshToken)
	require.NotNil(t, user.TokenExpiry)
	assert.True(t, user.TokenExpiry.After(time.Now()))
}

func TestSignInRejectsBadCode(t *testing.T) {
	srv := fakeGoogle(t)
	g := newTestGoogle(srv)

	_, err := g.SignIn(context.Background(), "bad-code", testutil.NewTestStore(t))
	assert.Error(t, err)
}

func TestTokenSourcePersistsRefresh(t *testing.T) {
	srv := fakeGoogle(t)
	g := newTestGoogle(srv)

	expired := time.Now().Add(-time.Hour)
	var saved []*oauth2.Token
	ts := g.TokenSource(context.Background(), model.User{
		AccessToken:  "stale",
		RefreshToken: "refresh-1",
		TokenExpiry:  &expired,
	}, func(tok *oauth2.Token) error {
		saved = append(saved, tok)
		return nil
	})

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "access-2", tok.AccessToken)

	_, err = ts.Token()
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "access-2", saved[0].AccessToken)
}

func TestAwaitCode(t *testing.T) {
	g := newTestGoogle(nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	callback := "http://" + ln.Addr().String() + "/cb"
	open := func(authURL string) {
		u, err := url.Parse(authURL)
		require.NoError(t, err)
		state := u.Query().Get("state")

		go func() {
			resp, err := http.Get(callback + "?state=wrong&code=x")
			if err == nil {
				resp.Body.Close()
			}
			resp, err = http.Get(callback + "?state=" + url.QueryEscape(state) + "&code=the-code")
			if err == nil {
				resp.Body.Close()
			}
		}()
	}

	code, err := g.awaitCode(context.Background(), ln, "/cb", open)
	require.NoError(t, err)
	assert.Equal(t, "the-code", code)
}

func TestAwaitCodeHonoursContext(t *testing.T) {
	g := newTestGoogle(nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	_, err = g.awaitCode(ctx, ln, "/cb", func(string) { cancel() })
	assert.ErrorIs(t, err, context.Canceled)
}

package gmail

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	gmailv1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// loggingTransport wraps an http.RoundTripper and logs outgoing Google API
// requests with their status and latency at debug level. Bodies are never
// logged since they carry message content.
type loggingTransport struct {
	base http.RoundTripper
	log  zerolog.Logger
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	rt := t.base
	if rt == nil {
		rt = http.DefaultTransport
	}
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.log.Debug().Err(err).
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("gmail request failed")
		return resp, err
	}

	t.log.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("gmail request")
	return resp, nil
}

// NewService builds a Gmail API client authorized by ts, with request
// logging. Extra options (e.g. option.WithEndpoint) are applied last.
func NewService(
	ctx context.Context,
	ts oauth2.TokenSource,
	log zerolog.Logger,
	opts ...option.ClientOption,
) (*gmailv1.Service, error) {
	client := &http.Client{
		Transport: &loggingTransport{
			base: &oauth2.Transport{Source: ts},
			log:  log,
		},
		Timeout: 60 * time.Second,
	}

	svc, err := gmailv1.NewService(ctx, append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("creating gmail service: %w", err)
	}
	return svc, nil
}

// Package gmail adapts the Gmail REST API to source.Source.
package gmail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/iter"
	"golang.org/x/oauth2"
	gmailv1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"

	"github.com/nhle/trackmate/internal/mailbody"
	"github.com/nhle/trackmate/internal/model"
	"github.com/nhle/trackmate/internal/source"
)

const (
	me                 = "me"
	defaultMaxResults  = 25
	defaultConcurrency = 8
)

// Config tunes listing behaviour. Zero values fall back to defaults.
type Config struct {
	MaxResults     int
	Concurrency    int
	UnreadQuery    string
	AttentionLabel string
}

// Adapter implements source.Source for a Gmail mailbox.
type Adapter struct {
	svc *gmailv1.Service
	cfg Config
	log zerolog.Logger
}

var _ source.Source = (*Adapter)(nil)

// NewAdapter creates a Gmail source adapter over an authorized service.
func NewAdapter(svc *gmailv1.Service, cfg Config, log zerolog.Logger) *Adapter {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = defaultMaxResults
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.UnreadQuery == "" {
		cfg.UnreadQuery = "is:unread newer_than:1d"
	}
	if cfg.AttentionLabel == "" {
		cfg.AttentionLabel = model.LabelRequiresAttention
	}
	return &Adapter{
		svc: svc,
		cfg: cfg,
		log: log.With().Str("component", "gmail").Logger(),
	}
}

// Type returns the source type identifier for Gmail.
func (a *Adapter) Type() model.SourceType {
	return model.SourceTypeGmail
}

// ValidateConnection fetches the mailbox profile and returns its address.
func (a *Adapter) ValidateConnection(ctx context.Context) (string, error) {
	profile, err := a.svc.Users.GetProfile(me).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("validating gmail connection: %w", classify(err))
	}
	return profile.EmailAddress, nil
}

// UnreadRecent lists unread messages from the last day.
func (a *Adapter) UnreadRecent(ctx context.Context) ([]model.Email, error) {
	return a.ListEmails(ctx, model.EmailFilter{Query: a.cfg.UnreadQuery})
}

// RequiresAttention lists messages carrying the attention label.
func (a *Adapter) RequiresAttention(ctx context.Context) ([]model.Email, error) {
	return a.ListEmails(ctx, model.EmailFilter{Labels: []string{a.cfg.AttentionLabel}})
}

type fetchResult struct {
	email *model.Email
	err   error
}

// ListEmails searches the mailbox and fetches every match in full format.
// Messages are fetched concurrently but returned in list order; a message
// whose fetch fails is logged and skipped, unless the failure is an
// authentication error, which aborts the listing.
func (a *Adapter) ListEmails(
	ctx context.Context,
	filter model.EmailFilter,
) ([]model.Email, error) {
	q, err := BuildQuery(filter)
	if err != nil {
		return nil, err
	}

	maxResults := filter.MaxResults
	if maxResults <= 0 {
		maxResults = a.cfg.MaxResults
	}

	call := a.svc.Users.Messages.List(me).MaxResults(int64(maxResults)).Context(ctx)
	if q != "" {
		call = call.Q(q)
	}
	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("listing gmail messages: %w", classify(err))
	}

	mapper := iter.Mapper[*gmailv1.Message, fetchResult]{MaxGoroutines: a.cfg.Concurrency}
	results := mapper.Map(resp.Messages, func(ref **gmailv1.Message) fetchResult {
		email, err := a.GetEmail(ctx, (*ref).Id)
		return fetchResult{email: email, err: err}
	})

	emails := make([]model.Email, 0, len(results))
	for i, r := range results {
		if r.err != nil {
			if source.IsAuthError(r.err) {
				return nil, r.err
			}
			a.log.Warn().Err(r.err).Str("message_id", resp.Messages[i].Id).Msg("skipping message")
			continue
		}
		emails = append(emails, *r.email)
	}

	a.log.Debug().Str("query", q).Int("listed", len(resp.Messages)).Int("fetched", len(emails)).Msg("listed messages")
	return emails, nil
}

// GetEmail fetches one message in full format and extracts its body.
func (a *Adapter) GetEmail(ctx context.Context, id string) (*model.Email, error) {
	msg, err := a.svc.Users.Messages.Get(me, id).Format("full").Context(ctx).Do()
	if err != nil {
		err = classify(err)
		if errors.Is(err, source.ErrNotFound) {
			return nil, fmt.Errorf("gmail message %s: %w", id, err)
		}
		return nil, fmt.Errorf("fetching gmail message %s: %w", id, err)
	}
	email := ToEmail(msg)
	return &email, nil
}

// ToEmail converts a full-format Gmail message into its display summary.
func ToEmail(msg *gmailv1.Message) model.Email {
	var headers []*gmailv1.MessagePartHeader
	if msg.Payload != nil {
		headers = msg.Payload.Headers
	}

	return model.Email{
		ID:             msg.Id,
		ThreadID:       msg.ThreadId,
		Source:         model.SourceTypeGmail,
		Subject:        mailbody.Header(headers, "Subject"),
		Sender:         mailbody.Header(headers, "From"),
		Date:           messageDate(msg, headers),
		Snippet:        msg.Snippet,
		Labels:         msg.LabelIds,
		IsUnread:       slices.Contains(msg.LabelIds, model.LabelUnread),
		HasAttachments: mailbody.HasAttachments(msg.Payload),
		Body:           mailbody.ExtractBody(msg.Payload),
	}
}

// messageDate prefers the server's receive time and falls back to the
// Date header.
func messageDate(msg *gmailv1.Message, headers []*gmailv1.MessagePartHeader) time.Time {
	if msg.InternalDate > 0 {
		return time.UnixMilli(msg.InternalDate).UTC()
	}
	if t, err := mailbody.HeaderDate(headers); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

// classify maps provider errors onto source errors.
func classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized:
			return &source.AuthError{SourceType: model.SourceTypeGmail, Message: apiErr.Message}
		case http.StatusNotFound:
			return source.ErrNotFound
		}
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return &source.AuthError{SourceType: model.SourceTypeGmail, Message: retrieveErr.Error()}
	}
	return err
}

// Package imap adapts a generic IMAP mailbox to source.Source.
package imap

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/rs/zerolog"

	"github.com/nhle/trackmate/internal/mailbody"
	"github.com/nhle/trackmate/internal/model"
	"github.com/nhle/trackmate/internal/source"
)

const (
	defaultMailbox    = "INBOX"
	defaultMaxResults = 25
	snippetLength     = 140
)

// Settings are the connection parameters read from a source's config map.
type Settings struct {
	Host     string
	Port     string
	Username string
	Mailbox  string
	TLS      bool
}

// SettingsFromConfig reads host, port, username, mailbox and tls keys.
// Port defaults to 993 with TLS and 143 otherwise.
func SettingsFromConfig(cfg map[string]string) (Settings, error) {
	s := Settings{
		Host:     strings.TrimSpace(cfg["host"]),
		Port:     strings.TrimSpace(cfg["port"]),
		Username: strings.TrimSpace(cfg["username"]),
		Mailbox:  strings.TrimSpace(cfg["mailbox"]),
		TLS:      true,
	}
	if s.Host == "" {
		return Settings{}, fmt.Errorf("imap source requires a host")
	}
	if s.Username == "" {
		return Settings{}, fmt.Errorf("imap source requires a username")
	}
	if v := strings.TrimSpace(cfg["tls"]); v != "" {
		tls, err := strconv.ParseBool(v)
		if err != nil {
			return Settings{}, fmt.Errorf("invalid tls setting %q: %w", v, err)
		}
		s.TLS = tls
	}
	if s.Port == "" {
		s.Port = "143"
		if s.TLS {
			s.Port = "993"
		}
	}
	if s.Mailbox == "" {
		s.Mailbox = defaultMailbox
	}
	return s, nil
}

// Adapter implements source.Source for an IMAP mailbox.
type Adapter struct {
	id       string
	client   *Client
	settings Settings
	log      zerolog.Logger
}

var _ source.Source = (*Adapter)(nil)

// NewAdapter creates a new IMAP source adapter. id is the configured source
// ID; it prefixes every email ID so mailboxes of one user never collide.
func NewAdapter(id string, settings Settings, password string, log zerolog.Logger) *Adapter {
	return &Adapter{
		id:       id,
		client:   NewClient(settings.Host, settings.Port, settings.Username, password, settings.TLS),
		settings: settings,
		log:      log.With().Str("component", "imap").Str("source", id).Str("host", settings.Host).Logger(),
	}
}

// Type returns the source type identifier for IMAP.
func (a *Adapter) Type() model.SourceType {
	return model.SourceTypeIMAP
}

// ValidateConnection verifies IMAP credentials by connecting,
// authenticating, and selecting the mailbox. Returns the username on success.
func (a *Adapter) ValidateConnection(ctx context.Context) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	client, err := a.client.Connect(ctx)
	if err != nil {
		return "", fmt.Errorf("validating imap connection: %w", err)
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(a.settings.Mailbox, nil).Wait(); err != nil {
		return "", fmt.Errorf("selecting %s: %w", a.settings.Mailbox, err)
	}

	return a.settings.Username, nil
}

// ListEmails searches the mailbox and returns matching messages, newest
// first, with bodies extracted.
func (a *Adapter) ListEmails(
	ctx context.Context,
	filter model.EmailFilter,
) ([]model.Email, error) {
	criteria, err := SearchCriteria(filter, time.Now())
	if err != nil {
		return nil, err
	}

	limit := filter.MaxResults
	if limit <= 0 {
		limit = defaultMaxResults
	}

	messages, err := a.client.Fetch(ctx, a.settings.Mailbox, criteria, limit)
	if err != nil {
		return nil, fmt.Errorf("listing imap messages: %w", err)
	}

	emails := make([]model.Email, 0, len(messages))
	for _, m := range messages {
		email, err := a.toEmail(m)
		if err != nil {
			a.log.Warn().Err(err).Uint32("uid", uint32(m.UID)).Msg("skipping message")
			continue
		}
		emails = append(emails, email)
	}
	return emails, nil
}

// GetEmail fetches one message by the ID ListEmails assigned it.
func (a *Adapter) GetEmail(ctx context.Context, id string) (*model.Email, error) {
	sourceID, uid, err := ParseEmailID(id)
	if err != nil {
		return nil, err
	}
	if sourceID != a.id {
		return nil, fmt.Errorf("imap message %s: %w", id, source.ErrNotFound)
	}

	criteria := &imap.SearchCriteria{UID: []imap.UIDSet{imap.UIDSetNum(uid)}}
	messages, err := a.client.Fetch(ctx, a.settings.Mailbox, criteria, 1)
	if err != nil {
		return nil, fmt.Errorf("fetching imap message %s: %w", id, err)
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("imap message %s: %w", id, source.ErrNotFound)
	}

	email, err := a.toEmail(messages[0])
	if err != nil {
		return nil, err
	}
	return &email, nil
}

func (a *Adapter) toEmail(m Message) (model.Email, error) {
	return ToEmail(a.id, m, a.settings.Mailbox)
}

// EmailID builds the stored ID of a message: "<source ID>:<UID>".
func EmailID(sourceID string, uid imap.UID) string {
	return sourceID + ":" + strconv.FormatUint(uint64(uid), 10)
}

// ParseEmailID splits an ID built by EmailID.
func ParseEmailID(id string) (string, imap.UID, error) {
	i := strings.LastIndex(id, ":")
	if i <= 0 {
		return "", 0, fmt.Errorf("invalid imap email ID %q: %w", id, source.ErrNotFound)
	}
	uid, err := strconv.ParseUint(id[i+1:], 10, 32)
	if err != nil || uid == 0 {
		return "", 0, fmt.Errorf("invalid imap email ID %q: %w", id, source.ErrNotFound)
	}
	return id[:i], imap.UID(uid), nil
}

// SearchCriteria translates filter into an IMAP SEARCH. Labels are matched
// as keywords except UNREAD, which maps to the \Seen flag, and INBOX, which
// is implied by the selected mailbox.
func SearchCriteria(filter model.EmailFilter, now time.Time) (*imap.SearchCriteria, error) {
	criteria := &imap.SearchCriteria{}

	if filter.IsUnread != nil {
		if *filter.IsUnread {
			criteria.NotFlag = append(criteria.NotFlag, imap.FlagSeen)
		} else {
			criteria.Flag = append(criteria.Flag, imap.FlagSeen)
		}
	}

	window, err := filter.Window()
	if err != nil {
		return nil, err
	}
	if window > 0 {
		criteria.Since = now.Add(-window)
	}

	for _, label := range filter.Labels {
		switch label = strings.TrimSpace(label); label {
		case "", model.LabelInbox:
		case model.LabelUnread:
			if !slices.Contains(criteria.NotFlag, imap.FlagSeen) {
				criteria.NotFlag = append(criteria.NotFlag, imap.FlagSeen)
			}
		default:
			criteria.Flag = append(criteria.Flag, imap.Flag(label))
		}
	}

	if q := strings.TrimSpace(filter.Query); q != "" {
		criteria.Text = append(criteria.Text, q)
	}

	return criteria, nil
}

// ToEmail converts a fetched message into its display summary, running
// the same body extraction used for Gmail. The date is the server's
// INTERNALDATE, then the envelope date, then the Date header.
func ToEmail(sourceID string, m Message, mailbox string) (model.Email, error) {
	payload, err := BuildPayload(m.Raw)
	if err != nil {
		return model.Email{}, fmt.Errorf("message %d: %w", m.UID, err)
	}

	unread := !slices.Contains(m.Flags, string(imap.FlagSeen))
	labels := []string{strings.ToUpper(mailbox)}
	for _, f := range m.Flags {
		if !strings.HasPrefix(f, `\`) {
			labels = append(labels, f)
		}
	}
	if unread {
		labels = append(labels, model.LabelUnread)
	}

	var date time.Time
	switch {
	case !m.InternalDate.IsZero():
		date = m.InternalDate.UTC()
	case !m.EnvelopeDate.IsZero():
		date = m.EnvelopeDate.UTC()
	default:
		if t, err := mailbody.HeaderDate(payload.Headers); err == nil {
			date = t.UTC()
		}
	}

	body := mailbody.ExtractBody(payload)
	return model.Email{
		ID:             EmailID(sourceID, m.UID),
		ThreadID:       mailbody.HeaderOr(payload.Headers, "Message-Id", ""),
		Source:         model.SourceTypeIMAP,
		Subject:        mailbody.Header(payload.Headers, "Subject"),
		Sender:         mailbody.Header(payload.Headers, "From"),
		Date:           date,
		Snippet:        snippet(body),
		Labels:         labels,
		IsUnread:       unread,
		HasAttachments: mailbody.HasAttachments(payload),
		Body:           body,
	}, nil
}

func snippet(body string) string {
	if body == mailbody.NoContent {
		return ""
	}
	text := strings.Join(strings.Fields(body), " ")
	runes := []rune(text)
	if len(runes) <= snippetLength {
		return text
	}
	return string(runes[:snippetLength]) + "…"
}

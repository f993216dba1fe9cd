package imap

import (
	"context"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/trackmate/internal/model"
	"github.com/nhle/trackmate/internal/source"
	"github.com/nhle/trackmate/tests/testutil"
)

func TestSettingsFromConfig(t *testing.T) {
	s, err := SettingsFromConfig(map[string]string{"host": "imap.example.com", "username": "me"})
	require.NoError(t, err)
	assert.Equal(t, Settings{Host: "imap.example.com", Port: "993", Username: "me", Mailbox: "INBOX", TLS: true}, s)

	s, err = SettingsFromConfig(map[string]string{"host": "h", "username": "u", "tls": "false", "mailbox": "Jobs"})
	require.NoError(t, err)
	assert.Equal(t, "143", s.Port)
	assert.Equal(t, "Jobs", s.Mailbox)
	assert.False(t, s.TLS)

	_, err = SettingsFromConfig(map[string]string{"username": "u"})
	assert.Error(t, err)
	_, err = SettingsFromConfig(map[string]string{"host": "h"})
	assert.Error(t, err)
	_, err = SettingsFromConfig(map[string]string{"host": "h", "username": "u", "tls": "maybe"})
	assert.Error(t, err)
}

func TestSearchCriteria(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	unread := true

	criteria, err := SearchCriteria(model.EmailFilter{
		IsUnread:  &unread,
		TimeRange: "7d",
		Labels:    []string{model.LabelInbox, model.LabelUnread, "Jobs"},
		Query:     "offer",
	}, now)
	require.NoError(t, err)

	assert.Equal(t, []imap.Flag{imap.FlagSeen}, criteria.NotFlag)
	assert.Equal(t, []imap.Flag{"Jobs"}, criteria.Flag)
	assert.Equal(t, now.AddDate(0, 0, -7), criteria.Since)
	assert.Equal(t, []string{"offer"}, criteria.Text)

	_, err = SearchCriteria(model.EmailFilter{TimeRange: "1y"}, now)
	assert.Error(t, err)
}

func TestToEmail(t *testing.T) {
	received := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	email, err := ToEmail("work", Message{
		UID:          42,
		Flags:        []string{`\Flagged`, "Jobs"},
		InternalDate: received,
		EnvelopeDate: received.Add(-time.Hour),
		Raw:          multipartMessage,
	}, "INBOX")
	require.NoError(t, err)

	assert.Equal(t, "work:42", email.ID)
	assert.Equal(t, "<abc@acme.example>", email.ThreadID)
	assert.Equal(t, model.SourceTypeIMAP, email.Source)
	assert.Equal(t, "Interview – next steps", email.Subject)
	assert.Equal(t, "Recruiter <hr@acme.example>", email.Sender)
	assert.Equal(t, received, email.Date)
	assert.True(t, email.IsUnread)
	assert.True(t, email.HasAttachments)
	assert.Equal(t, []string{"INBOX", "Jobs", model.LabelUnread}, email.Labels)
	assert.Equal(t, "Hi, are you free on Tuesday?", email.Body)
	assert.Equal(t, email.Body, email.Snippet)
}

func TestToEmailSeenUsesDateHeader(t *testing.T) {
	email, err := ToEmail("work", Message{UID: 7, Flags: []string{`\Seen`}, Raw: multipartMessage}, "INBOX")
	require.NoError(t, err)

	assert.False(t, email.IsUnread)
	assert.Equal(t, []string{"INBOX"}, email.Labels)
	assert.Equal(t, time.Date(2006, 1, 2, 22, 4, 5, 0, time.UTC), email.Date)
}

func TestToEmailPrefersEnvelopeDateOverHeader(t *testing.T) {
	sent := time.Date(2024, 3, 1, 9, 30, 0, 0, time.FixedZone("CET", 3600))

	email, err := ToEmail("work", Message{UID: 7, EnvelopeDate: sent, Raw: multipartMessage}, "INBOX")
	require.NoError(t, err)
	assert.Equal(t, sent.UTC(), email.Date)
}

func TestEmailID(t *testing.T) {
	assert.Equal(t, "work-mail:42", EmailID("work-mail", 42))

	sourceID, uid, err := ParseEmailID("gmail:u-1:42")
	require.NoError(t, err)
	assert.Equal(t, "gmail:u-1", sourceID)
	assert.Equal(t, imap.UID(42), uid)

	for _, bad := range []string{"42", ":42", "work:", "work:abc", "work:0"} {
		_, _, err := ParseEmailID(bad)
		assert.ErrorIs(t, err, source.ErrNotFound, bad)
	}
}

func TestGetEmailRejectsOtherSourceIDs(t *testing.T) {
	a := NewAdapter("work", Settings{Host: "127.0.0.1", Port: "1", Username: "u", Mailbox: "INBOX"}, "pw", zerolog.Nop())

	_, err := a.GetEmail(context.Background(), "personal:42")
	assert.ErrorIs(t, err, source.ErrNotFound)
	_, err = a.GetEmail(context.Background(), "42")
	assert.ErrorIs(t, err, source.ErrNotFound)
}

func TestSameUIDFromTwoMailboxesIsStoredTwice(t *testing.T) {
	s := testutil.NewTestStore(t)
	u := testutil.NewTestUser(t, s, "ada@example.com")
	ctx := context.Background()

	var emails []model.Email
	for _, sourceID := range []string{"work", "personal"} {
		email, err := ToEmail(sourceID, Message{UID: 42, Raw: multipartMessage}, "INBOX")
		require.NoError(t, err)
		emails = append(emails, email)
	}

	inserted, err := s.UpsertEmails(ctx, u.ID, emails)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	for _, id := range []string{"work:42", "personal:42"} {
		stored, err := s.GetEmailByID(ctx, u.ID, id)
		require.NoError(t, err)
		assert.Equal(t, id, stored.ID)
	}
}

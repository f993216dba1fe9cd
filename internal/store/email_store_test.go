package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/trackmate/internal/model"
	"github.com/nhle/trackmate/internal/store"
	"github.com/nhle/trackmate/tests/testutil"
)

func sampleEmails(now time.Time) []model.Email {
	return []model.Email{
		{
			ID: "m1", ThreadID: "t1", Subject: "Interview invite", Sender: "hr@acme.example",
			Date: now.Add(-2 * time.Hour), Labels: []string{model.LabelInbox, model.LabelUnread},
			IsUnread: true, Body: "Can you do Tuesday?",
		},
		{
			ID: "m2", ThreadID: "t2", Subject: "Offer", Sender: "ceo@globex.example",
			Date: now.Add(-time.Hour), Labels: []string{model.LabelRequiresAttention},
			HasAttachments: true, Body: "Please sign.",
		},
		{
			ID: "m3", ThreadID: "t3", Subject: "Newsletter", Sender: "news@example.com",
			Date: now.Add(-10 * 24 * time.Hour),
		},
	}
}

func TestUpsertEmailsCountsNewRows(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	u := testutil.NewTestUser(t, s, "a@example.com")
	now := time.Now().UTC()

	n, err := s.UpsertEmails(ctx, u.ID, sampleEmails(now))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	again := sampleEmails(now)
	again[0].IsUnread = false
	again[0].Labels = []string{model.LabelInbox}
	again[0].Body = ""
	again = append(again, model.Email{ID: "m4", Date: now})

	n, err = s.UpsertEmails(ctx, u.ID, again)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.GetEmailByID(ctx, u.ID, "m1")
	require.NoError(t, err)
	assert.False(t, got.IsUnread)
	assert.Equal(t, []string{model.LabelInbox}, got.Labels)
	assert.Equal(t, "Can you do Tuesday?", got.Body, "empty body keeps stored one")
	assert.Equal(t, model.SourceTypeGmail, got.Source)
}

func TestUpsertEmailsEmpty(t *testing.T) {
	s := testutil.NewTestStore(t)

	n, err := s.UpsertEmails(context.Background(), "nobody", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGetEmailsQueries(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	u := testutil.NewTestUser(t, s, "a@example.com")
	other := testutil.NewTestUser(t, s, "b@example.com")
	now := time.Now().UTC()

	_, err := s.UpsertEmails(ctx, u.ID, sampleEmails(now))
	require.NoError(t, err)
	_, err = s.UpsertEmails(ctx, other.ID, []model.Email{{ID: "x1", Date: now}})
	require.NoError(t, err)

	all, err := s.GetEmails(ctx, u.ID, store.EmailQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"m2", "m1", "m3"}, []string{all[0].ID, all[1].ID, all[2].ID})

	unread, err := s.GetEmails(ctx, u.ID, store.EmailQuery{UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "m1", unread[0].ID)

	attention, err := s.GetEmails(ctx, u.ID, store.EmailQuery{Label: model.LabelRequiresAttention})
	require.NoError(t, err)
	require.Len(t, attention, 1)
	assert.True(t, attention[0].HasAttachments)

	recent, err := s.GetEmails(ctx, u.ID, store.EmailQuery{Since: now.Add(-24 * time.Hour), Limit: 1})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "m2", recent[0].ID)
}

func TestGetEmailByIDScopedToUser(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	u := testutil.NewTestUser(t, s, "a@example.com")
	other := testutil.NewTestUser(t, s, "b@example.com")

	_, err := s.UpsertEmails(ctx, u.ID, sampleEmails(time.Now()))
	require.NoError(t, err)

	_, err = s.GetEmailByID(ctx, other.ID, "m1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

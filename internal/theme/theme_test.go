package theme

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/trackmate/internal/model"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcd…", Truncate("abcdefgh", 5))
	assert.Equal(t, "a b c", Truncate("a\n  b\tc", 10))
	assert.Equal(t, "héll…", Truncate("héllo wörld", 5))
	assert.Equal(t, "anything", Truncate("anything", 0))
}

func TestJobsTable(t *testing.T) {
	remote := "Remote"
	out := JobsTable([]model.JobApplication{
		{
			ID:              "0123456789",
			CompanyName:     "Acme",
			PositionTitle:   "Backend Engineer",
			Status:          model.JobStatusInterview,
			ApplicationDate: "2026-03-01",
			Location:        &remote,
		},
		{
			ID:              "abc",
			CompanyName:     "Globex",
			PositionTitle:   "SRE",
			Status:          model.JobStatusRejected,
			ApplicationDate: "2026-02-11",
		},
	})

	assert.Contains(t, out, "COMPANY")
	assert.Contains(t, out, "Acme")
	assert.Contains(t, out, "Backend Engineer")
	assert.Contains(t, out, "interview")
	assert.Contains(t, out, "Remote")
	assert.Contains(t, out, "Globex")
	assert.Contains(t, out, "0123456…")
}

func TestEmailsTable(t *testing.T) {
	out := EmailsTable([]model.Email{
		{
			Subject:  "Interview invitation",
			Sender:   "recruiter@acme.test",
			Date:     time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
			Source:   model.SourceTypeGmail,
			IsUnread: true,
		},
		{Subject: "Newsletter", Sender: "news@example.com", Source: model.SourceTypeIMAP},
	})

	assert.Contains(t, out, "Interview invitation")
	assert.Contains(t, out, "recruiter@acme.test")
	assert.Contains(t, out, "●")
	assert.Contains(t, out, "imap")
}

package mailbody

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/gmail/v1"
)

func TestHeader(t *testing.T) {
	headers := []*gmail.MessagePartHeader{
		nil,
		{Name: "subject", Value: "Interview invite"},
		{Name: "From", Value: "hr@acme.test"},
		{Name: "From", Value: "second@acme.test"},
	}

	assert.Equal(t, "Interview invite", Header(headers, "Subject"))
	assert.Equal(t, "hr@acme.test", Header(headers, "FROM"))
	assert.Equal(t, "(No Date)", Header(headers, "Date"))
	assert.Equal(t, "", HeaderOr(headers, "Date", ""))
	assert.Equal(t, "(No Subject)", Header(nil, "Subject"))
}

func TestHasAttachments(t *testing.T) {
	assert.False(t, HasAttachments(nil))
	assert.False(t, HasAttachments(container("multipart/mixed", leaf("text/plain", "hi"))))

	withFile := container("multipart/mixed",
		leaf("text/plain", "see attached"),
		&gmail.MessagePart{MimeType: "application/pdf", Filename: "resume.pdf"},
	)
	assert.True(t, HasAttachments(withFile))
}

func TestHeaderDate(t *testing.T) {
	headers := []*gmail.MessagePartHeader{{Name: "date", Value: "Mon, 02 Jan 2006 15:04:05 -0700"}}

	got, err := HeaderDate(headers)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2006, 1, 2, 22, 4, 5, 0, time.UTC)), got.String())

	_, err = HeaderDate(nil)
	assert.Error(t, err)
	_, err = HeaderDate([]*gmail.MessagePartHeader{{Name: "Date", Value: "yesterday"}})
	assert.Error(t, err)
}

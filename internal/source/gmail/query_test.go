package gmail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/trackmate/internal/model"
)

func TestBuildQuery(t *testing.T) {
	unread := true
	read := false

	tests := []struct {
		name   string
		filter model.EmailFilter
		want   string
	}{
		{name: "empty", filter: model.EmailFilter{}, want: ""},
		{name: "unread last day", filter: model.EmailFilter{IsUnread: &unread, TimeRange: "24h"}, want: "is:unread newer_than:1d"},
		{name: "read", filter: model.EmailFilter{IsUnread: &read}, want: "is:read"},
		{name: "labels", filter: model.EmailFilter{Labels: []string{"REQUIRES_ATTENTION", " ", "Jobs"}}, want: "label:REQUIRES_ATTENTION label:Jobs"},
		{name: "month with text", filter: model.EmailFilter{TimeRange: "30d", Query: " from:recruiter "}, want: "newer_than:30d from:recruiter"},
		{name: "week", filter: model.EmailFilter{TimeRange: "7d"}, want: "newer_than:7d"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildQuery(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildQueryRejectsUnknownRange(t *testing.T) {
	_, err := BuildQuery(model.EmailFilter{TimeRange: "90d"})
	assert.Error(t, err)
}

package model

import (
	"fmt"
	"time"
)

// SourceType identifies the mail provider an email came from.
type SourceType string

const (
	SourceTypeGmail SourceType = "gmail"
	SourceTypeIMAP  SourceType = "imap"
)

// Well-known label names.
const (
	LabelUnread            = "UNREAD"
	LabelInbox             = "INBOX"
	LabelRequiresAttention = "REQUIRES_ATTENTION"
)

// Email is a displayable summary of one message. Body holds the extracted,
// unquoted text and is empty in metadata-only listings.
type Email struct {
	ID             string     `json:"id"`
	ThreadID       string     `json:"threadId"`
	Source         SourceType `json:"source"`
	Subject        string     `json:"subject"`
	Sender         string     `json:"sender"`
	Date           time.Time  `json:"date"`
	Snippet        string     `json:"snippet"`
	Labels         []string   `json:"labels"`
	IsUnread       bool       `json:"isUnread"`
	HasAttachments bool       `json:"hasAttachments"`
	Body           string     `json:"body,omitempty"`
}

// EmailFilter narrows an email listing.
type EmailFilter struct {
	// TimeRange is one of "24h", "7d", "30d" or empty for no bound.
	TimeRange  string   `json:"timeRange,omitempty"`
	Labels     []string `json:"labels,omitempty"`
	IsUnread   *bool    `json:"isUnread,omitempty"`
	Query      string   `json:"query,omitempty"`
	MaxResults int      `json:"maxResults,omitempty"`
}

var timeRanges = map[string]time.Duration{
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
}

// Window returns the duration named by TimeRange, or 0 when unbounded.
func (f EmailFilter) Window() (time.Duration, error) {
	if f.TimeRange == "" {
		return 0, nil
	}
	d, ok := timeRanges[f.TimeRange]
	if !ok {
		return 0, fmt.Errorf("unsupported time range %q", f.TimeRange)
	}
	return d, nil
}

// SyncSummary reports the outcome of one synchronization pass.
type SyncSummary struct {
	SyncedCount       int       `json:"syncedCount"`
	NewUnread         int       `json:"newUnread"`
	RequiresAttention int       `json:"requiresAttention"`
	LastSync          time.Time `json:"lastSync"`
}

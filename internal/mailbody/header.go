package mailbody

import (
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"google.golang.org/api/gmail/v1"
)

// Header returns the value of the named header, matched case-insensitively,
// or the placeholder "(No <name>)" when it is absent.
func Header(headers []*gmail.MessagePartHeader, name string) string {
	return HeaderOr(headers, name, "(No "+name+")")
}

// HeaderOr is like Header but returns def when the header is absent.
func HeaderOr(headers []*gmail.MessagePartHeader, name, def string) string {
	for _, h := range headers {
		if h != nil && strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return def
}

// HeaderDate parses the Date header with go-message's RFC 5322 rules.
func HeaderDate(headers []*gmail.MessagePartHeader) (time.Time, error) {
	var h mail.Header
	h.Set("Date", HeaderOr(headers, "Date", ""))
	return h.Date()
}

// HasAttachments reports whether any top-level part of payload carries a
// file name.
func HasAttachments(payload *gmail.MessagePart) bool {
	if payload == nil {
		return false
	}
	for _, p := range payload.Parts {
		if p != nil && p.Filename != "" {
			return true
		}
	}
	return false
}

package gmail

import (
	"fmt"
	"strings"

	"github.com/nhle/trackmate/internal/model"
)

var newerThan = map[string]string{
	"24h": "newer_than:1d",
	"7d":  "newer_than:7d",
	"30d": "newer_than:30d",
}

// BuildQuery renders filter as a Gmail search expression.
func BuildQuery(filter model.EmailFilter) (string, error) {
	var terms []string

	if filter.IsUnread != nil {
		if *filter.IsUnread {
			terms = append(terms, "is:unread")
		} else {
			terms = append(terms, "is:read")
		}
	}
	if filter.TimeRange != "" {
		term, ok := newerThan[filter.TimeRange]
		if !ok {
			return "", fmt.Errorf("unsupported time range %q", filter.TimeRange)
		}
		terms = append(terms, term)
	}
	for _, label := range filter.Labels {
		if label = strings.TrimSpace(label); label != "" {
			terms = append(terms, "label:"+label)
		}
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		terms = append(terms, q)
	}

	return strings.Join(terms, " "), nil
}

// Package crossref links synced emails to the job applications they are
// about.
package crossref

import (
	"regexp"
	"strings"

	"github.com/emersion/go-message/mail"

	"github.com/nhle/trackmate/internal/model"
)

// legalSuffix matches trailing company-form designators such as "Inc." or
// ", LLC".
var legalSuffix = regexp.MustCompile(`(?i)[,\s]+(inc|llc|ltd|limited|gmbh|corp|corporation|co|plc|ag|sa|bv)\.?$`)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// matcher recognizes mentions of one company.
type matcher struct {
	mention *regexp.Regexp
	compact string
}

func newMatcher(company string) *matcher {
	core := strings.TrimSpace(legalSuffix.ReplaceAllString(strings.TrimSpace(company), ""))
	if len([]rune(core)) < 2 {
		return nil
	}

	words := strings.Fields(core)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return &matcher{
		mention: regexp.MustCompile(`(?i)(^|[^\pL\pN])` + strings.Join(words, `\s+`) + `($|[^\pL\pN])`),
		compact: nonAlnum.ReplaceAllString(strings.ToLower(core), ""),
	}
}

func (m *matcher) matches(e model.Email) bool {
	if m.compact != "" && domainHasLabel(senderDomain(e.Sender), m.compact) {
		return true
	}
	return m.mention.MatchString(e.Subject + "\n" + e.Sender + "\n" + e.Snippet + "\n" + e.Body)
}

// senderDomain returns the lower-cased domain of a From header value.
func senderDomain(sender string) string {
	addr := sender
	if parsed, err := mail.ParseAddress(sender); err == nil {
		addr = parsed.Address
	}
	at := strings.LastIndex(addr, "@")
	if at < 0 {
		return ""
	}
	return strings.ToLower(strings.Trim(addr[at+1:], "> "))
}

// domainHasLabel reports whether any label of domain other than the
// top-level one equals label.
func domainHasLabel(domain, label string) bool {
	parts := strings.Split(domain, ".")
	if len(parts) < 2 {
		return false
	}
	for _, p := range parts[:len(parts)-1] {
		if p == label {
			return true
		}
	}
	return false
}

// MatchJobs returns the IDs of the applications e refers to, in the order
// of jobs. An email matches when its sender domain carries the company
// name or the company is mentioned as a whole word in the subject, sender,
// snippet or body.
func MatchJobs(e model.Email, jobs []model.JobApplication) []string {
	var ids []string
	for _, j := range jobs {
		m := newMatcher(j.CompanyName)
		if m != nil && m.matches(e) {
			ids = append(ids, j.ID)
		}
	}
	return ids
}

// EmailsForJob returns the emails that refer to job, preserving order.
func EmailsForJob(job model.JobApplication, emails []model.Email) []model.Email {
	m := newMatcher(job.CompanyName)
	if m == nil {
		return nil
	}

	var related []model.Email
	for _, e := range emails {
		if m.matches(e) {
			related = append(related, e)
		}
	}
	return related
}

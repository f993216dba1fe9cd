package mailbody

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ContentType identifies which quote-stripping branch applies to a body.
type ContentType string

const (
	PlainText ContentType = "text/plain"
	HTML      ContentType = "text/html"
)

// quoteMarker matches the first line of a quoted reply or forward chain.
// All alternatives live in one expression so a single leftmost match gives
// the earliest truncation point regardless of marker kind.
var quoteMarker = regexp.MustCompile(`(?im)` +
	`(?:^On .+?wrote:\s*$)` +
	`|(?:^(?:From|Sent|To|Cc|Subject):[ \t]+\S.*$)` +
	`|(?:^-{2,}\s*Original Message\s*-{2,}\s*$)` +
	`|(?:^_{6,}\s*$)`)

// signatureDelimiter matches the conventional "-- " signature separator line.
var signatureDelimiter = regexp.MustCompile(`(?m)^[ \t]*--[ \t\r]*$`)

// quoteSelector covers the containers mail clients wrap quoted history in.
var quoteSelector = strings.Join([]string{
	"blockquote",
	".gmail_quote",
	".gmail_extra",
	".yahoo_quoted",
	".yahoo_quoted_container",
	".moz-cite-prefix",
	".moz-signature",
	`[class*="quote"]`,
	`[id^="orig-"]`,
	`[id^="reply-"]`,
}, ", ")

// invisibleElements never contribute to rendered text.
var invisibleElements = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Title:    true,
}

// StripQuoted removes quoted history and signatures from text according to
// its content type. Anything other than HTML is treated as plain text.
func StripQuoted(text string, ct ContentType) string {
	if ct == HTML {
		return StripHTML(text)
	}
	return StripPlain(text)
}

// StripPlain keeps the text before the first reply/forward marker, then cuts
// at a signature delimiter, and trims the result.
func StripPlain(text string) string {
	if text == "" {
		return ""
	}

	if loc := quoteMarker.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}
	if loc := signatureDelimiter.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}

	return strings.TrimSpace(text)
}

// StripHTML excises quote containers from an HTML body, flattens what is
// left to text and runs the plain-text stripper over it. Unparseable input
// yields "".
func StripHTML(src string) string {
	if strings.TrimSpace(src) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return ""
	}

	doc.Find(quoteSelector).Remove()

	return StripPlain(visibleText(doc.Selection))
}

// visibleText joins every non-blank text node under sel with single spaces.
func visibleText(sel *goquery.Selection) string {
	var fields []string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				fields = append(fields, t)
			}
			return
		case html.CommentNode, html.DoctypeNode:
			return
		case html.ElementNode:
			if invisibleElements[n.DataAtom] {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for _, n := range sel.Nodes {
		walk(n)
	}

	return strings.Join(fields, " ")
}

// Package mailbody turns a provider message payload tree into the single
// piece of text a reader cares about: the newest, unquoted body.
package mailbody

import (
	"mime"
	"strings"

	"google.golang.org/api/gmail/v1"
)

// NoContent is returned when a message has no usable body.
const NoContent = "(No content)"

// candidate is a decoded leaf body together with its content type.
type candidate struct {
	text        string
	contentType ContentType
}

// ExtractBody selects the best body in payload, strips quoted history and
// returns the remaining text, or NoContent. Plain text wins over HTML; within
// a type the first leaf in document order wins. Missing fields anywhere in
// the tree are treated as absent.
func ExtractBody(payload *gmail.MessagePart) string {
	if payload == nil {
		return NoContent
	}

	if c, ok := selectCandidate(payload); ok {
		return finish(StripQuoted(c.text, c.contentType))
	}

	// Single-part message whose type is neither text/plain nor text/html.
	if data := bodyData(payload); data != "" {
		ct := PlainText
		if t, ok := classify(payload.MimeType); ok {
			ct = t
		}
		return finish(StripQuoted(DecodeBase64URL(data), ct))
	}

	return NoContent
}

// selectCandidate walks the tree depth-first in document order and returns
// the first plain-text leaf, or failing that the first HTML leaf.
func selectCandidate(payload *gmail.MessagePart) (candidate, bool) {
	var firstHTML *candidate

	stack := []*gmail.MessagePart{payload}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if node == nil {
			continue
		}

		if len(node.Parts) > 0 {
			for i := len(node.Parts) - 1; i >= 0; i-- {
				stack = append(stack, node.Parts[i])
			}
			continue
		}

		ct, ok := classify(node.MimeType)
		if !ok {
			continue
		}
		text := DecodeBase64URL(bodyData(node))
		if text == "" {
			continue
		}

		if ct == PlainText {
			return candidate{text: text, contentType: ct}, true
		}
		if firstHTML == nil {
			firstHTML = &candidate{text: text, contentType: ct}
		}
	}

	if firstHTML != nil {
		return *firstHTML, true
	}
	return candidate{}, false
}

// classify maps a MIME type to a body content type. Parameters and case
// are ignored.
func classify(mimeType string) (ContentType, bool) {
	mediaType := strings.ToLower(strings.TrimSpace(mimeType))
	if parsed, _, err := mime.ParseMediaType(mimeType); err == nil {
		mediaType = parsed
	}

	switch ContentType(mediaType) {
	case PlainText:
		return PlainText, true
	case HTML:
		return HTML, true
	default:
		return "", false
	}
}

func bodyData(p *gmail.MessagePart) string {
	if p == nil || p.Body == nil {
		return ""
	}
	return p.Body.Data
}

func finish(cleaned string) string {
	if cleaned == "" {
		return NoContent
	}
	return cleaned
}

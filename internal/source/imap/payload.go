package imap

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	gmailv1 "google.golang.org/api/gmail/v1"
)

// BuildPayload parses a raw RFC 5322 message with go-message and returns the
// equivalent Gmail payload tree: multipart entities become containers, every
// other entity a leaf whose decoded content is carried as unpadded base64url.
// Transfer encodings and charsets are resolved on the way, so leaf data is
// always UTF-8.
func BuildPayload(raw []byte) (*gmailv1.MessagePart, error) {
	ent, err := message.Read(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
		return nil, fmt.Errorf("parsing message: %w", err)
	}
	return convertEntity(ent, "0")
}

func convertEntity(ent *message.Entity, partID string) (*gmailv1.MessagePart, error) {
	part := &gmailv1.MessagePart{
		PartId:   partID,
		MimeType: "text/plain",
		Headers:  convertHeaders(ent.Header),
		Filename: filename(ent.Header),
	}
	if mediaType, _, err := ent.Header.ContentType(); err == nil && mediaType != "" {
		part.MimeType = strings.ToLower(mediaType)
	}

	if mr := ent.MultipartReader(); mr != nil {
		for i := 0; ; i++ {
			child, err := mr.NextPart()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
				return nil, fmt.Errorf("reading part %s.%d: %w", partID, i, err)
			}
			converted, err := convertEntity(child, fmt.Sprintf("%s.%d", partID, i))
			if err != nil {
				return nil, err
			}
			part.Parts = append(part.Parts, converted)
		}
		return part, nil
	}

	body, err := io.ReadAll(ent.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body of part %s: %w", partID, err)
	}
	part.Body = &gmailv1.MessagePartBody{
		Data: base64.RawURLEncoding.EncodeToString(body),
		Size: int64(len(body)),
	}
	return part, nil
}

// convertHeaders copies header fields in order, decoding RFC 2047 words.
func convertHeaders(h message.Header) []*gmailv1.MessagePartHeader {
	var out []*gmailv1.MessagePartHeader
	fields := h.Fields()
	for fields.Next() {
		value, err := fields.Text()
		if err != nil {
			value = fields.Value()
		}
		out = append(out, &gmailv1.MessagePartHeader{Name: fields.Key(), Value: value})
	}
	return out
}

// filename returns the attachment name from Content-Disposition, falling
// back to the Content-Type name parameter.
func filename(h message.Header) string {
	if _, params, err := h.ContentDisposition(); err == nil && params["filename"] != "" {
		return params["filename"]
	}
	if _, params, err := h.ContentType(); err == nil {
		return params["name"]
	}
	return ""
}

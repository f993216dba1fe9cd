package mailbody

import (
	"encoding/base64"
	"strings"
)

// DecodeBase64URL decodes a URL-safe base64 string whose padding may be
// missing. Malformed input yields "" and invalid UTF-8 sequences are
// dropped, so the result is always valid display text.
func DecodeBase64URL(s string) string {
	if s == "" {
		return ""
	}

	if pad := (4 - len(s)%4) % 4; pad > 0 {
		s += strings.Repeat("=", pad)
	}

	data, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return ""
	}

	return strings.ToValidUTF8(string(data), "")
}

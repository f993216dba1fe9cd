package mailbody

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeBase64URL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "padded", in: "YWJj", want: "abc"},
		{name: "missing one pad", in: "YWI", want: "ab"},
		{name: "missing two pads", in: "YQ", want: "a"},
		{name: "already padded short", in: "YQ==", want: "a"},
		{name: "url safe alphabet", in: "Pz8-", want: "??>"},
		{name: "malformed", in: "!!!!", want: ""},
		{name: "impossible length", in: "YWJjZ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeBase64URL(tt.in))
		})
	}
}

func TestDecodeBase64URLPaddingInsensitive(t *testing.T) {
	for _, text := range []string{"x", "xy", "xyz", "hello world", "Grüße aus Köln"} {
		padded := base64.URLEncoding.EncodeToString([]byte(text))
		raw := base64.RawURLEncoding.EncodeToString([]byte(text))

		assert.Equal(t, text, DecodeBase64URL(padded), "padded %q", text)
		assert.Equal(t, DecodeBase64URL(padded), DecodeBase64URL(raw), "raw %q", text)
	}
}

func TestDecodeBase64URLDropsInvalidUTF8(t *testing.T) {
	encoded := base64.RawURLEncoding.EncodeToString([]byte{'o', 0xff, 'k', 0xc3})

	assert.Equal(t, "ok", DecodeBase64URL(encoded))
}

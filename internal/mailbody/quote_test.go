package mailbody

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripPlain(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "on wrote header",
			in:   "Hello\nOn Mon, Jan 1, 2024 at 3:00 PM John wrote:\n> old stuff",
			want: "Hello",
		},
		{
			name: "signature delimiter",
			in:   "Body text\n--\nJohn Doe\nCEO",
			want: "Body text",
		},
		{
			name: "signature delimiter with trailing space",
			in:   "Body text\n-- \nJohn",
			want: "Body text",
		},
		{
			name: "outlook header block",
			in:   "Sounds good.\n\nFrom: Recruiter <r@example.com>\nSent: Monday\nSubject: Interview",
			want: "Sounds good.",
		},
		{
			name: "header markers are case insensitive",
			in:   "thanks\nSUBJECT: Re: offer",
			want: "thanks",
		},
		{
			name: "original message separator",
			in:   "See below\n-----Original Message-----\nFrom: someone",
			want: "See below",
		},
		{
			name: "underscore separator",
			in:   "Reply here\n________________________________\nold thread",
			want: "Reply here",
		},
		{
			name: "five underscores are content",
			in:   "Fill in: _____\nThanks",
			want: "Fill in: _____\nThanks",
		},
		{
			name: "earliest marker wins",
			in:   "New\n________\nOn Tue, Bob wrote:\nFrom: a@b.c",
			want: "New",
		},
		{
			name: "marker must start the line",
			in:   "Mail From: x is allowed\nand Subject: too",
			want: "Mail From: x is allowed\nand Subject: too",
		},
		{
			name: "header marker needs content",
			in:   "To:\nkeep",
			want: "To:\nkeep",
		},
		{
			name: "quote cut before signature cut",
			in:   "Hi\n--\nSig line\nOn Mon, Ann wrote:\nold",
			want: "Hi",
		},
		{
			name: "signature after quote is irrelevant",
			in:   "Hi there\nOn Mon, Ann wrote:\nold\n--\nAnn",
			want: "Hi there",
		},
		{
			name: "crlf line endings",
			in:   "Thanks!\r\nOn Fri, Jo wrote:\r\n> earlier",
			want: "Thanks!",
		},
		{
			name: "marker on first line leaves nothing",
			in:   "On Mon, Jan 1 wrote:\n> all quoted",
			want: "",
		},
		{
			name: "no markers",
			in:   "  Just a message.\n\nBest  ",
			want: "Just a message.\n\nBest",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripPlain(tt.in))
		})
	}
}

func TestStripPlainIdempotent(t *testing.T) {
	inputs := []string{
		"Hello\nOn Mon, Jan 1, 2024 at 3:00 PM John wrote:\n> old stuff",
		"Body text\n--\nJohn Doe\nCEO",
		"plain message without markers",
	}

	for _, in := range inputs {
		once := StripPlain(in)
		assert.Equal(t, once, StripPlain(once), in)
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "gmail blockquote",
			in:   "<p>New reply</p><blockquote class='gmail_quote'>old content</blockquote>",
			want: "New reply",
		},
		{
			name: "plain blockquote",
			in:   "<div>Top</div><blockquote><div>quoted</div></blockquote>",
			want: "Top",
		},
		{
			name: "gmail quote div",
			in:   `<div dir="ltr">Yes</div><div class="gmail_quote"><div class="gmail_attr">On Mon wrote:</div>prior</div>`,
			want: "Yes",
		},
		{
			name: "yahoo container",
			in:   `<div>Sure</div><div class="yahoo_quoted_container">earlier</div>`,
			want: "Sure",
		},
		{
			name: "thunderbird cite prefix and signature",
			in:   `<p>Okay</p><div class="moz-cite-prefix">On 1/1 A wrote:</div><div class="moz-signature">A</div>`,
			want: "Okay",
		},
		{
			name: "class containing quote",
			in:   `<p>Mine</p><section class="reply_quote_block">Theirs</section>`,
			want: "Mine",
		},
		{
			name: "orig and reply ids",
			in:   `<p>Kept</p><div id="orig-msg">a</div><span id="reply-intro">b</span>`,
			want: "Kept",
		},
		{
			name: "text nodes joined with single spaces",
			in:   "<div>\n  <p>Hello</p>\n  <p>  World </p>\n</div>",
			want: "Hello World",
		},
		{
			name: "scripts and styles are not text",
			in:   "<html><head><title>T</title><style>p{}</style></head><body><script>x()</script><p>Body</p></body></html>",
			want: "Body",
		},
		{
			name: "head content is not text",
			in:   `<html><head><meta charset="utf-8"><title>Offer</title><link rel="stylesheet" href="a.css"></head><body><p>Hi</p></body></html>`,
			want: "Hi",
		},
		{
			name: "plain markers still apply",
			in:   "<div>From: Alice &lt;a@example.com&gt;</div><div>forwarded</div>",
			want: "",
		},
		{
			name: "entities decoded",
			in:   "<p>Tom &amp; Jerry&nbsp;</p>",
			want: "Tom & Jerry",
		},
		{
			name: "simple div",
			in:   "<div>hi</div>",
			want: "hi",
		},
		{
			name: "only quoted",
			in:   "<blockquote>everything</blockquote>",
			want: "",
		},
		{
			name: "empty",
			in:   "   ",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripHTML(tt.in))
		})
	}
}

func TestStripQuotedDispatch(t *testing.T) {
	assert.Equal(t, "a", StripQuoted("<b>a</b>", HTML))
	assert.Equal(t, "<b>a</b>", StripQuoted("<b>a</b>", PlainText))
	assert.Equal(t, "x", StripQuoted("x\n--\ny", ContentType("text/enriched")))
}

package telegram

import (
	"strings"
	"testing"
)

func TestFormatHTML(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "markdown link",
			in:   "See [the docs](https://example.com/a?b=1) for details.",
			want: `See <a href="https://example.com/a?b=1">the docs</a> for details.`,
		},
		{
			name: "bold and italic",
			in:   "This is **important** and *subtle*.",
			want: "This is <b>important</b> and <i>subtle</i>.",
		},
		{
			name: "bare url auto-linked",
			in:   "More at https://example.com/page",
			want: `More at <a href="https://example.com/page">https://example.com/page</a>`,
		},
		{
			name: "html escaped",
			in:   "a < b & c > d",
			want: "a &lt; b &amp; c &gt; d",
		},
		{
			name: "angle brackets near formatting",
			in:   "**x < y** stays intact",
			want: "<b>x &lt; y</b> stays intact",
		},
		{
			name: "plain text untouched",
			in:   "just a sentence",
			want: "just a sentence",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := FormatHTML(c.in); got != c.want {
				t.Errorf("FormatHTML(%q)\n got: %q\nwant: %q", c.in, got, c.want)
			}
		})
	}
}

func TestFormatHTMLLinkInsideBold(t *testing.T) {
	got := FormatHTML("**see [here](https://example.com)**")
	if !strings.Contains(got, `<a href="https://example.com">here</a>`) {
		t.Errorf("link lost: %q", got)
	}
}

func TestTruncate(t *testing.T) {
	short := "fits fine"
	if got := Truncate(short); got != short {
		t.Errorf("short text must pass through: %q", got)
	}

	long := strings.Repeat("x", MaxMessageLen+100)
	got := Truncate(long)
	if len([]rune(got)) != MaxMessageLen {
		t.Errorf("truncated length = %d, want %d", len([]rune(got)), MaxMessageLen)
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("truncated text must end with ellipsis")
	}
}

func TestChatStore(t *testing.T) {
	path := t.TempDir() + "/chat_id"

	store := NewChatStore(path, 0)
	if got := store.ChatID(); got != 0 {
		t.Errorf("empty store should return 0, got %d", got)
	}

	store.Remember(42)
	if got := store.ChatID(); got != 42 {
		t.Errorf("remembered chat lost, got %d", got)
	}

	// A configured override wins over the remembered chat.
	configured := NewChatStore(path, 99)
	if got := configured.ChatID(); got != 99 {
		t.Errorf("configured chat must win, got %d", got)
	}
}

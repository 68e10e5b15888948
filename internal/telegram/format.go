// Package telegram delivers assistant replies over the Telegram Bot API,
// with model markdown converted to Telegram's HTML style.
package telegram

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

// MaxMessageLen is Telegram's hard cap on message text.
const MaxMessageLen = 4096

var (
	mdLinkRe  = regexp.MustCompile(`\[([^\]\n]+)\]\((https?://[^)\s]+)\)`)
	boldRe    = regexp.MustCompile(`\*\*([^*\n]+)\*\*`)
	italicRe  = regexp.MustCompile(`\*([^*\n]+)\*`)
	bareURLRe = regexp.MustCompile(`https?://[^\s<>"]+`)
)

// FormatHTML converts the model's markdown-flavored reply into Telegram
// HTML: links, bold, and italic become tags, bare URLs are auto-linked,
// and everything else is escaped. Formatted spans are lifted out as
// placeholders first so escaping cannot mangle their markup.
func FormatHTML(text string) string {
	var spans []string
	placeholder := func(span string) string {
		spans = append(spans, span)
		return fmt.Sprintf("\x00%d\x00", len(spans)-1)
	}

	out := mdLinkRe.ReplaceAllStringFunc(text, func(m string) string {
		parts := mdLinkRe.FindStringSubmatch(m)
		return placeholder(fmt.Sprintf(`<a href="%s">%s</a>`,
			html.EscapeString(parts[2]), html.EscapeString(parts[1])))
	})
	out = boldRe.ReplaceAllStringFunc(out, func(m string) string {
		parts := boldRe.FindStringSubmatch(m)
		return placeholder("<b>" + html.EscapeString(parts[1]) + "</b>")
	})
	out = italicRe.ReplaceAllStringFunc(out, func(m string) string {
		parts := italicRe.FindStringSubmatch(m)
		return placeholder("<i>" + html.EscapeString(parts[1]) + "</i>")
	})
	out = bareURLRe.ReplaceAllStringFunc(out, func(m string) string {
		return placeholder(fmt.Sprintf(`<a href="%s">%s</a>`,
			html.EscapeString(m), html.EscapeString(m)))
	})

	out = html.EscapeString(out)

	// Later spans may contain placeholders of earlier ones (a link inside
	// bold), so substitute newest first.
	for i := len(spans) - 1; i >= 0; i-- {
		out = strings.Replace(out, fmt.Sprintf("\x00%d\x00", i), spans[i], 1)
	}
	return out
}

// Truncate caps text at Telegram's message limit, ending with an ellipsis
// when anything was cut.
func Truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxMessageLen {
		return text
	}
	return string(runes[:MaxMessageLen-3]) + "..."
}

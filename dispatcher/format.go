package dispatcher

import (
	"fmt"
	"strings"
	"text/template"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/scipunch/ytrelay/fetcher/types"
)

const ellipsis = "…"

// Formatter renders a post into message text
type Formatter struct {
	tmpl *template.Template
}

// NewFormatter parses a text/template evaluated against types.Post
func NewFormatter(text string) (*Formatter, error) {
	tmpl, err := template.New("message").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message template: %w", err)
	}
	return &Formatter{tmpl: tmpl}, nil
}

// Render executes the template for post
func (f *Formatter) Render(post types.Post) (string, error) {
	var b strings.Builder
	if err := f.tmpl.Execute(&b, post); err != nil {
		return "", fmt.Errorf("failed to render post %s: %w", post.ID, err)
	}
	return strings.TrimSpace(b.String()), nil
}

// Truncate shortens s to at most limit UTF-16 code units, which is how Telegram
// measures message and caption length. Shortened text ends with an ellipsis and
// never splits a rune. limit <= 0 disables truncation.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf16Len(s) <= limit {
		return s
	}
	budget := limit - utf16Len(ellipsis)
	if budget <= 0 {
		return ""
	}

	used := 0
	end := 0
	for end < len(s) {
		r, size := utf8.DecodeRuneInString(s[end:])
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		if used+n > budget {
			break
		}
		used += n
		end += size
	}
	return strings.TrimRight(s[:end], " \n\t") + ellipsis
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}

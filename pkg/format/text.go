package format

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
)

/*
blockTags end a line when they open or close. Everything else is treated as
inline markup and dropped.
*/
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"tr": true, "table": true, "blockquote": true, "pre": true,
}

/*
PlainLines converts an HTML fragment (as returned by Miro, Graph previews and
Azure DevOps comments) into its non-empty text lines. Entities are unescaped,
block elements become line breaks and runs of whitespace inside a line are
collapsed.
*/
func PlainLines(fragment string) []string {
	if strings.TrimSpace(fragment) == "" {
		return nil
	}

	var (
		buf strings.Builder
		z   = html.NewTokenizer(strings.NewReader(fragment))
	)

	for {
		tt := z.Next()

		// io.EOF or a tokenizer failure; keep whatever was collected.
		if tt == html.ErrorToken {
			break
		}

		switch tt {
		case html.TextToken:
			buf.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()

			if blockTags[string(name)] {
				buf.WriteByte('\n')
			}
		}
	}

	var lines []string

	for _, line := range strings.Split(buf.String(), "\n") {
		if line = collapse(line); line != "" {
			lines = append(lines, line)
		}
	}

	return lines
}

/*
PlainText is PlainLines joined into a single line.
*/
func PlainText(fragment string) string {
	return strings.Join(PlainLines(fragment), " ")
}

/*
Truncate shortens s to at most max runes, marking the cut with an ellipsis.
A non-positive max disables truncation.
*/
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}

	runes := []rune(s)

	if max == 1 {
		return "…"
	}

	return strings.TrimRightFunc(string(runes[:max-1]), unicode.IsSpace) + "…"
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

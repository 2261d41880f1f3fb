package format

import (
	"fmt"
	"strings"
)

/*
Table renders a GitHub-flavoured markdown table. Rows shorter than the header
are padded with empty cells.
*/
func Table(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}

	var b strings.Builder

	b.WriteString("| " + strings.Join(escapeAll(headers), " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(headers)) + "\n")

	for _, row := range rows {
		cells := make([]string, len(headers))

		for i := range cells {
			if i < len(row) {
				cells[i] = EscapeCell(row[i])
			}
		}

		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}

	return b.String()
}

// EscapeCell keeps a value on one line and stops it from breaking the table.
func EscapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return collapse(s)
}

/*
KeyValues renders "- **key**: value" lines, skipping empty values. Keys are
emitted in the order given.
*/
func KeyValues(pairs ...string) string {
	var b strings.Builder

	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			continue
		}

		fmt.Fprintf(&b, "- **%s**: %s\n", pairs[i], pairs[i+1])
	}

	return b.String()
}

// Heading returns a markdown heading of the given level followed by a blank line.
func Heading(level int, title string) string {
	if level < 1 {
		level = 1
	}

	return strings.Repeat("#", level) + " " + title + "\n\n"
}

func escapeAll(in []string) []string {
	out := make([]string, len(in))

	for i, s := range in {
		out[i] = EscapeCell(s)
	}

	return out
}

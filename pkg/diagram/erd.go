package diagram

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/theapemachine/mcp-wrappers/pkg/format"
)

/*
Entity is an ERD table derived from a board item. Keys holds the candidate key
lines; KeyFallback is set when no line looked like a key and the first line
was used instead.
*/
type Entity struct {
	Name        string   `json:"name"`
	ItemID      string   `json:"itemId"`
	Keys        []string `json:"keys,omitempty"`
	KeyFallback bool     `json:"keyFallback,omitempty"`
}

// Relationship is one connector rendered in Crow's-Foot notation.
type Relationship struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Left  string `json:"left"`
	Right string `json:"right"`
	Label string `json:"label,omitempty"`
}

// ERD is the rendered Mermaid entity-relationship diagram and its parts.
type ERD struct {
	Text          string         `json:"mermaid"`
	Entities      []Entity       `json:"entities"`
	Relationships []Relationship `json:"relationships"`
}

var cardinalities = map[string]string{
	"erd_one":          "||",
	"erd_only_one":     "||",
	"erd_zero_or_one":  "o|",
	"erd_many":         "|{",
	"erd_one_or_many":  "|{",
	"erd_zero_or_many": "o{",
}

/*
Cardinality maps a connector stroke cap to the right-hand Crow's-Foot token.
Anything unrecognised means exactly one.
*/
func Cardinality(strokeCap string) string {
	if token, ok := cardinalities[strings.TrimSpace(strokeCap)]; ok {
		return token
	}

	return "||"
}

// mirror turns a right-hand token into its left-hand spelling ("|{" -> "}|").
func mirror(token string) string {
	runes := []rune(token)

	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}

	return strings.ReplaceAll(string(runes), "{", "}")
}

func erdEndpoint(it Item) bool {
	return it.Type != TypeStickyNote && it.Type != TypeFrame
}

/*
RenderERD renders the connectors between non-note items as an erDiagram.
Entities appear in item order, relationships in connector order.
*/
func RenderERD(items []Item, connectors []Connector, h Heuristics) ERD {
	h = h.withDefaults()

	byID := make(map[string]Item, len(items))

	for _, it := range items {
		if _, dup := byID[it.ID]; !dup && it.ID != "" {
			byID[it.ID] = it
		}
	}

	var qualifying []Connector
	touched := make(map[string]bool)

	for _, c := range connectors {
		from, okFrom := byID[c.From]
		to, okTo := byID[c.To]

		if !okFrom || !okTo || !erdEndpoint(from) || !erdEndpoint(to) {
			continue
		}

		qualifying = append(qualifying, c)
		touched[c.From], touched[c.To] = true, true
	}

	var (
		out   ERD
		names = make(map[string]string)
		taken = make(map[string]int)
	)

	for _, it := range items {
		if !touched[it.ID] || names[it.ID] != "" {
			continue
		}

		entity := newEntity(it, taken)
		names[it.ID] = entity.Name
		out.Entities = append(out.Entities, entity)
	}

	for _, c := range qualifying {
		out.Relationships = append(out.Relationships, Relationship{
			From:  names[c.From],
			To:    names[c.To],
			Left:  mirror(Cardinality(c.StartCap)),
			Right: Cardinality(c.EndCap),
			Label: format.Truncate(format.PlainText(c.Caption), h.CaptionLength),
		})
	}

	out.Text = out.mermaid()

	return out
}

func newEntity(it Item, taken map[string]int) Entity {
	lines := format.PlainLines(it.Text())

	source := it.ID
	if len(lines) > 0 {
		source = lines[0]
	}

	base := identifier(source, "E")
	name := base

	// A suffixed name may already be some other item's literal name.
	for n := 2; taken[name] > 0; n++ {
		name = fmt.Sprintf("%s_%d", base, n)
	}

	taken[name]++

	entity := Entity{Name: name, ItemID: it.ID}

	for _, line := range lines {
		lower := strings.ToLower(line)

		if strings.Contains(lower, "pk") || strings.Contains(lower, "id") {
			entity.Keys = append(entity.Keys, line)
		}
	}

	if len(entity.Keys) == 0 && len(lines) > 0 {
		entity.Keys = []string{lines[0]}
		entity.KeyFallback = true
	}

	return entity
}

func (erd ERD) mermaid() string {
	var b strings.Builder

	b.WriteString("erDiagram\n")

	for _, e := range erd.Entities {
		if len(e.Keys) == 0 {
			continue
		}

		fmt.Fprintf(&b, "  %s {\n", e.Name)

		seen := make(map[string]bool)

		for _, key := range e.Keys {
			attr := attributeName(key)

			if seen[attr] {
				continue
			}

			seen[attr] = true

			if e.KeyFallback {
				fmt.Fprintf(&b, "    string %s\n", attr)
			} else {
				fmt.Fprintf(&b, "    string %s PK\n", attr)
			}
		}

		b.WriteString("  }\n")
	}

	for _, r := range erd.Relationships {
		label := strings.ReplaceAll(r.Label, `"`, "'")
		fmt.Fprintf(&b, "  %s %s--%s %s : \"%s\"\n", r.From, r.Left, r.Right, r.To, label)
	}

	return b.String()
}

/*
identifier reduces free text to a Mermaid-safe name: runs of anything other
than letters, digits and underscores become a single underscore.
*/
func identifier(s, prefix string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})

	name := strings.Trim(strings.Join(words, "_"), "_")

	if name == "" {
		return prefix
	}

	if unicode.IsDigit([]rune(name)[0]) {
		return prefix + "_" + name
	}

	return name
}

// attributeName drops "pk" markers from a key line and keeps the rest.
func attributeName(line string) string {
	words := strings.FieldsFunc(line, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})

	kept := words[:0]

	for _, w := range words {
		if !strings.EqualFold(w, "pk") {
			kept = append(kept, w)
		}
	}

	return identifier(strings.Join(kept, " "), "key")
}

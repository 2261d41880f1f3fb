package diagram

import (
	"strings"

	"github.com/theapemachine/mcp-wrappers/pkg/format"
)

// Board item types that matter to the extractor.
const (
	TypeShape      = "shape"
	TypeStickyNote = "sticky_note"
	TypeCard       = "card"
	TypeAppCard    = "app_card"
	TypeFrame      = "frame"
	TypeText       = "text"
	TypeImage      = "image"
)

/*
Item is a board item reduced to what the extractor needs. Geometry is nil when
the upstream record had no usable position or size.
*/
type Item struct {
	ID          string
	Type        string
	Geometry    *Geometry
	FillColor   string
	Title       string
	Content     string
	Description string
}

/*
Connector is a link between two items. StartCap and EndCap carry the raw
stroke cap style names ("none", "stealth", "erd_many", ...).
*/
type Connector struct {
	ID       string
	From     string
	To       string
	StartCap string
	EndCap   string
	Caption  string
}

// Diagrammable reports whether items of this type become flowchart nodes.
func Diagrammable(itemType string) bool {
	switch itemType {
	case TypeShape, TypeStickyNote, TypeCard, TypeAppCard:
		return true
	}

	return false
}

// Box resolves the item's bounding box, if it has one.
func (it Item) Box() (BoundingBox, bool) {
	return it.Geometry.Box()
}

/*
Text returns the first non-empty raw text field, in title, content,
description order.
*/
func (it Item) Text() string {
	for _, src := range []string{it.Title, it.Content, it.Description} {
		if strings.TrimSpace(src) != "" {
			return src
		}
	}

	return ""
}

/*
Label is the item's text as a single plain line truncated to max runes, or the
item id when the item has no text at all.
*/
func Label(it Item, max int) string {
	for _, src := range []string{it.Title, it.Content, it.Description} {
		if txt := format.PlainText(src); txt != "" {
			return format.Truncate(txt, max)
		}
	}

	return it.ID
}

func normalizeColor(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))

	switch c {
	case "transparent", "none":
		return ""
	}

	return c
}

package miro

import (
	"encoding/json"
	"math"

	"github.com/charmbracelet/log"
	"github.com/theapemachine/mcp-wrappers/pkg/diagram"
)

// Position origins reported by the Miro API.
const (
	RelativeToCanvas = "canvas_center"
	RelativeToParent = "parent_top_left"
)

type Ref struct {
	ID string `json:"id"`
}

// UnmarshalJSON accepts ids encoded either as strings or as bare numbers.
func (ref *Ref) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID json.RawMessage `json:"id"`
	}

	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	if len(raw.ID) == 0 || string(raw.ID) == "null" {
		ref.ID = ""
		return nil
	}

	if raw.ID[0] == '"' {
		return json.Unmarshal(raw.ID, &ref.ID)
	}

	var n json.Number

	if err := json.Unmarshal(raw.ID, &n); err != nil {
		return err
	}

	ref.ID = n.String()

	return nil
}

type Position struct {
	X          *float64 `json:"x"`
	Y          *float64 `json:"y"`
	Origin     string   `json:"origin,omitempty"`
	RelativeTo string   `json:"relativeTo,omitempty"`
}

type Geometry struct {
	Width    *float64 `json:"width"`
	Height   *float64 `json:"height"`
	Rotation *float64 `json:"rotation,omitempty"`
}

type Style struct {
	FillColor string `json:"fillColor,omitempty"`
}

type ItemData struct {
	Title       string `json:"title,omitempty"`
	Content     string `json:"content,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

/*
BoardItem is a Miro board item as returned by the REST API. Only the fields
the tools use are decoded; position and geometry stay optional because many
item types (or partial API responses) omit them.
*/
type BoardItem struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	Data     ItemData  `json:"data"`
	Style    Style     `json:"style"`
	Position *Position `json:"position,omitempty"`
	Geometry *Geometry `json:"geometry,omitempty"`
	Parent   *Ref      `json:"parent,omitempty"`
}

/*
Bounds returns the item's box in the coordinate space its position is
expressed in. It fails for items without a finite centre and size.
*/
func (item BoardItem) Bounds() (diagram.BoundingBox, bool) {
	g := item.geometry()

	if g == nil {
		return diagram.BoundingBox{}, false
	}

	return g.Box()
}

// ParentID returns the id of the containing frame, if any.
func (item BoardItem) ParentID() string {
	if item.Parent == nil {
		return ""
	}

	return item.Parent.ID
}

// RelativeToParent reports whether the position is measured from the parent frame.
func (item BoardItem) RelativeToParent() bool {
	return item.Position != nil && item.Position.RelativeTo == RelativeToParent
}

/*
DiagramItem converts the item for the extractor. When the position is relative
to the parent frame and origin (the parent's board-space box) is known, the
geometry is moved into board space so items from different frames compare.
*/
func (item BoardItem) DiagramItem(origin *diagram.BoundingBox) diagram.Item {
	g := item.geometry()

	if g != nil && origin != nil && item.RelativeToParent() {
		g.X += origin.Left
		g.Y += origin.Top
	}

	return diagram.Item{
		ID:          item.ID,
		Type:        item.Type,
		Geometry:    g,
		FillColor:   item.Style.FillColor,
		Title:       item.Data.Title,
		Content:     item.Data.Content,
		Description: item.Data.Description,
	}
}

func (item BoardItem) geometry() *diagram.Geometry {
	if item.Position == nil || item.Geometry == nil {
		return nil
	}

	values := []*float64{item.Position.X, item.Position.Y, item.Geometry.Width, item.Geometry.Height}

	for _, v := range values {
		if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
			return nil
		}
	}

	return &diagram.Geometry{
		X:      *item.Position.X,
		Y:      *item.Position.Y,
		Width:  *item.Geometry.Width,
		Height: *item.Geometry.Height,
	}
}

type ConnectorStyle struct {
	StartStrokeCap string `json:"startStrokeCap,omitempty"`
	EndStrokeCap   string `json:"endStrokeCap,omitempty"`
}

type Caption struct {
	Content string `json:"content"`
}

/*
Connector is a link between two board items.
*/
type Connector struct {
	ID        string         `json:"id"`
	StartItem *Ref           `json:"startItem,omitempty"`
	EndItem   *Ref           `json:"endItem,omitempty"`
	Style     ConnectorStyle `json:"style"`
	Captions  []Caption      `json:"captions,omitempty"`
}

func (c Connector) endpoints() (string, string, bool) {
	if c.StartItem == nil || c.EndItem == nil || c.StartItem.ID == "" || c.EndItem.ID == "" {
		return "", "", false
	}

	return c.StartItem.ID, c.EndItem.ID, true
}

// DiagramConnector converts the connector, keeping only the first caption.
func (c Connector) DiagramConnector() diagram.Connector {
	from, to, _ := c.endpoints()

	out := diagram.Connector{
		ID:       c.ID,
		From:     from,
		To:       to,
		StartCap: c.Style.StartStrokeCap,
		EndCap:   c.Style.EndStrokeCap,
	}

	if len(c.Captions) > 0 {
		out.Caption = c.Captions[0].Content
	}

	return out
}

type Owner struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Board struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ViewLink    string `json:"viewLink,omitempty"`
	ModifiedAt  string `json:"modifiedAt,omitempty"`
	Owner       *Owner `json:"owner,omitempty"`
}

/*
decodeItems validates raw page entries one by one. An entry that does not
decode, or has no id or type, is skipped instead of failing the whole page.
*/
func decodeItems(raw []json.RawMessage) []BoardItem {
	items := make([]BoardItem, 0, len(raw))

	for _, r := range raw {
		var item BoardItem

		if err := json.Unmarshal(r, &item); err != nil {
			log.Debug("skipping malformed board item", "error", err)
			continue
		}

		if item.ID == "" || item.Type == "" {
			log.Debug("skipping board item without id or type")
			continue
		}

		items = append(items, item)
	}

	return items
}

func decodeConnectors(raw []json.RawMessage) []Connector {
	connectors := make([]Connector, 0, len(raw))

	for _, r := range raw {
		var c Connector

		if err := json.Unmarshal(r, &c); err != nil {
			log.Debug("skipping malformed connector", "error", err)
			continue
		}

		if _, _, ok := c.endpoints(); !ok {
			continue
		}

		connectors = append(connectors, c)
	}

	return connectors
}

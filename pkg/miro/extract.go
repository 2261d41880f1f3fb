package miro

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/theapemachine/mcp-wrappers/pkg/diagram"
)

// Bounds for the per-call caps exposed to tool callers.
const (
	DefaultLimitPerFrame = 200
	MaxLimitPerFrame     = 1000
	DefaultMaxConnectors = 500
	MaxConnectorsCap     = 2000

	// frameScanLimit caps the board-wide frame listing used to find nested frames.
	frameScanLimit = 1000
)

/*
Source is the part of the Miro API the extractor reads from. *Client
satisfies it; tests substitute an in-memory board.
*/
type Source interface {
	GetItem(ctx context.Context, boardID, itemID string) (BoardItem, error)
	ListItems(ctx context.Context, boardID string, q ItemQuery) ([]BoardItem, error)
	ListConnectors(ctx context.Context, boardID string, max int) ([]Connector, error)
}

/*
FrameRequest identifies the frame to extract. BoardID has already been resolved
against the active default by the caller.
*/
type FrameRequest struct {
	BoardID       string
	FrameID       string
	LimitPerFrame int
	MaxConnectors int
	Direction     diagram.Direction
}

func (req FrameRequest) withDefaults() FrameRequest {
	if req.LimitPerFrame <= 0 {
		req.LimitPerFrame = DefaultLimitPerFrame
	}

	req.LimitPerFrame = min(req.LimitPerFrame, MaxLimitPerFrame)

	if req.MaxConnectors <= 0 {
		req.MaxConnectors = DefaultMaxConnectors
	}

	req.MaxConnectors = min(req.MaxConnectors, MaxConnectorsCap)

	return req
}

// FrameGroup is the direct content of one visited frame.
type FrameGroup struct {
	FrameID string      `json:"frameId"`
	Title   string      `json:"title,omitempty"`
	Items   []BoardItem `json:"items"`
}

/*
FrameContents is everything collected for a frame, in visiting order. Root is
nil when the frame's own metadata could not be read.
*/
type FrameContents struct {
	BoardID string       `json:"boardId"`
	FrameID string       `json:"frameId"`
	Root    *BoardItem   `json:"root,omitempty"`
	Groups  []FrameGroup `json:"groups"`

	origins map[string]diagram.BoundingBox
}

// FrameIDs lists the visited frames, root first.
func (contents *FrameContents) FrameIDs() []string {
	ids := make([]string, 0, len(contents.Groups))

	for _, g := range contents.Groups {
		ids = append(ids, g.FrameID)
	}

	return ids
}

// Items flattens all groups, keeping visiting order.
func (contents *FrameContents) Items() []BoardItem {
	var items []BoardItem

	for _, g := range contents.Groups {
		items = append(items, g.Items...)
	}

	return items
}

/*
DiagramItems converts the collected items into board space where the parent
frame's position is known.
*/
func (contents *FrameContents) DiagramItems() []diagram.Item {
	var out []diagram.Item

	for _, g := range contents.Groups {
		for _, item := range g.Items {
			var origin *diagram.BoundingBox

			if box, ok := contents.origins[item.ParentID()]; ok {
				origin = &box
			} else if box, ok := contents.origins[g.FrameID]; ok {
				origin = &box
			}

			out = append(out, item.DiagramItem(origin))
		}
	}

	return out
}

/*
Extractor turns a frame on a board into Mermaid diagrams.
*/
type Extractor struct {
	source     Source
	heuristics diagram.Heuristics
}

func NewExtractor(source Source, heuristics diagram.Heuristics) *Extractor {
	return &Extractor{source: source, heuristics: heuristics}
}

/*
Collect gathers the items of a frame. With nested set, frames lying inside the
root frame are visited too, breadth first. A failure to read the root frame
only narrows the scope; a failure to list items aborts the whole collection.
*/
func (ex *Extractor) Collect(ctx context.Context, req FrameRequest, nested bool) (*FrameContents, error) {
	req = req.withDefaults()

	if req.BoardID == "" || req.FrameID == "" {
		return nil, fmt.Errorf("board id and frame id are required")
	}

	contents := &FrameContents{
		BoardID: req.BoardID,
		FrameID: req.FrameID,
		origins: make(map[string]diagram.BoundingBox),
	}

	titles := map[string]string{}
	queue := []string{req.FrameID}
	queued := map[string]bool{req.FrameID: true}

	root, err := ex.source.GetItem(ctx, req.BoardID, req.FrameID)

	if err != nil {
		log.Warn("frame metadata unavailable, skipping nested frames", "frame", req.FrameID, "error", err)
		nested = false
	} else {
		contents.Root = &root
		titles[root.ID] = root.Data.Title

		if box, ok := root.Bounds(); ok && !root.RelativeToParent() {
			contents.origins[root.ID] = box
		} else {
			log.Warn("frame has no board-space geometry, skipping nested frames", "frame", req.FrameID)
			nested = false
		}
	}

	if nested {
		seeds, err := ex.nestedFrames(ctx, req, contents.origins[req.FrameID])

		if err != nil {
			return nil, err
		}

		for _, frame := range seeds {
			if origin, ok := contents.resolve(frame, frame.ParentID()); ok {
				contents.origins[frame.ID] = origin
			}

			queue = append(queue, frame.ID)
			queued[frame.ID] = true
			titles[frame.ID] = frame.Data.Title
		}
	}

	seen := map[string]bool{}

	for len(queue) > 0 {
		frameID := queue[0]
		queue = queue[1:]

		children, err := ex.source.ListItems(ctx, req.BoardID, ItemQuery{
			ParentID: frameID,
			Limit:    req.LimitPerFrame,
		})

		if err != nil {
			return nil, fmt.Errorf("listing items of frame %s: %w", frameID, err)
		}

		group := FrameGroup{FrameID: frameID, Title: titles[frameID]}

		for _, child := range children {
			if seen[child.ID] || child.ID == req.FrameID {
				continue
			}

			seen[child.ID] = true
			group.Items = append(group.Items, child)

			if child.Type != diagram.TypeFrame {
				continue
			}

			if _, known := contents.origins[child.ID]; !known {
				if origin, ok := contents.resolve(child, frameID); ok {
					contents.origins[child.ID] = origin
				}
			}

			if nested && !queued[child.ID] {
				queue = append(queue, child.ID)
				queued[child.ID] = true
				titles[child.ID] = child.Data.Title
			}
		}

		contents.Groups = append(contents.Groups, group)
	}

	return contents, nil
}

/*
nestedFrames finds the other frames on the board that sit inside the root
frame, either by parent reference or by lying fully within its box.
*/
func (ex *Extractor) nestedFrames(
	ctx context.Context, req FrameRequest, rootBox diagram.BoundingBox,
) ([]BoardItem, error) {
	frames, err := ex.source.ListItems(ctx, req.BoardID, ItemQuery{
		Type:  diagram.TypeFrame,
		Limit: frameScanLimit,
	})

	if err != nil {
		return nil, fmt.Errorf("listing frames: %w", err)
	}

	var seeds []BoardItem

	for _, frame := range frames {
		if frame.ID == req.FrameID {
			continue
		}

		if frame.ParentID() == req.FrameID {
			seeds = append(seeds, frame)
			continue
		}

		if frame.RelativeToParent() {
			continue
		}

		if box, ok := frame.Bounds(); ok && rootBox.Contains(box) {
			seeds = append(seeds, frame)
		}
	}

	return seeds, nil
}

/*
resolve computes the board-space box of a frame found inside parentID.
*/
func (contents *FrameContents) resolve(frame BoardItem, parentID string) (diagram.BoundingBox, bool) {
	box, ok := frame.Bounds()

	if !ok {
		return diagram.BoundingBox{}, false
	}

	if !frame.RelativeToParent() {
		return box, true
	}

	parent, ok := contents.origins[parentID]

	if !ok {
		return diagram.BoundingBox{}, false
	}

	return box.Translate(parent.Left, parent.Top), true
}

/*
FlowchartResult is the payload returned by the mermaid tool.
*/
type FlowchartResult struct {
	BoardID string   `json:"boardId"`
	FrameID string   `json:"frameId"`
	Frames  []string `json:"frames"`
	diagram.Flowchart
	ExportedTo string `json:"exportedTo,omitempty"`
}

/*
Flowchart renders the frame, including frames nested inside it, as a Mermaid
flowchart.
*/
func (ex *Extractor) Flowchart(ctx context.Context, req FrameRequest) (*FlowchartResult, error) {
	req = req.withDefaults()

	contents, err := ex.Collect(ctx, req, true)

	if err != nil {
		return nil, err
	}

	connectors, err := ex.connectors(ctx, req, contents)

	if err != nil {
		return nil, err
	}

	return &FlowchartResult{
		BoardID:   req.BoardID,
		FrameID:   req.FrameID,
		Frames:    contents.FrameIDs(),
		Flowchart: diagram.RenderFlowchart(contents.DiagramItems(), connectors, req.Direction, ex.heuristics),
	}, nil
}

/*
ERDResult is the payload returned by the entity-relationship tool.
*/
type ERDResult struct {
	BoardID string `json:"boardId"`
	FrameID string `json:"frameId"`
	diagram.ERD
	ExportedTo string `json:"exportedTo,omitempty"`
}

/*
ERD renders the connectors between the frame's direct children as a Mermaid
entity-relationship diagram.
*/
func (ex *Extractor) ERD(ctx context.Context, req FrameRequest) (*ERDResult, error) {
	req = req.withDefaults()

	contents, err := ex.Collect(ctx, req, false)

	if err != nil {
		return nil, err
	}

	connectors, err := ex.connectors(ctx, req, contents)

	if err != nil {
		return nil, err
	}

	return &ERDResult{
		BoardID: req.BoardID,
		FrameID: req.FrameID,
		ERD:     diagram.RenderERD(contents.DiagramItems(), connectors, ex.heuristics),
	}, nil
}

// connectors keeps the board connectors whose both ends were collected.
func (ex *Extractor) connectors(
	ctx context.Context, req FrameRequest, contents *FrameContents,
) ([]diagram.Connector, error) {
	all, err := ex.source.ListConnectors(ctx, req.BoardID, req.MaxConnectors)

	if err != nil {
		return nil, fmt.Errorf("listing connectors: %w", err)
	}

	inFrame := map[string]bool{}

	for _, item := range contents.Items() {
		inFrame[item.ID] = true
	}

	var out []diagram.Connector

	for _, c := range all {
		dc := c.DiagramConnector()

		if inFrame[dc.From] && inFrame[dc.To] {
			out = append(out, dc)
		}
	}

	return out, nil
}

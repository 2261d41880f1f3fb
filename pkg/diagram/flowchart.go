package diagram

import (
	"fmt"
	"strings"
)

// Direction is a Mermaid flowchart layout direction.
type Direction string

const (
	LeftRight  Direction = "LR"
	TopBottom  Direction = "TB"
	BottomTop  Direction = "BT"
	RightLeft  Direction = "RL"
	defaultDir           = LeftRight
)

// Directions lists the accepted layout directions.
var Directions = []string{string(LeftRight), string(TopBottom), string(BottomTop), string(RightLeft)}

/*
ParseDirection accepts LR, TB, BT or RL in any case. An empty string yields the
default left-to-right layout.
*/
func ParseDirection(s string) (Direction, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	if s == "" {
		return defaultDir, nil
	}

	for _, d := range Directions {
		if s == d {
			return Direction(s), nil
		}
	}

	return "", fmt.Errorf("unsupported direction %q (allowed: %s)", s, strings.Join(Directions, ", "))
}

/*
Flowchart is the rendered Mermaid flowchart together with the structure it
was generated from.
*/
type Flowchart struct {
	Direction Direction `json:"direction"`
	Text      string    `json:"mermaid"`
	Nodes     []Node    `json:"nodes"`
	Edges     []Edge    `json:"edges"`
}

// RenderFlowchart builds the graph for the items and renders it.
func RenderFlowchart(items []Item, connectors []Connector, dir Direction, h Heuristics) Flowchart {
	if dir == "" {
		dir = defaultDir
	}

	graph := Build(items, connectors, h)

	return Flowchart{
		Direction: dir,
		Text:      graph.Flowchart(dir),
		Nodes:     graph.Nodes,
		Edges:     graph.Edges,
	}
}

/*
Flowchart renders the graph as Mermaid text. Root nodes are written in input
order; containers and regions open a subgraph holding their children.
*/
func (graph *Graph) Flowchart(dir Direction) string {
	var b strings.Builder

	fmt.Fprintf(&b, "flowchart %s\n", dir)

	for i, n := range graph.Nodes {
		if n.Parent == -1 {
			graph.writeNode(&b, i, 1)
		}
	}

	for _, e := range graph.Edges {
		b.WriteString("  " + e.mermaid() + "\n")
	}

	return b.String()
}

func (graph *Graph) writeNode(b *strings.Builder, idx, depth int) {
	var (
		n      = graph.Nodes[idx]
		indent = strings.Repeat("  ", depth)
	)

	if !n.Container() {
		fmt.Fprintf(b, "%s%s[\"%s\"]\n", indent, n.Alias, escapeLabel(n.Label))
		return
	}

	fmt.Fprintf(b, "%ssubgraph %s[\"%s\"]\n", indent, n.Alias, escapeLabel(n.Label))

	for _, child := range n.Children {
		graph.writeNode(b, child, depth+1)
	}

	b.WriteString(indent + "end\n")
}

func (e Edge) mermaid() string {
	arrow := e.Arrow

	if arrow == "" {
		arrow = "-->"
	}

	if e.Label == "" {
		return fmt.Sprintf("%s %s %s", e.From, arrow, e.To)
	}

	return fmt.Sprintf("%s %s|\"%s\"| %s", e.From, arrow, escapeLabel(e.Label), e.To)
}

// escapeLabel makes text safe inside a double-quoted Mermaid label.
func escapeLabel(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}

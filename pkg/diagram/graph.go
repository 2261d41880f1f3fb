package diagram

import (
	"fmt"
	"sort"
	"strings"

	"github.com/theapemachine/mcp-wrappers/pkg/format"
)

/*
Node is one diagrammable item in the graph arena. Parent and Children are
indices into Graph.Nodes; Parent is -1 for nodes at the diagram root.
*/
type Node struct {
	Alias       string `json:"alias"`
	ItemID      string `json:"itemId"`
	Type        string `json:"type"`
	Label       string `json:"label"`
	ParentAlias string `json:"parent,omitempty"`
	Region      bool   `json:"region,omitempty"`

	Parent   int   `json:"-"`
	Children []int `json:"-"`

	box    BoundingBox
	hasBox bool
	fill   string
}

// Container reports whether the node renders as a subgraph.
func (n Node) Container() bool {
	return n.Region || len(n.Children) > 0
}

/*
Edge is a rendered arrow between two node aliases. Inferred edges come from
vertical stacking rather than a connector.
*/
type Edge struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Label    string `json:"label,omitempty"`
	Inferred bool   `json:"inferred,omitempty"`
	Arrow    string `json:"-"`
}

/*
Graph is the derived structure of a frame: nodes with their containment tree,
plus explicit and inferred edges.
*/
type Graph struct {
	Nodes []Node
	Edges []Edge

	byItem       map[string]int
	regionColors map[string]bool
}

type pair struct{ from, to int }

/*
Build derives the graph for a set of items and connectors. Only diagrammable
items become nodes; the first occurrence of a duplicated id wins. The result
depends only on the input order, never on map iteration.
*/
func Build(items []Item, connectors []Connector, h Heuristics) *Graph {
	h = h.withDefaults()

	graph := &Graph{byItem: make(map[string]int)}

	for _, it := range items {
		if it.ID == "" || !Diagrammable(it.Type) {
			continue
		}

		if _, dup := graph.byItem[it.ID]; dup {
			continue
		}

		node := Node{
			Alias:  fmt.Sprintf("n%d", len(graph.Nodes)+1),
			ItemID: it.ID,
			Type:   it.Type,
			Label:  Label(it, h.LabelLength),
			Parent: -1,
			fill:   normalizeColor(it.FillColor),
		}

		node.box, node.hasBox = it.Box()
		graph.byItem[it.ID] = len(graph.Nodes)
		graph.Nodes = append(graph.Nodes, node)
	}

	graph.classifyRegions(h)
	graph.assignContainment(h)

	explicit := graph.addExplicitEdges(connectors, h)
	graph.inferStackEdges(h, explicit)

	return graph
}

// Node looks up a node by its board item id.
func (graph *Graph) Node(itemID string) (Node, bool) {
	idx, ok := graph.byItem[itemID]

	if !ok {
		return Node{}, false
	}

	return graph.Nodes[idx], true
}

/*
classifyRegions flags large coloured bands. An item is a region when its area
is a multiple of the median, or when it carries one of the dominant fill
colours and is not much smaller than the median. The colour rule needs at
least two fill colours: with one, that colour is trivially dominant and the
rule would flag every item of median size as a region.
*/
func (graph *Graph) classifyRegions(h Heuristics) {
	var (
		areas     []float64
		colorArea = make(map[string]float64)
		colors    []string
	)

	for _, n := range graph.Nodes {
		if !n.hasBox {
			continue
		}

		areas = append(areas, n.box.Area())

		if n.fill == "" {
			continue
		}

		if _, seen := colorArea[n.fill]; !seen {
			colors = append(colors, n.fill)
		}

		colorArea[n.fill] += n.box.Area()
	}

	if len(areas) == 0 {
		return
	}

	graph.regionColors = make(map[string]bool)

	if len(colors) >= 2 {
		var largest float64

		for _, c := range colors {
			largest = max(largest, colorArea[c])
		}

		for _, c := range colors {
			if colorArea[c] >= h.RegionColorShare*largest {
				graph.regionColors[c] = true
			}
		}
	}

	mid := median(areas)

	for i := range graph.Nodes {
		n := &graph.Nodes[i]

		if !n.hasBox {
			continue
		}

		area := n.box.Area()

		if area >= h.RegionAreaFactor*mid {
			n.Region = true
			continue
		}

		if graph.regionColors[n.fill] && area >= h.RegionColorAreaFactor*mid {
			n.Region = true
		}
	}
}

/*
assignContainment picks, for every node with geometry, the tightest enclosing
node that passes the colour, size and overlap filters. A parent must be
strictly larger than its child, so the resulting forest has no cycles.
*/
func (graph *Graph) assignContainment(h Heuristics) {
	for i := range graph.Nodes {
		child := graph.Nodes[i]

		if !child.hasBox {
			continue
		}

		var (
			best     = -1
			bestArea float64
		)

		for j, parent := range graph.Nodes {
			if j == i || !parent.hasBox {
				continue
			}

			if child.fill != "" && child.fill == parent.fill {
				continue
			}

			scale, overlap := h.ContainmentScale, h.ContainmentOverlap

			if graph.regionColors[parent.fill] {
				scale, overlap = h.RegionContainmentScale, h.RegionContainmentOverlap
			}

			if parent.box.Width() < child.box.Width()*scale ||
				parent.box.Height() < child.box.Height()*scale {
				continue
			}

			parentArea := parent.box.Area()

			if parentArea <= child.box.Area() {
				continue
			}

			if parent.box.Intersection(child.box)/child.box.Area() < overlap {
				continue
			}

			if best == -1 || parentArea < bestArea {
				best, bestArea = j, parentArea
			}
		}

		graph.Nodes[i].Parent = best
	}

	for i := range graph.Nodes {
		if p := graph.Nodes[i].Parent; p >= 0 {
			graph.Nodes[p].Children = append(graph.Nodes[p].Children, i)
			graph.Nodes[i].ParentAlias = graph.Nodes[p].Alias
		}
	}
}

/*
addExplicitEdges turns every connector whose endpoints are both nodes into one
edge and returns the set of ordered pairs it produced.
*/
func (graph *Graph) addExplicitEdges(connectors []Connector, h Heuristics) map[pair]bool {
	explicit := make(map[pair]bool)

	for _, c := range connectors {
		from, okFrom := graph.byItem[c.From]
		to, okTo := graph.byItem[c.To]

		if !okFrom || !okTo {
			continue
		}

		graph.Edges = append(graph.Edges, Edge{
			From:  graph.Nodes[from].Alias,
			To:    graph.Nodes[to].Alias,
			Label: format.Truncate(format.PlainText(c.Caption), h.CaptionLength),
			Arrow: arrowFor(c.StartCap, c.EndCap),
		})

		explicit[pair{from, to}] = true
	}

	return explicit
}

/*
inferStackEdges links nodes that sit directly above one another under the
same containment parent. Containers and regions take part like any other
node; a node is never grouped with its own children. Pairs already joined by
a connector are left alone.
*/
func (graph *Graph) inferStackEdges(h Heuristics, explicit map[pair]bool) {
	groups := make(map[int][]int)

	for i, n := range graph.Nodes {
		if !n.hasBox {
			continue
		}

		groups[n.Parent] = append(groups[n.Parent], i)
	}

	keys := make([]int, 0, len(groups))

	for k := range groups {
		keys = append(keys, k)
	}

	sort.Ints(keys)

	for _, k := range keys {
		members := groups[k]

		sort.SliceStable(members, func(a, b int) bool {
			return graph.Nodes[members[a]].box.CenterY() < graph.Nodes[members[b]].box.CenterY()
		})

		for idx := 0; idx+1 < len(members); idx++ {
			upper, lower := graph.Nodes[members[idx]], graph.Nodes[members[idx+1]]

			if upper.box.HorizontalOverlap(lower.box) <= 0 {
				continue
			}

			gap := lower.box.CenterY() - upper.box.CenterY()

			if gap > h.StackGapFactor*min(upper.box.Height(), lower.box.Height()) {
				continue
			}

			p := pair{members[idx], members[idx+1]}

			if explicit[p] {
				continue
			}

			explicit[p] = true
			graph.Edges = append(graph.Edges, Edge{
				From:     upper.Alias,
				To:       lower.Alias,
				Inferred: true,
				Arrow:    "-.->",
			})
		}
	}
}

func arrowFor(startCap, endCap string) string {
	start := strings.TrimSpace(startCap)
	end := strings.TrimSpace(endCap)

	switch {
	case start == "none" && end == "none":
		return "---"
	case start != "" && start != "none" && end != "" && end != "none":
		return "<-->"
	}

	return "-->"
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mid := len(sorted) / 2

	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}

	return sorted[mid]
}

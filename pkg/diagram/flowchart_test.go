package diagram

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestParseDirection(t *testing.T) {
	Convey("Given direction strings", t, func() {
		for in, want := range map[string]Direction{"": LeftRight, "lr": LeftRight, "TB": TopBottom, " bt ": BottomTop, "RL": RightLeft} {
			got, err := ParseDirection(in)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, want)
		}

		_, err := ParseDirection("TD")
		So(err, ShouldNotBeNil)
	})
}

func TestRenderFlowchart(t *testing.T) {
	Convey("Given nested items with a connector", t, func() {
		items := []Item{
			shape("big", "#ff0000", "Big", 0, 0, 400, 400),
			shape("mid", "#0000ff", `Mid "core"`, 0, 0, 200, 200),
			shape("small", "#00ff00", "Small", 0, 0, 50, 50),
			{ID: "loose", Type: TypeStickyNote, Content: "Loose"},
		}
		connectors := []Connector{{From: "loose", To: "small", Caption: "uses"}}

		out := RenderFlowchart(items, connectors, TopBottom, DefaultHeuristics())

		Convey("Then containers become nested subgraphs", func() {
			So(out.Text, ShouldEqual, `flowchart TB
  subgraph n1["Big"]
    subgraph n2["Mid #quot;core#quot;"]
      n3["Small"]
    end
  end
  n4["Loose"]
  n4 -->|"uses"| n3
`)
			So(out.Direction, ShouldEqual, TopBottom)
			So(len(out.Nodes), ShouldEqual, 4)
			So(out.Edges, ShouldHaveLength, 1)
		})

		Convey("Then rendering the same input twice is byte-identical", func() {
			again := RenderFlowchart(items, connectors, TopBottom, DefaultHeuristics())
			So(again.Text, ShouldEqual, out.Text)
		})
	})

	Convey("Given the simple containment example", t, func() {
		out := RenderFlowchart([]Item{
			shape("outer", "#ff0000", "Outer", 0, 0, 200, 100),
			shape("inner", "#00ff00", "Inner", 0, 0, 100, 50),
		}, nil, "", DefaultHeuristics())

		So(out.Text, ShouldEqual, "flowchart LR\n  subgraph n1[\"Outer\"]\n    n2[\"Inner\"]\n  end\n")
	})

	Convey("Given stacked items", t, func() {
		out := RenderFlowchart(stack(50), nil, LeftRight, DefaultHeuristics())

		So(out.Text, ShouldEqual, `flowchart LR
  n1["Top"]
  n2["Middle"]
  n3["Bottom"]
  n1 -.-> n2
  n2 -.-> n3
`)
	})

	Convey("Given no items", t, func() {
		out := RenderFlowchart(nil, nil, RightLeft, DefaultHeuristics())
		So(out.Text, ShouldEqual, "flowchart RL\n")
		So(out.Nodes, ShouldBeEmpty)
	})
}

func TestHeuristicsDefaults(t *testing.T) {
	Convey("Given partially configured heuristics", t, func() {
		h := Heuristics{StackGapFactor: 2}.withDefaults()

		So(h.StackGapFactor, ShouldEqual, 2)
		So(h.ContainmentOverlap, ShouldEqual, 0.8)
		So(h.LabelLength, ShouldEqual, 80)
	})

	Convey("Given a looser stacking threshold", t, func() {
		graph := Build(stack(100), nil, Heuristics{StackGapFactor: 1.5})
		So(graph.Edges, ShouldHaveLength, 2)
	})
}

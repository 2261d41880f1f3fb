package diagram

import (
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCardinality(t *testing.T) {
	Convey("Given stroke cap styles", t, func() {
		cases := map[string]string{
			"erd_one":          "||",
			"erd_only_one":     "||",
			"erd_zero_or_one":  "o|",
			"erd_many":         "|{",
			"erd_one_or_many":  "|{",
			"erd_zero_or_many": "o{",
			"":                 "||",
			"stealth":          "||",
		}

		for in, want := range cases {
			So(Cardinality(in), ShouldEqual, want)
		}
	})

	Convey("Given right-hand tokens", t, func() {
		So(mirror("||"), ShouldEqual, "||")
		So(mirror("o|"), ShouldEqual, "|o")
		So(mirror("|{"), ShouldEqual, "}|")
		So(mirror("o{"), ShouldEqual, "}o")
	})
}

func TestRenderERD(t *testing.T) {
	Convey("Given two entities joined by a one-to-many connector", t, func() {
		out := RenderERD([]Item{
			{ID: "a", Type: TypeShape, Content: "EntityA"},
			{ID: "b", Type: TypeShape, Content: "EntityB"},
		}, []Connector{{From: "a", To: "b", EndCap: "erd_many"}}, DefaultHeuristics())

		So(out.Text, ShouldContainSubstring, "EntityA ||--|{ EntityB")
		So(out.Relationships, ShouldResemble, []Relationship{
			{From: "EntityA", To: "EntityB", Left: "||", Right: "|{"},
		})
	})

	Convey("Given a small schema with a sticky note", t, func() {
		items := []Item{
			{ID: "c", Type: TypeShape, Content: "<p>Customer</p><p>customer_id PK</p><p>name</p>"},
			{ID: "o", Type: TypeShape, Content: "<p>Order</p><p>order_id</p>"},
			{ID: "n", Type: TypeStickyNote, Content: "remember indexes"},
			{ID: "x", Type: TypeShape, Content: "Audit"},
			{ID: "unused", Type: TypeShape, Content: "Unused"},
		}
		connectors := []Connector{
			{From: "c", To: "o", EndCap: "erd_many", Caption: "places"},
			{From: "c", To: "n", EndCap: "erd_many"},
			{From: "x", To: "c", StartCap: "erd_zero_or_one", EndCap: "erd_one"},
			{From: "c", To: "ghost"},
		}

		out := RenderERD(items, connectors, DefaultHeuristics())

		Convey("Then only qualifying connectors and touched items are rendered", func() {
			So(out.Text, ShouldEqual, `erDiagram
  Customer {
    string customer_id PK
  }
  Order {
    string order_id PK
  }
  Audit {
    string Audit
  }
  Customer ||--|{ Order : "places"
  Audit |o--|| Customer : ""
`)
			So(out.Entities, ShouldHaveLength, 3)
			So(out.Entities[2].KeyFallback, ShouldBeTrue)
		})
	})

	Convey("Given entities whose names collide", t, func() {
		out := RenderERD([]Item{
			{ID: "1", Type: TypeShape, Content: "User"},
			{ID: "2", Type: TypeShape, Content: "User"},
		}, []Connector{{From: "1", To: "2"}}, DefaultHeuristics())

		So(out.Entities[0].Name, ShouldEqual, "User")
		So(out.Entities[1].Name, ShouldEqual, "User_2")

		Convey("When a later item is literally named like a suffix", func() {
			out := RenderERD([]Item{
				{ID: "1", Type: TypeShape, Content: "A"},
				{ID: "2", Type: TypeShape, Content: "A"},
				{ID: "3", Type: TypeShape, Content: "A_2"},
			}, []Connector{{From: "1", To: "2"}, {From: "2", To: "3"}}, DefaultHeuristics())

			So(out.Entities, ShouldHaveLength, 3)
			So(out.Entities[0].Name, ShouldEqual, "A")
			So(out.Entities[1].Name, ShouldEqual, "A_2")
			So(out.Entities[2].Name, ShouldEqual, "A_2_2")
			So(out.Relationships[0].From, ShouldEqual, "A")
			So(out.Relationships[0].To, ShouldEqual, "A_2")
			So(out.Relationships[1].From, ShouldEqual, "A_2")
			So(out.Relationships[1].To, ShouldEqual, "A_2_2")
			So(strings.Count(out.Text, "A_2 {"), ShouldEqual, 1)
		})
	})
}

func TestIdentifiers(t *testing.T) {
	Convey("Given free text", t, func() {
		So(identifier("Order Line", "E"), ShouldEqual, "Order_Line")
		So(identifier("  ", "E"), ShouldEqual, "E")
		So(identifier("2024 plan", "E"), ShouldEqual, "E_2024_plan")
		So(attributeName("id (PK)"), ShouldEqual, "id")
		So(attributeName("PK"), ShouldEqual, "key")
	})
}

package registry

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	. "github.com/smartystreets/goconvey/convey"
)

func noop(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText("ok"), nil
}

func definition(group, name string) ToolDefinition {
	return ToolDefinition{Group: group, Tool: mcp.NewTool(name), Handler: noop}
}

func TestRegister(t *testing.T) {
	Convey("Given an empty registry", t, func() {
		registry := New()

		Convey("When registering a tool", func() {
			err := registry.Register(definition("miro", "miro_list_boards"))

			Convey("Then the tool can be retrieved", func() {
				So(err, ShouldBeNil)

				got, ok := registry.Get("miro_list_boards")
				So(ok, ShouldBeTrue)
				So(got.Group, ShouldEqual, "miro")
			})
		})

		Convey("When registering a tool without a handler", func() {
			err := registry.Register(ToolDefinition{Group: "miro", Tool: mcp.NewTool("broken")})

			Convey("Then it is rejected", func() {
				So(err, ShouldNotBeNil)
				_, ok := registry.Get("broken")
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestList(t *testing.T) {
	Convey("Given a registry with tools in several groups", t, func() {
		registry := New()
		So(registry.Register(
			definition("serpapi", "serpapi_search"),
			definition("miro", "miro_set_board"),
			definition("graph", "graph_me"),
			definition("miro", "miro_get_board"),
		), ShouldBeNil)

		Convey("Then listing is ordered by group and name", func() {
			var names []string

			for _, def := range registry.List() {
				names = append(names, def.Name())
			}

			So(names, ShouldResemble, []string{"graph_me", "miro_get_board", "miro_set_board", "serpapi_search"})
			So(registry.Groups(), ShouldResemble, []string{"graph", "miro", "serpapi"})
		})

		Convey("Then enabling filters by group", func() {
			So(registry.Enabled([]string{" Miro "}), ShouldHaveLength, 2)
			So(registry.Enabled(nil), ShouldHaveLength, 4)
			So(registry.Enabled([]string{"all"}), ShouldHaveLength, 4)
			So(registry.Enabled([]string{"azure"}), ShouldBeEmpty)
		})
	})
}

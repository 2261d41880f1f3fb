package tools

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/theapemachine/mcp-wrappers/pkg/metrics"
	"github.com/theapemachine/mcp-wrappers/pkg/registry"
	"github.com/theapemachine/mcp-wrappers/pkg/session"
)

// call invokes a handler the way the MCP server would.
func call(handler server.ToolHandlerFunc, args map[string]any) (*mcp.CallToolResult, string) {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args

	result, err := handler(context.Background(), req)
	So(err, ShouldBeNil)
	So(result, ShouldNotBeNil)

	return result, resultText(result)
}

func TestDefinitions(t *testing.T) {
	Convey("Given a toolset without any configured services", t, func() {
		ts := &Toolset{Metrics: metrics.NewToolMetrics()}

		Convey("It should define every tool exactly once", func() {
			reg := registry.New()
			So(ts.Register(reg), ShouldBeNil)

			names := map[string]bool{}

			for _, def := range reg.List() {
				So(names[def.Name()], ShouldBeFalse)
				names[def.Name()] = true
			}

			for _, name := range []string{
				"miro_list_boards", "miro_set_board", "miro_get_board",
				"miro_frame_contents", "miro_frame_to_mermaid", "miro_frame_to_erd",
				"graph_me", "graph_list_messages", "graph_list_events",
				"graph_search_files", "graph_auth_status",
				"serpapi_search",
				"ado_list_projects", "ado_execute_wiql", "ado_get_work_items",
				"ado_work_item_comments", "ado_sprint_overview",
				"wrappers_stats",
			} {
				So(names, ShouldContainKey, name)
			}

			So(reg.Groups(), ShouldResemble, []string{GroupAzure, GroupGraph, GroupMiro, GroupSerpAPI, GroupStats})
		})

		Convey("It should report missing credentials as tool errors", func() {
			reg := registry.New()
			So(ts.Register(reg), ShouldBeNil)

			for _, name := range []string{"miro_list_boards", "graph_me", "ado_list_projects"} {
				def, ok := reg.Get(name)
				So(ok, ShouldBeTrue)

				result, text := call(def.Handler, map[string]any{})
				So(result.IsError, ShouldBeTrue)
				So(text, ShouldContainSubstring, "credentials not configured")
			}

			So(ts.Metrics.GetMetrics()["failed_calls"], ShouldEqual, int64(3))
		})

		Convey("It should create its own defaults on first use", func() {
			So(ts.defaults(), ShouldNotBeNil)
			So(ts.defaults(), ShouldPointTo, ts.defaults())
		})
	})

	Convey("Given two toolsets", t, func() {
		first := &Toolset{Defaults: session.NewDefaults(map[string]string{session.MiroBoard: "b1"})}
		second := &Toolset{Defaults: session.NewDefaults(nil)}

		Convey("It should keep their active boards apart", func() {
			_, _ = call(first.handleSetBoard, map[string]any{"board_id": "b2"})

			board, _ := first.defaults().Get(session.MiroBoard)
			So(board, ShouldEqual, "b2")

			_, ok := second.defaults().Get(session.MiroBoard)
			So(ok, ShouldBeFalse)
		})
	})
}

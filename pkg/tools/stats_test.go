package tools

import (
	"encoding/json"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/theapemachine/mcp-wrappers/pkg/metrics"
	"github.com/theapemachine/mcp-wrappers/pkg/session"
)

func TestStatsTool(t *testing.T) {
	Convey("Given recorded tool calls", t, func() {
		m := metrics.NewToolMetrics()
		m.RecordCall("miro_get_board", false, 20*time.Millisecond)
		m.RecordCall("miro_get_board", true, 40*time.Millisecond)

		ts := &Toolset{
			Metrics:  m,
			Defaults: session.NewDefaults(map[string]string{session.MiroBoard: "b1"}),
		}

		Convey("It should render usage and active defaults", func() {
			_, text := call(ts.handleStats, nil)

			So(text, ShouldContainSubstring, "- **Calls**: 2")
			So(text, ShouldContainSubstring, "- **Failures**: 1")
			So(text, ShouldContainSubstring, "| miro_get_board | 2 | 1 | 30.0 |")
			So(text, ShouldContainSubstring, "- **miro.board**: b1")
		})

		Convey("It should return json on request", func() {
			_, text := call(ts.handleStats, map[string]any{"format": "json"})

			var payload struct {
				Tools    []metrics.ToolStat `json:"tools"`
				Defaults map[string]string  `json:"defaults"`
			}

			So(json.Unmarshal([]byte(text), &payload), ShouldBeNil)
			So(payload.Tools, ShouldHaveLength, 1)
			So(payload.Tools[0].Failures, ShouldEqual, int64(1))
			So(payload.Defaults["miro.board"], ShouldEqual, "b1")
		})

		Convey("When asked to reset", func() {
			_, text := call(ts.handleStats, map[string]any{"reset": true})

			Convey("It should report the counters before clearing them", func() {
				So(text, ShouldContainSubstring, "- **Calls**: 2")
				So(m.GetMetrics()["total_calls"], ShouldEqual, int64(0))
				So(m.Snapshot(), ShouldBeEmpty)
			})
		})
	})

	Convey("Given no metrics", t, func() {
		ts := &Toolset{}

		Convey("It should say so", func() {
			_, text := call(ts.handleStats, nil)
			So(text, ShouldEqual, "Metrics are not enabled.")
		})
	})
}

package tools

import (
	"context"
	"fmt"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/theapemachine/mcp-wrappers/pkg/metrics"
)

func TestInstrument(t *testing.T) {
	Convey("Given an instrumented handler", t, func() {
		var (
			m    = metrics.NewToolMetrics()
			seen []string
		)

		handler := Instrument("echo", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			seen = append(seen, RequestID(ctx))

			switch req.GetString("outcome", "") {
			case "tool-error":
				return mcp.NewToolResultError("nope"), nil
			case "protocol-error":
				return nil, fmt.Errorf("broken")
			}

			return mcp.NewToolResultText("ok"), nil
		}, m)

		Convey("It should give every call its own request id", func() {
			_, _ = handler(context.Background(), request(map[string]any{}))
			_, _ = handler(context.Background(), request(map[string]any{}))

			So(seen, ShouldHaveLength, 2)
			So(seen[0], ShouldNotBeBlank)
			So(seen[0], ShouldNotEqual, seen[1])
		})

		Convey("It should count error results and errors as failures", func() {
			_, _ = handler(context.Background(), request(map[string]any{}))
			_, _ = handler(context.Background(), request(map[string]any{"outcome": "tool-error"}))
			_, err := handler(context.Background(), request(map[string]any{"outcome": "protocol-error"}))

			So(err, ShouldNotBeNil)

			stat, ok := m.Get("echo")
			So(ok, ShouldBeTrue)
			So(stat.Calls, ShouldEqual, int64(3))
			So(stat.Failures, ShouldEqual, int64(2))
		})

		Convey("It should pass results through unchanged", func() {
			result, err := handler(context.Background(), request(map[string]any{}))

			So(err, ShouldBeNil)
			So(resultText(result), ShouldEqual, "ok")
		})
	})

	Convey("Given no metrics", t, func() {
		handler := Instrument("bare", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("fine"), nil
		}, nil)

		Convey("It should still run the handler", func() {
			result, err := handler(context.Background(), request(nil))
			So(err, ShouldBeNil)
			So(resultText(result), ShouldEqual, "fine")
		})
	})
}

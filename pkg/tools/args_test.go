package tools

import (
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/assert"
	"github.com/theapemachine/mcp-wrappers/pkg/errors"
)

func request(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func TestArguments(t *testing.T) {
	Convey("Given valid arguments", t, func() {
		args := argsOf(request(map[string]any{
			"query": "  hello  ",
			"top":   float64(5),
			"mode":  "json",
		}))

		Convey("It should read and trim them", func() {
			So(args.requiredString("query"), ShouldEqual, "hello")
			So(args.intBetween("top", 10, 1, 50), ShouldEqual, 5)
			So(args.intBetween("missing", 10, 1, 50), ShouldEqual, 10)
			So(args.oneOf("mode", "text", "text", "json"), ShouldEqual, "json")
			So(args.optionalString("folder", "inbox"), ShouldEqual, "inbox")
			So(args.err(), ShouldBeNil)
		})
	})

	Convey("Given invalid arguments", t, func() {
		args := argsOf(request(map[string]any{
			"query": "",
			"top":   float64(500),
			"mode":  "xml",
		}))

		args.requiredString("query")
		args.intBetween("top", 10, 1, 50)
		args.oneOf("mode", "text", "text", "json")

		Convey("It should report every field", func() {
			err := args.err()
			So(err, ShouldNotBeNil)

			var verr *errors.ValidationError
			So(errors.As(err, &verr), ShouldBeTrue)
			So(verr.Fields, ShouldContainKey, "query")
			So(verr.Fields, ShouldContainKey, "top")
			So(verr.Fields, ShouldContainKey, "mode")
		})
	})
}

func TestIDs(t *testing.T) {
	t.Run("comma separated string", func(t *testing.T) {
		args := argsOf(request(map[string]any{"ids": "1, 2,3"}))
		assert.Equal(t, []int{1, 2, 3}, args.ids("ids"))
		assert.NoError(t, args.err())
	})

	t.Run("json array", func(t *testing.T) {
		args := argsOf(request(map[string]any{"ids": []any{float64(7), "8"}}))
		assert.Equal(t, []int{7, 8}, args.ids("ids"))
		assert.NoError(t, args.err())
	})

	t.Run("bad entries", func(t *testing.T) {
		args := argsOf(request(map[string]any{"ids": "4,x,-1"}))
		assert.Equal(t, []int{4}, args.ids("ids"))
		assert.ErrorContains(t, args.err(), `"x" is not a work item id`)
	})

	t.Run("missing", func(t *testing.T) {
		args := argsOf(request(map[string]any{}))
		assert.Empty(t, args.ids("ids"))
		assert.ErrorContains(t, args.err(), "at least one id is required")
	})
}

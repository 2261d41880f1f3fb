package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/theapemachine/mcp-wrappers/pkg/diagram"
	"github.com/theapemachine/mcp-wrappers/pkg/errors"
	"github.com/theapemachine/mcp-wrappers/pkg/format"
	"github.com/theapemachine/mcp-wrappers/pkg/miro"
	"github.com/theapemachine/mcp-wrappers/pkg/session"
)

const contentPreview = 2000

func (ts *Toolset) miroTools() []server.ServerTool {
	boardArg := mcp.WithString(
		"board_id",
		mcp.Description("Optional. The board to read. Defaults to the active board (see miro_set_board)."),
	)

	frameArgs := []mcp.ToolOption{
		boardArg,
		mcp.WithString("frame_id", mcp.Required(), mcp.Description("The id of the root frame.")),
		mcp.WithNumber(
			"limit_per_frame",
			mcp.Description(fmt.Sprintf("Maximum items fetched per frame (default %d, at most %d).", miro.DefaultLimitPerFrame, miro.MaxLimitPerFrame)),
			mcp.Min(1), mcp.Max(miro.MaxLimitPerFrame),
		),
	}

	diagramArgs := append(frameArgs,
		mcp.WithNumber(
			"max_connectors",
			mcp.Description(fmt.Sprintf("Maximum board connectors inspected (default %d, at most %d).", miro.DefaultMaxConnectors, miro.MaxConnectorsCap)),
			mcp.Min(1), mcp.Max(miro.MaxConnectorsCap),
		),
		mcp.WithBoolean("export", mcp.Description("Also store the diagram in the configured bucket.")),
	)

	return []server.ServerTool{
		{
			Tool: mcp.NewTool(
				"miro_list_boards",
				mcp.WithDescription("List the Miro boards the token can access, optionally filtered by a search query."),
				mcp.WithReadOnlyHintAnnotation(true),
				mcp.WithString("query", mcp.Description("Optional text to search board names for.")),
				mcp.WithNumber("limit", mcp.Description("Maximum boards to return (default 20, at most 50)."), mcp.Min(1), mcp.Max(50)),
			),
			Handler: ts.handleListBoards,
		},
		{
			Tool: mcp.NewTool(
				"miro_set_board",
				mcp.WithDescription("Set the active board used by Miro tools when no board_id is given."),
				mcp.WithString("board_id", mcp.Required(), mcp.Description("The board to make active.")),
			),
			Handler: ts.handleSetBoard,
		},
		{
			Tool: mcp.NewTool(
				"miro_get_board",
				mcp.WithDescription("Show the name, owner and link of a Miro board."),
				mcp.WithReadOnlyHintAnnotation(true),
				boardArg,
			),
			Handler: ts.handleGetBoard,
		},
		{
			Tool: mcp.NewTool(
				"miro_frame_contents",
				append([]mcp.ToolOption{
					mcp.WithDescription("Dump the items of a frame, and of the frames nested in it, as markdown."),
					mcp.WithReadOnlyHintAnnotation(true),
					mcp.WithBoolean("nested", mcp.Description("Include frames nested in the root frame (default true).")),
				}, frameArgs...)...,
			),
			Handler: ts.handleFrameContents,
		},
		{
			Tool: mcp.NewTool(
				"miro_frame_to_mermaid",
				append([]mcp.ToolOption{
					mcp.WithDescription("Convert a frame and the frames nested in it into a Mermaid flowchart, inferring containers, regions and stacking order."),
					mcp.WithString(
						"direction",
						mcp.Description("Flowchart direction (default LR)."),
						mcp.Enum(diagram.Directions...),
					),
				}, diagramArgs...)...,
			),
			Handler: ts.handleFrameToMermaid,
		},
		{
			Tool: mcp.NewTool(
				"miro_frame_to_erd",
				append([]mcp.ToolOption{
					mcp.WithDescription("Convert the connectors between the items of a frame into a Mermaid entity-relationship diagram."),
				}, diagramArgs...)...,
			),
			Handler: ts.handleFrameToERD,
		},
	}
}

func (ts *Toolset) miro() (MiroAPI, error) {
	if ts.Miro == nil {
		return nil, &errors.MissingCredentialError{Service: "Miro", Keys: []string{"MIRO_TOKEN", "miro.token"}}
	}

	return ts.Miro, nil
}

/*
board resolves the target board once, at the handler boundary.
*/
func (ts *Toolset) board(args *arguments) string {
	board, ok := ts.defaults().Resolve(session.MiroBoard, args.optionalString("board_id", ""))

	if !ok {
		args.fail("board_id", "no board_id given and no active board set (use miro_set_board or MIRO_BOARD_ID)")
	}

	return board
}

func (ts *Toolset) frameRequest(req mcp.CallToolRequest, withDirection bool) (miro.FrameRequest, bool, error) {
	args := argsOf(req)

	frame := miro.FrameRequest{
		BoardID:       ts.board(args),
		FrameID:       args.requiredString("frame_id"),
		LimitPerFrame: args.intBetween("limit_per_frame", miro.DefaultLimitPerFrame, 1, miro.MaxLimitPerFrame),
		MaxConnectors: args.intBetween("max_connectors", miro.DefaultMaxConnectors, 1, miro.MaxConnectorsCap),
	}

	if withDirection {
		direction := args.oneOf("direction", string(diagram.LeftRight), diagram.Directions...)
		frame.Direction = diagram.Direction(direction)
	}

	export := args.boolean("export", false)

	return frame, export, args.err()
}

func (ts *Toolset) handleListBoards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(req)
	query := args.optionalString("query", "")
	limit := args.intBetween("limit", 20, 1, miro.MaxPageSize)

	if err := args.err(); err != nil {
		return errorResult(err), nil
	}

	client, err := ts.miro()

	if err != nil {
		return errorResult(err), nil
	}

	boards, err := client.ListBoards(ctx, query, limit)

	if err != nil {
		return errorResult(err), nil
	}

	if len(boards) == 0 {
		return mcp.NewToolResultText("No boards found."), nil
	}

	active, _ := ts.defaults().Get(session.MiroBoard)
	rows := make([][]string, 0, len(boards))

	for _, board := range boards {
		name := board.Name

		if board.ID == active {
			name += " (active)"
		}

		owner := ""

		if board.Owner != nil {
			owner = board.Owner.Name
		}

		rows = append(rows, []string{name, board.ID, owner, board.ModifiedAt, board.ViewLink})
	}

	return mcp.NewToolResultText(
		format.Heading(2, "Miro boards") +
			format.Table([]string{"Name", "ID", "Owner", "Modified", "Link"}, rows),
	), nil
}

func (ts *Toolset) handleSetBoard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(req)
	boardID := args.requiredString("board_id")

	if err := args.err(); err != nil {
		return errorResult(err), nil
	}

	name := boardID

	// Verify the board when the API is reachable; an unknown id is never stored.
	if client, err := ts.miro(); err == nil {
		board, err := client.GetBoard(ctx, boardID)

		if err != nil {
			return errorResult(err), nil
		}

		name = fmt.Sprintf("%s (%s)", board.Name, boardID)
	}

	ts.defaults().Set(session.MiroBoard, boardID)

	return mcp.NewToolResultText("Active board set to " + name + "."), nil
}

func (ts *Toolset) handleGetBoard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(req)
	boardID := ts.board(args)

	if err := args.err(); err != nil {
		return errorResult(err), nil
	}

	client, err := ts.miro()

	if err != nil {
		return errorResult(err), nil
	}

	board, err := client.GetBoard(ctx, boardID)

	if err != nil {
		return errorResult(err), nil
	}

	owner := ""

	if board.Owner != nil {
		owner = board.Owner.Name
	}

	return mcp.NewToolResultText(format.Heading(2, board.Name) + format.KeyValues(
		"ID", board.ID,
		"Description", format.PlainText(board.Description),
		"Owner", owner,
		"Modified", board.ModifiedAt,
		"Link", board.ViewLink,
	)), nil
}

func (ts *Toolset) handleFrameContents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	frame, _, err := ts.frameRequest(req, false)

	if err != nil {
		return errorResult(err), nil
	}

	client, err := ts.miro()

	if err != nil {
		return errorResult(err), nil
	}

	contents, err := miro.NewExtractor(client, ts.Heuristics).Collect(ctx, frame, req.GetBool("nested", true))

	if err != nil {
		return errorResult(err), nil
	}

	return mcp.NewToolResultText(renderFrameContents(contents)), nil
}

func renderFrameContents(contents *miro.FrameContents) string {
	var b strings.Builder

	title := contents.FrameID

	if contents.Root != nil && contents.Root.Data.Title != "" {
		title = format.PlainText(contents.Root.Data.Title)
	}

	b.WriteString(format.Heading(1, "Frame "+title))
	fmt.Fprintf(&b, "Board %s, %d frame(s), %d item(s)\n\n", contents.BoardID, len(contents.Groups), len(contents.Items()))

	for i, group := range contents.Groups {
		if i > 0 {
			groupTitle := format.PlainText(group.Title)

			if groupTitle == "" {
				groupTitle = "(no title)"
			}

			b.WriteString(format.Heading(2, fmt.Sprintf("Nested frame %s: %s", group.FrameID, groupTitle)))
		}

		fmt.Fprintf(&b, "Found %d items in frame %s\n\n", len(group.Items), group.FrameID)

		for _, item := range group.Items {
			b.WriteString(format.Heading(3, fmt.Sprintf("%s `%s`", item.Type, item.ID)))

			if t := format.PlainLines(item.Data.Title); len(t) > 0 {
				b.WriteString("**Title:** " + strings.Join(t, " ") + "\n\n")
			}

			if c := format.PlainLines(item.Data.Content); len(c) > 0 {
				b.WriteString("**Content:**\n\n" + format.Truncate(strings.Join(c, "\n"), contentPreview) + "\n\n")
			}

			if d := format.PlainText(item.Data.Description); d != "" {
				b.WriteString("**Description:** " + d + "\n\n")
			}

			switch item.Type {
			case diagram.TypeImage:
				b.WriteString("**Image URL:** " + item.Data.ImageURL + "\n\n")
			case "stamp":
				b.WriteString("_(stamp, no textual content)_\n\n")
			}
		}
	}

	return b.String()
}

func (ts *Toolset) handleFrameToMermaid(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	frame, export, err := ts.frameRequest(req, true)

	if err != nil {
		return errorResult(err), nil
	}

	client, err := ts.miro()

	if err != nil {
		return errorResult(err), nil
	}

	result, err := miro.NewExtractor(client, ts.Heuristics).Flowchart(ctx, frame)

	if err != nil {
		return errorResult(err), nil
	}

	if export {
		if result.ExportedTo, err = ts.export(ctx, frame, "flowchart", result.Text); err != nil {
			return errorResult(exportFailure(err, result.Text)), nil
		}
	}

	return jsonResult(result)
}

func (ts *Toolset) handleFrameToERD(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	frame, export, err := ts.frameRequest(req, false)

	if err != nil {
		return errorResult(err), nil
	}

	client, err := ts.miro()

	if err != nil {
		return errorResult(err), nil
	}

	result, err := miro.NewExtractor(client, ts.Heuristics).ERD(ctx, frame)

	if err != nil {
		return errorResult(err), nil
	}

	if export {
		if result.ExportedTo, err = ts.export(ctx, frame, "erd", result.Text); err != nil {
			return errorResult(exportFailure(err, result.Text)), nil
		}
	}

	return jsonResult(result)
}

func (ts *Toolset) export(ctx context.Context, frame miro.FrameRequest, mode, text string) (string, error) {
	if ts.Exporter == nil {
		return "", fmt.Errorf("diagram export is not enabled (set diagrams.store.enabled)")
	}

	return ts.Exporter.Export(ctx, frame.BoardID, frame.FrameID, mode, text)
}

/*
exportFailure keeps the rendered diagram in the error result so a failed
upload does not cost the caller the extraction.
*/
func exportFailure(err error, text string) error {
	return errors.NewError(err, "The diagram was rendered but not exported:", text)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	buf, err := json.MarshalIndent(v, "", "  ")

	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to serialize result to JSON: %v", err)), nil
	}

	return mcp.NewToolResultText(string(buf)), nil
}

package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/theapemachine/mcp-wrappers/pkg/errors"
	"github.com/theapemachine/mcp-wrappers/pkg/format"
	"github.com/theapemachine/mcp-wrappers/pkg/serpapi"
)

const snippetPreview = 300

func (ts *Toolset) serpapiTools() []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool(
				"serpapi_search",
				mcp.WithDescription("Search the web through SerpAPI and return the answer box and organic results."),
				mcp.WithReadOnlyHintAnnotation(true),
				mcp.WithString("query", mcp.Required(), mcp.Description("Search query.")),
				mcp.WithNumber("num", mcp.Description("Number of organic results (default 10, at most 100)."), mcp.Min(1), mcp.Max(serpapi.MaxNum)),
				mcp.WithString("engine", mcp.Description("SerpAPI engine, google when omitted.")),
				mcp.WithString("location", mcp.Description("Optional location the search originates from.")),
			),
			Handler: ts.handleSearch,
		},
	}
}

func (ts *Toolset) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(req)

	query := serpapi.Query{
		Q:        args.requiredString("query"),
		Num:      args.intBetween("num", serpapi.DefaultNum, 1, serpapi.MaxNum),
		Engine:   args.optionalString("engine", serpapi.DefaultEngine),
		Location: args.optionalString("location", ""),
	}

	if err := args.err(); err != nil {
		return errorResult(err), nil
	}

	if ts.Search == nil {
		return errorResult(&errors.MissingCredentialError{
			Service: "SerpAPI",
			Keys:    []string{"SERPAPI_API_KEY", "serpapi.apiKey"},
		}), nil
	}

	result, err := ts.Search.Search(ctx, query)

	if err != nil {
		return errorResult(err), nil
	}

	return mcp.NewToolResultText(renderSearch(query.Q, result)), nil
}

func renderSearch(query string, result *serpapi.Result) string {
	var b strings.Builder

	b.WriteString(format.Heading(2, fmt.Sprintf("Results for %q", query)))

	if box := result.AnswerBox; box != nil {
		if text := box.Text(); text != "" {
			b.WriteString(format.Heading(3, "Answer"))
			b.WriteString(format.Truncate(text, snippetPreview))
			b.WriteString("\n")

			if box.Link != "" {
				b.WriteString("\n<" + box.Link + ">\n")
			}

			b.WriteString("\n")
		}
	}

	if len(result.OrganicResults) == 0 {
		b.WriteString("No organic results.\n")
		return b.String()
	}

	for i, r := range result.OrganicResults {
		position := r.Position

		if position == 0 {
			position = i + 1
		}

		fmt.Fprintf(&b, "%d. [%s](%s)\n", position, r.Title, r.Link)

		if snippet := format.Truncate(strings.TrimSpace(r.Snippet), snippetPreview); snippet != "" {
			fmt.Fprintf(&b, "   %s\n", snippet)
		}
	}

	return b.String()
}

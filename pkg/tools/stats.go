package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/theapemachine/mcp-wrappers/pkg/format"
)

func (ts *Toolset) statsTools() []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool(
				"wrappers_stats",
				mcp.WithDescription("Show per-tool call counts, failures and latency for this server, plus the active defaults."),
				mcp.WithString("format", mcp.Description("Output format."), mcp.Enum("text", "json")),
				mcp.WithBoolean("reset", mcp.Description("Clear the counters after reporting them.")),
			),
			Handler: ts.handleStats,
		},
	}
}

func (ts *Toolset) handleStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(req)
	output := args.oneOf("format", "text", "text", "json")
	reset := args.boolean("reset", false)

	if err := args.err(); err != nil {
		return errorResult(err), nil
	}

	if ts.Metrics == nil {
		return mcp.NewToolResultText("Metrics are not enabled."), nil
	}

	// Runs after the report below has been built.
	if reset {
		defer ts.Metrics.Reset()
	}

	defaults := ts.defaults().Snapshot()

	if output == "json" {
		return jsonResult(map[string]any{
			"totals":   ts.Metrics.GetMetrics(),
			"tools":    ts.Metrics.Snapshot(),
			"defaults": defaults,
		})
	}

	var b strings.Builder

	totals := ts.Metrics.GetMetrics()

	b.WriteString(format.Heading(2, "Tool usage"))
	b.WriteString(format.KeyValues(
		"Uptime (s)", fmt.Sprintf("%.0f", totals["uptime_seconds"]),
		"Tools used", fmt.Sprint(totals["tools_used"]),
		"Calls", fmt.Sprint(totals["total_calls"]),
		"Failures", fmt.Sprint(totals["failed_calls"]),
	))

	if stats := ts.Metrics.Snapshot(); len(stats) > 0 {
		rows := make([][]string, 0, len(stats))

		for _, s := range stats {
			rows = append(rows, []string{
				s.Tool,
				fmt.Sprint(s.Calls),
				fmt.Sprint(s.Failures),
				fmt.Sprintf("%.1f", s.AvgMillis),
				s.Last.Format("2006-01-02 15:04:05"),
			})
		}

		b.WriteString("\n")
		b.WriteString(format.Table([]string{"Tool", "Calls", "Failures", "Avg ms", "Last call"}, rows))
	}

	if len(defaults) > 0 {
		keys := make([]string, 0, len(defaults))

		for k := range defaults {
			keys = append(keys, k)
		}

		sort.Strings(keys)

		pairs := make([]string, 0, len(keys)*2)

		for _, k := range keys {
			pairs = append(pairs, k, defaults[k])
		}

		b.WriteString("\n")
		b.WriteString(format.Heading(3, "Active defaults"))
		b.WriteString(format.KeyValues(pairs...))
	}

	return mcp.NewToolResultText(b.String()), nil
}

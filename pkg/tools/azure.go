package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/theapemachine/mcp-wrappers/pkg/azure"
	"github.com/theapemachine/mcp-wrappers/pkg/errors"
	"github.com/theapemachine/mcp-wrappers/pkg/format"
	"github.com/theapemachine/mcp-wrappers/pkg/session"
)

var projectArg = mcp.WithString(
	"project",
	mcp.Description("Azure DevOps project. Defaults to AZURE_DEVOPS_PROJECT."),
)

func (ts *Toolset) azureTools() []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool(
				"ado_list_projects",
				mcp.WithDescription("List the projects of the configured Azure DevOps organization."),
				mcp.WithReadOnlyHintAnnotation(true),
				mcp.WithNumber("top", mcp.Description("Maximum number of projects (default 100)."), mcp.Min(1), mcp.Max(1000)),
			),
			Handler: ts.handleListProjects,
		},
		{
			Tool: mcp.NewTool(
				"ado_execute_wiql",
				mcp.WithDescription("Run a WIQL query and return the matching work items."),
				mcp.WithReadOnlyHintAnnotation(true),
				mcp.WithString("query", mcp.Required(), mcp.Description("WIQL query text.")),
				projectArg,
				mcp.WithNumber("top", mcp.Description("Maximum number of work items (default 200, at most 1000)."), mcp.Min(1), mcp.Max(azure.MaxWiqlTop)),
			),
			Handler: ts.handleExecuteWiql,
		},
		{
			Tool: mcp.NewTool(
				"ado_get_work_items",
				mcp.WithDescription("Fetch work items by id."),
				mcp.WithReadOnlyHintAnnotation(true),
				mcp.WithString("ids", mcp.Required(), mcp.Description("Comma separated work item ids.")),
				projectArg,
			),
			Handler: ts.handleGetWorkItems,
		},
		{
			Tool: mcp.NewTool(
				"ado_work_item_comments",
				mcp.WithDescription("List the discussion comments of a work item, oldest first."),
				mcp.WithReadOnlyHintAnnotation(true),
				mcp.WithNumber("work_item_id", mcp.Required(), mcp.Description("Work item id."), mcp.Min(1)),
				projectArg,
				mcp.WithNumber("top", mcp.Description("Maximum number of comments (default 50, at most 200)."), mcp.Min(1), mcp.Max(200)),
			),
			Handler: ts.handleWorkItemComments,
		},
		{
			Tool: mcp.NewTool(
				"ado_sprint_overview",
				mcp.WithDescription("Summarize a sprint: the current one, or the iteration named by sprint_identifier."),
				mcp.WithReadOnlyHintAnnotation(true),
				mcp.WithString("sprint_identifier", mcp.Description("Iteration id, name or path. Current sprint when omitted.")),
				mcp.WithString("team", mcp.Description("Team name. Defaults to AZURE_DEVOPS_TEAM.")),
				projectArg,
				mcp.WithString("format", mcp.Description("Output format."), mcp.Enum("text", "json")),
			),
			Handler: ts.handleSprintOverview,
		},
	}
}

func (ts *Toolset) azure() (AzureAPI, error) {
	if ts.Azure == nil {
		return nil, &errors.MissingCredentialError{
			Service: "Azure DevOps",
			Keys:    []string{"AZURE_DEVOPS_ORG", "AZDO_PAT"},
		}
	}

	return ts.Azure, nil
}

/*
project falls back to the instance default; an empty result lets the service
use its configured project.
*/
func (ts *Toolset) project(args *arguments) string {
	project, _ := ts.defaults().Resolve(session.AzureProj, args.optionalString("project", ""))
	return project
}

func (ts *Toolset) handleListProjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(req)
	top := args.intBetween("top", 100, 1, 1000)

	if err := args.err(); err != nil {
		return errorResult(err), nil
	}

	client, err := ts.azure()

	if err != nil {
		return errorResult(err), nil
	}

	projects, err := client.Projects(ctx, top)

	if err != nil {
		return errorResult(err), nil
	}

	if len(projects) == 0 {
		return mcp.NewToolResultText("No projects found."), nil
	}

	rows := make([][]string, 0, len(projects))

	for _, p := range projects {
		rows = append(rows, []string{p.Name, p.State, format.Truncate(p.Description, 120), p.ID})
	}

	return mcp.NewToolResultText(
		format.Heading(2, fmt.Sprintf("%d project(s)", len(projects))) +
			format.Table([]string{"Name", "State", "Description", "ID"}, rows),
	), nil
}

func (ts *Toolset) handleExecuteWiql(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(req)
	query := args.requiredString("query")
	top := args.intBetween("top", azure.DefaultWiqlTop, 1, azure.MaxWiqlTop)
	project := ts.project(args)

	if err := args.err(); err != nil {
		return errorResult(err), nil
	}

	client, err := ts.azure()

	if err != nil {
		return errorResult(err), nil
	}

	items, err := client.ExecuteWiql(ctx, project, query, top)

	if err != nil {
		return errorResult(err), nil
	}

	if len(items) == 0 {
		return mcp.NewToolResultText("The query returned no work items."), nil
	}

	return mcp.NewToolResultText(
		format.Heading(2, fmt.Sprintf("%d work item(s)", len(items))) + workItemTable(items),
	), nil
}

func (ts *Toolset) handleGetWorkItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(req)
	ids := args.ids("ids")
	project := ts.project(args)

	if err := args.err(); err != nil {
		return errorResult(err), nil
	}

	client, err := ts.azure()

	if err != nil {
		return errorResult(err), nil
	}

	items, err := client.WorkItems(ctx, project, ids)

	if err != nil {
		return errorResult(err), nil
	}

	var b strings.Builder

	for _, item := range items {
		fmt.Fprintf(&b, "## #%d %s\n\n", item.ID, item.Title)
		b.WriteString(format.KeyValues(
			"Type", item.Type,
			"State", item.State,
			"Assigned to", item.AssignedTo,
			"Iteration", item.IterationPath,
			"Link", item.URL,
		))

		if description := format.PlainText(azure.FieldString(item.Fields, "System.Description")); description != "" {
			b.WriteString("\n" + format.Truncate(description, contentPreview) + "\n")
		}

		b.WriteString("\n")
	}

	if b.Len() == 0 {
		return mcp.NewToolResultText("No work items found."), nil
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (ts *Toolset) handleWorkItemComments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(req)
	id := args.intBetween("work_item_id", 0, 1, 1<<31-1)
	top := args.intBetween("top", 50, 1, 200)
	project := ts.project(args)

	if !args.has("work_item_id") {
		args.fail("work_item_id", "is required")
	}

	if err := args.err(); err != nil {
		return errorResult(err), nil
	}

	client, err := ts.azure()

	if err != nil {
		return errorResult(err), nil
	}

	comments, err := client.Comments(ctx, project, id, top)

	if err != nil {
		return errorResult(err), nil
	}

	if len(comments) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("Work item #%d has no comments.", id)), nil
	}

	var b strings.Builder

	b.WriteString(format.Heading(2, fmt.Sprintf("Comments on #%d", id)))

	for _, c := range comments {
		fmt.Fprintf(&b, "**%s** (%s)\n\n%s\n\n", orPlaceholder(c.Author, "unknown"), c.Created, c.Text)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (ts *Toolset) handleSprintOverview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(req)
	identifier := args.optionalString("sprint_identifier", "")
	output := args.oneOf("format", "text", "text", "json")
	project := ts.project(args)
	team, _ := ts.defaults().Resolve(session.AzureTeam, args.optionalString("team", ""))

	if err := args.err(); err != nil {
		return errorResult(err), nil
	}

	client, err := ts.azure()

	if err != nil {
		return errorResult(err), nil
	}

	overview, err := client.SprintOverview(ctx, project, team, identifier)

	if err != nil {
		return errorResult(err), nil
	}

	if output == "json" {
		return jsonResult(overview)
	}

	return mcp.NewToolResultText(renderSprint(overview)), nil
}

func renderSprint(overview *azure.SprintOverview) string {
	var b strings.Builder

	sprint := overview.Sprint

	b.WriteString(format.Heading(2, "Sprint "+sprint.Name))
	b.WriteString(format.KeyValues(
		"Path", sprint.IterationPath,
		"Start", sprint.StartDate,
		"End", sprint.EndDate,
		"Time frame", sprint.TimeFrame,
		"Work items", fmt.Sprint(overview.Total),
	))
	b.WriteString("\n")

	b.WriteString(format.Heading(3, "By state"))
	b.WriteString(format.Table([]string{"State", "Count"}, countRows(overview.ByState)))
	b.WriteString("\n")

	b.WriteString(format.Heading(3, "By type"))
	b.WriteString(format.Table([]string{"Type", "Count"}, countRows(overview.ByType)))

	if len(overview.Items) > 0 {
		b.WriteString("\n")
		b.WriteString(format.Heading(3, "Items"))
		b.WriteString(workItemTable(overview.Items))
	}

	return b.String()
}

// countRows orders by count, then name.
func countRows(counts map[string]int) [][]string {
	keys := make([]string, 0, len(counts))

	for k := range counts {
		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}

		return keys[i] < keys[j]
	})

	rows := make([][]string, 0, len(keys))

	for _, k := range keys {
		rows = append(rows, []string{k, fmt.Sprint(counts[k])})
	}

	return rows
}

func workItemTable(items []azure.WorkItem) string {
	rows := make([][]string, 0, len(items))

	for _, item := range items {
		rows = append(rows, []string{
			fmt.Sprint(item.ID), item.Type, item.State, item.Title, item.AssignedTo,
		})
	}

	return format.Table([]string{"ID", "Type", "State", "Title", "Assigned to"}, rows)
}

package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/theapemachine/mcp-wrappers/pkg/errors"
	"github.com/theapemachine/mcp-wrappers/pkg/format"
	"github.com/theapemachine/mcp-wrappers/pkg/graph"
	"github.com/theapemachine/mcp-wrappers/pkg/session"
)

const graphPreview = 200

func (ts *Toolset) graphTools() []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool(
				"graph_me",
				mcp.WithDescription("Show the profile of the signed-in Microsoft 365 user."),
				mcp.WithReadOnlyHintAnnotation(true),
			),
			Handler: ts.handleMe,
		},
		{
			Tool: mcp.NewTool(
				"graph_list_messages",
				mcp.WithDescription("List the newest mail messages of the signed-in user."),
				mcp.WithReadOnlyHintAnnotation(true),
				mcp.WithNumber("top", mcp.Description("Number of messages (default 10, at most 100)."), mcp.Min(1), mcp.Max(100)),
				mcp.WithString("folder", mcp.Description("Optional mail folder id or well-known name such as inbox or sentitems.")),
				mcp.WithBoolean("unread_only", mcp.Description("Only list unread messages.")),
			),
			Handler: ts.handleListMessages,
		},
		{
			Tool: mcp.NewTool(
				"graph_list_events",
				mcp.WithDescription("List calendar events of the signed-in user, recurring meetings expanded."),
				mcp.WithReadOnlyHintAnnotation(true),
				mcp.WithNumber("days", mcp.Description("How many days ahead to look (default 7, at most 90)."), mcp.Min(1), mcp.Max(90)),
				mcp.WithNumber("top", mcp.Description("Number of events (default 25, at most 100)."), mcp.Min(1), mcp.Max(100)),
			),
			Handler: ts.handleListEvents,
		},
		{
			Tool: mcp.NewTool(
				"graph_search_files",
				mcp.WithDescription("Search the signed-in user's OneDrive for files."),
				mcp.WithReadOnlyHintAnnotation(true),
				mcp.WithString("query", mcp.Required(), mcp.Description("Search text.")),
				mcp.WithNumber("top", mcp.Description("Number of results (default 10, at most 50)."), mcp.Min(1), mcp.Max(50)),
			),
			Handler: ts.handleSearchFiles,
		},
		{
			Tool: mcp.NewTool(
				"graph_auth_status",
				mcp.WithDescription("Report whether a Microsoft Graph token is cached, for whom, and when it expires."),
				mcp.WithReadOnlyHintAnnotation(true),
			),
			Handler: ts.handleGraphAuthStatus,
		},
	}
}

func (ts *Toolset) graph() (GraphAPI, error) {
	if ts.Graph == nil {
		return nil, &errors.MissingCredentialError{
			Service: "Microsoft Graph",
			Keys:    []string{"GRAPH_CLIENT_ID", "graph.clientID"},
		}
	}

	return ts.Graph, nil
}

func (ts *Toolset) handleMe(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	client, err := ts.graph()

	if err != nil {
		return errorResult(err), nil
	}

	user, err := client.Me(ctx)

	if err != nil {
		return errorResult(err), nil
	}

	return mcp.NewToolResultText(format.Heading(2, user.DisplayName) + format.KeyValues(
		"Mail", user.Mail,
		"User principal name", user.UserPrincipalName,
		"Job title", user.JobTitle,
		"Office", user.OfficeLocation,
		"ID", user.ID,
	)), nil
}

func (ts *Toolset) handleListMessages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(req)

	folder, _ := ts.defaults().Resolve(session.GraphFolder, args.optionalString("folder", ""))

	query := graph.MessageQuery{
		Top:        args.intBetween("top", 10, 1, 100),
		Folder:     folder,
		UnreadOnly: args.boolean("unread_only", false),
	}

	if err := args.err(); err != nil {
		return errorResult(err), nil
	}

	client, err := ts.graph()

	if err != nil {
		return errorResult(err), nil
	}

	messages, err := client.ListMessages(ctx, query)

	if err != nil {
		return errorResult(err), nil
	}

	if len(messages) == 0 {
		return mcp.NewToolResultText("No messages found."), nil
	}

	var b strings.Builder

	b.WriteString(format.Heading(2, fmt.Sprintf("%d message(s)", len(messages))))

	for _, m := range messages {
		marker := ""

		if !m.IsRead {
			marker = " (unread)"
		}

		fmt.Fprintf(&b, "### %s%s\n\n", orPlaceholder(m.Subject, "(no subject)"), marker)
		b.WriteString(format.KeyValues(
			"From", m.From.String(),
			"Received", m.ReceivedDateTime,
			"Preview", format.Truncate(format.PlainText(m.BodyPreview), graphPreview),
			"Link", m.WebLink,
		))
		b.WriteString("\n")
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (ts *Toolset) handleListEvents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(req)
	days := args.intBetween("days", 7, 1, 90)
	top := args.intBetween("top", 25, 1, 100)

	if err := args.err(); err != nil {
		return errorResult(err), nil
	}

	client, err := ts.graph()

	if err != nil {
		return errorResult(err), nil
	}

	start := ts.now()
	events, err := client.ListEvents(ctx, start, start.Add(time.Duration(days)*24*time.Hour), top)

	if err != nil {
		return errorResult(err), nil
	}

	if len(events) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No events in the next %d day(s).", days)), nil
	}

	rows := make([][]string, 0, len(events))

	for _, e := range events {
		when := e.Start.DateTime

		if e.IsAllDay && len(when) >= 10 {
			when = when[:10] + " (all day)"
		}

		rows = append(rows, []string{when, e.End.DateTime, e.Subject, e.Location.DisplayName, e.Organizer.String()})
	}

	return mcp.NewToolResultText(
		format.Heading(2, fmt.Sprintf("Events in the next %d day(s)", days)) +
			format.Table([]string{"Start", "End", "Subject", "Location", "Organizer"}, rows),
	), nil
}

func (ts *Toolset) handleSearchFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(req)
	query := args.requiredString("query")
	top := args.intBetween("top", 10, 1, 50)

	if err := args.err(); err != nil {
		return errorResult(err), nil
	}

	client, err := ts.graph()

	if err != nil {
		return errorResult(err), nil
	}

	files, err := client.SearchFiles(ctx, query, top)

	if err != nil {
		return errorResult(err), nil
	}

	if len(files) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No files matching %q.", query)), nil
	}

	rows := make([][]string, 0, len(files))

	for _, f := range files {
		kind := "file"

		if f.Folder != nil {
			kind = "folder"
		} else if f.File != nil && f.File.MimeType != "" {
			kind = f.File.MimeType
		}

		rows = append(rows, []string{f.Name, kind, fmt.Sprint(f.Size), f.LastModifiedDateTime, f.WebURL})
	}

	return mcp.NewToolResultText(
		format.Heading(2, fmt.Sprintf("Files matching %q", query)) +
			format.Table([]string{"Name", "Type", "Size", "Modified", "Link"}, rows),
	), nil
}

func (ts *Toolset) handleGraphAuthStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if ts.GraphAuth == nil {
		return errorResult(&errors.MissingCredentialError{
			Service: "Microsoft Graph",
			Keys:    []string{"GRAPH_CLIENT_ID", "graph.clientID"},
		}), nil
	}

	status, err := ts.GraphAuth.Status()

	if err != nil {
		return errorResult(err), nil
	}

	if !status.SignedIn {
		return mcp.NewToolResultText(
			"Not signed in to Microsoft Graph. Run `mcp-wrappers auth graph` to sign in.",
		), nil
	}

	pairs := []string{
		"Token file", status.TokenFile,
		"Expires", status.Expiry.Format(time.RFC3339),
		"Expired", fmt.Sprint(status.Expired),
		"Refreshable", fmt.Sprint(status.Refreshable),
	}

	if status.Claims != nil {
		pairs = append(pairs,
			"User", status.Claims.User,
			"Name", status.Claims.Name,
			"Tenant", status.Claims.TenantID,
			"Scopes", strings.Join(status.Claims.Scopes, " "),
		)
	}

	return mcp.NewToolResultText(format.Heading(2, "Microsoft Graph sign-in") + format.KeyValues(pairs...)), nil
}

func orPlaceholder(s, placeholder string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}

	return s
}

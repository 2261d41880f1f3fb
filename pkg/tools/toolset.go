package tools

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/theapemachine/mcp-wrappers/pkg/azure"
	"github.com/theapemachine/mcp-wrappers/pkg/diagram"
	"github.com/theapemachine/mcp-wrappers/pkg/graph"
	"github.com/theapemachine/mcp-wrappers/pkg/metrics"
	"github.com/theapemachine/mcp-wrappers/pkg/miro"
	"github.com/theapemachine/mcp-wrappers/pkg/registry"
	"github.com/theapemachine/mcp-wrappers/pkg/serpapi"
	"github.com/theapemachine/mcp-wrappers/pkg/session"
)

// Tool groups, as named in tools.enabled.
const (
	GroupMiro    = "miro"
	GroupGraph   = "graph"
	GroupSerpAPI = "serpapi"
	GroupAzure   = "azure"
	GroupStats   = "stats"
)

// MiroAPI is the part of the Miro client the tools call.
type MiroAPI interface {
	miro.Source
	ListBoards(ctx context.Context, query string, limit int) ([]miro.Board, error)
	GetBoard(ctx context.Context, boardID string) (miro.Board, error)
}

type GraphAPI interface {
	Me(ctx context.Context) (graph.User, error)
	ListMessages(ctx context.Context, q graph.MessageQuery) ([]graph.Message, error)
	ListEvents(ctx context.Context, start, end time.Time, top int) ([]graph.Event, error)
	SearchFiles(ctx context.Context, query string, top int) ([]graph.DriveItem, error)
}

type GraphStatus interface {
	Status() (graph.Status, error)
}

type SearchAPI interface {
	Search(ctx context.Context, q serpapi.Query) (*serpapi.Result, error)
}

type AzureAPI interface {
	Config() azure.AzureDevOpsConfig
	Projects(ctx context.Context, top int) ([]azure.Project, error)
	ExecuteWiql(ctx context.Context, project, query string, top int) ([]azure.WorkItem, error)
	WorkItems(ctx context.Context, project string, ids []int) ([]azure.WorkItem, error)
	Comments(ctx context.Context, project string, id, top int) ([]azure.Comment, error)
	SprintOverview(ctx context.Context, project, team, identifier string) (*azure.SprintOverview, error)
}

// Exporter stores rendered diagrams; nil disables export.
type Exporter interface {
	Export(ctx context.Context, boardID, frameID, mode, text string) (string, error)
}

/*
Toolset carries the collaborators of one server instance. A nil collaborator
leaves its tools registered; calling them reports the missing configuration.
*/
type Toolset struct {
	Defaults   *session.Defaults
	Miro       MiroAPI
	Heuristics diagram.Heuristics
	Graph      GraphAPI
	GraphAuth  GraphStatus
	Search     SearchAPI
	Azure      AzureAPI
	Exporter   Exporter
	Metrics    *metrics.ToolMetrics
	Now        func() time.Time
}

func (ts *Toolset) now() time.Time {
	if ts.Now != nil {
		return ts.Now()
	}

	return time.Now()
}

func (ts *Toolset) defaults() *session.Defaults {
	if ts.Defaults == nil {
		ts.Defaults = session.NewDefaults(nil)
	}

	return ts.Defaults
}

/*
Definitions returns every tool, each handler wrapped by Instrument.
*/
func (ts *Toolset) Definitions() []registry.ToolDefinition {
	var defs []registry.ToolDefinition

	add := func(group string, tools ...server.ServerTool) {
		for _, tool := range tools {
			defs = append(defs, registry.ToolDefinition{
				Group:   group,
				Tool:    tool.Tool,
				Handler: Instrument(tool.Tool.Name, tool.Handler, ts.Metrics),
			})
		}
	}

	add(GroupMiro, ts.miroTools()...)
	add(GroupGraph, ts.graphTools()...)
	add(GroupSerpAPI, ts.serpapiTools()...)
	add(GroupAzure, ts.azureTools()...)
	add(GroupStats, ts.statsTools()...)

	return defs
}

// Register adds every tool of the set to reg.
func (ts *Toolset) Register(reg *registry.Registry) error {
	return reg.Register(ts.Definitions()...)
}

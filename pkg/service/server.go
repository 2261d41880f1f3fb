package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/server"
	"github.com/theapemachine/mcp-wrappers/pkg/azure"
	"github.com/theapemachine/mcp-wrappers/pkg/graph"
	"github.com/theapemachine/mcp-wrappers/pkg/metrics"
	"github.com/theapemachine/mcp-wrappers/pkg/miro"
	"github.com/theapemachine/mcp-wrappers/pkg/registry"
	"github.com/theapemachine/mcp-wrappers/pkg/serpapi"
	"github.com/theapemachine/mcp-wrappers/pkg/service/sse"
	"github.com/theapemachine/mcp-wrappers/pkg/session"
	"github.com/theapemachine/mcp-wrappers/pkg/stores/s3"
	"github.com/theapemachine/mcp-wrappers/pkg/tools"
)

const instructions = `Tools wrapping Miro, Microsoft Graph, SerpAPI and Azure DevOps.
Miro tools act on the active board unless board_id is given; set it with miro_set_board.`

/*
NewToolset builds the collaborators for one server instance from cfg. A
service without credentials is left nil, so its tools explain what to set.
*/
func NewToolset(ctx context.Context, cfg Config) (*tools.Toolset, error) {
	ts := &tools.Toolset{
		Defaults: session.NewDefaults(map[string]string{
			session.MiroBoard: cfg.Miro.Board,
			session.AzureProj: cfg.Azure.Project,
			session.AzureTeam: cfg.Azure.Team,
		}),
		Heuristics: cfg.Heuristics,
		Metrics:    metrics.NewToolMetrics(),
	}

	if cfg.Miro.Token != "" {
		ts.Miro = miro.NewClient(cfg.Miro.BaseURL, cfg.Miro.Token, miro.WithRateLimit(cfg.Miro.RateLimit))
	}

	authenticator := graph.NewAuthenticator(cfg.Graph.Config)
	ts.GraphAuth = authenticator

	if cfg.Graph.ClientID != "" {
		ts.Graph = graph.NewClient(cfg.Graph.BaseURL, authenticator.LazySource(ctx))
	}

	if cfg.SerpAPI.APIKey != "" {
		ts.Search = serpapi.NewClient(cfg.SerpAPI.BaseURL, cfg.SerpAPI.APIKey)
	}

	if cfg.Azure.Organization != "" || cfg.Azure.OrganizationURL != "" {
		ts.Azure = azure.NewService(cfg.Azure)
	}

	store, err := s3.Open(ctx, cfg.Store)

	if err != nil {
		return nil, fmt.Errorf("failed to open diagram store: %w", err)
	}

	// A nil *Store must not end up inside the interface.
	if store != nil {
		ts.Exporter = store
	}

	return ts, nil
}

/*
Server is one MCP server instance: its tools, their metrics and the transport
it is served over.
*/
type Server struct {
	cfg      Config
	mcp      *server.MCPServer
	registry *registry.Registry
	toolset  *tools.Toolset
	events   *sse.Broker
}

/*
NewServer registers every tool of ts in a registry and adds the enabled groups
to a fresh MCP server.
*/
func NewServer(cfg Config, ts *tools.Toolset) (*Server, error) {
	if ts.Metrics == nil {
		ts.Metrics = metrics.NewToolMetrics()
	}

	if ts.Defaults == nil {
		ts.Defaults = session.NewDefaults(nil)
	}

	reg := registry.New()

	if err := ts.Register(reg); err != nil {
		return nil, err
	}

	srv := &Server{
		cfg:      cfg,
		registry: reg,
		toolset:  ts,
		events:   sse.NewBroker(0),
		mcp: server.NewMCPServer(
			cfg.Name,
			cfg.Version,
			server.WithToolCapabilities(true),
			server.WithLogging(),
			server.WithRecovery(),
			server.WithInstructions(instructions),
		),
	}

	enabled := reg.Enabled(cfg.Tools)

	for _, def := range enabled {
		srv.mcp.AddTool(def.Tool, def.Handler)
	}

	ts.Metrics.Observe(func(event metrics.CallEvent) {
		_ = srv.events.Broadcast("call", event)
	})

	log.Info("tools registered", "enabled", len(enabled), "available", len(reg.List()))

	return srv, nil
}

func (srv *Server) MCP() *server.MCPServer {
	return srv.mcp
}

func (srv *Server) Registry() *registry.Registry {
	return srv.registry
}

func (srv *Server) Metrics() *metrics.ToolMetrics {
	return srv.toolset.Metrics
}

/*
Serve runs the configured transport until it fails or ctx ends.
*/
func (srv *Server) Serve(ctx context.Context) error {
	defer srv.events.Close()

	switch srv.cfg.Transport {
	case TransportStdio:
		log.Info("serving MCP over stdio")
		return server.ServeStdio(srv.mcp)
	case TransportSSE:
		transport := sse.NewTransport(srv.mcp, srv.cfg.Address, srv.cfg.BaseURL)
		return srv.run(ctx, transport.Start, transport.Shutdown)
	case TransportHTTP:
		app := srv.App()

		return srv.run(ctx, func() error {
			log.Info("serving MCP over streamable HTTP", "address", srv.cfg.Address)
			return app.Listen(srv.cfg.Address, fiberListenConfig)
		}, func(stop context.Context) error {
			// Open event streams hold their connections until the broker closes.
			srv.events.Close()
			return app.ShutdownWithContext(stop)
		})
	}

	return fmt.Errorf("unknown transport %q", srv.cfg.Transport)
}

func (srv *Server) run(ctx context.Context, start func() error, shutdown func(context.Context) error) error {
	errs := make(chan error, 1)

	go func() {
		errs <- start()
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	case <-ctx.Done():
		log.Info("shutting down", "transport", srv.cfg.Transport)

		stop, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return shutdown(stop)
	}
}

package service

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/mark3labs/mcp-go/server"
)

var fiberListenConfig = fiber.ListenConfig{DisableStartupMessage: true}

/*
App builds the HTTP transport: streamable MCP at /mcp, the metrics snapshot at
/stats, a live stream of tool calls at /events, and liveness and readiness
probes.
*/
func (srv *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:           srv.cfg.Name,
		ServerHeader:      "MCP-Wrappers",
		StreamRequestBody: true,
	})

	app.Use(logger.New(logger.Config{
		// The event stream would log once per connection close.
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/events"
		},
	}))

	app.Get("/livez", healthcheck.New())
	app.Get("/readyz", healthcheck.New())

	app.Get("/stats", srv.handleStats)
	app.Get("/events", srv.events.Stream)

	mcpHandler := adaptor.HTTPHandler(server.NewStreamableHTTPServer(srv.mcp))

	app.Post("/mcp", mcpHandler)
	app.Delete("/mcp", mcpHandler)
	app.Get("/mcp", handleMCPListen)

	return app
}

func (srv *Server) handleStats(ctx fiber.Ctx) error {
	return ctx.JSON(fiber.Map{
		"totals":   srv.Metrics().GetMetrics(),
		"tools":    srv.Metrics().Snapshot(),
		"defaults": srv.toolset.Defaults.Snapshot(),
	})
}

/*
handleMCPListen declines the standalone server-to-client stream. The adaptor
buffers whole responses, and no tool sends unsolicited notifications, so
clients fall back to per-request responses on 405.
*/
func handleMCPListen(ctx fiber.Ctx) error {
	ctx.Set(fiber.HeaderAllow, "POST, DELETE")
	return ctx.SendStatus(fiber.StatusMethodNotAllowed)
}

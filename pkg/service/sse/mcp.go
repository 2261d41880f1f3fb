package sse

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/server"
)

/*
Transport serves an MCP server over the SSE transport: clients open a stream
at /sse and post requests to /message.
*/
type Transport struct {
	addr string
	sse  *server.SSEServer
}

/*
NewTransport binds srv to addr. The base URL clients are told to post to is
derived from addr when baseURL is empty.
*/
func NewTransport(srv *server.MCPServer, addr, baseURL string) *Transport {
	if baseURL == "" {
		host := addr

		if strings.HasPrefix(host, ":") {
			host = "localhost" + host
		}

		baseURL = "http://" + strings.Replace(host, "0.0.0.0", "localhost", 1)
	}

	return &Transport{
		addr: addr,
		sse:  server.NewSSEServer(srv, server.WithBaseURL(baseURL)),
	}
}

// Start blocks until the listener fails or Shutdown is called.
func (transport *Transport) Start() error {
	log.Info("serving MCP over SSE", "address", transport.addr)
	return transport.sse.Start(transport.addr)
}

func (transport *Transport) Shutdown(ctx context.Context) error {
	return transport.sse.Shutdown(ctx)
}

package tools

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/theapemachine/mcp-wrappers/pkg/metrics"
)

type requestIDKey struct{}

// RequestID returns the id Instrument assigned to the current call.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

/*
Instrument wraps a handler with a request id, start and finish logging, and
per-tool call metrics. A result flagged as an error counts as a failure.
*/
func Instrument(name string, handler server.ToolHandlerFunc, m *metrics.ToolMetrics) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var (
			id     = uuid.NewString()
			start  = time.Now()
			logger = log.With("tool", name, "request", id)
		)

		logger.Debug("tool call started")

		result, err := handler(context.WithValue(ctx, requestIDKey{}, id), req)

		elapsed := time.Since(start)
		failed := err != nil || (result != nil && result.IsError)

		if m != nil {
			m.RecordCall(name, failed, elapsed)
		}

		switch {
		case err != nil:
			logger.Error("tool call failed", "duration", elapsed, "error", err)
		case failed:
			logger.Warn("tool call returned an error", "duration", elapsed, "message", resultText(result))
		default:
			logger.Info("tool call finished", "duration", elapsed)
		}

		return result, err
	}
}

// errorResult turns an error into a tool-level failure the client can read.
func errorResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(err.Error())
}

func resultText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}

	if text, ok := mcp.AsTextContent(result.Content[0]); ok {
		return text.Text
	}

	return ""
}

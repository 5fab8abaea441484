package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/oscaptool/pkg/schema"
)

// ProgressNotifier forwards run events to the MCP client that started the
// run as notifications/message log entries. Best-effort: events of runs
// without an MCP session are dropped.
type ProgressNotifier struct {
	logger *slog.Logger
}

// NewProgressNotifier creates a ProgressNotifier.
func NewProgressNotifier(logger *slog.Logger) *ProgressNotifier {
	return &ProgressNotifier{logger: logger}
}

// OnEvent implements engine.Observer.
func (n *ProgressNotifier) OnEvent(ctx context.Context, ev schema.Event) {
	srv := server.ServerFromContext(ctx)
	if srv == nil {
		return
	}
	err := srv.SendNotificationToClient(ctx, "notifications/message", map[string]any{
		"level":  notificationLevel(ev),
		"logger": "oscaptool",
		"data":   ev,
	})
	if err != nil {
		n.logger.Debug("progress notification dropped", "event", ev.Type, "error", err)
	}
}

func notificationLevel(ev schema.Event) string {
	switch ev.Type {
	case schema.EventWorkflowFailed, schema.EventActionFailed:
		return "error"
	default:
		return "info"
	}
}

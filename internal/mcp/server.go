// Package mcp exposes the workout engine and training history to MCP
// clients as tools and resources.
package mcp

import (
	"log/slog"

	"github.com/claude/liftlog/internal/counter"
	"github.com/claude/liftlog/internal/session"
	"github.com/claude/liftlog/internal/storage"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(engine *session.Engine, counters *counter.Engine, store storage.Store, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("LiftLog", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("LiftLog workout tracking server. Inspect the active workout session, finished-workout history, exercise personal bests, and daily counters."),
	)

	h := &handlers{engine: engine, counters: counters, store: store, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolGetActiveSession, Handler: h.getActiveSession},
		server.ServerTool{Tool: toolGetWorkoutHistory, Handler: h.getWorkoutHistory},
		server.ServerTool{Tool: toolGetWorkoutDetail, Handler: h.getWorkoutDetail},
		server.ServerTool{Tool: toolGetExerciseBest, Handler: h.getExerciseBest},
		server.ServerTool{Tool: toolGetCounters, Handler: h.getCounters},
	)

	s.AddResources(
		server.ServerResource{Resource: resActiveSession, Handler: h.activeSession},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	engine   *session.Engine
	counters *counter.Engine
	store    storage.Store
	log      *slog.Logger
}

var resActiveSession = mcp.NewResource(
	"liftlog://active_session",
	"Active Workout Session",
	mcp.WithResourceDescription("The in-progress workout: exercises, sets, completion state, and progress counters"),
	mcp.WithMIMEType("application/json"),
)

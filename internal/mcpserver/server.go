// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Folio tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/folio/internal/api"
	"github.com/starford/folio/internal/journal"
	"github.com/starford/folio/internal/projection"
)

const syntaxURI = "folio://capture-syntax"

// Server wraps the MCP server with Folio tools.
type Server struct {
	mcp    *server.MCPServer
	svc    *journal.Service
	views  *projection.Set
	search api.Searcher
}

// New creates a new MCP server with all Folio tools registered. search may be
// nil, in which case search_entries reports an error.
func New(svc *journal.Service, search api.Searcher) *Server {
	s := &Server{svc: svc, views: svc.Views(), search: search}

	s.mcp = server.NewMCPServer(
		"Folio",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_collections",
		mcp.WithDescription("List collections in display order."),
		mcp.WithString("view",
			mcp.Description("Which collections to list (default active)."),
			mcp.Enum("active", "favorites", "deleted"),
		),
	), s.listCollections)

	s.mcp.AddTool(mcp.NewTool("list_entries",
		mcp.WithDescription("List the entries of a collection in display order."),
		mcp.WithString("collection_id", mcp.Description("Collection id; omit for uncategorized entries")),
		mcp.WithBoolean("ghosts", mcp.Description("Also show entries that were migrated away")),
	), s.listEntries)

	s.mcp.AddTool(mcp.NewTool("capture",
		mcp.WithDescription("Create entries from rapid-log text. "+
			"Text MUST follow the capture syntax; read it first via the "+
			"get_capture_syntax tool or the "+syntaxURI+" resource."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Rapid-log lines, one entry per line")),
		mcp.WithString("collection_id", mcp.Description("Target collection; overrides a collection named in the text")),
	), s.capture)

	s.mcp.AddTool(mcp.NewTool("get_capture_syntax",
		mcp.WithDescription("Returns the rapid-log capture syntax. "+
			"Call this before using the capture tool."),
	), s.getCaptureSyntax)

	s.mcp.AddTool(mcp.NewTool("complete_task",
		mcp.WithDescription("Mark a task as completed. A task with open sub-tasks is refused "+
			"unless cascade is set, which completes the sub-tasks in the same step."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Task id")),
		mcp.WithBoolean("cascade", mcp.Description("Also complete the open sub-tasks")),
	), s.completeTask)

	s.mcp.AddTool(mcp.NewTool("migrate_entry",
		mcp.WithDescription("Move an entry to another collection, leaving a ghost behind, "+
			"or additionally show it there."),
		mcp.WithString("entry_id", mcp.Required(), mcp.Description("Entry id")),
		mcp.WithString("target_collection_id", mcp.Description("Target collection; omit for uncategorized")),
		mcp.WithString("mode",
			mcp.Description("move (default) or add"),
			mcp.Enum(string(journal.MigrateMove), string(journal.MigrateAdd)),
		),
	), s.migrateEntry)

	s.mcp.AddTool(mcp.NewTool("search_entries",
		mcp.WithDescription("Full-text search through task titles and note and event contents."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Max results (default 20)")),
	), s.searchEntries)

	// Resource: capture syntax.
	s.mcp.AddResource(
		mcp.NewResource(syntaxURI, "Capture Syntax",
			mcp.WithResourceDescription("Rapid-log line syntax accepted by the capture tool."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSyntaxResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func toJSONResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listCollections(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	switch view := req.GetString("view", "active"); view {
	case "active":
		return toJSONResult(s.views.Collections.Active())
	case "favorites":
		return toJSONResult(s.views.Collections.Favorites())
	case "deleted":
		return toJSONResult(s.views.Collections.Deleted())
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown view %q", view)), nil
	}
}

func (s *Server) listEntries(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		CollectionID string `json:"collection_id"`
		Ghosts       bool   `json:"ghosts"`
	}
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if args.Ghosts {
		return toJSONResult(s.views.Entries.Timeline(args.CollectionID))
	}
	return toJSONResult(s.views.Entries.ByCollection(args.CollectionID))
}

func (s *Server) capture(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Capture(ctx, journal.CaptureInput{
		Text:         text,
		CollectionID: req.GetString("collection_id", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toJSONResult(res)
}

func (s *Server) getCaptureSyntax(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(CaptureSyntax), nil
}

func (s *Server) readSyntaxResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      syntaxURI,
			MIMEType: "text/markdown",
			Text:     CaptureSyntax,
		},
	}, nil
}

func (s *Server) completeTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		ID      string `json:"id"`
		Cascade bool   `json:"cascade"`
	}
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if args.ID == "" {
		return mcp.NewToolResultError("id is required"), nil
	}

	if args.Cascade {
		err := s.svc.CompleteParentTask(ctx, args.ID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	} else if err := s.svc.CompleteTask(ctx, args.ID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	e, _ := s.views.Entries.Get(args.ID)
	return toJSONResult(e)
}

func (s *Server) migrateEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("entry_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Migrate(ctx, journal.MigrateInput{
		EntryID:            id,
		TargetCollectionID: req.GetString("target_collection_id", ""),
		Mode:               journal.MigrateMode(req.GetString("mode", "")),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toJSONResult(res)
}

func (s *Server) searchEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.search == nil {
		return mcp.NewToolResultError("search is not available"), nil
	}
	results, err := s.search.Query(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toJSONResult(results)
}

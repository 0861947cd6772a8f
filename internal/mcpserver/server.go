// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes content collections to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/cmsloader/internal/apperr"
	"github.com/starford/cmsloader/internal/contentservice"
)

// DocumentFormatURI is the resource holding DocumentFormat.
const DocumentFormatURI = "cms://document-format"

// Server wraps the MCP server with content tools.
type Server struct {
	mcp *server.MCPServer
	svc *contentservice.Service
}

// New creates a new MCP server with all content tools registered.
func New(svc *contentservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"cmsloader",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_collections",
		mcp.WithDescription("List the names of all content collections."),
	), s.listCollections)

	s.mcp.AddTool(mcp.NewTool("load_collection",
		mcp.WithDescription("Load the published records of a collection, sorted by their order field. "+
			"An empty result means the content is currently unavailable."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Collection name (e.g. articles)")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of records (0 for all)")),
		mcp.WithNumber("offset", mcp.Description("Number of records to skip")),
	), s.loadCollection)

	s.mcp.AddTool(mcp.NewTool("get_record",
		mcp.WithDescription("Read one record of a collection by filename."),
		mcp.WithString("collection", mcp.Required(), mcp.Description("Collection name")),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Record filename (e.g. 2024-07-15-trends.md)")),
		mcp.WithString("format", mcp.Description("Set to html to render the body")),
	), s.getRecord)

	s.mcp.AddTool(mcp.NewTool("search_records",
		mcp.WithDescription("Full-text search over the records of collections loaded so far."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results")),
	), s.searchRecords)

	s.mcp.AddTool(mcp.NewTool("invalidate_collection",
		mcp.WithDescription("Drop the cached copy of a collection so the next load resolves it again."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Collection name")),
	), s.invalidateCollection)

	s.mcp.AddTool(mcp.NewTool("get_document_format",
		mcp.WithDescription("Returns the content document format: header syntax, "+
			"supported value types and the published/order conventions."),
	), s.getDocumentFormat)

	s.mcp.AddResource(
		mcp.NewResource(DocumentFormatURI, "Document Format",
			mcp.WithResourceDescription("Header and body format of content documents."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDocumentFormatResource,
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

func (s *Server) listCollections(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(strings.Join(s.svc.Collections(), "\n")), nil
}

func (s *Server) loadCollection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := s.svc.Collection(ctx, name, req.GetInt("limit", 0), req.GetInt("offset", 0))
	if err != nil {
		return toolError(err, name), nil
	}
	return jsonResult(page)
}

func (s *Server) getRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	collection, err := req.RequireString("collection")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filename, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rec, err := s.svc.Record(ctx, collection, filename)
	if err != nil {
		return toolError(err, collection+"/"+filename), nil
	}
	if req.GetString("format", "") == "html" {
		html, err := s.svc.RenderBody(rec)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(html), nil
	}
	return jsonResult(rec)
}

func (s *Server) searchRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) invalidateCollection(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !s.svc.Known(name) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", name)), nil
	}
	if s.svc.Invalidate(name) {
		return mcp.NewToolResultText(fmt.Sprintf("invalidated: %s", name)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("not cached: %s", name)), nil
}

func (s *Server) getDocumentFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DocumentFormat), nil
}

func (s *Server) readDocumentFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      DocumentFormatURI,
			MIMEType: "text/markdown",
			Text:     DocumentFormat,
		},
	}, nil
}

func toolError(err error, what string) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", what))
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcpserver: encode result: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes itinerary tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/tourdesk/internal/catalog"
	"github.com/starford/tourdesk/internal/itinerary"
	"github.com/starford/tourdesk/internal/models"
)

const rulesURI = "tourdesk://ordering-rules"

// Server wraps the MCP server with itinerary tools.
type Server struct {
	mcp *server.MCPServer
	svc *itinerary.Service
	cat *catalog.Service
}

// New creates a new MCP server with all tools registered. cat may be nil,
// in which case the catalog search tool is not offered.
func New(svc *itinerary.Service, cat *catalog.Service) *Server {
	s := &Server{svc: svc, cat: cat}

	s.mcp = server.NewMCPServer(
		"Tourdesk",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_itinerary",
		mcp.WithDescription("Return a tour with its days in logical order and each day's items in position order."),
		mcp.WithString("tourId", mcp.Required(), mcp.Description("Tour id")),
	), s.getItinerary)

	s.mcp.AddTool(mcp.NewTool("list_day_items",
		mcp.WithDescription("Return one day with its linked records and its ordered items."),
		mcp.WithString("dayId", mcp.Required(), mcp.Description("Day id")),
	), s.listDayItems)

	s.mcp.AddTool(mcp.NewTool("move_item",
		mcp.WithDescription("Move an item to a position in the same or another day. "+
			"Read the ordering rules first via the "+rulesURI+" resource."),
		mcp.WithString("itemId", mcp.Required(), mcp.Description("Item to move")),
		mcp.WithString("newDayId", mcp.Required(), mcp.Description("Target day id (may equal the current day)")),
		mcp.WithNumber("newPosition", mcp.Description("Zero-based target position; omit to append")),
	), s.moveItem)

	s.mcp.AddTool(mcp.NewTool("reorder_days",
		mcp.WithDescription("Renumber every day of a tour. dayIds lists ALL of the tour's days, comma-separated, in the new order."),
		mcp.WithString("tourId", mcp.Required(), mcp.Description("Tour id")),
		mcp.WithString("dayIds", mcp.Required(), mcp.Description("Comma-separated day ids, first day first")),
	), s.reorderDays)

	s.mcp.AddTool(mcp.NewTool("swap_days",
		mcp.WithDescription("Exchange the logical day numbers of two days in the same tour."),
		mcp.WithString("dayIdA", mcp.Required(), mcp.Description("First day id")),
		mcp.WithString("dayIdB", mcp.Required(), mcp.Description("Second day id")),
	), s.swapDays)

	if cat != nil {
		s.mcp.AddTool(mcp.NewTool("search_catalog",
			mcp.WithDescription("Search tastes, routes, stays and tickets by name, location or description."),
			mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		), s.searchCatalog)
	}

	s.mcp.AddResource(
		mcp.NewResource(rulesURI, "Ordering Rules",
			mcp.WithResourceDescription("How days and items are numbered and what reorder requests must contain."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readOrderingRules,
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

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func splitIDs(raw string) []string {
	var ids []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}

func (s *Server) getItinerary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tourID, err := req.RequireString("tourId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := s.svc.TourView(ctx, tourID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(view)
}

func (s *Server) listDayItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dayID, err := req.RequireString("dayId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := s.svc.DayView(ctx, dayID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(view)
}

func (s *Server) moveItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	itemID, err := req.RequireString("itemId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	dayID, err := req.RequireString("newDayId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var pos *int
	if _, ok := req.GetArguments()["newPosition"]; ok {
		p := req.GetInt("newPosition", 0)
		pos = &p
	}
	res, err := s.svc.MoveItem(ctx, itemID, dayID, pos)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) reorderDays(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tourID, err := req.RequireString("tourId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("dayIds")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ids := splitIDs(raw)
	assignments := make([]models.DayAssignment, len(ids))
	for i, id := range ids {
		assignments[i] = models.DayAssignment{DayID: id, NewLogicalDayNumber: i + models.FirstDayNumber}
	}
	days, err := s.svc.ReorderDays(ctx, tourID, assignments)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(days)
}

func (s *Server) swapDays(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, err := req.RequireString("dayIdA")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b, err := req.RequireString("dayIdB")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	days, err := s.svc.SwapDays(ctx, a, b)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(days)
}

func (s *Server) searchCatalog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	records, err := s.cat.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(records)
}

func (s *Server) readOrderingRules(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      rulesURI,
			MIMEType: "text/markdown",
			Text:     OrderingRules,
		},
	}, nil
}

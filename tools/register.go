package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Register wires all analyzer MCP tools to s.
func Register(s *server.MCPServer, svc *Service) {
	s.AddTool(mcp.NewTool("analyze_symbol",
		mcp.WithDescription("Resolves the variable at a position: cursor context, declaration, uses, pointer-ness, race verdicts, decorations, and diagnostics."),
		mcp.WithString("file", mcp.Required(), mcp.Description("Path or URL of the Go source file")),
		mcp.WithNumber("line", mcp.Required(), mcp.Description("Zero-based line of the cursor")),
		mcp.WithNumber("column", mcp.Required(), mcp.Description("Zero-based column of the cursor")),
		mcp.WithBoolean("lifecycle", mcp.Description("Include per-position lifecycle points (default: false)")),
	), analyzeSymbolHandler(svc))

	s.AddTool(mcp.NewTool("file_graph",
		mcp.WithDescription("Builds the variable/function/channel/goroutine relationship graph for a file."),
		mcp.WithString("file", mcp.Required(), mcp.Description("Path or URL of the Go source file")),
	), fileGraphHandler(svc))

	s.AddTool(mcp.NewTool("dump_tree",
		mcp.WithDescription("Dumps the raw parse tree of a file as indented text."),
		mcp.WithString("file", mcp.Required(), mcp.Description("Path or URL of the Go source file")),
	), dumpTreeHandler(svc))

	s.AddTool(mcp.NewTool("entity_counts",
		mcp.WithDescription("Counts variables, functions, channels, and goroutine spawns in a file."),
		mcp.WithString("file", mcp.Required(), mcp.Description("Path or URL of the Go source file")),
	), entityCountsHandler(svc))
}

// jsonResult serialises v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding response: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

func analyzeSymbolHandler(svc *Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		file, err := req.RequireString("file")
		if err != nil {
			return nil, err
		}
		line, err := req.RequireInt("line")
		if err != nil {
			return nil, err
		}
		column, err := req.RequireInt("column")
		if err != nil {
			return nil, err
		}
		if line < 0 || column < 0 {
			return nil, fmt.Errorf("line and column must be non-negative")
		}
		lifecycle := req.GetBool("lifecycle", false)

		rep, err := svc.AnalyzeSymbol(ctx, file, uint32(line), uint32(column), lifecycle)
		if err != nil {
			return nil, err
		}
		return jsonResult(rep)
	}
}

func fileGraphHandler(svc *Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		file, err := req.RequireString("file")
		if err != nil {
			return nil, err
		}
		graph, err := svc.FileGraph(ctx, file)
		if err != nil {
			return nil, err
		}
		return jsonResult(graph)
	}
}

func dumpTreeHandler(svc *Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		file, err := req.RequireString("file")
		if err != nil {
			return nil, err
		}
		dump, err := svc.DumpTree(ctx, file)
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(dump), nil
	}
}

func entityCountsHandler(svc *Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		file, err := req.RequireString("file")
		if err != nil {
			return nil, err
		}
		counts, err := svc.EntityCounts(ctx, file)
		if err != nil {
			return nil, err
		}
		return jsonResult(counts)
	}
}

package trafficqa

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Version of the engine, reported through the tool server handshake.
const Version = "1.0.0"

// NewServer exposes the client as an MCP tool server with four tools: ask,
// generate-sql, search-docs, and cache-stats.
func NewServer(client *Client) *server.MCPServer {
	s := server.NewMCPServer("trafficqa", Version)

	s.AddTool(mcp.NewTool("ask",
		mcp.WithDescription("Answer a natural-language question about the traffic dataset"),
		mcp.WithString("question", mcp.Required(), mcp.Description("The question to answer")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := request.RequireString("question")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(client.Ask(ctx, question))
	})

	s.AddTool(mcp.NewTool("generate-sql",
		mcp.WithDescription("Generate SQL for a question without executing it"),
		mcp.WithString("question", mcp.Required(), mcp.Description("The question to translate")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := request.RequireString("question")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(client.GenerateSQL(ctx, question))
	})

	s.AddTool(mcp.NewTool("search-docs",
		mcp.WithDescription("Search the operations documents"),
		mcp.WithString("question", mcp.Required(), mcp.Description("The search query")),
		mcp.WithString("district", mcp.Description("Restrict results to one district")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := request.RequireString("question")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		var filter map[string]string
		if district := request.GetString("district", ""); district != "" {
			filter = map[string]string{"district": district}
		}
		docs, err := client.SearchDocuments(ctx, question, filter)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(docs)
	})

	s.AddTool(mcp.NewTool("cache-stats",
		mcp.WithDescription("Report result cache sizes and hit rates"),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(client.CacheStats())
	})

	return s
}

// ServeStdio runs the tool server on stdin/stdout until EOF.
func ServeStdio(client *Client) error {
	return server.ServeStdio(NewServer(client))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}

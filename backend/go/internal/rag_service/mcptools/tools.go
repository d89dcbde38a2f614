// Package mcptools exposes document question answering as MCP tools so that
// agent hosts can call it. A server instance is bound to one tenant.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"Aethena/backend/go/internal/models"
	"Aethena/backend/go/internal/rag_service/rag/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Backend is the subset of service.Server the tools need.
type Backend interface {
	Query(ctx context.Context, tenantID, question string) (*schema.Answer, error)
	ListHistory(ctx context.Context, tenantID string, limit int) ([]*models.QueryHistory, error)
}

// Tools holds the tool handlers for one tenant.
type Tools struct {
	backend Backend
	tenant  string
}

// New creates the handlers. tenant must not be empty.
func New(backend Backend, tenant string) (*Tools, error) {
	if strings.TrimSpace(tenant) == "" {
		return nil, fmt.Errorf("%w: tenant is required", schema.ErrInvalidInput)
	}
	return &Tools{backend: backend, tenant: tenant}, nil
}

// NewServer builds an MCP server with ask_documents and list_history registered.
func (t *Tools) NewServer(name, version string) *server.MCPServer {
	s := server.NewMCPServer(name, version, server.WithToolCapabilities(false))
	t.Register(s)
	return s
}

// Register adds the tools to s.
func (t *Tools) Register(s *server.MCPServer) {
	ask := mcp.NewTool("ask_documents",
		mcp.WithDescription("Answer a question using only the documents uploaded for this workspace. The answer cites file and page."),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The question to answer"),
		),
	)
	s.AddTool(ask, t.AskDocuments)

	history := mcp.NewTool("list_history",
		mcp.WithDescription("List the most recent questions and answers, newest first"),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of records, at most 50"),
		),
	)
	s.AddTool(history, t.ListHistory)
}

// AskDocuments handles the ask_documents tool.
func (t *Tools) AskDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	answer, err := t.backend.Query(ctx, t.tenant, question)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %s", schema.Code(err))), nil
	}
	return mcp.NewToolResultText(FormatAnswer(answer)), nil
}

// ListHistory handles the list_history tool.
func (t *Tools) ListHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := int(request.GetFloat("limit", 0))
	records, err := t.backend.ListHistory(ctx, t.tenant, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list history failed: %s", schema.Code(err))), nil
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// FormatAnswer renders an answer followed by a Sources list.
func FormatAnswer(a *schema.Answer) string {
	var b strings.Builder
	b.WriteString(a.Answer)
	if len(a.Sources) == 0 {
		return b.String()
	}
	b.WriteString("\n\nSources:")
	for _, s := range a.Sources {
		b.WriteString("\n- ")
		b.WriteString(s.File)
		if s.Page != nil {
			fmt.Fprintf(&b, " (page %d)", *s.Page)
		}
	}
	return b.String()
}

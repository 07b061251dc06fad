// Package mcp exposes appforge as a Model Context Protocol server over
// stdio. An AI IDE does the generation itself and calls these tools to
// persist artifacts and advance the pipeline; they are thin wrappers over
// the same registry and state-store operations the CLI drives.
package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/afero"

	"github.com/appforge-dev/appforge/internal/app/config"
	"github.com/appforge-dev/appforge/internal/application/usecase/orchestrator"
	"github.com/appforge-dev/appforge/internal/buildinfo"
	sessionrepo "github.com/appforge-dev/appforge/internal/infra/repository/session"
)

// Server wires the appforge tool surface onto an MCP stdio server
type Server struct {
	fs       afero.Fs
	home     string
	cfg      *config.Config
	registry *sessionrepo.Registry
	mcpSrv   *server.MCPServer
}

// tool pairs a tool definition with its call handler
type tool struct {
	Tool    mcp.Tool
	Handler server.ToolHandlerFunc
}

// NewServer builds the MCP server for one control directory
func NewServer(fs afero.Fs, home string, cfg *config.Config, registry *sessionrepo.Registry) *Server {
	s := &Server{
		fs:       fs,
		home:     home,
		cfg:      cfg,
		registry: registry,
	}

	m := server.NewMCPServer("appforge", buildinfo.GetVersion())
	for _, t := range s.tools() {
		m.AddTool(t.Tool, t.Handler)
	}
	s.registerPrompts(m)
	s.mcpSrv = m
	return s
}

// ServeStdio blocks serving MCP requests on stdin/stdout
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpSrv)
}

func (s *Server) tools() []tool {
	return []tool{
		newTool("appforge_create_session",
			"Create a new build session for an app idea and make it active.",
			json.RawMessage(`{"type":"object","properties":{"idea":{"type":"string"},"name":{"type":"string"}},"required":["idea"]}`),
			s.createSession),
		newTool("appforge_list_sessions",
			"List all build sessions and the active one.",
			json.RawMessage(`{"type":"object","properties":{}}`),
			s.listSessions),
		newTool("appforge_get_status",
			"Get the pipeline status of a session (the active one by default).",
			json.RawMessage(`{"type":"object","properties":{"sessionId":{"type":"string"}}}`),
			s.getStatus),
		newTool("appforge_save_app_spec",
			"Save a structured AppSpec produced by the caller and advance the pipeline to UI generation.",
			json.RawMessage(`{"type":"object","properties":{"appSpec":{"type":"object"},"sessionId":{"type":"string"}},"required":["appSpec"]}`),
			s.saveAppSpec),
		newTool("appforge_save_generated_files",
			"Save generated source files produced by the caller and advance the pipeline to backend setup.",
			json.RawMessage(`{"type":"object","properties":{"files":{"type":"array","items":{"type":"object","properties":{"path":{"type":"string"},"content":{"type":"string"},"language":{"type":"string"}},"required":["path","content"]}},"sessionId":{"type":"string"}},"required":["files"]}`),
			s.saveGeneratedFiles),
		newTool("appforge_generate_backend",
			"Derive the backend schema and SQL migrations from the saved AppSpec and advance the pipeline to security setup.",
			json.RawMessage(`{"type":"object","properties":{"sessionId":{"type":"string"}}}`),
			s.generateBackend),
	}
}

// newTool adapts a typed handler into the MCP call convention: arguments
// bind onto R, the response marshals to one text content block, handler
// errors become error results rather than protocol failures.
func newTool[R any, T any](name, desc string, schemaJSON json.RawMessage, handler func(ctx context.Context, req R) (*T, error)) tool {
	return tool{
		Tool: mcp.NewToolWithRawSchema(name, desc, schemaJSON),
		Handler: func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var req R
			if err := request.BindArguments(&req); err != nil {
				return nil, err
			}
			var final string
			var isError bool
			if resp, err := handler(ctx, req); err != nil {
				isError = true
				final = err.Error()
			} else if js, err := json.Marshal(resp); err != nil {
				isError = true
				final = err.Error()
			} else {
				final = string(js)
			}
			return &mcp.CallToolResult{
				Content: []mcp.Content{mcp.NewTextContent(final)},
				IsError: isError,
			}, nil
		},
	}
}

func (s *Server) registerPrompts(m *server.MCPServer) {
	prompts := []struct {
		name, desc, text string
	}{
		{"analyze_app_idea", "System prompt for refining an app idea into an AppSpec.", orchestrator.AnalyzePrompt},
		{"generate_code", "System prompt for generating project files from an AppSpec.", orchestrator.CodeGenPrompt},
		{"security_audit", "System prompt for auditing generated code.", orchestrator.SecurityPrompt},
	}
	for _, p := range prompts {
		text := p.text
		desc := p.desc
		m.AddPrompt(mcp.Prompt{Name: p.name, Description: desc},
			func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
				return &mcp.GetPromptResult{
					Description: desc,
					Messages: []mcp.PromptMessage{
						{Role: mcp.RoleUser, Content: mcp.TextContent{Type: "text", Text: text}},
					},
				}, nil
			})
	}
}

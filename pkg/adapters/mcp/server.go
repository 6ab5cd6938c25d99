package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aleung/fsm"
	"github.com/aleung/fsm/internal/presentation/graph"
	"github.com/aleung/fsm/pkg/domain"
	"github.com/aleung/fsm/pkg/session"
)

const (
	// GraphURI exposes the definition as a mermaid flowchart.
	GraphURI = "fsm://graph"
	// DefinitionURI exposes the definition as a markdown document.
	DefinitionURI = "fsm://definition"
)

// MachineResponse is the structured result of the instance tools.
type MachineResponse struct {
	ID      string `json:"id" jsonschema_description:"Instance identifier"`
	State   string `json:"state" jsonschema_description:"Current state of the instance"`
	Created bool   `json:"created,omitempty" jsonschema_description:"Set when the call created the instance"`
}

// ListResponse is the structured result of list_machines.
type ListResponse struct {
	Machines []string `json:"machines" jsonschema_description:"Known instance identifiers, sorted"`
}

// InstanceArgs selects an instance.
type InstanceArgs struct {
	ID string `json:"id"`
}

// SendEventArgs carries a send_event call. Data is an optional JSON value.
type SendEventArgs struct {
	ID    string `json:"id"`
	Event string `json:"event"`
	Data  string `json:"data,omitempty"`
}

// Server exposes a session.Manager as an MCP server.
type Server struct {
	manager   *session.Manager
	name      string
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for tool failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithName sets the machine name shown in the definition resource.
func WithName(name string) Option {
	return func(s *Server) {
		s.name = name
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(manager *session.Manager, opts ...Option) *Server {
	s := &Server{
		manager:   manager,
		name:      "machine",
		logger:    slog.Default(),
		mcpServer: server.NewMCPServer("fsm-mcp", fsm.Version),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_machines",
		mcp.WithDescription("List the identifiers of all machine instances."),
		mcp.WithOutputSchema[ListResponse](),
	), mcp.NewStructuredToolHandler(s.handleList))

	s.mcpServer.AddTool(mcp.NewTool("create_machine",
		mcp.WithDescription("Create and initialize a machine instance. Existing instances are returned unchanged."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Instance identifier")),
		mcp.WithOutputSchema[MachineResponse](),
	), mcp.NewStructuredToolHandler(s.handleCreate))

	s.mcpServer.AddTool(mcp.NewTool("current_state",
		mcp.WithDescription("Get the current state of a machine instance."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Instance identifier")),
		mcp.WithOutputSchema[MachineResponse](),
	), mcp.NewStructuredToolHandler(s.handleCurrentState))

	s.mcpServer.AddTool(mcp.NewTool("send_event",
		mcp.WithDescription("Send an event to a machine instance and return the resulting state."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Instance identifier")),
		mcp.WithString("event", mcp.Required(), mcp.Description("Event name")),
		mcp.WithString("data", mcp.Description("Optional JSON payload delivered with the event")),
		mcp.WithOutputSchema[MachineResponse](),
	), mcp.NewStructuredToolHandler(s.handleSendEvent))

	s.mcpServer.AddTool(mcp.NewTool("delete_machine",
		mcp.WithDescription("Forget a machine instance."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Instance identifier")),
	), s.handleDelete)

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Render the machine definition as a mermaid flowchart. With id, the instance's current state is highlighted."),
		mcp.WithString("id", mcp.Description("Instance to highlight (optional)")),
	), s.handleGraph)
}

func (s *Server) handleList(ctx context.Context, request mcp.CallToolRequest, args struct{}) (ListResponse, error) {
	return ListResponse{Machines: s.manager.List()}, nil
}

func (s *Server) handleCreate(ctx context.Context, request mcp.CallToolRequest, args InstanceArgs) (MachineResponse, error) {
	m, created, err := s.manager.GetOrCreate(ctx, args.ID)
	if err != nil {
		return MachineResponse{}, s.fail("create_machine", args.ID, err)
	}
	return MachineResponse{ID: args.ID, State: m.CurrentState(), Created: created}, nil
}

func (s *Server) handleCurrentState(ctx context.Context, request mcp.CallToolRequest, args InstanceArgs) (MachineResponse, error) {
	m, err := s.manager.Get(args.ID)
	if err != nil {
		return MachineResponse{}, err
	}
	return MachineResponse{ID: args.ID, State: m.CurrentState()}, nil
}

func (s *Server) handleSendEvent(ctx context.Context, request mcp.CallToolRequest, args SendEventArgs) (MachineResponse, error) {
	evt := domain.Event{Name: args.Event}
	if args.Data != "" {
		if err := json.Unmarshal([]byte(args.Data), &evt.Data); err != nil {
			return MachineResponse{}, fmt.Errorf("data is not valid JSON: %w", err)
		}
	}

	m, err := s.manager.Send(ctx, args.ID, evt)
	if err != nil {
		return MachineResponse{}, s.fail("send_event", args.ID, err)
	}
	return MachineResponse{ID: args.ID, State: m.CurrentState()}, nil
}

func (s *Server) handleDelete(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.manager.Delete(id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted %s", id)), nil
}

func (s *Server) handleGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var overlay *graph.GraphOverlay
	if id := request.GetString("id", ""); id != "" {
		m, err := s.manager.Get(id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		overlay = &graph.GraphOverlay{CurrentState: m.CurrentState()}
	}
	return mcp.NewToolResultText(graph.GenerateMermaid(s.manager.Definition(), overlay)), nil
}

// fail logs errors the caller cannot fix by changing its input.
func (s *Server) fail(tool, id string, err error) error {
	if !domain.IsUnhandledEvent(err) {
		s.logger.Warn("MCP tool failed", "tool", tool, "instance", id, "err", err)
	}
	return err
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(GraphURI, "Machine graph",
		mcp.WithResourceDescription("Mermaid flowchart of the machine definition"),
		mcp.WithMIMEType("text/plain"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      GraphURI,
				MIMEType: "text/plain",
				Text:     graph.GenerateMermaid(s.manager.Definition(), nil),
			},
		}, nil
	})

	s.mcpServer.AddResource(mcp.NewResource(DefinitionURI, "Machine definition",
		mcp.WithResourceDescription("Markdown description of every state and rule"),
		mcp.WithMIMEType("text/markdown"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      DefinitionURI,
				MIMEType: "text/markdown",
				Text:     graph.GenerateMarkdown(s.name, s.manager.Definition()),
			},
		}, nil
	})
}

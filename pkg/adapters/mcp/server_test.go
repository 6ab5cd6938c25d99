package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleung/fsm"
	"github.com/aleung/fsm/internal/logging"
	"github.com/aleung/fsm/pkg/domain"
	"github.com/aleung/fsm/pkg/session"
)

type capture struct {
	data []any
}

func (c *capture) definition() domain.MachineDefinition {
	return domain.MachineDefinition{
		InitialState: "off",
		States: map[string]domain.StateDefinition{
			"off": {Transitions: map[string]domain.Rule{
				"toggle": domain.Edge("on", func(ctx context.Context, evt *domain.Event) error {
					c.data = append(c.data, evt.Data)
					return nil
				}),
			}},
			"on": {Transitions: map[string]domain.Rule{"toggle": domain.To("off")}},
		},
	}
}

func newTestServer(t *testing.T) (*Server, *capture) {
	t.Helper()
	c := &capture{}
	manager, err := session.NewManager(c.definition(), session.WithLogger(logging.NewNop()))
	require.NoError(t, err)
	return NewServer(manager, WithLogger(logging.NewNop()), WithName("light")), c
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func TestServer_InstanceTools(t *testing.T) {
	s, c := newTestServer(t)
	ctx := context.Background()

	created, err := s.handleCreate(ctx, callRequest("create_machine", nil), InstanceArgs{ID: "kitchen"})
	require.NoError(t, err)
	assert.Equal(t, MachineResponse{ID: "kitchen", State: "off", Created: true}, created)

	again, err := s.handleCreate(ctx, callRequest("create_machine", nil), InstanceArgs{ID: "kitchen"})
	require.NoError(t, err)
	assert.False(t, again.Created)

	sent, err := s.handleSendEvent(ctx, callRequest("send_event", nil), SendEventArgs{ID: "kitchen", Event: "toggle", Data: `{"by":"switch"}`})
	require.NoError(t, err)
	assert.Equal(t, "on", sent.State)
	require.Len(t, c.data, 1)
	assert.Equal(t, map[string]any{"by": "switch"}, c.data[0])

	current, err := s.handleCurrentState(ctx, callRequest("current_state", nil), InstanceArgs{ID: "kitchen"})
	require.NoError(t, err)
	assert.Equal(t, "on", current.State)

	list, err := s.handleList(ctx, callRequest("list_machines", nil), struct{}{})
	require.NoError(t, err)
	assert.Equal(t, []string{"kitchen"}, list.Machines)

	res, err := s.handleDelete(ctx, callRequest("delete_machine", map[string]any{"id": "kitchen"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "deleted kitchen", resultText(t, res))
	assert.Empty(t, s.manager.List())
}

func TestServer_SendEventErrors(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleSendEvent(ctx, callRequest("send_event", nil), SendEventArgs{ID: "ghost", Event: "toggle"})
	assert.ErrorIs(t, err, session.ErrInstanceNotFound)

	_, _, err = s.manager.GetOrCreate(ctx, "hall")
	require.NoError(t, err)

	_, err = s.handleSendEvent(ctx, callRequest("send_event", nil), SendEventArgs{ID: "hall", Event: ""})
	assert.ErrorIs(t, err, session.ErrInvalidEvent)

	_, err = s.handleSendEvent(ctx, callRequest("send_event", nil), SendEventArgs{ID: "hall", Event: "toggle", Data: "{"})
	assert.ErrorContains(t, err, "data is not valid JSON")

	_, err = s.handleSendEvent(ctx, callRequest("send_event", nil), SendEventArgs{ID: "hall", Event: "explode"})
	assert.True(t, domain.IsUnhandledEvent(err))

	m, err := s.manager.Get("hall")
	require.NoError(t, err)
	assert.Equal(t, "off", m.CurrentState())
}

func TestServer_DeleteRequiresID(t *testing.T) {
	s, _ := newTestServer(t)

	res, err := s.handleDelete(context.Background(), callRequest("delete_machine", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleDelete(context.Background(), callRequest("delete_machine", map[string]any{"id": "ghost"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "not found")
}

func TestServer_Graph(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleGraph(ctx, callRequest("get_graph", nil))
	require.NoError(t, err)
	text := resultText(t, res)
	assert.Contains(t, text, "graph TD")
	assert.NotContains(t, text, "class off current;")

	_, _, err = s.manager.GetOrCreate(ctx, "porch")
	require.NoError(t, err)

	res, err = s.handleGraph(ctx, callRequest("get_graph", map[string]any{"id": "porch"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "class off current;")

	res, err = s.handleGraph(ctx, callRequest("get_graph", map[string]any{"id": "ghost"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestServer_ListToolsOverProtocol(t *testing.T) {
	s, _ := newTestServer(t)

	msg := json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	resp := s.MCPServer().HandleMessage(context.Background(), msg)
	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	for _, name := range []string{"list_machines", "create_machine", "current_state", "send_event", "delete_machine", "get_graph"} {
		assert.Contains(t, string(raw), `"`+name+`"`)
	}
}

func TestServer_SendEventOverProtocol(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()
	_, _, err := s.manager.GetOrCreate(ctx, "attic")
	require.NoError(t, err)

	msg := json.RawMessage(`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"send_event","arguments":{"id":"attic","event":"toggle"}}}`)
	resp := s.MCPServer().HandleMessage(ctx, msg)
	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"state":"on"`)

	m, err := s.manager.Get("attic")
	require.NoError(t, err)
	assert.Equal(t, "on", m.CurrentState())
}

func TestServer_VersionMatchesModule(t *testing.T) {
	s, _ := newTestServer(t)

	msg := json.RawMessage(`{"jsonrpc":"2.0","id":3,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"0"}}}`)
	raw, err := json.Marshal(s.MCPServer().HandleMessage(context.Background(), msg))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"name":"fsm-mcp"`)
	assert.Contains(t, string(raw), `"version":"`+fsm.Version+`"`)
}

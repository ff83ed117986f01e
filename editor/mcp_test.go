package editor

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lumingya/universal-web-api/workflow"
)

var testMCPImpl = &mcp.Implementation{Name: "wfedit-test", Version: "0.1.0"}

func mcpSession(t *testing.T, e *Editor) *mcp.ClientSession {
	t.Helper()
	srv := mcp.NewServer(testMCPImpl, nil)
	e.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func mcpCallTool(t *testing.T, session *mcp.ClientSession, name string, args any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("call %s: %v", name, err)
	}
	if result.IsError {
		t.Fatalf("call %s: tool error: %v", name, result.Content)
	}
	text, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("call %s: unexpected content %T", name, result.Content[0])
	}
	return text.Text
}

func TestMCPClearTool(t *testing.T) {
	e := attach(t, newFakeSaver(), &fakeSurface{})
	e.AddBoundStep(workflow.KindClick, "#send", "", 0)
	e.AddBoundStep(workflow.KindRead, "div.message.bot", "", 0)
	session := mcpSession(t, e)

	mcpCallTool(t, session, "wfedit_clear", nil)
	if got := len(e.Steps()); got != 0 {
		t.Fatalf("got %d steps after clear, want 0", got)
	}
}

func TestMCPExportTool(t *testing.T) {
	e := attach(t, newFakeSaver(), &fakeSurface{})
	e.AddBoundStep(workflow.KindInput, "#prompt", "hi", 0)
	session := mcpSession(t, e)

	out := mcpCallTool(t, session, "wfedit_export", nil)
	var payload exportPayload
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("export payload not JSON: %v", err)
	}
	if payload.Host != "chat.example.com" {
		t.Fatalf("got host %q, want chat.example.com", payload.Host)
	}
	if len(payload.Workflow) != 1 || payload.Workflow[0].Action != workflow.ActionFillInput {
		t.Fatalf("unexpected workflow: %+v", payload.Workflow)
	}
}

func TestMCPShowHideTools(t *testing.T) {
	surface := &fakeSurface{}
	e := attach(t, newFakeSaver(), surface)
	session := mcpSession(t, e)

	mcpCallTool(t, session, "wfedit_hide", nil)
	if surface.visible == nil || *surface.visible {
		t.Fatal("overlay still visible after hide")
	}
	mcpCallTool(t, session, "wfedit_show", nil)
	if surface.visible == nil || !*surface.visible {
		t.Fatal("overlay not visible after show")
	}
}

func TestMCPStateTool(t *testing.T) {
	e := attach(t, newFakeSaver(), &fakeSurface{})
	e.AddBoundStep(workflow.KindClick, "#send", "", 0)
	session := mcpSession(t, e)

	out := mcpCallTool(t, session, "wfedit_state", nil)
	if !strings.Contains(out, "chat.example.com") || !strings.Contains(out, "#send") {
		t.Fatalf("state missing host or step: %s", out)
	}
}

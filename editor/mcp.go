package editor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lumingya/universal-web-api/kit"
	"github.com/lumingya/universal-web-api/workflow"
)

// RegisterMCP registers editor tools on an MCP server, so an agent can
// drive the same session a human sees in the overlay.
func (e *Editor) RegisterMCP(srv *mcp.Server) {
	e.registerStateTool(srv)
	e.registerAddStepTool(srv)
	e.registerRemoveStepTool(srv)
	e.registerSetDelayTool(srv)
	e.registerSetTextTool(srv)
	e.registerPreviewTool(srv)
	e.registerSaveTool(srv)
	e.registerReloadTool(srv)
	e.registerClearTool(srv)
	e.registerExportTool(srv)
	e.registerShowTool(srv)
	e.registerHideTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// --- state ---

func (e *Editor) registerStateTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "wfedit_state",
		Description: "Get the current editing session: host and the ordered step list with positions, delays and validity.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		return map[string]any{
			"host":  e.Host(),
			"steps": e.Steps(),
		}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- add_step ---

type addStepRequest struct {
	Kind        string `json:"kind"`
	SelectorRef string `json:"selector_ref,omitempty"`
	Text        string `json:"text,omitempty"`
	DelayMs     int    `json:"delay_ms,omitempty"`
}

func (e *Editor) registerAddStepTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "wfedit_add_step",
		Description: "Add a workflow step. With selector_ref the step is bound immediately; without it an interactive pick session starts in the page.",
		InputSchema: inputSchema(map[string]any{
			"kind":         map[string]any{"type": "string", "enum": []any{"click", "input", "read"}, "description": "Step kind"},
			"selector_ref": map[string]any{"type": "string", "description": "CSS selector to bind the step to"},
			"text":         map[string]any{"type": "string", "description": "Text for input steps"},
			"delay_ms":     map[string]any{"type": "integer", "description": "Delay before the step in milliseconds"},
		}, []string{"kind"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		rr := req.(*addStepRequest)
		kind := workflow.StepKind(rr.Kind)
		switch kind {
		case workflow.KindClick, workflow.KindInput, workflow.KindRead:
		default:
			return nil, fmt.Errorf("unknown step kind %q", rr.Kind)
		}

		if rr.SelectorRef != "" {
			s, err := e.AddBoundStep(kind, rr.SelectorRef, rr.Text, rr.DelayMs)
			if err != nil {
				return nil, err
			}
			return s, nil
		}

		s := e.AddStep(kind)
		if s == nil {
			return nil, fmt.Errorf("editor is not attached")
		}
		if rr.Text != "" {
			e.SetText(s.ID, rr.Text)
		}
		if rr.DelayMs > 0 {
			e.SetDelay(s.ID, rr.DelayMs)
		}
		return map[string]any{"step": s, "picking": true}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var rr addStepRequest
		if err := json.Unmarshal(req.Params.Arguments, &rr); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &rr}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- remove_step ---

type stepIDRequest struct {
	StepID string `json:"step_id"`
}

func (e *Editor) registerRemoveStepTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "wfedit_remove_step",
		Description: "Remove a workflow step by ID. Remaining steps are renumbered contiguously.",
		InputSchema: inputSchema(map[string]any{
			"step_id": map[string]any{"type": "string", "description": "ID of the step to remove"},
		}, []string{"step_id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		rr := req.(*stepIDRequest)
		if !e.RemoveStep(rr.StepID) {
			return nil, fmt.Errorf("no step with id %q", rr.StepID)
		}
		return map[string]string{"status": "removed", "step_id": rr.StepID}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var rr stepIDRequest
		if err := json.Unmarshal(req.Params.Arguments, &rr); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &rr}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- set_delay ---

type setDelayRequest struct {
	StepID  string `json:"step_id"`
	DelayMs int    `json:"delay_ms"`
}

func (e *Editor) registerSetDelayTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "wfedit_set_delay",
		Description: "Set the delay before a step in milliseconds. The first step's delay is always zero.",
		InputSchema: inputSchema(map[string]any{
			"step_id":  map[string]any{"type": "string", "description": "Step ID"},
			"delay_ms": map[string]any{"type": "integer", "description": "Delay in milliseconds"},
		}, []string{"step_id", "delay_ms"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		rr := req.(*setDelayRequest)
		if !e.SetDelay(rr.StepID, rr.DelayMs) {
			return nil, fmt.Errorf("no step with id %q", rr.StepID)
		}
		return map[string]string{"status": "updated", "step_id": rr.StepID}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var rr setDelayRequest
		if err := json.Unmarshal(req.Params.Arguments, &rr); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &rr}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- set_text ---

type setTextRequest struct {
	StepID string `json:"step_id"`
	Text   string `json:"text"`
}

func (e *Editor) registerSetTextTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "wfedit_set_text",
		Description: "Set the text an input step types into its element.",
		InputSchema: inputSchema(map[string]any{
			"step_id": map[string]any{"type": "string", "description": "Step ID (must be an input step)"},
			"text":    map[string]any{"type": "string", "description": "Text to type"},
		}, []string{"step_id", "text"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		rr := req.(*setTextRequest)
		if !e.SetText(rr.StepID, rr.Text) {
			return nil, fmt.Errorf("no input step with id %q", rr.StepID)
		}
		return map[string]string{"status": "updated", "step_id": rr.StepID}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var rr setTextRequest
		if err := json.Unmarshal(req.Params.Arguments, &rr); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &rr}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- preview ---

func (e *Editor) registerPreviewTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "wfedit_preview",
		Description: "Render a markdown preview of the content a read step currently captures.",
		InputSchema: inputSchema(map[string]any{
			"step_id": map[string]any{"type": "string", "description": "Step ID (must be a read step)"},
		}, []string{"step_id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		rr := req.(*stepIDRequest)
		md, err := e.PreviewRead(rr.StepID)
		if err != nil {
			return nil, err
		}
		return map[string]string{"preview": md}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var rr stepIDRequest
		if err := json.Unmarshal(req.Params.Arguments, &rr); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &rr}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- save ---

func (e *Editor) registerSaveTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "wfedit_save",
		Description: "Encode the current steps into an action workflow and persist it to the site profile store.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		if err := e.Save(ctx); err != nil {
			return nil, err
		}
		return map[string]string{"status": "saved", "host": e.Host()}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- clear / export / show / hide ---

func (e *Editor) registerClearTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "wfedit_clear",
		Description: "Remove every step from the editing session.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		e.ClearAll()
		return map[string]string{"status": "cleared"}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (e *Editor) registerExportTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "wfedit_export",
		Description: "Encode the current steps into the portable profile payload without persisting it.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		data, err := e.Export()
		if err != nil {
			return nil, err
		}
		return json.RawMessage(data), nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (e *Editor) registerShowTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "wfedit_show",
		Description: "Make the editor overlay visible.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		e.Show()
		return map[string]string{"status": "visible"}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (e *Editor) registerHideTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "wfedit_hide",
		Description: "Hide the editor overlay, cancelling any pick or drag in progress.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		e.Hide()
		return map[string]string{"status": "hidden"}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- reload ---

func (e *Editor) registerReloadTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "wfedit_reload",
		Description: "Discard unsaved edits and rebuild the session from the stored site profile.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		if err := e.Reload(ctx); err != nil {
			return nil, err
		}
		return map[string]any{"status": "reloaded", "steps": len(e.Steps())}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

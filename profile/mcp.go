package profile

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lumingya/universal-web-api/kit"
	"github.com/lumingya/universal-web-api/workflow"
)

// RegisterMCP registers profile tools on an MCP server.
func (r *Registry) RegisterMCP(srv *mcp.Server) {
	r.registerGetProfileTool(srv)
	r.registerPutProfileTool(srv)
	r.registerListProfilesTool(srv)
	r.registerDeleteProfileTool(srv)
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

// --- get_profile ---

type getProfileRequest struct {
	Host string `json:"host"`
}

func (r *Registry) registerGetProfileTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "profile_get",
		Description: "Get the stored site profile (selector map, workflow, stealth level) for a hostname.",
		InputSchema: inputSchema(map[string]any{
			"host": map[string]any{"type": "string", "description": "Hostname (e.g. chat.example.com)"},
		}, []string{"host"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		rr := req.(*getProfileRequest)
		return r.Get(ctx, rr.Host)
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var rr getProfileRequest
		if err := json.Unmarshal(req.Params.Arguments, &rr); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &rr}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- put_profile ---

type putProfileRequest struct {
	Host    string               `json:"host"`
	Profile workflow.SiteProfile `json:"profile"`
}

func (r *Registry) registerPutProfileTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "profile_put",
		Description: "Store a complete site profile for a hostname, replacing any existing one.",
		InputSchema: inputSchema(map[string]any{
			"host": map[string]any{"type": "string", "description": "Hostname the profile applies to"},
			"profile": map[string]any{"type": "object", "description": "Site profile: selectors map, workflow action list, stealth level"},
		}, []string{"host", "profile"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		rr := req.(*putProfileRequest)
		if err := r.Put(ctx, rr.Host, &rr.Profile); err != nil {
			return nil, err
		}
		return map[string]string{"status": "stored", "host": rr.Host}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var rr putProfileRequest
		if err := json.Unmarshal(req.Params.Arguments, &rr); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &rr}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- list_profiles ---

type listProfilesRequest struct {
	Limit int `json:"limit,omitempty"`
}

func (r *Registry) registerListProfilesTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "profile_list",
		Description: "List stored site profiles with action and selector counts, newest first.",
		InputSchema: inputSchema(map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Max entries (default: all)"},
		}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		rr := req.(*listProfilesRequest)
		return r.List(ctx, rr.Limit)
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var rr listProfilesRequest
		json.Unmarshal(req.Params.Arguments, &rr)
		return &kit.MCPDecodeResult{Request: &rr}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- delete_profile ---

type deleteProfileRequest struct {
	Host string `json:"host"`
}

func (r *Registry) registerDeleteProfileTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "profile_delete",
		Description: "Delete the stored site profile for a hostname.",
		InputSchema: inputSchema(map[string]any{
			"host": map[string]any{"type": "string", "description": "Hostname to delete"},
		}, []string{"host"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		rr := req.(*deleteProfileRequest)
		if err := r.Delete(ctx, rr.Host); err != nil {
			return nil, err
		}
		return map[string]string{"status": "deleted", "host": rr.Host}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var rr deleteProfileRequest
		if err := json.Unmarshal(req.Params.Arguments, &rr); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &rr}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

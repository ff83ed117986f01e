package kit

import (
	"context"
	"testing"
)

func TestTransportContext(t *testing.T) {
	ctx := context.Background()
	if got := GetTransport(ctx); got != "http" {
		t.Errorf("default transport: got %q, want %q", got, "http")
	}

	ctx = WithTransport(ctx, "mcp")
	if got := GetTransport(ctx); got != "mcp" {
		t.Errorf("transport: got %q, want %q", got, "mcp")
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	if got := GetRequestID(ctx); got != "req-1" {
		t.Errorf("request ID: got %q, want %q", got, "req-1")
	}
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("empty context request ID: got %q, want empty", got)
	}
}

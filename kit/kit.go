// Package kit holds small cross-transport service plumbing: the Endpoint
// shape shared by HTTP and MCP surfaces, context metadata helpers, and the
// MCP tool registration glue.
package kit

import "context"

// Endpoint is a transport-agnostic service operation: it receives a decoded
// request and returns a response to be encoded by the transport layer.
type Endpoint func(ctx context.Context, req any) (any, error)

package rpc

import "encoding/json"

// JSON-RPC methods understood by tool servers.
const (
	MethodInitialize = "initialize"
	MethodToolsList  = "tools/list"
	MethodToolsCall  = "tools/call"
)

// jsonRPCVersion is the protocol version stamped on every request.
const jsonRPCVersion = "2.0"

// Request is a JSON-RPC 2.0 request. Each request is serialized as exactly
// one line of JSON terminated by a newline.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

// Response is a JSON-RPC 2.0 response carrying either a result or an error.
//
// Method is populated on server-initiated requests and notifications, which
// share the wire with responses; the read loop uses it to tell them apart.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *WireError      `json:"error,omitempty"`
}

// WireError is a JSON-RPC 2.0 error object.
type WireError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

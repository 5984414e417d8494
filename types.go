package toolmux

import (
	"encoding/json"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/toolmux/toolmux/internal/config"
	"github.com/toolmux/toolmux/internal/registry"
)

// ServerConfig describes one tool-server process to launch. The JSON tags
// match the entries of a standard mcpServers document; see LoadConfig.
type ServerConfig = config.ServerConfig

// ToolInfo is one entry of the caller-facing tool catalogue, shaped for
// handing to a function-calling capable model.
type ToolInfo struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"inputSchema"`
}

// ToolConflict records a rejected duplicate tool registration: a second
// server offered a name the catalogue already holds.
type ToolConflict = registry.Conflict

// Provenance identifies which server and tool produced a result, with a
// per-call trace id for auditing and the elapsed call duration.
type Provenance struct {
	TraceID string        `json:"traceId"`
	Server  string        `json:"server"`
	Tool    string        `json:"tool"`
	Elapsed time.Duration `json:"elapsed"`
}

// ToolResult is a successful tool invocation: the server's result payload
// plus provenance. Provenance is attached per call, never shared between
// concurrent invocations.
type ToolResult struct {
	Result     json.RawMessage `json:"result"`
	Provenance Provenance      `json:"provenance"`
}

// LoadConfig reads an mcpServers JSON file, e.g.:
//
//	{
//	  "mcpServers": {
//	    "maps": {"command": "npx", "args": ["-y", "example-maps-server"]}
//	  }
//	}
//
// Servers are returned sorted by name.
func LoadConfig(path string) ([]ServerConfig, error) {
	return config.Load(path)
}

package toolmux

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	interrors "github.com/toolmux/toolmux/internal/errors"
	"github.com/toolmux/toolmux/internal/registry"
	"github.com/toolmux/toolmux/internal/rpc"
)

// protocolVersion is the MCP revision negotiated with tool servers.
const protocolVersion = "2024-11-05"

type clientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type toolCapability struct {
	Tools struct{} `json:"tools"`
}

type initializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    toolCapability `json:"capabilities"`
	ClientInfo      clientInfo     `json:"clientInfo"`
}

type listedTool struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"inputSchema"`
}

type toolsListResult struct {
	Tools []listedTool `json:"tools"`
}

// handshake drives a freshly started server to usability: initialize with
// protocol version and capability negotiation, then tools/list. Both steps
// are bounded by the handshake timeout. It returns the discovered tool
// descriptors; registration is the caller's job.
func (s *Service) handshake(ctx context.Context, server string, client *rpc.Client) ([]registry.Descriptor, error) {
	params := initializeParams{
		ProtocolVersion: protocolVersion,
		ClientInfo: clientInfo{
			Name:    s.opts.clientName,
			Version: s.opts.clientVersion,
		},
	}

	_, wireErr, err := client.Call(ctx, rpc.MethodInitialize, params, s.opts.handshakeTimeout)
	if err != nil {
		return nil, &interrors.HandshakeError{Server: server, Stage: rpc.MethodInitialize, Err: err}
	}

	if wireErr != nil {
		return nil, &interrors.HandshakeError{
			Server: server,
			Stage:  rpc.MethodInitialize,
			Err:    fmt.Errorf("server error %d: %s", wireErr.Code, wireErr.Message),
		}
	}

	result, wireErr, err := client.Call(ctx, rpc.MethodToolsList, map[string]any{}, s.opts.handshakeTimeout)
	if err != nil {
		return nil, &interrors.HandshakeError{Server: server, Stage: rpc.MethodToolsList, Err: err}
	}

	if wireErr != nil {
		return nil, &interrors.HandshakeError{
			Server: server,
			Stage:  rpc.MethodToolsList,
			Err:    fmt.Errorf("server error %d: %s", wireErr.Code, wireErr.Message),
		}
	}

	var listed toolsListResult

	if err := json.Unmarshal(result, &listed); err != nil {
		return nil, &interrors.HandshakeError{
			Server: server,
			Stage:  rpc.MethodToolsList,
			Err:    fmt.Errorf("malformed tools payload: %w", err),
		}
	}

	descriptors := make([]registry.Descriptor, 0, len(listed.Tools))

	for _, tool := range listed.Tools {
		if tool.Name == "" {
			s.log.Warn("Skipping tool without name", "server", server)

			continue
		}

		descriptors = append(descriptors, registry.Descriptor{
			Name:        tool.Name,
			Server:      server,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		})
	}

	return descriptors, nil
}

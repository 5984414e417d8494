// demo-server is a stdio tool server for exercising toolmux end to end:
//
//	toolmux call echo --args '{"text":"hi"}' --config demo.json
//
// with a config entry pointing at this binary.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "demo-server",
		Version: "1.0.0",
	}, nil)

	server.AddTool(&mcp.Tool{
		Name:        "echo",
		Description: "Echo the given text back to the caller",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"text": {Type: "string"},
			},
			Required: []string{"text"},
		},
	}, handleEcho)

	server.AddTool(&mcp.Tool{
		Name:        "uppercase",
		Description: "Uppercase the given text",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"text": {Type: "string"},
			},
			Required: []string{"text"},
		},
	}, handleUppercase)

	server.AddTool(&mcp.Tool{
		Name:        "now",
		Description: "Report the current time in RFC 3339 format",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, handleNow)

	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func handleEcho(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := textArgument(req)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	return textResult(text), nil
}

func handleUppercase(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := textArgument(req)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	return textResult(strings.ToUpper(text)), nil
}

func handleNow(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return textResult(time.Now().Format(time.RFC3339)), nil
}

func textArgument(req *mcp.CallToolRequest) (string, error) {
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return "", fmt.Errorf("missing arguments")
	}

	var args struct {
		Text string `json:"text"`
	}

	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return "", fmt.Errorf("parse arguments: %w", err)
	}

	if args.Text == "" {
		return "", fmt.Errorf("text argument is required")
	}

	return args.Text, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: message}},
		IsError: true,
	}
}

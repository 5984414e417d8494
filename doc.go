// Package toolmux orchestrates external tool-server processes speaking
// newline-delimited JSON-RPC over stdin/stdout.
//
// The Service launches each configured server as a child process, performs
// the initialize + tools/list handshake, aggregates the discovered tools
// into a single catalogue, and routes later tool calls to the owning
// process. Every result carries provenance: which server and tool produced
// it, a per-call trace id, and the elapsed duration.
//
// # Basic Usage
//
//	svc := toolmux.New(
//	    toolmux.WithLogger(slog.Default()),
//	)
//	defer svc.Shutdown()
//
//	err := svc.Initialize(ctx, []toolmux.ServerConfig{
//	    {Name: "maps", Command: "npx", Args: []string{"-y", "example-maps-server"}},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, tool := range svc.ListTools() {
//	    fmt.Println(tool.Name, "-", tool.Description)
//	}
//
//	result, err := svc.CallTool(ctx, "search", map[string]any{"q": "ramen"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%s (trace %s, %s)\n", result.Result, result.Provenance.TraceID, result.Provenance.Elapsed)
//
// A server that fails to start or to complete its handshake contributes no
// tools but never prevents the remaining servers from coming up.
// Invocation failures are returned as typed errors (ToolNotFoundError,
// ServerUnavailableError, RPCError, TimeoutError) rather than panics.
package toolmux

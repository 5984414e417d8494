// Package rpc implements the newline-delimited JSON-RPC 2.0 transport
// spoken with tool-server processes.
//
// The rpc package provides a Client that owns one side of a server's
// stdin/stdout pair. Writes are serialized so concurrent callers never
// interleave on the wire, and a dedicated read loop correlates each
// incoming response to its waiting caller by request id. Request ids are
// scoped to a single client; two servers may use the same numeric ids
// without ambiguity.
//
// Example usage:
//
//	client := rpc.NewClient(log, "search-server", proc.Stdin, proc.Stdout)
//	client.Start()
//
//	result, wireErr, err := client.Call(ctx, rpc.MethodToolsList, map[string]any{}, 10*time.Second)
package rpc

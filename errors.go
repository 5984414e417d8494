package toolmux

import "github.com/toolmux/toolmux/internal/errors"

// Re-export error types from internal package

// ProcessSpawnError indicates a tool-server process failed to start.
type ProcessSpawnError = errors.ProcessSpawnError

// HandshakeError indicates the initialize or tools/list exchange failed.
type HandshakeError = errors.HandshakeError

// ProtocolParseError indicates a malformed line from a tool server.
type ProtocolParseError = errors.ProtocolParseError

// ToolNotFoundError indicates the requested tool is not in the registry.
type ToolNotFoundError = errors.ToolNotFoundError

// ServerUnavailableError indicates the owning server crashed, never
// started, or the service has shut down.
type ServerUnavailableError = errors.ServerUnavailableError

// RPCError carries a well-formed JSON-RPC error returned by a tool server.
type RPCError = errors.RPCError

// TimeoutError indicates a call did not complete within its timeout.
type TimeoutError = errors.TimeoutError

// OrchestratorError is the base interface for all toolmux errors.
type OrchestratorError = errors.OrchestratorError

// Re-export sentinel errors from internal package.
var (
	// ErrServiceShutdown indicates the service has been shut down.
	ErrServiceShutdown = errors.ErrServiceShutdown

	// ErrServerNotStarted indicates the owning server process never started.
	ErrServerNotStarted = errors.ErrServerNotStarted

	// ErrServerExited indicates the server process exited unexpectedly.
	ErrServerExited = errors.ErrServerExited

	// ErrClientClosed indicates the protocol client has been closed.
	ErrClientClosed = errors.ErrClientClosed
)

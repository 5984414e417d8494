package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// OrchestratorError is the base interface for all toolmux errors.
type OrchestratorError interface {
	error
	IsOrchestratorError() bool
}

// Compile-time verification that all error types implement OrchestratorError.
var (
	_ OrchestratorError = (*ProcessSpawnError)(nil)
	_ OrchestratorError = (*HandshakeError)(nil)
	_ OrchestratorError = (*ProtocolParseError)(nil)
	_ OrchestratorError = (*ToolNotFoundError)(nil)
	_ OrchestratorError = (*ServerUnavailableError)(nil)
	_ OrchestratorError = (*RPCError)(nil)
	_ OrchestratorError = (*TimeoutError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrServiceShutdown indicates the service has been shut down.
	ErrServiceShutdown = errors.New("service shut down")

	// ErrServerNotStarted indicates the owning server process never started.
	ErrServerNotStarted = errors.New("server not started")

	// ErrServerExited indicates the server process exited unexpectedly.
	ErrServerExited = errors.New("server process exited")

	// ErrClientClosed indicates the protocol client has been closed.
	ErrClientClosed = errors.New("protocol client closed")
)

// ProcessSpawnError indicates a tool-server process failed to start.
type ProcessSpawnError struct {
	Server string
	Err    error
}

func (e *ProcessSpawnError) Error() string {
	return fmt.Sprintf("spawn server %q: %v", e.Server, e.Err)
}

func (e *ProcessSpawnError) Unwrap() error {
	return e.Err
}

// IsOrchestratorError implements OrchestratorError.
func (e *ProcessSpawnError) IsOrchestratorError() bool { return true }

// HandshakeError indicates the initialize or tools/list exchange failed.
// Stage is "initialize" or "tools/list".
type HandshakeError struct {
	Server string
	Stage  string
	Err    error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("handshake with server %q failed at %s: %v", e.Server, e.Stage, e.Err)
}

func (e *HandshakeError) Unwrap() error {
	return e.Err
}

// IsOrchestratorError implements OrchestratorError.
func (e *HandshakeError) IsOrchestratorError() bool { return true }

// ProtocolParseError indicates a line from a tool server was not valid
// JSON-RPC. The read loop recovers from these locally; the error preserves
// the raw line for logging.
type ProtocolParseError struct {
	Server  string
	RawLine string
	Err     error
}

func (e *ProtocolParseError) Error() string {
	return fmt.Sprintf("malformed line from server %q: %v", e.Server, e.Err)
}

func (e *ProtocolParseError) Unwrap() error {
	return e.Err
}

// IsOrchestratorError implements OrchestratorError.
func (e *ProtocolParseError) IsOrchestratorError() bool { return true }

// ToolNotFoundError indicates the requested tool is not in the registry.
type ToolNotFoundError struct {
	Tool string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("tool %q not found", e.Tool)
}

// IsOrchestratorError implements OrchestratorError.
func (e *ToolNotFoundError) IsOrchestratorError() bool { return true }

// ServerUnavailableError indicates the owning server crashed, never
// started, or the service has shut down.
type ServerUnavailableError struct {
	Server string
	Err    error
}

func (e *ServerUnavailableError) Error() string {
	if e.Server == "" {
		return fmt.Sprintf("server unavailable: %v", e.Err)
	}

	return fmt.Sprintf("server %q unavailable: %v", e.Server, e.Err)
}

func (e *ServerUnavailableError) Unwrap() error {
	return e.Err
}

// IsOrchestratorError implements OrchestratorError.
func (e *ServerUnavailableError) IsOrchestratorError() bool { return true }

// RPCError carries a well-formed JSON-RPC error object returned by a tool
// server.
type RPCError struct {
	Server  string
	Tool    string
	Code    int
	Message string
	Data    json.RawMessage
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("server %q returned error for tool %q: %s (code %d)", e.Server, e.Tool, e.Message, e.Code)
}

// IsOrchestratorError implements OrchestratorError.
func (e *RPCError) IsOrchestratorError() bool { return true }

// TimeoutError indicates a call did not complete within its timeout.
type TimeoutError struct {
	Server  string
	Method  string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s on server %q timed out after %s", e.Method, e.Server, e.Timeout)
}

// IsOrchestratorError implements OrchestratorError.
func (e *TimeoutError) IsOrchestratorError() bool { return true }

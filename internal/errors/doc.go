// Package errors defines error types for the toolmux orchestrator.
//
// This package provides structured error types for the failure scenarios
// that arise when launching tool-server processes and speaking the line
// protocol with them. All error types support error unwrapping and can be
// checked using errors.Is, errors.As, and errors.AsType.
package errors

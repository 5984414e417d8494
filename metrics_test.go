package toolmux

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassifyCallError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want CallStatus
	}{
		{"nil is success", nil, CallStatusSuccess},
		{"tool not found", &ToolNotFoundError{Tool: "x"}, CallStatusNotFound},
		{"server unavailable", &ServerUnavailableError{Server: "mock", Err: ErrServerExited}, CallStatusUnavailable},
		{"timeout", &TimeoutError{Server: "mock", Method: "tools/call", Timeout: time.Second}, CallStatusTimeout},
		{"rpc error", &RPCError{Server: "mock", Tool: "x", Code: -32602}, CallStatusRPCError},
		{"context canceled", context.Canceled, CallStatusCancelled},
		{"deadline exceeded", fmt.Errorf("call: %w", context.DeadlineExceeded), CallStatusCancelled},
		{"wrapped timeout", fmt.Errorf("call: %w", &TimeoutError{Server: "mock"}), CallStatusTimeout},
		{"anything else", fmt.Errorf("boom"), CallStatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyCallError(tt.err))
		})
	}
}

package toolmux

import (
	"context"
	"errors"
	"time"

	interrors "github.com/toolmux/toolmux/internal/errors"
)

// CallMetric is one observed tool invocation.
type CallMetric struct {
	Server  string
	Tool    string
	Status  CallStatus
	Elapsed time.Duration
}

// CallStatus classifies a tool invocation outcome.
type CallStatus string

const (
	CallStatusSuccess     = CallStatus("success")
	CallStatusNotFound    = CallStatus("not_found")
	CallStatusUnavailable = CallStatus("unavailable")
	CallStatusTimeout     = CallStatus("timeout")
	CallStatusRPCError    = CallStatus("rpc_error")
	CallStatusCancelled   = CallStatus("cancelled")
	CallStatusError       = CallStatus("error")
)

// Metrics receives per-call observations. Implementations must be safe for
// concurrent use. See telemetry.NewPrometheusMetrics.
type Metrics interface {
	ObserveCall(m CallMetric)
}

func classifyCallError(err error) CallStatus {
	if err == nil {
		return CallStatusSuccess
	}

	var (
		notFound    *interrors.ToolNotFoundError
		unavailable *interrors.ServerUnavailableError
		timeout     *interrors.TimeoutError
		rpcErr      *interrors.RPCError
	)

	switch {
	case errors.As(err, &notFound):
		return CallStatusNotFound
	case errors.As(err, &unavailable):
		return CallStatusUnavailable
	case errors.As(err, &timeout):
		return CallStatusTimeout
	case errors.As(err, &rpcErr):
		return CallStatusRPCError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CallStatusCancelled
	default:
		return CallStatusError
	}
}

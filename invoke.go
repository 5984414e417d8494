package toolmux

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"

	interrors "github.com/toolmux/toolmux/internal/errors"
	"github.com/toolmux/toolmux/internal/rpc"
)

// toolCallParams is the wire shape of a tools/call request.
type toolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// CallTool invokes a tool by name with the default call timeout.
func (s *Service) CallTool(ctx context.Context, name string, arguments map[string]any) (*ToolResult, error) {
	return s.CallToolWithTimeout(ctx, name, arguments, s.opts.callTimeout)
}

// CallToolWithTimeout invokes a tool by name, waiting up to timeout for
// the correlated response.
//
// An unknown name yields ToolNotFoundError without touching any process.
// The call completes exactly once: with the matching response, with
// ServerUnavailableError if the owning process fails, or with TimeoutError
// when the timeout elapses — a response arriving after that is discarded.
// Concurrent calls, including to the same server, interleave safely.
func (s *Service) CallToolWithTimeout(
	ctx context.Context,
	name string,
	arguments map[string]any,
	timeout time.Duration,
) (result *ToolResult, err error) {
	if s.opts.metrics != nil {
		start := time.Now()

		defer func() {
			s.observeCall(name, result, err, time.Since(start))
		}()
	}

	if s.isShutdown() {
		return nil, &interrors.ServerUnavailableError{Err: interrors.ErrServiceShutdown}
	}

	desc, ok := s.reg.Lookup(name)
	if !ok {
		return nil, &interrors.ToolNotFoundError{Tool: name}
	}

	conn := s.conn(desc.Server)
	if conn == nil {
		return nil, &interrors.ServerUnavailableError{
			Server: desc.Server,
			Err:    interrors.ErrServerNotStarted,
		}
	}

	// Trace id for provenance, minted per call and independent of the
	// wire-level request id.
	traceID := ulid.Make().String()

	log := s.log.With("trace_id", traceID, "tool", name, "server", desc.Server)
	log.Info("Calling tool")

	if arguments == nil {
		arguments = map[string]any{}
	}

	start := time.Now()

	payload, wireErr, err := conn.client.Call(ctx, rpc.MethodToolsCall, toolCallParams{
		Name:      name,
		Arguments: arguments,
	}, timeout)

	elapsed := time.Since(start)

	if err != nil {
		log.Warn("Tool call failed", "error", err, "elapsed", elapsed)

		return nil, err
	}

	if wireErr != nil {
		log.Warn("Tool call returned error",
			"code", wireErr.Code,
			"message", wireErr.Message,
			"elapsed", elapsed,
		)

		return nil, &interrors.RPCError{
			Server:  desc.Server,
			Tool:    name,
			Code:    wireErr.Code,
			Message: wireErr.Message,
			Data:    wireErr.Data,
		}
	}

	log.Info("Tool call completed", "elapsed", elapsed)

	return &ToolResult{
		Result: payload,
		Provenance: Provenance{
			TraceID: traceID,
			Server:  desc.Server,
			Tool:    name,
			Elapsed: elapsed,
		},
	}, nil
}

func (s *Service) observeCall(tool string, result *ToolResult, err error, elapsed time.Duration) {
	metric := CallMetric{
		Tool:    tool,
		Status:  classifyCallError(err),
		Elapsed: elapsed,
	}

	if result != nil {
		metric.Server = result.Provenance.Server
	} else if desc, ok := s.reg.Lookup(tool); ok {
		metric.Server = desc.Server
	}

	s.opts.metrics.ObserveCall(metric)
}

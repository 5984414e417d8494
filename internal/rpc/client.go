package rpc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/toolmux/toolmux/internal/errors"
)

// maxScanTokenSize is the maximum buffer size for reading tool-server
// output lines.
const maxScanTokenSize = 1024 * 1024 // 1MB

// Client speaks newline-delimited JSON-RPC 2.0 with one tool-server
// process.
//
// The Client enforces single-writer discipline on the server's stdin:
// concurrent calls may be outstanding, but their request lines are written
// atomically and never interleaved. A dedicated read loop drains the
// server's stdout and dispatches each response to the waiting call by id.
type Client struct {
	log    *slog.Logger
	server string

	stdin   io.Writer
	stdout  io.Reader
	writeMu sync.Mutex

	nextID atomic.Int64

	// Correlation table: request id to the channel its caller waits on.
	// failErr is set exactly once when the transport dies; after that no
	// new calls are admitted.
	pendingMu sync.Mutex
	pending   map[int64]chan *Response
	failErr   error

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewClient creates a protocol client for the named server over the given
// stdin/stdout pair. Call Start to begin the read loop.
func NewClient(log *slog.Logger, server string, stdin io.Writer, stdout io.Reader) *Client {
	return &Client{
		log:     log.With("component", "rpc", "server", server),
		server:  server,
		stdin:   stdin,
		stdout:  stdout,
		pending: make(map[int64]chan *Response, 8),
		done:    make(chan struct{}),
	}
}

// Server returns the name of the server this client is bound to.
func (c *Client) Server() string {
	return c.server
}

// Start launches the read loop. It must be called exactly once before the
// first Call.
func (c *Client) Start() {
	c.wg.Add(1)

	go c.readLoop()
}

// Done returns a channel that is closed when the read loop has exited and
// every outstanding call has been failed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that terminated the client, if any.
func (c *Client) Err() error {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	return c.failErr
}

// Close fails all outstanding calls with ErrClientClosed and rejects new
// ones. It does not close the underlying pipes; the process owner does
// that, which in turn unblocks the read loop. Safe to call multiple times.
func (c *Client) Close() {
	c.fail(errors.ErrClientClosed)
}

// Wait blocks until the read loop goroutine has exited. Callers must
// ensure the server's stdout has been closed first or Wait will block.
func (c *Client) Wait() {
	c.wg.Wait()
}

// Call sends a request and blocks until the matching response arrives, the
// timeout elapses, the context is cancelled, or the transport dies —
// whichever happens first.
//
// A well-formed JSON-RPC error object is returned as a *WireError with a
// nil error; transport-level failures are returned as errors. A response
// arriving after the timeout is discarded by the read loop and cannot
// satisfy a later call.
func (c *Client) Call(
	ctx context.Context,
	method string,
	params any,
	timeout time.Duration,
) (json.RawMessage, *WireError, error) {
	id := c.nextID.Add(1)

	respChan := make(chan *Response, 1)

	c.pendingMu.Lock()

	if c.failErr != nil {
		err := c.failErr
		c.pendingMu.Unlock()

		return nil, nil, &errors.ServerUnavailableError{Server: c.server, Err: err}
	}

	c.pending[id] = respChan
	c.pendingMu.Unlock()

	c.log.Debug("Sending request", "id", id, "method", method)

	if err := c.send(&Request{
		JSONRPC: jsonRPCVersion,
		ID:      id,
		Method:  method,
		Params:  params,
	}); err != nil {
		c.removePending(id)

		return nil, nil, &errors.ServerUnavailableError{Server: c.server, Err: err}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-respChan:
		if resp.Error != nil {
			c.log.Debug("Request returned error", "id", id, "code", resp.Error.Code, "message", resp.Error.Message)

			return nil, resp.Error, nil
		}

		c.log.Debug("Request completed", "id", id)

		return resp.Result, nil, nil

	case <-timer.C:
		c.removePending(id)
		c.log.Warn("Request timed out", "id", id, "method", method, "timeout", timeout)

		return nil, nil, &errors.TimeoutError{Server: c.server, Method: method, Timeout: timeout}

	case <-c.done:
		c.log.Debug("Transport failed during request", "id", id)

		return nil, nil, &errors.ServerUnavailableError{Server: c.server, Err: c.Err()}

	case <-ctx.Done():
		c.removePending(id)
		c.log.Debug("Request cancelled", "id", id)

		return nil, nil, ctx.Err()
	}
}

// send serializes the request and writes it as a single line. The write
// mutex guarantees lines are never merged or reordered relative to each
// other.
func (c *Client) send(req *Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	line := make([]byte, len(data)+1)
	copy(line, data)
	line[len(data)] = '\n'

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if _, err := c.stdin.Write(line); err != nil {
		return fmt.Errorf("write to stdin: %w", err)
	}

	return nil
}

// removePending deletes a pending entry after timeout or cancellation so a
// late response is discarded instead of delivered.
func (c *Client) removePending(id int64) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

// fail marks the client dead, discards the correlation table, and wakes
// every waiting caller via the done channel. The first error wins.
func (c *Client) fail(err error) {
	c.pendingMu.Lock()

	if c.failErr == nil {
		c.failErr = err
	}

	n := len(c.pending)
	c.pending = make(map[int64]chan *Response)

	c.pendingMu.Unlock()

	if n > 0 {
		c.log.Warn("Failing outstanding calls", "count", n, "error", err)
	}

	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// readLoop continuously parses incoming lines and dispatches responses.
// It exits on end-of-stream or a read error, failing every outstanding
// call for this server.
func (c *Client) readLoop() {
	defer c.wg.Done()
	defer c.log.Debug("Read loop stopped")

	scanner := bufio.NewScanner(c.stdout)
	buf := make([]byte, maxScanTokenSize)
	scanner.Buffer(buf, maxScanTokenSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var resp Response

		if err := json.Unmarshal(line, &resp); err != nil {
			parseErr := &errors.ProtocolParseError{
				Server:  c.server,
				RawLine: string(line),
				Err:     err,
			}
			c.log.Warn("Skipping malformed line", "error", parseErr)

			continue
		}

		// Server-initiated requests and notifications carry a method.
		// This client never answers them; log and move on.
		if resp.Method != "" {
			c.log.Debug("Ignoring server-initiated message", "method", resp.Method)

			continue
		}

		if resp.ID == nil {
			c.log.Warn("Skipping response without id")

			continue
		}

		c.dispatch(*resp.ID, &resp)
	}

	err := scanner.Err()
	if err != nil {
		c.log.Warn("Read loop error", "error", err)
	} else {
		err = io.EOF
		c.log.Debug("Server closed its output stream")
	}

	c.fail(err)
}

// dispatch claims the pending entry for id and delivers the response. A
// response with no matching entry (late arrival after timeout, or a
// protocol violation) is logged and discarded; it must never satisfy a
// different call reusing the same numeric id.
func (c *Client) dispatch(id int64, resp *Response) {
	c.pendingMu.Lock()

	respChan, exists := c.pending[id]
	if exists {
		delete(c.pending, id)
	}

	c.pendingMu.Unlock()

	if !exists {
		c.log.Warn("Discarding response with no pending call", "id", id)

		return
	}

	// Channel is buffered; the caller may already be gone but the send
	// never blocks.
	respChan <- resp
}

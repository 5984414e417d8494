package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolmux/toolmux/internal/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeServer is the far side of a client's pipes. Tests read requests from
// Requests and write responses with Respond.
type fakeServer struct {
	stdinR  *io.PipeReader
	stdinW  *io.PipeWriter
	stdoutR *io.PipeReader
	stdoutW *io.PipeWriter

	writeMu sync.Mutex
}

func newFakeServer() *fakeServer {
	stdinR, stdinW := io.Pipe()
	stdoutR, stdoutW := io.Pipe()

	return &fakeServer{
		stdinR:  stdinR,
		stdinW:  stdinW,
		stdoutR: stdoutR,
		stdoutW: stdoutW,
	}
}

func (f *fakeServer) client(t *testing.T) *Client {
	t.Helper()

	client := NewClient(testLogger(), "fake", f.stdinW, f.stdoutR)
	client.Start()

	t.Cleanup(func() {
		f.closeOutput()
		client.Wait()
	})

	return client
}

// readRequest blocks until the next request line arrives.
func (f *fakeServer) readRequest(t *testing.T, scanner *bufio.Scanner) Request {
	t.Helper()

	require.True(t, scanner.Scan(), "expected a request line")

	var req Request

	require.NoError(t, json.Unmarshal(scanner.Bytes(), &req))
	require.Equal(t, "2.0", req.JSONRPC)

	return req
}

func (f *fakeServer) scanner() *bufio.Scanner {
	return bufio.NewScanner(f.stdinR)
}

func (f *fakeServer) respond(t *testing.T, id int64, result any) {
	t.Helper()

	data, err := json.Marshal(result)
	require.NoError(t, err)

	f.writeLine(t, fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"result":%s}`, id, data))
}

func (f *fakeServer) respondError(t *testing.T, id int64, code int, message string) {
	t.Helper()

	f.writeLine(t, fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"error":{"code":%d,"message":%q}}`, id, code, message))
}

func (f *fakeServer) writeLine(t *testing.T, line string) {
	t.Helper()

	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	_, err := io.WriteString(f.stdoutW, line+"\n")
	require.NoError(t, err)
}

func (f *fakeServer) closeOutput() {
	_ = f.stdoutW.Close()
}

func TestClient_CallReturnsResult(t *testing.T) {
	server := newFakeServer()
	client := server.client(t)

	go func() {
		scanner := server.scanner()
		req := server.readRequest(t, scanner)
		assert.Equal(t, MethodToolsList, req.Method)
		server.respond(t, req.ID, map[string]any{"tools": []any{}})
	}()

	result, wireErr, err := client.Call(context.Background(), MethodToolsList, map[string]any{}, time.Second)
	require.NoError(t, err)
	require.Nil(t, wireErr)
	require.JSONEq(t, `{"tools":[]}`, string(result))
}

func TestClient_CallReturnsWireError(t *testing.T) {
	server := newFakeServer()
	client := server.client(t)

	go func() {
		scanner := server.scanner()
		req := server.readRequest(t, scanner)
		server.respondError(t, req.ID, -32601, "method not found")
	}()

	result, wireErr, err := client.Call(context.Background(), "nope", map[string]any{}, time.Second)
	require.NoError(t, err)
	require.Nil(t, result)
	require.NotNil(t, wireErr)
	require.Equal(t, -32601, wireErr.Code)
	require.Equal(t, "method not found", wireErr.Message)
}

func TestClient_RequestIDsAreUnique(t *testing.T) {
	server := newFakeServer()
	client := server.client(t)

	seen := make(map[int64]bool)
	seenMu := sync.Mutex{}

	go func() {
		scanner := server.scanner()

		for range 10 {
			req := server.readRequest(t, scanner)

			seenMu.Lock()
			assert.False(t, seen[req.ID], "request id %d reused", req.ID)
			seen[req.ID] = true
			seenMu.Unlock()

			server.respond(t, req.ID, map[string]any{"ok": true})
		}
	}()

	for range 10 {
		_, wireErr, err := client.Call(context.Background(), MethodToolsCall, map[string]any{}, time.Second)
		require.NoError(t, err)
		require.Nil(t, wireErr)
	}
}

func TestClient_ConcurrentCallsPairedWithOwnArguments(t *testing.T) {
	const n = 64

	server := newFakeServer()
	client := server.client(t)

	// Echo server: replies to each request with its own params, after
	// collecting a batch so responses go out in an arbitrary order
	// relative to request submission.
	go func() {
		scanner := server.scanner()

		type echo struct {
			id     int64
			params any
		}

		batch := make([]echo, 0, n)
		for range n {
			req := server.readRequest(t, scanner)
			batch = append(batch, echo{id: req.ID, params: req.Params})
		}

		// Reply in reverse arrival order.
		for i := len(batch) - 1; i >= 0; i-- {
			server.respond(t, batch[i].id, batch[i].params)
		}
	}()

	var wg sync.WaitGroup

	for i := range n {
		wg.Go(func() {
			params := map[string]any{"q": fmt.Sprintf("query-%d", i)}

			result, wireErr, err := client.Call(context.Background(), MethodToolsCall, params, 10*time.Second)
			assert.NoError(t, err)
			assert.Nil(t, wireErr)

			var got map[string]any

			assert.NoError(t, json.Unmarshal(result, &got))
			assert.Equal(t, fmt.Sprintf("query-%d", i), got["q"], "response paired with wrong call")
		})
	}

	wg.Wait()
}

func TestClient_OutOfOrderResponses(t *testing.T) {
	server := newFakeServer()
	client := server.client(t)

	ready := make(chan struct{})

	go func() {
		scanner := server.scanner()
		first := server.readRequest(t, scanner)
		second := server.readRequest(t, scanner)
		close(ready)

		server.respond(t, second.ID, map[string]any{"order": "second"})
		server.respond(t, first.ID, map[string]any{"order": "first"})
	}()

	results := make(map[string]string)

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	call := func(label string) {
		defer wg.Done()

		result, _, err := client.Call(context.Background(), MethodToolsCall, map[string]any{"label": label}, 5*time.Second)
		assert.NoError(t, err)

		var got map[string]any

		assert.NoError(t, json.Unmarshal(result, &got))

		mu.Lock()
		results[label], _ = got["order"].(string)
		mu.Unlock()
	}

	wg.Add(2)

	go call("a")

	// Crude ordering: give call "a" a head start so it holds id 1.
	time.Sleep(50 * time.Millisecond)

	go call("b")

	wg.Wait()
	<-ready

	require.Equal(t, "first", results["a"])
	require.Equal(t, "second", results["b"])
}

func TestClient_TimeoutThenLateResponseDiscarded(t *testing.T) {
	server := newFakeServer()
	client := server.client(t)

	requests := make(chan Request, 2)

	go func() {
		scanner := server.scanner()
		for range 2 {
			requests <- server.readRequest(t, scanner)
		}
	}()

	// First call times out; the server never answers in time.
	_, _, err := client.Call(context.Background(), MethodToolsCall, map[string]any{"call": 1}, 20*time.Millisecond)
	require.Error(t, err)

	var timeoutErr *errors.TimeoutError

	require.ErrorAs(t, err, &timeoutErr)
	require.Equal(t, "fake", timeoutErr.Server)

	first := <-requests

	// Late response for the timed-out call arrives now. It must be
	// discarded, not delivered to the next call.
	server.respond(t, first.ID, map[string]any{"stale": true})

	done := make(chan struct{})

	go func() {
		defer close(done)

		second := <-requests
		server.respond(t, second.ID, map[string]any{"fresh": true})
	}()

	result, wireErr, err := client.Call(context.Background(), MethodToolsCall, map[string]any{"call": 2}, 5*time.Second)
	require.NoError(t, err)
	require.Nil(t, wireErr)
	require.JSONEq(t, `{"fresh":true}`, string(result))

	<-done
}

func TestClient_MalformedLineSkipped(t *testing.T) {
	server := newFakeServer()
	client := server.client(t)

	go func() {
		scanner := server.scanner()
		req := server.readRequest(t, scanner)

		server.writeLine(t, "this is not json")
		server.writeLine(t, `{"jsonrpc":"2.0","id":`)
		server.respond(t, req.ID, map[string]any{"ok": true})
	}()

	result, wireErr, err := client.Call(context.Background(), MethodToolsCall, map[string]any{}, time.Second)
	require.NoError(t, err)
	require.Nil(t, wireErr)
	require.JSONEq(t, `{"ok":true}`, string(result))
}

func TestClient_NotificationIgnored(t *testing.T) {
	server := newFakeServer()
	client := server.client(t)

	go func() {
		scanner := server.scanner()
		req := server.readRequest(t, scanner)

		server.writeLine(t, `{"jsonrpc":"2.0","method":"notifications/progress","params":{"progress":0.5}}`)
		server.respond(t, req.ID, map[string]any{"ok": true})
	}()

	result, _, err := client.Call(context.Background(), MethodToolsCall, map[string]any{}, time.Second)
	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, string(result))
}

func TestClient_EOFFailsOutstandingCalls(t *testing.T) {
	server := newFakeServer()
	client := server.client(t)

	go func() {
		scanner := server.scanner()
		server.readRequest(t, scanner)

		// Simulate a crash: close stdout without answering.
		server.closeOutput()
	}()

	_, _, err := client.Call(context.Background(), MethodToolsCall, map[string]any{}, 5*time.Second)
	require.Error(t, err)

	var unavailable *errors.ServerUnavailableError

	require.ErrorAs(t, err, &unavailable)
	require.Equal(t, "fake", unavailable.Server)
}

func TestClient_CallAfterCloseRejected(t *testing.T) {
	server := newFakeServer()
	client := server.client(t)

	client.Close()

	_, _, err := client.Call(context.Background(), MethodToolsCall, map[string]any{}, time.Second)
	require.Error(t, err)

	var unavailable *errors.ServerUnavailableError

	require.ErrorAs(t, err, &unavailable)
	require.ErrorIs(t, err, errors.ErrClientClosed)
}

func TestClient_WritesAreWholeLines(t *testing.T) {
	// Spy writer verifying the single-writer discipline: every Write call
	// must be exactly one complete, newline-terminated JSON request.
	spy := &lineSpy{}
	stdoutR, stdoutW := io.Pipe()

	client := NewClient(testLogger(), "spy", spy, stdoutR)
	client.Start()

	t.Cleanup(func() {
		_ = stdoutW.Close()
		client.Wait()
	})

	var wg sync.WaitGroup

	for range 32 {
		wg.Go(func() {
			// Short timeout: nobody answers, we only care about writes.
			_, _, _ = client.Call(context.Background(), MethodToolsCall, map[string]any{"x": 1}, 10*time.Millisecond)
		})
	}

	wg.Wait()

	writes := spy.snapshot()
	require.Len(t, writes, 32)

	for _, w := range writes {
		require.True(t, len(w) > 0 && w[len(w)-1] == '\n', "write is not newline-terminated")

		var req Request

		require.NoError(t, json.Unmarshal(w[:len(w)-1], &req), "write is not a single JSON document")
	}
}

type lineSpy struct {
	mu     sync.Mutex
	writes [][]byte
}

func (s *lineSpy) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, len(p))
	copy(buf, p)
	s.writes = append(s.writes, buf)

	return len(p), nil
}

func (s *lineSpy) snapshot() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writes
}

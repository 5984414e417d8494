package toolmux

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	interrors "github.com/toolmux/toolmux/internal/errors"
	"github.com/toolmux/toolmux/internal/registry"
	"github.com/toolmux/toolmux/internal/rpc"
	"github.com/toolmux/toolmux/internal/supervisor"
)

// Service is the tool-orchestration façade. It owns the supervisor, the
// per-server protocol clients, and the aggregated tool registry.
//
// The zero value is not usable; create instances with New. A Service is
// single-use: after Shutdown it cannot be re-initialized.
type Service struct {
	log      *slog.Logger
	opts     *serviceOptions
	launcher launcher
	reg      *registry.Registry

	mu          sync.Mutex
	initialized bool
	shutdown    bool
	servers     map[string]*serverConn
}

// serverConn pairs a Ready server process with its protocol client.
type serverConn struct {
	proc   serverProcess
	client *rpc.Client
}

// New creates a Service. No processes are started until Initialize.
func New(opts ...Option) *Service {
	options := applyOptions(opts)

	log := options.logger.With("component", "toolmux")

	l := options.launcher
	if l == nil {
		l = &supervisorLauncher{sup: supervisor.New(options.logger, options.stderr)}
	}

	return &Service{
		log:      log,
		opts:     options,
		launcher: l,
		reg:      registry.New(options.logger),
		servers:  make(map[string]*serverConn, 4),
	}
}

// Initialize launches every configured server and runs its handshake.
// Servers are brought up concurrently; a server that fails to spawn or to
// complete its handshake contributes no tools and is never fatal to the
// service. Initialize is idempotent: only the first call has any effect.
func (s *Service) Initialize(ctx context.Context, configs []ServerConfig) error {
	s.mu.Lock()

	if s.shutdown {
		s.mu.Unlock()

		return interrors.ErrServiceShutdown
	}

	if s.initialized {
		s.mu.Unlock()
		s.log.Debug("Initialize called more than once, ignoring")

		return nil
	}

	s.initialized = true
	s.mu.Unlock()

	s.log.Info("Initializing tool servers", "count", len(configs))

	seen := make(map[string]bool, len(configs))

	g, gctx := errgroup.WithContext(ctx)

	for _, cfg := range configs {
		if seen[cfg.Name] {
			s.log.Warn("Duplicate server name in configs, skipping", "server", cfg.Name)

			continue
		}

		seen[cfg.Name] = true

		g.Go(func() error {
			// Per-server failures are contained; they never cancel the
			// group or fail Initialize.
			s.startServer(gctx, cfg)

			return nil
		})
	}

	_ = g.Wait()

	tools := s.reg.List()
	s.log.Info("Tool service initialized",
		"servers_ready", s.readyCount(),
		"tools", len(tools),
		"conflicts", len(s.reg.Conflicts()),
	)

	return nil
}

// startServer spawns one server, drives its handshake, and registers its
// tools. Every failure path leaves the server in StateFailed with zero
// registry entries.
func (s *Service) startServer(ctx context.Context, cfg ServerConfig) {
	log := s.log.With("server", cfg.Name)

	proc, err := s.launcher.Start(cfg)
	if err != nil {
		log.Error("Failed to start server", "error", err)

		return
	}

	client := rpc.NewClient(s.opts.logger, cfg.Name, proc.Stdin(), proc.Stdout())
	client.Start()

	proc.SetState(supervisor.StateInitializing)

	descriptors, err := s.handshake(ctx, cfg.Name, client)
	if err != nil {
		log.Warn("Handshake failed, server contributes no tools", "error", err)
		proc.SetState(supervisor.StateFailed)
		client.Close()
		proc.Terminate(s.opts.terminateGrace)

		return
	}

	registered := 0

	for _, d := range descriptors {
		if s.reg.Register(d) {
			registered++
		}
	}

	proc.SetState(supervisor.StateReady)

	s.mu.Lock()

	if s.shutdown {
		s.mu.Unlock()
		client.Close()
		proc.Terminate(s.opts.terminateGrace)

		return
	}

	s.servers[cfg.Name] = &serverConn{proc: proc, client: client}
	s.mu.Unlock()

	go s.watch(cfg.Name, proc, client)

	log.Info("Server ready", "tools", registered)
}

// watch runs for the server's lifetime. When the process dies or its
// read loop ends, it evicts the server's tools on unexpected failure,
// independent of the shutdown path.
func (s *Service) watch(name string, proc serverProcess, client *rpc.Client) {
	select {
	case <-proc.Exited():
	case <-client.Done():
		if !errors.Is(client.Err(), interrors.ErrClientClosed) {
			// The transport broke while the process may still be alive;
			// the server is unusable either way.
			proc.SetState(supervisor.StateFailed)
			proc.Terminate(s.opts.terminateGrace)
		}
	}

	client.Close()

	if proc.State() == supervisor.StateFailed {
		s.log.Warn("Server failed, evicting its tools", "server", name)
		s.reg.Evict(name)
	}

	s.mu.Lock()
	if conn, ok := s.servers[name]; ok && conn.proc == proc {
		delete(s.servers, name)
	}
	s.mu.Unlock()
}

// ListTools returns the caller-facing tool catalogue in registration
// order. After Shutdown it returns an empty slice.
func (s *Service) ListTools() []ToolInfo {
	s.mu.Lock()

	if s.shutdown {
		s.mu.Unlock()

		return []ToolInfo{}
	}

	s.mu.Unlock()

	descriptors := s.reg.List()

	out := make([]ToolInfo, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, ToolInfo{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: d.InputSchema,
		})
	}

	return out
}

// ToolConflicts returns diagnostics for duplicate tool names rejected
// during registration.
func (s *Service) ToolConflicts() []ToolConflict {
	return s.reg.Conflicts()
}

// Shutdown terminates every server process, fails outstanding calls with
// ServerUnavailableError, and clears the registry. It is idempotent and
// never fails; a process that refuses the polite terminate signal is
// force-killed after the grace period.
func (s *Service) Shutdown() {
	s.mu.Lock()

	if s.shutdown {
		s.mu.Unlock()

		return
	}

	s.shutdown = true

	conns := make([]*serverConn, 0, len(s.servers))
	for _, c := range s.servers {
		conns = append(conns, c)
	}

	s.servers = make(map[string]*serverConn)

	s.mu.Unlock()

	s.log.Info("Shutting down tool service", "servers", len(conns))

	// Fail waiters first so callers unblock immediately, then reap the
	// processes. Closing a process's pipes unblocks its read loop, which
	// exits without leaking.
	for _, c := range conns {
		c.client.Close()
	}

	s.launcher.ShutdownAll(s.opts.terminateGrace)

	for _, c := range conns {
		c.client.Wait()
	}

	s.reg.Clear()

	s.log.Info("Tool service shut down")
}

// conn returns the live connection for a server, if any.
func (s *Service) conn(server string) *serverConn {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.servers[server]
}

func (s *Service) readyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.servers)
}

func (s *Service) isShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.shutdown
}

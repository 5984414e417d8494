package supervisor

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/toolmux/toolmux/internal/config"
	"github.com/toolmux/toolmux/internal/errors"
)

// Supervisor spawns and tracks tool-server processes. All processes it
// starts are owned by it until ShutdownAll.
type Supervisor struct {
	log            *slog.Logger
	stderrCallback func(server, line string)

	mu    sync.Mutex
	procs map[string]*Process
}

// New creates a Supervisor. stderrCallback, if non-nil, receives every
// stderr line from every server as it is drained.
func New(log *slog.Logger, stderrCallback func(server, line string)) *Supervisor {
	return &Supervisor{
		log:            log.With("component", "supervisor"),
		stderrCallback: stderrCallback,
		procs:          make(map[string]*Process, 4),
	}
}

// Start spawns the configured command with piped stdin/stdout/stderr and
// begins draining stderr and monitoring for exit. The returned process is
// in StateStarting.
func (s *Supervisor) Start(cfg config.ServerConfig) (*Process, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &errors.ProcessSpawnError{Server: cfg.Name, Err: err}
	}

	//nolint:gosec // G204: launching externally configured tool servers is the point
	cmd := exec.Command(cfg.Command, cfg.Args...)
	cmd.Env = append(os.Environ(), formatEnv(cfg.Env)...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &errors.ProcessSpawnError{Server: cfg.Name, Err: fmt.Errorf("stdin pipe: %w", err)}
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &errors.ProcessSpawnError{Server: cfg.Name, Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &errors.ProcessSpawnError{Server: cfg.Name, Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	if err := cmd.Start(); err != nil {
		return nil, &errors.ProcessSpawnError{Server: cfg.Name, Err: fmt.Errorf("start process: %w", err)}
	}

	proc := &Process{
		log:        s.log.With("server", cfg.Name),
		name:       cfg.Name,
		cmd:        cmd,
		stdin:      stdin,
		stdout:     stdout,
		state:      StateStarting,
		exited:     make(chan struct{}),
		stderrDone: make(chan struct{}),
	}

	s.log.Info("Started server process", "server", cfg.Name, "pid", proc.Pid(), "command", cfg.Command)

	go proc.drainStderr(stderr, s.stderrCallback)
	go proc.monitor()

	s.mu.Lock()
	s.procs[cfg.Name] = proc
	s.mu.Unlock()

	return proc, nil
}

// Get returns the tracked process for a server, or nil.
func (s *Supervisor) Get(name string) *Process {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.procs[name]
}

// ShutdownAll terminates every tracked process and clears the table. It is
// idempotent and tolerates processes that have already exited.
func (s *Supervisor) ShutdownAll(grace time.Duration) {
	s.mu.Lock()

	procs := make([]*Process, 0, len(s.procs))
	for _, p := range s.procs {
		procs = append(procs, p)
	}

	s.procs = make(map[string]*Process, 4)

	s.mu.Unlock()

	if len(procs) == 0 {
		return
	}

	s.log.Info("Shutting down server processes", "count", len(procs))

	var wg sync.WaitGroup

	for _, p := range procs {
		wg.Go(func() {
			p.Terminate(grace)
		})
	}

	wg.Wait()
}

func formatEnv(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}

	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}

	return out
}

package supervisor

import (
	"bufio"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

// maxStderrTailSize caps the retained stderr tail used for exit
// diagnostics. Draining continues past the cap so a verbose child can
// never block on a full OS pipe buffer.
const maxStderrTailSize = 64 * 1024 // 64KB

// State is the lifecycle state of a tool-server process.
type State int

const (
	// StateStarting means the process has been spawned but the handshake
	// has not begun.
	StateStarting State = iota
	// StateInitializing means the handshake is in progress.
	StateInitializing
	// StateReady means the handshake completed and tools are registered.
	StateReady
	// StateFailed means the process exited unexpectedly or the handshake
	// failed.
	StateFailed
	// StateTerminated means the process was shut down deliberately.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Process is a running tool-server child process. It is exclusively owned
// by the Supervisor that started it.
type Process struct {
	log  *slog.Logger
	name string
	cmd  *exec.Cmd

	stdin  io.WriteCloser
	stdout io.ReadCloser

	mu       sync.Mutex
	state    State
	stopping bool
	exitErr  error

	stderrMu   sync.Mutex
	stderrTail strings.Builder

	exited        chan struct{}
	stderrDone    chan struct{}
	terminateOnce sync.Once
}

// Name returns the server name this process was started for.
func (p *Process) Name() string {
	return p.name
}

// Stdin is the process's standard input. Writers must serialize
// themselves; the rpc client does.
func (p *Process) Stdin() io.WriteCloser {
	return p.stdin
}

// Stdout is the process's standard output.
func (p *Process) Stdout() io.ReadCloser {
	return p.stdout
}

// Pid returns the OS process id, for logging.
func (p *Process) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}

	return p.cmd.Process.Pid
}

// State returns the current lifecycle state.
func (p *Process) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state
}

// SetState transitions the process to the given state. Terminal states
// (Failed, Terminated) are sticky and never overwritten.
func (p *Process) SetState(next State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateFailed || p.state == StateTerminated {
		return
	}

	p.log.Debug("State transition", "from", p.state.String(), "to", next.String())
	p.state = next
}

// Exited is closed once the process has exited and been reaped.
func (p *Process) Exited() <-chan struct{} {
	return p.exited
}

// ExitErr returns the error from the process wait, valid after Exited is
// closed.
func (p *Process) ExitErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.exitErr
}

// StderrTail returns the retained tail of the process's stderr output.
func (p *Process) StderrTail() string {
	p.stderrMu.Lock()
	defer p.stderrMu.Unlock()

	return p.stderrTail.String()
}

// drainStderr continuously reads stderr lines, logging each and retaining
// a capped tail. It runs for the process lifetime.
func (p *Process) drainStderr(stderr io.Reader, callback func(server, line string)) {
	defer close(p.stderrDone)

	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := scanner.Text()

		p.log.Debug("Server stderr", "line", line)

		p.stderrMu.Lock()

		if p.stderrTail.Len() < maxStderrTailSize {
			if p.stderrTail.Len() > 0 {
				p.stderrTail.WriteString("\n")
			}

			p.stderrTail.WriteString(line)
		}

		p.stderrMu.Unlock()

		if callback != nil {
			callback(p.name, line)
		}
	}

	if err := scanner.Err(); err != nil {
		p.log.Debug("Stderr scanner error", "error", err)
	}
}

// monitor reaps the process and records the outcome. An exit that was not
// requested through Terminate transitions the process to Failed.
func (p *Process) monitor() {
	// Stderr must be fully drained before Wait closes the pipe.
	<-p.stderrDone

	err := p.cmd.Wait()

	p.mu.Lock()

	p.exitErr = err
	expected := p.stopping

	if expected {
		p.state = StateTerminated
	} else {
		p.state = StateFailed
	}

	p.mu.Unlock()

	close(p.exited)

	if expected {
		p.log.Debug("Server process exited", "pid", p.Pid())

		return
	}

	p.log.Error("Server process exited unexpectedly",
		"pid", p.Pid(),
		"error", err,
		"stderr", p.StderrTail(),
	)
}

// Terminate shuts the process down: it closes stdin, sends a polite
// terminate signal, waits up to grace, then force-kills. It blocks until
// the process has been reaped and is safe to call on an already-dead
// process, and more than once.
func (p *Process) Terminate(grace time.Duration) {
	p.terminateOnce.Do(func() {
		// Mark the exit as requested before signalling so monitor treats
		// it as expected even if the signal lands first.
		p.mu.Lock()
		p.stopping = true
		p.mu.Unlock()

		_ = p.stdin.Close()

		select {
		case <-p.exited:
			// Already dead; nothing to signal.
			return
		default:
		}

		p.log.Debug("Terminating server process", "pid", p.Pid(), "grace", grace)

		if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
			p.log.Debug("Terminate signal failed, killing", "error", err)
			_ = p.cmd.Process.Kill()
		}

		select {
		case <-p.exited:
			return
		case <-time.After(grace):
		}

		p.log.Warn("Server did not exit within grace period, killing", "pid", p.Pid())
		_ = p.cmd.Process.Kill()
	})

	<-p.exited
}

package toolmux

import (
	"io"
	"time"

	"github.com/toolmux/toolmux/internal/supervisor"
)

// serverProcess is the handle the service needs from a launched tool
// server: its pipes, lifecycle state, and termination. Satisfied by
// *supervisor.Process; tests substitute in-memory fakes.
type serverProcess interface {
	Name() string
	Stdin() io.WriteCloser
	Stdout() io.ReadCloser
	State() supervisor.State
	SetState(supervisor.State)
	Exited() <-chan struct{}
	Terminate(grace time.Duration)
}

// launcher starts server processes and shuts them all down. The default
// implementation wraps supervisor.Supervisor.
type launcher interface {
	Start(cfg ServerConfig) (serverProcess, error)
	ShutdownAll(grace time.Duration)
}

type supervisorLauncher struct {
	sup *supervisor.Supervisor
}

func (l *supervisorLauncher) Start(cfg ServerConfig) (serverProcess, error) {
	proc, err := l.sup.Start(cfg)
	if err != nil {
		return nil, err
	}

	return proc, nil
}

func (l *supervisorLauncher) ShutdownAll(grace time.Duration) {
	l.sup.ShutdownAll(grace)
}

package toolmux

import (
	"log/slog"
	"time"
)

// Default timeouts and identity used when the corresponding option is not
// set.
const (
	defaultHandshakeTimeout = 30 * time.Second
	defaultCallTimeout      = 60 * time.Second
	defaultTerminateGrace   = 5 * time.Second

	defaultClientName    = "toolmux"
	defaultClientVersion = "1.0.0"
)

// Option configures a Service using the functional options pattern.
type Option func(*serviceOptions)

type serviceOptions struct {
	logger           *slog.Logger
	clientName       string
	clientVersion    string
	handshakeTimeout time.Duration
	callTimeout      time.Duration
	terminateGrace   time.Duration
	stderr           func(server, line string)
	metrics          Metrics
	launcher         launcher
}

func applyOptions(opts []Option) *serviceOptions {
	options := &serviceOptions{
		logger:           NopLogger(),
		clientName:       defaultClientName,
		clientVersion:    defaultClientVersion,
		handshakeTimeout: defaultHandshakeTimeout,
		callTimeout:      defaultCallTimeout,
		terminateGrace:   defaultTerminateGrace,
	}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClientInfo sets the name and version reported to tool servers in the
// initialize request.
func WithClientInfo(name, version string) Option {
	return func(o *serviceOptions) {
		o.clientName = name
		o.clientVersion = version
	}
}

// WithHandshakeTimeout bounds each step of the per-server initialize +
// tools/list exchange.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(o *serviceOptions) {
		o.handshakeTimeout = d
	}
}

// WithCallTimeout sets the default timeout for CallTool.
func WithCallTimeout(d time.Duration) Option {
	return func(o *serviceOptions) {
		o.callTimeout = d
	}
}

// WithTerminateGrace sets how long Shutdown waits after the polite
// terminate signal before force-killing a server process.
func WithTerminateGrace(d time.Duration) Option {
	return func(o *serviceOptions) {
		o.terminateGrace = d
	}
}

// WithStderr streams every stderr line from every server to the callback,
// tagged with the server name.
func WithStderr(callback func(server, line string)) Option {
	return func(o *serviceOptions) {
		o.stderr = callback
	}
}

// WithMetrics records per-call observations (status, duration) to the
// given sink. See the telemetry package for a Prometheus implementation.
func WithMetrics(m Metrics) Option {
	return func(o *serviceOptions) {
		o.metrics = m
	}
}

// withLauncher injects a process launcher, used by tests to substitute
// in-memory transports for real child processes.
func withLauncher(l launcher) Option {
	return func(o *serviceOptions) {
		o.launcher = l
	}
}

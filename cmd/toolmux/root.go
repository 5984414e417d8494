package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/toolmux/toolmux"
)

type cliOptions struct {
	configPath       string
	handshakeTimeout time.Duration
	callTimeout      time.Duration
	jsonOutput       bool
	verbose          bool
}

func newRootCommand() *cobra.Command {
	opts := cliOptions{
		handshakeTimeout: 30 * time.Second,
		callTimeout:      60 * time.Second,
	}

	root := &cobra.Command{
		Use:           "toolmux",
		Short:         "Launch tool servers and invoke their tools from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "toolmux.json", "server config file (mcpServers JSON)")
	root.PersistentFlags().DurationVar(&opts.handshakeTimeout, "handshake-timeout", opts.handshakeTimeout, "per-server handshake timeout")
	root.PersistentFlags().DurationVar(&opts.callTimeout, "call-timeout", opts.callTimeout, "tool call timeout")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "output JSON")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log server activity to stderr")

	root.AddCommand(
		newListCmd(&opts),
		newCallCmd(&opts),
	)

	return root
}

// startService loads the config, brings up every server, and returns the
// service with a release function that shuts everything down.
func startService(ctx context.Context, opts *cliOptions) (*toolmux.Service, func(), error) {
	configs, err := toolmux.LoadConfig(opts.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger := toolmux.NopLogger()
	if opts.verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	svc := toolmux.New(
		toolmux.WithLogger(logger),
		toolmux.WithHandshakeTimeout(opts.handshakeTimeout),
		toolmux.WithCallTimeout(opts.callTimeout),
		toolmux.WithStderr(func(server, line string) {
			if opts.verbose {
				fmt.Fprintf(os.Stderr, "[%s] %s\n", server, line)
			}
		}),
	)

	if err := svc.Initialize(ctx, configs); err != nil {
		svc.Shutdown()

		return nil, nil, fmt.Errorf("initialize servers: %w", err)
	}

	return svc, svc.Shutdown, nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/recera/tmcanvas/internal/cache"
	"github.com/recera/tmcanvas/internal/devserver"
	"github.com/recera/tmcanvas/pkg/export"
)

func newServeCommand(env *environment) *cobra.Command {
	var (
		port  int
		host  string
		build bool
	)

	cmd := &cobra.Command{
		Use:   "serve [topicmap]",
		Short: "Serve the topicmap to a browser canvas",
		Long: `Starts a development server that hosts the browser canvas, serves the
topicmap and rendered snapshots, and reloads the page when the topicmap
file changes.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			closer, err := env.load(args, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closer.Close()

			// CLI takes precedence over the config file
			if port != 0 {
				env.cfg.Dev.Port = port
			}
			if host != "" {
				env.cfg.Dev.Host = host
			}
			wasm := env.resolve(env.cfg.Dev.Wasm)
			if build {
				if err := buildWASM(cmd.Context(), wasm); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			styles, err := env.styles(ctx)
			if err != nil {
				return err
			}
			srv, err := devserver.New(devserver.Options{
				Host:         env.cfg.Dev.Host,
				Port:         env.cfg.Dev.Port,
				TopicmapPath: env.path,
				WasmPath:     wasm,
				Export: export.Options{
					Width:  env.cfg.Canvas.Width,
					Height: env.cfg.Canvas.Height,
					Styles: styles,
					Canvas: env.canvasOptions(),
				},
				Cache:  cache.New(cache.DefaultConfig()),
				Logger: env.logger,
			})
			if err != nil {
				return err
			}
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run the server on (default from config)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from config)")
	cmd.Flags().BoolVar(&build, "build", false, "Compile the browser client before serving")
	return cmd
}

// buildWASM compiles the browser client with the Go toolchain.
func buildWASM(ctx context.Context, output string) error {
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return err
	}
	c := exec.CommandContext(ctx, "go", "build", "-o", output, "./cmd/tmcanvas-wasm")
	c.Env = append(os.Environ(), "GOOS=js", "GOARCH=wasm")
	c.Stdout, c.Stderr = os.Stderr, os.Stderr
	if err := c.Run(); err != nil {
		return fmt.Errorf("build browser client: %w", err)
	}
	return nil
}

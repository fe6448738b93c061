package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"texlsp/internal/logfields"
	"texlsp/internal/lsp"
	"texlsp/internal/progress"
)

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:9998", "TCP address to listen on")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the language server over TCP, one session per connection",
	Long: `serve accepts editor connections on a TCP socket. Every connection gets its
own session; lint caches and the build token registry are shared, so a
wildcard cancel from any session stops every running build.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	e := current
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	manager := e.newManager()
	store := e.openStore()
	e.restore(store, manager)
	defer e.persist(store, manager)
	registry := progress.NewRegistry(progress.Wildcard(e.cfg.Build.TokenPrefix))

	ln, err := net.Listen("tcp", serveAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", serveAddr, err)
	}
	e.logger.Info("listening", slog.String("addr", ln.Addr().String()))

	return serveSessions(ctx, ln, func(conn net.Conn) lsp.ServerOptions {
		return lsp.ServerOptions{
			Diagnostics: manager,
			Registry:    registry,
			Build:       e.buildOptions(),
			TokenPrefix: e.cfg.Build.TokenPrefix,
			Recorder:    e.recorder,
			Logger:      e.logger.With(slog.String("remote", conn.RemoteAddr().String())),
		}
	})
}

// serveSessions accepts connections on ln until ctx is done and runs one
// language server session per connection. It returns once every session
// has ended.
func serveSessions(ctx context.Context, ln net.Listener, newOpts func(net.Conn) lsp.ServerOptions) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		return ln.Close()
	})
	g.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if gctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					return nil
				}
				return fmt.Errorf("accept: %w", err)
			}
			g.Go(func() error {
				serveConn(gctx, conn, newOpts(conn))
				return nil
			})
		}
	})
	err := g.Wait()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func serveConn(ctx context.Context, conn net.Conn, opts lsp.ServerOptions) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()
	opts.Logger.Info("session started")
	err := exitStatus(lsp.NewServer(conn, conn, opts).Run(ctx))
	if err != nil && ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
		opts.Logger.Warn("session ended with error", logfields.Error(err))
		return
	}
	opts.Logger.Info("session ended")
}

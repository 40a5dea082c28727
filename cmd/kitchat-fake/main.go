// ABOUTME: Local stand-in for the kitchat backend, for manual and E2E testing
// ABOUTME: Usage: kitchat-fake [--addr localhost:8000] [--kit-key K] [--claude-key C]

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/2389/kitchat/internal/fakebackend"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd := &cli.Command{
		Name:   "kitchat-fake",
		Usage:  "Serve the kitchat backend API with an echo responder",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address",
				Value: "localhost:8000",
			},
			&cli.StringFlag{
				Name:  "kit-key",
				Usage: "Only accept this Kit.com API key (any non-empty key when unset)",
			},
			&cli.StringFlag{
				Name:  "claude-key",
				Usage: "Only accept this Claude API key (any non-empty key when unset)",
			},
			&cli.BoolFlag{
				Name:  "no-websocket",
				Usage: "Disable /ws so clients use the HTTP fallback",
			},
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		slog.Error("kitchat-fake failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	fake := fakebackend.New(fakebackend.Config{
		KitKey:           cmd.String("kit-key"),
		ClaudeKey:        cmd.String("claude-key"),
		DisableWebSocket: cmd.Bool("no-websocket"),
	}, logger)

	srv := &http.Server{
		Addr:              cmd.String("addr"),
		Handler:           fake.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		fake.DropConnections()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

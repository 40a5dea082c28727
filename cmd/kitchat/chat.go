// ABOUTME: Runs the full-screen chat UI
// ABOUTME: Client observers run in the background while bubbletea owns the terminal

package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/2389/kitchat/internal/client"
	"github.com/2389/kitchat/internal/events"
	"github.com/2389/kitchat/internal/render"
	"github.com/2389/kitchat/internal/tui"
)

func runChat(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logFile, err := openLogFile(chatLogPath(cfg.Logging))
	if err != nil {
		return err
	}
	defer logFile.Close()
	logger := setupLogger(cfg.Logging, logFile)

	c, err := client.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	feed, _ := c.Events().Subscribe(ctx, events.TopicAll)

	var opts []tui.Option
	if r, err := render.NewTerminal(render.StyleAuto, 80); err != nil {
		logger.Warn("markdown rendering disabled", "error", err)
	} else {
		opts = append(opts, tui.WithRenderer(r))
	}

	program := tea.NewProgram(
		tui.New(ctx, c, feed, opts...),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.Run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("running chat UI: %w", err)
		}
		return nil
	})
	return g.Wait()
}

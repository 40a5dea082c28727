// ABOUTME: Status subcommand probing both dependencies
// ABOUTME: Exits non-zero when keys are missing or either probe fails

package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/2389/kitchat/internal/health"
)

func runStatus(ctx context.Context, cmd *cli.Command) error {
	c, cfg, cleanup, err := openClient(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	out := cmd.Root().Writer
	fmt.Fprintf(out, "Backend:  %s\n", cfg.API.BaseURL)

	if c.SettingsRequired() {
		color.New(color.FgYellow).Fprintln(out, "API keys are not configured")
		return errNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Health.ProbeTimeout+time.Second)
	defer cancel()

	kit, claude := c.CheckHealth(ctx)
	printSnapshot(out, kit)
	printSnapshot(out, claude)

	if kit.State == health.StateError || claude.State == health.StateError {
		return errUnhealthy
	}
	return nil
}

func printSnapshot(out io.Writer, s health.Snapshot) {
	fmt.Fprintf(out, "%-9s ", s.Dependency.Name+":")
	switch s.State {
	case health.StateConnected:
		color.New(color.FgGreen).Fprint(out, s.State.Label())
		if d := s.Detail(); d != "" {
			fmt.Fprintf(out, " (%s)", d)
		}
	case health.StateError:
		color.New(color.FgRed, color.Bold).Fprint(out, s.State.Label())
		if s.Error != "" {
			fmt.Fprintf(out, ": %s", s.Error)
		}
	default:
		color.New(color.FgYellow).Fprint(out, s.State.Label())
	}
	fmt.Fprintln(out)
}

// ABOUTME: Settings subcommands for showing, setting and clearing the API keys
// ABOUTME: Keys are prompted without echo and never printed

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/2389/kitchat/internal/credentials"
)

func settingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Manage the stored API keys",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show which keys are configured",
				Action: runSettingsShow,
			},
			{
				Name:   "set",
				Usage:  "Store API keys (prompts for any not given)",
				Action: runSettingsSet,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "kit-key",
						Usage:   "Kit.com API key",
						Sources: cli.EnvVars("KITCHAT_KIT_API_KEY"),
					},
					&cli.StringFlag{
						Name:    "claude-key",
						Usage:   "Claude API key",
						Sources: cli.EnvVars("KITCHAT_CLAUDE_API_KEY"),
					},
				},
			},
			{
				Name:   "clear",
				Usage:  "Remove the stored API keys",
				Action: runSettingsClear,
			},
		},
	}
}

func runSettingsShow(ctx context.Context, cmd *cli.Command) error {
	c, cfg, cleanup, err := openClient(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	out := cmd.Root().Writer
	pair := c.Credentials()
	fmt.Fprintf(out, "Kit.com API key: %s\n", keyState(pair.Kit))
	fmt.Fprintf(out, "Claude API key:  %s\n", keyState(pair.Claude))
	fmt.Fprintf(out, "Stored in:       %s\n", cfg.Storage.Path)
	return nil
}

func keyState(v string) string {
	if v == "" {
		return "not set"
	}
	return "set"
}

func runSettingsSet(ctx context.Context, cmd *cli.Command) error {
	c, _, cleanup, err := openClient(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	out := cmd.Root().Writer
	current := c.Credentials()
	reader := bufio.NewReader(os.Stdin)

	pair := credentials.Pair{
		Kit:    strings.TrimSpace(cmd.String("kit-key")),
		Claude: strings.TrimSpace(cmd.String("claude-key")),
	}
	if pair.Kit == "" {
		if pair.Kit, err = promptSecret(reader, out, "Kit.com API key", current.Kit); err != nil {
			return err
		}
	}
	if pair.Claude == "" {
		if pair.Claude, err = promptSecret(reader, out, "Claude API key", current.Claude); err != nil {
			return err
		}
	}
	if !pair.Complete() {
		return fmt.Errorf("both API keys are required")
	}

	if err := c.SaveSettings(ctx, pair); err != nil {
		return err
	}
	fmt.Fprintln(out, "Settings saved.")
	return nil
}

// promptSecret reads a key without echo when stdin is a terminal. An empty
// answer keeps current.
func promptSecret(reader *bufio.Reader, out io.Writer, label, current string) (string, error) {
	if current != "" {
		fmt.Fprintf(out, "%s [keep current]: ", label)
	} else {
		fmt.Fprintf(out, "%s: ", label)
	}

	var answer string
	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", label, err)
		}
		answer = string(b)
	} else {
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			if err == io.EOF {
				return current, nil
			}
			return "", fmt.Errorf("reading %s: %w", label, err)
		}
		answer = line
	}

	if answer = strings.TrimSpace(answer); answer == "" {
		return current, nil
	}
	return answer, nil
}

func runSettingsClear(ctx context.Context, cmd *cli.Command) error {
	c, _, cleanup, err := openClient(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := c.ClearSettings(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.Root().Writer, "Settings cleared.")
	return nil
}

// ABOUTME: Entry point for the kitchat command line client
// ABOUTME: Chat UI by default, plus send, status and settings subcommands

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/2389/kitchat/internal/client"
	"github.com/2389/kitchat/internal/config"
)

var (
	errNotConfigured = errors.New("API keys are not configured; run `kitchat settings set`")
	errUnhealthy     = errors.New("one or more dependencies are unreachable")
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:   "kitchat",
		Usage:  "Chat with your Kit.com account through Claude",
		Action: runChat,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (YAML or TOML)",
				Value:   config.DefaultPath(),
				Sources: cli.EnvVars(config.EnvConfig),
			},
			&cli.StringFlag{
				Name:    "api-url",
				Usage:   "Backend base URL",
				Sources: cli.EnvVars(config.EnvAPIURL),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn or error",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log to stderr at the configured level",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "chat",
				Usage:  "Open the interactive chat UI (default)",
				Action: runChat,
			},
			{
				Name:      "send",
				Usage:     "Send one message, or chat line by line when no message is given",
				ArgsUsage: "[message]",
				Action:    runSend,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "plain",
						Usage: "Print replies without markdown styling",
					},
				},
			},
			{
				Name:   "status",
				Usage:  "Check connectivity to Kit.com and Claude",
				Action: runStatus,
			},
			settingsCommand(),
		},
	}
}

// loadConfig reads the config file and applies command line overrides.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if u := cmd.String("api-url"); u != "" {
		cfg.API.BaseURL = u
	}
	if lvl := cmd.String("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openClient loads config, sets up logging for a non-interactive command and
// builds the client. The returned cleanup closes both.
func openClient(ctx context.Context, cmd *cli.Command) (*client.Client, *config.Config, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}

	logger, closeLog, err := cliLogger(cfg.Logging, cmd.Bool("verbose"))
	if err != nil {
		return nil, nil, nil, err
	}
	slog.SetDefault(logger)

	c, err := client.New(ctx, cfg, logger)
	if err != nil {
		closeLog()
		return nil, nil, nil, err
	}
	return c, cfg, func() {
		c.Close()
		closeLog()
	}, nil
}

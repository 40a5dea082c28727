// ABOUTME: One-shot send and the line-mode chat loop
// ABOUTME: Slash commands cover help, status, new conversation and quit

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

	"github.com/2389/kitchat/internal/client"
	"github.com/2389/kitchat/internal/render"
)

func runSend(ctx context.Context, cmd *cli.Command) error {
	c, _, cleanup, err := openClient(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if c.SettingsRequired() {
		return errNotConfigured
	}

	out := cmd.Root().Writer
	format := replyFormatter(cmd.Bool("plain"))

	if message := strings.Join(cmd.Args().Slice(), " "); message != "" {
		return sendOnce(ctx, c, out, format, message)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	fmt.Fprintln(out, "Type a message and press Enter. /help for commands. Ctrl+C to quit.")
	fmt.Fprintln(out)
	return chatLoop(ctx, c, os.Stdin, out, format)
}

// replyFormatter picks styled markdown for terminals and plain text otherwise.
func replyFormatter(plain bool) func(string) string {
	if plain || !term.IsTerminal(int(os.Stdout.Fd())) {
		return render.Plain
	}
	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}
	r, err := render.NewTerminal(render.StyleAuto, width)
	if err != nil {
		return render.Plain
	}
	return r.Render
}

func sendOnce(ctx context.Context, c *client.Client, out io.Writer, format func(string) string, message string) error {
	results, err := c.Send(ctx, message)
	if err != nil {
		return err
	}
	select {
	case res := <-results:
		if res.Err != nil {
			return res.Err
		}
		fmt.Fprintln(out, format(res.Entry.Message.Content))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// chatLoop reads lines from in until EOF, /quit or ctx cancellation.
func chatLoop(ctx context.Context, c *client.Client, in io.Reader, out io.Writer, format func(string) string) error {
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(out, "> ")

		inputCh := make(chan string, 1)
		errCh := make(chan error, 1)
		go func() {
			if scanner.Scan() {
				inputCh <- scanner.Text()
				return
			}
			if err := scanner.Err(); err != nil {
				errCh <- err
			} else {
				errCh <- io.EOF
			}
		}()

		var input string
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if err == io.EOF {
				fmt.Fprintln(out)
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		case input = <-inputCh:
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		switch input {
		case "/quit", "/exit", "/q":
			return nil
		case "/help":
			printHelp(out)
		case "/status":
			printLoopStatus(out, c)
		case "/new":
			if err := c.NewConversation(); err != nil {
				fmt.Fprintf(out, "[error] %v\n", err)
			} else {
				fmt.Fprintln(out, "Started a new conversation")
			}
		default:
			if strings.HasPrefix(input, "/") {
				fmt.Fprintf(out, "Unknown command %s. /help lists commands.\n", input)
				break
			}
			if err := sendOnce(ctx, c, out, format, input); err != nil {
				fmt.Fprintf(out, "[error] %v\n", err)
			}
		}
		fmt.Fprintln(out)
	}
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  /status        Show dependency and connection status")
	fmt.Fprintln(out, "  /new           Start a new conversation")
	fmt.Fprintln(out, "  /help          Show this help")
	fmt.Fprintln(out, "  /quit          Exit")
}

func printLoopStatus(out io.Writer, c *client.Client) {
	kit, claude := c.Health()
	printSnapshot(out, kit)
	printSnapshot(out, claude)
	fmt.Fprintf(out, "Connection: %s\n", c.Transport().State())
	if id := c.Session().Timeline().Correlator(); id != "" {
		fmt.Fprintf(out, "Conversation: %s\n", id)
	}
}

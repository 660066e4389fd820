// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/gscientist/internal/agent"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the research assistant",
	Long: `Chat starts an interactive conversation with the configured model
(agent.model, default gpt-4o-mini). The API key comes from agent.api_key,
OPENAI_API_KEY, or .secrets/openai-api-key. Type /reset to start over and
/exit to quit. With --echo no model is contacted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		echo, _ := cmd.Flags().GetBool("echo")

		var a agent.Agent
		var reset func()
		if echo {
			a = agent.Echo{Prefix: "echo: "}
		} else {
			oa, err := agent.NewOpenAIAgent(cfg.Agent, logger)
			if err != nil {
				return err
			}
			a, reset = oa, oa.Reset
		}
		return chatLoop(cmd.Context(), a, reset, os.Stdin, os.Stdout)
	},
}

// chatLoop reads one message per line from in until EOF or /exit.
func chatLoop(ctx context.Context, a agent.Agent, reset func(), in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line == "/exit" || line == "/quit":
			return nil
		case line == "/reset":
			if reset != nil {
				reset()
			}
			fmt.Fprintln(out, "(conversation cleared)")
		default:
			reply, err := a.Respond(ctx, line)
			if err != nil {
				logger.Error().Err(err).Msg("agent failed")
				if ctx.Err() != nil {
					return ctx.Err()
				}
				break
			}
			fmt.Fprintln(out, reply)
		}
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}

func init() {
	chatCmd.Flags().Bool("echo", false, "echo messages back instead of calling a model")

	rootCmd.AddCommand(chatCmd)
}

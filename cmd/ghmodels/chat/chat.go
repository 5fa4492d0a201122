// Package chatcmder provides the chat command for interactive streaming chat.
package chatcmder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/ghmodels/cmd/ghmodels/ask"
	"github.com/papercomputeco/ghmodels/cmd/ghmodels/session"
	"github.com/papercomputeco/ghmodels/pkg/cliui"
	"github.com/papercomputeco/ghmodels/pkg/config"
	"github.com/papercomputeco/ghmodels/pkg/llm"
)

const chatLongDesc string = `Start an interactive chat session with a GitHub Models model.

Answers are streamed token by token. The conversation is kept in memory for
the duration of the session only.

Commands inside the session:
  /reset    Forget the conversation so far
  /exit     Quit (Ctrl+D also quits)

Examples:
  ghmodels chat
  ghmodels chat --model openai/gpt-4o-mini --system "Answer tersely"`

const chatShortDesc string = "Interactive streaming chat"

type chatCommander struct {
	system string
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			configDir, _ := cmd.Flags().GetString("config-dir")

			s, err := session.Open(cmd, session.Options{
				ConfigDir: configDir,
				FlagKeys:  config.ClientFlagKeys,
				Debug:     debug,
			})
			if err != nil {
				return err
			}
			defer s.Close()

			return cmder.run(cmd, s)
		},
	}

	config.AddClientFlags(cmd)
	cmd.Flags().StringVarP(&cmder.system, "system", "s", "", "System prompt")

	return cmd
}

func (c *chatCommander) run(cmd *cobra.Command, s *session.Session) error {
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	messages := c.initialMessages()

	fmt.Fprintln(out)
	fmt.Fprintf(out, "  %s %s\n\n",
		cliui.KeyStyle.Render("Model:"),
		cliui.NameStyle.Render(s.Client.Model()),
	)
	fmt.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(cmd.InOrStdin())

	for {
		fmt.Fprint(out, cliui.UserPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "/exit":
			fmt.Fprintln(out)
			return nil
		case "/reset":
			messages = c.initialMessages()
			fmt.Fprintf(out, "  %s Conversation cleared\n\n", cliui.SuccessMark)
			continue
		}

		messages = append(messages, llm.UserMessage(input))

		fmt.Fprint(out, cliui.AssistantPrompt)
		answer, err := sendAndStream(cmd, s, messages, out)
		switch {
		case errors.Is(err, llm.ErrNoContent):
			fmt.Fprintln(out, askcmder.NoTokensNotice)
			messages = messages[:len(messages)-1]
		case err != nil:
			fmt.Fprintln(out)
			fmt.Fprintf(errOut, "  %s %v\n", cliui.FailMark, err)
			// Drop the failed turn so the user can retry.
			messages = messages[:len(messages)-1]
		default:
			messages = append(messages, llm.AssistantMessage(answer))
			fmt.Fprint(out, "\n\n")
		}

		if cmd.Context().Err() != nil {
			return cmd.Context().Err()
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(out)
	return nil
}

func (c *chatCommander) initialMessages() []llm.Message {
	if c.system == "" {
		return nil
	}
	return []llm.Message{llm.SystemMessage(c.system)}
}

// sendAndStream streams one answer to out and returns its full text.
func sendAndStream(cmd *cobra.Command, s *session.Session, messages []llm.Message, out io.Writer) (string, error) {
	var answer strings.Builder

	for tok, err := range s.Client.CompleteStreaming(cmd.Context(), llm.ChatRequest{Messages: messages}) {
		if err != nil {
			return answer.String(), err
		}
		answer.WriteString(tok.Text)
		if _, err := io.WriteString(out, tok.Text); err != nil {
			return answer.String(), err
		}
	}

	return answer.String(), nil
}

// Package askcmder provides the ask command for one-shot completions.
package askcmder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ghmodels/cmd/ghmodels/session"
	"github.com/papercomputeco/ghmodels/pkg/cliui"
	"github.com/papercomputeco/ghmodels/pkg/config"
	"github.com/papercomputeco/ghmodels/pkg/llm"
)

const (
	// NoTokensNotice is printed when the model streamed only control frames.
	NoTokensNotice = "(No tokens received. Model streamed control frames only.)"

	// NoContentNotice is printed when a non-streaming response has no choices.
	NoContentNotice = "(No content in response.)"
)

const askLongDesc string = `Send a single prompt and print the answer.

The prompt is taken from the arguments, or from stdin when no arguments are
given. Without --stream the full answer is fetched first and rendered as
markdown when stdout is a terminal; --raw prints it verbatim. With --stream
tokens are printed as they arrive.

Examples:
  ghmodels ask "What is a goroutine?"
  ghmodels ask --stream --model openai/gpt-4o-mini "Write a haiku"
  git diff | ghmodels ask --system "Review this diff"`

const askShortDesc string = "Send a single prompt"

type askCommander struct {
	system string
	stream bool
	raw    bool
}

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask [prompt...]",
		Short: askShortDesc,
		Long:  askLongDesc,
		RunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			configDir, _ := cmd.Flags().GetString("config-dir")

			prompt, err := readPrompt(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			s, err := session.Open(cmd, session.Options{
				ConfigDir: configDir,
				FlagKeys:  config.ClientFlagKeys,
				Debug:     debug,
			})
			if err != nil {
				return err
			}
			defer s.Close()

			return cmder.run(cmd, s, prompt)
		},
	}

	config.AddClientFlags(cmd)
	cmd.Flags().StringVarP(&cmder.system, "system", "s", "", "System prompt")
	cmd.Flags().BoolVar(&cmder.stream, "stream", false, "Print tokens as they arrive")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print the answer without markdown rendering")

	return cmd
}

func (c *askCommander) run(cmd *cobra.Command, s *session.Session, prompt string) error {
	out := cmd.OutOrStdout()
	req := llm.ChatRequest{Messages: buildMessages(c.system, prompt)}

	if c.stream {
		return streamTo(cmd, s, req, out)
	}

	text, err := s.Client.Complete(cmd.Context(), req)
	if errors.Is(err, llm.ErrNoContent) {
		_, err = fmt.Fprintln(out, NoContentNotice)
		return err
	}
	if err != nil {
		return err
	}

	if !c.raw && cliui.IsTerminal(out) {
		if rendered, rerr := cliui.RenderMarkdown(text); rerr == nil {
			text = rendered
		} else {
			s.Logger.Debug("markdown rendering failed", "error", rerr)
		}
	}

	_, err = fmt.Fprintln(out, strings.TrimRight(text, "\n"))
	return err
}

func streamTo(cmd *cobra.Command, s *session.Session, req llm.ChatRequest, out io.Writer) error {
	for tok, err := range s.Client.CompleteStreaming(cmd.Context(), req) {
		if errors.Is(err, llm.ErrNoContent) {
			_, err = fmt.Fprintln(out, NoTokensNotice)
			return err
		}
		if err != nil {
			fmt.Fprintln(out)
			return err
		}
		if _, err := io.WriteString(out, tok.Text); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(out)
	return err
}

func buildMessages(system, prompt string) []llm.Message {
	var messages []llm.Message
	if system != "" {
		messages = append(messages, llm.SystemMessage(system))
	}
	return append(messages, llm.UserMessage(prompt))
}

// readPrompt joins args, or reads all of in when args is empty and in is
// not an interactive terminal.
func readPrompt(in io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	if f, ok := in.(*os.File); ok {
		fi, err := f.Stat()
		if err != nil {
			return "", fmt.Errorf("checking stdin: %w", err)
		}
		if fi.Mode()&os.ModeCharDevice != 0 {
			return "", errors.New("prompt argument required")
		}
	}

	var b strings.Builder
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}

	prompt := strings.TrimSpace(b.String())
	if prompt == "" {
		return "", errors.New("prompt argument required")
	}
	return prompt, nil
}

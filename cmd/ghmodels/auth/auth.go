// Package authcmder provides the auth command for storing API tokens.
package authcmder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/ghmodels/pkg/cliui"
	"github.com/papercomputeco/ghmodels/pkg/credentials"
	"github.com/papercomputeco/ghmodels/pkg/utils"
)

const authLongDesc string = `Store API tokens for model providers.

Tokens are stored in credentials.toml in the .ghmodels/ directory. The
provider's environment variable always wins over a stored token.

GitHub Models accepts a personal access token with the "models:read"
permission.

Supported providers: github, openai

Examples:
  ghmodels auth github              Prompt for a GitHub token
  ghmodels auth --list              List stored tokens
  ghmodels auth --remove github     Remove the stored GitHub token
  echo $TOKEN | ghmodels auth github  Pipe the token from stdin`

const authShortDesc string = "Store API tokens for model providers"

func NewAuthCmd() *cobra.Command {
	var listFlag bool
	var removeFlag string

	cmd := &cobra.Command{
		Use:   "auth [provider]",
		Short: authShortDesc,
		Long:  authLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			switch {
			case listFlag:
				return runList(cmd, configDir)
			case removeFlag != "":
				return runRemove(cmd, removeFlag, configDir)
			default:
				if len(args) == 0 {
					return fmt.Errorf("provider argument required\n\nSupported providers: %s",
						strings.Join(credentials.SupportedProviders(), ", "))
				}
				return runAuth(cmd, args[0], configDir)
			}
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return credentials.SupportedProviders(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	cmd.Flags().BoolVar(&listFlag, "list", false, "List stored tokens")
	cmd.Flags().StringVar(&removeFlag, "remove", "", "Remove the stored token for a provider")

	return cmd
}

func normalize(provider string) (string, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if !credentials.IsSupportedProvider(provider) {
		return "", fmt.Errorf("unsupported provider: %q\n\nSupported providers: %s",
			provider, strings.Join(credentials.SupportedProviders(), ", "))
	}
	return provider, nil
}

func runAuth(cmd *cobra.Command, provider, configDir string) error {
	provider, err := normalize(provider)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	token, err := readToken(cmd.InOrStdin(), out, provider)
	if err != nil {
		return err
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token cannot be empty")
	}

	store, err := credentials.NewStore(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := store.SetToken(provider, token); err != nil {
		return err
	}

	envVar := credentials.EnvVarForProvider(provider)
	fmt.Fprintf(out, "\n  %s Stored %s token %s\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(provider),
		cliui.DimStyle.Render(utils.MaskToken(token)),
	)
	if _, ok := credentials.FromEnv(envVar); ok {
		fmt.Fprintf(out, "  %s %s is set and takes precedence over the stored token.\n",
			cliui.WarnStyle.Render("!"), envVar)
	}

	fmt.Fprintln(out)
	return nil
}

func runList(cmd *cobra.Command, configDir string) error {
	store, err := credentials.NewStore(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	providers, err := store.Providers()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(providers) == 0 {
		fmt.Fprintf(out, "\n  %s No stored tokens.\n", cliui.DimStyle.Render("●"))
		fmt.Fprintf(out, "  Use 'ghmodels auth <provider>' to store a token.\n")
		fmt.Fprintf(out, "  Supported providers: %s\n\n", strings.Join(credentials.SupportedProviders(), ", "))
		return nil
	}

	fmt.Fprintf(out, "\n  %s\n\n", cliui.HeaderStyle.Render("Stored tokens"))
	for _, p := range providers {
		token, err := store.Token(p)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  %s  %s  %s\n",
			cliui.SuccessMark,
			cliui.NameStyle.Render(p),
			cliui.DimStyle.Render(utils.MaskToken(token)),
		)
	}
	fmt.Fprintln(out)

	return nil
}

func runRemove(cmd *cobra.Command, provider, configDir string) error {
	provider, err := normalize(provider)
	if err != nil {
		return err
	}

	store, err := credentials.NewStore(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := store.RemoveToken(provider); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n  %s Removed %s token.\n\n", cliui.SuccessMark, cliui.NameStyle.Render(provider))

	return nil
}

// readToken reads a token from in. An interactive terminal gets a hidden
// prompt; anything else is read up to the first newline.
func readToken(in io.Reader, out io.Writer, provider string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(out, "Enter token for %s (%s): ", provider, credentials.EnvVarForProvider(provider))

		tokenBytes, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("reading token: %w", err)
		}
		return string(tokenBytes), nil
	}

	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return "", errors.New("no input received on stdin")
}

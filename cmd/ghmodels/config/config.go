// Package configcmder provides the config command for managing persistent
// ghmodels configuration stored in the .ghmodels/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ghmodels/pkg/cliui"
	"github.com/papercomputeco/ghmodels/pkg/config"
)

const configLongDesc string = `Manage persistent ghmodels configuration.

Configuration is stored as config.toml in the .ghmodels/ directory and
provides default values for command flags. GHMODELS_* environment variables
override the file, and CLI flags override both.

Keys use dotted notation matching the TOML section structure:
  client.endpoint, client.model, client.temperature, client.max_tokens,
  client.provider, client.token_env,
  retry.max_retries, retry.base_delay_ms, retry.jitter_ms,
  retry.max_retry_after_ms, retry.statuses, retry.retry_transport_errors,
  stream.max_buffer_bytes, server.listen,
  events.provider, events.brokers, events.topic, events.workers,
  events.queue_size

Examples:
  ghmodels config set client.model openai/gpt-4o-mini
  ghmodels config set retry.statuses 429,500,502,503
  ghmodels config get client.model
  ghmodels config list --effective`

const configShortDesc string = "Manage persistent ghmodels configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func checkKey(key string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}
	return nil
}

func printTarget(w io.Writer, target string) {
	if target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config directory found. Using defaults."))
}

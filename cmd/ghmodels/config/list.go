package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ghmodels/pkg/config"
)

const listLongDesc string = `List all configuration values.

Displays every configuration key with its value from config.toml. With
--effective the values are resolved through the full precedence chain,
including GHMODELS_* environment overrides.

Examples:
  ghmodels config list
  GHMODELS_CLIENT_MODEL=openai/o1 ghmodels config list --effective`

const listShortDesc string = "List all configuration values"

func newListCmd() *cobra.Command {
	var effective bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runList(cmd, configDir, effective)
		},
	}

	cmd.Flags().BoolVar(&effective, "effective", false, "Resolve values through environment overrides")

	return cmd
}

func runList(cmd *cobra.Command, configDir string, effective bool) error {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	var cfg *config.Config
	if effective {
		v, err := config.InitViper(configDir)
		if err != nil {
			return err
		}
		if cfg, err = config.FromViper(v); err != nil {
			return err
		}
	} else if cfg, err = cfger.LoadConfig(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(out, "Using config file: %s\n\n", target)
	} else {
		fmt.Fprint(out, "No config directory found. Using default config.\n\n")
	}

	keys := config.ValidConfigKeys()

	maxLen := 0
	for _, k := range keys {
		maxLen = max(maxLen, len(k))
	}

	for _, key := range keys {
		value, err := config.ConfigValue(cfg, key)
		if err != nil {
			return err
		}

		if value == "" {
			fmt.Fprintf(out, "%-*s = <not set>\n", maxLen, key)
		} else {
			fmt.Fprintf(out, "%-*s = %q\n", maxLen, key, value)
		}
	}

	return nil
}

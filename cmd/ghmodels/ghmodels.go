// Package ghmodelscmder is the root ghmodels command.
package ghmodelscmder

import (
	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/ghmodels/cmd/ghmodels/ask"
	authcmder "github.com/papercomputeco/ghmodels/cmd/ghmodels/auth"
	chatcmder "github.com/papercomputeco/ghmodels/cmd/ghmodels/chat"
	configcmder "github.com/papercomputeco/ghmodels/cmd/ghmodels/config"
	servecmder "github.com/papercomputeco/ghmodels/cmd/ghmodels/serve"
	versioncmder "github.com/papercomputeco/ghmodels/cmd/version"
)

const ghmodelsLongDesc string = `ghmodels is a resilient streaming client for GitHub Models.

Requests are retried with exponential backoff on rate limiting and
transient server errors, and streamed answers are printed as they arrive.

Commands:
  ghmodels ask "question"      One-shot completion
  ghmodels chat                Interactive streaming chat
  ghmodels serve               Local HTTP gateway over the client
  ghmodels auth github         Store a GitHub token
  ghmodels config list         Show the effective configuration`

const ghmodelsShortDesc string = "ghmodels - GitHub Models chat client"

func NewGhmodelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "ghmodels",
		Short:        ghmodelsShortDesc,
		Long:         ghmodelsLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .ghmodels/ config directory")

	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}

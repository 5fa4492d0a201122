// Package servecmder provides the serve command that runs the local gateway.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ghmodels/api"
	"github.com/papercomputeco/ghmodels/cmd/ghmodels/session"
	"github.com/papercomputeco/ghmodels/pkg/cliui"
	"github.com/papercomputeco/ghmodels/pkg/config"
)

const serveLongDesc string = `Run a local HTTP gateway over the GitHub Models client.

Endpoints:
  GET  /ping    Health check
  POST /chat    {"messages": [...], "model": "...", "stream": false}
                With "stream": true tokens are sent as server-sent events
                and the stream ends with "data: [DONE]".

Completion events are published to the configured telemetry backend
(events.provider): nop (default) or kafka. Logs are JSON on stderr; with
--log-file they are also appended to the given file.

Examples:
  ghmodels serve
  ghmodels serve --log-file /var/log/ghmodels.log
  ghmodels serve --listen :9000 --events-provider kafka --kafka-brokers localhost:9092`

const serveShortDesc string = "Run the local HTTP gateway"

var serveFlagKeys = slices.Concat(config.ClientFlagKeys, []string{
	config.FlagListen,
	config.FlagEventsProvider,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
})

type serveFlags struct {
	listen         string
	eventsProvider string
	kafkaBrokers   string
	kafkaTopic     string
	logFile        string
}

func NewServeCmd() *cobra.Command {
	flags := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			configDir, _ := cmd.Flags().GetString("config-dir")

			s, err := session.Open(cmd, session.Options{
				ConfigDir: configDir,
				FlagKeys:  serveFlagKeys,
				Debug:     debug,
				JSONLogs:  true,
				LogFile:   flags.logFile,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			runErr := run(ctx, s, cmd.ErrOrStderr())
			return errors.Join(runErr, s.Close())
		},
	}

	config.AddClientFlags(cmd)
	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &flags.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsProvider, &flags.eventsProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaBrokers, &flags.kafkaBrokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaTopic, &flags.kafkaTopic)
	cmd.Flags().StringVar(&flags.logFile, "log-file", "", "Also append JSON logs to this file")

	return cmd
}

// run serves until ctx is cancelled or the listener fails. Binding the
// address is reported on status.
func run(ctx context.Context, s *session.Session, status io.Writer) error {
	addr := s.Config.Server.Listen
	server := api.NewServer(api.Config{ListenAddr: addr}, s.Client, s.Logger)

	var ln net.Listener
	err := cliui.Step(status, "Listening on "+addr, func() error {
		var err error
		ln, err = server.Listen()
		return err
	})
	if err != nil {
		return fmt.Errorf("binding %s: %w", addr, err)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.RunWithListener(ln)
	}()

	select {
	case <-ctx.Done():
		s.Logger.Info("shutting down gateway")
		err := server.Shutdown()
		// Unblocks Serve if shutdown won the race against it.
		_ = ln.Close()
		if err != nil {
			return fmt.Errorf("shutting down gateway: %w", err)
		}
		return nil
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("gateway error: %w", err)
		}
		return nil
	}
}

// Package session assembles the effective configuration, logger, telemetry
// publisher and chat client shared by the ghmodels commands.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ghmodels/pkg/chat"
	"github.com/papercomputeco/ghmodels/pkg/config"
	"github.com/papercomputeco/ghmodels/pkg/credentials"
	"github.com/papercomputeco/ghmodels/pkg/eventstream"
	"github.com/papercomputeco/ghmodels/pkg/eventstream/kafka"
	"github.com/papercomputeco/ghmodels/pkg/eventstream/nop"
	"github.com/papercomputeco/ghmodels/pkg/eventstream/worker"
	"github.com/papercomputeco/ghmodels/pkg/logger"
)

// Options selects how a Session is built.
type Options struct {
	// ConfigDir overrides .ghmodels/ resolution.
	ConfigDir string

	// FlagKeys are the registry keys of flags on the command to bind into
	// the viper precedence chain.
	FlagKeys []string

	Debug bool

	// JSONLogs switches to the JSON handler (used by serve).
	JSONLogs bool

	// LogFile, when set, additionally receives JSON records. The file is
	// appended to and closed by Session.Close.
	LogFile string
}

// Session is everything a command needs to talk to the models API.
type Session struct {
	Config      *config.Config
	Client      *chat.Client
	Logger      *slog.Logger
	Publisher   eventstream.Publisher
	TokenSource credentials.Source

	logFile *os.File
}

// Open resolves the effective configuration of cmd and builds the client.
func Open(cmd *cobra.Command, opts Options) (*Session, error) {
	v, err := config.InitViper(opts.ConfigDir)
	if err != nil {
		return nil, err
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, opts.FlagKeys)

	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.New(
		logger.WithDebug(opts.Debug),
		logger.WithSource(opts.Debug),
		logger.WithPretty(!opts.JSONLogs),
		logger.WithJSON(opts.JSONLogs),
		logger.WithWriter(cmd.ErrOrStderr()),
	)

	var logFile *os.File
	if opts.LogFile != "" {
		logFile, err = os.OpenFile(opts.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		log = logger.Multi(log, logger.New(
			logger.WithDebug(opts.Debug),
			logger.WithSource(opts.Debug),
			logger.WithJSON(true),
			logger.WithWriter(logFile),
		))
	}

	s, err := build(cfg, opts, log)
	if err != nil {
		if logFile != nil {
			if cerr := logFile.Close(); cerr != nil {
				err = errors.Join(err, cerr)
			}
		}
		return nil, err
	}
	s.logFile = logFile
	return s, nil
}

// build resolves credentials and telemetry and creates the client.
func build(cfg *config.Config, opts Options, log *slog.Logger) (*Session, error) {
	store, err := credentials.NewStore(opts.ConfigDir)
	if err != nil {
		log.Debug("credentials store unavailable", "error", err)
		store = nil
	}

	envName := cfg.Client.TokenEnv
	if envName == "" {
		envName = credentials.EnvVarForProvider(cfg.Client.Provider)
	}
	token, source, err := credentials.Resolve(cfg.Client.Provider, envName, store)
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	pub, err := NewPublisher(cfg.Events, log)
	if err != nil {
		return nil, err
	}

	cc := cfg.ChatConfig(token)
	cc.TokenEnv = envName
	cc.Publisher = pub
	cc.Logger = log

	client, err := chat.New(cc)
	if err != nil {
		return nil, errors.Join(err, pub.Close())
	}

	log.Debug("session ready",
		"endpoint", client.Endpoint(),
		"model", client.Model(),
		"token_source", string(source),
		"events", cfg.Events.Provider,
	)

	return &Session{
		Config:      cfg,
		Client:      client,
		Logger:      log,
		Publisher:   pub,
		TokenSource: source,
	}, nil
}

// Close drains and closes the telemetry publisher, then the log file.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}

	var errs []error
	if s.Publisher != nil {
		errs = append(errs, s.Publisher.Close())
	}
	if s.logFile != nil {
		errs = append(errs, s.logFile.Close())
	}
	return errors.Join(errs...)
}

// NewPublisher builds the telemetry backend selected by c. Kafka publishing
// goes through a worker pool so a slow broker never delays a completion.
func NewPublisher(c config.EventsConfig, log *slog.Logger) (eventstream.Publisher, error) {
	switch c.Provider {
	case "", config.EventsProviderNop:
		return nop.NewPublisher(), nil

	case config.EventsProviderKafka:
		backend, err := kafka.NewPublisher(kafka.Config{
			Brokers: c.Brokers,
			Topic:   c.Topic,
			Logger:  log,
		})
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}

		pool, err := worker.NewPool(&worker.Config{
			Publisher:  backend,
			NumWorkers: c.Workers,
			QueueSize:  c.QueueSize,
			Logger:     log,
		})
		if err != nil {
			return nil, errors.Join(fmt.Errorf("creating publisher pool: %w", err), backend.Close())
		}
		return pool, nil

	default:
		return nil, fmt.Errorf("unknown events provider %q", c.Provider)
	}
}

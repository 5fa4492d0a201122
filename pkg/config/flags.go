package config

import (
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline, so the same logical flag
// cannot drift between "ghmodels ask", "ghmodels chat" and "ghmodels serve".
type Flag struct {
	// Name is the long flag name (e.g. "model").
	Name string

	// Shorthand is the one-letter short flag (e.g. "m"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "client.model").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagEndpoint       = "endpoint"
	FlagModel          = "model"
	FlagTemperature    = "temperature"
	FlagMaxTokens      = "max-tokens"
	FlagTokenEnv       = "token-env"
	FlagMaxRetries     = "max-retries"
	FlagListen         = "listen"
	FlagEventsProvider = "events-provider"
	FlagKafkaBrokers   = "kafka-brokers"
	FlagKafkaTopic     = "kafka-topic"
)

// Flags is the registry shared by all commands.
var Flags = FlagSet{
	FlagEndpoint: {
		Name:        "endpoint",
		Shorthand:   "e",
		ViperKey:    "client.endpoint",
		Description: "Chat-completions API base URL",
	},
	FlagModel: {
		Name:        "model",
		Shorthand:   "m",
		ViperKey:    "client.model",
		Description: "Model identifier",
	},
	FlagTemperature: {
		Name:        "temperature",
		Shorthand:   "t",
		ViperKey:    "client.temperature",
		Description: "Sampling temperature",
	},
	FlagMaxTokens: {
		Name:        "max-tokens",
		ViperKey:    "client.max_tokens",
		Description: "Maximum tokens to generate",
	},
	FlagTokenEnv: {
		Name:        "token-env",
		ViperKey:    "client.token_env",
		Description: "Environment variable holding the API token",
	},
	FlagMaxRetries: {
		Name:        "max-retries",
		ViperKey:    "retry.max_retries",
		Description: "Retries after the initial attempt",
	},
	FlagListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "server.listen",
		Description: "Address for the gateway to listen on",
	},
	FlagEventsProvider: {
		Name:        "events-provider",
		ViperKey:    "events.provider",
		Description: "Completion telemetry backend (nop, kafka)",
	},
	FlagKafkaBrokers: {
		Name:        "kafka-brokers",
		ViperKey:    "events.brokers",
		Description: "Comma separated Kafka broker addresses",
	},
	FlagKafkaTopic: {
		Name:        "kafka-topic",
		ViperKey:    "events.topic",
		Description: "Kafka topic for completion events",
	},
}

// ClientFlagKeys are the flags every command talking to the API registers.
var ClientFlagKeys = []string{
	FlagEndpoint,
	FlagModel,
	FlagTemperature,
	FlagMaxTokens,
	FlagTokenEnv,
	FlagMaxRetries,
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := cast.ToString(defaultValue(def.ViperKey))
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := cast.ToUint(defaultValue(def.ViperKey))
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddFloatFlag registers a float64 flag on cmd from the given FlagSet.
func AddFloatFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *float64) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := cast.ToFloat64(defaultValue(def.ViperKey))
	if def.Shorthand != "" {
		cmd.Flags().Float64VarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().Float64Var(target, def.Name, defaultVal, def.Description)
	}
}

// AddClientFlags registers ClientFlagKeys on cmd, binding them to fields of
// the returned ClientFlags. The values are only read back through viper.
func AddClientFlags(cmd *cobra.Command) *ClientFlags {
	f := &ClientFlags{}
	AddStringFlag(cmd, Flags, FlagEndpoint, &f.Endpoint)
	AddStringFlag(cmd, Flags, FlagModel, &f.Model)
	AddFloatFlag(cmd, Flags, FlagTemperature, &f.Temperature)
	AddUintFlag(cmd, Flags, FlagMaxTokens, &f.MaxTokens)
	AddStringFlag(cmd, Flags, FlagTokenEnv, &f.TokenEnv)
	AddUintFlag(cmd, Flags, FlagMaxRetries, &f.MaxRetries)
	return f
}

// ClientFlags holds the raw values of the client flags.
type ClientFlags struct {
	Endpoint    string
	Model       string
	Temperature float64
	MaxTokens   uint
	TokenEnv    string
	MaxRetries  uint
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultValue returns the registered default for a viper key.
func defaultValue(viperKey string) any {
	v := viper.New()
	setViperDefaults(v)
	return v.Get(viperKey)
}

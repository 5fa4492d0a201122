package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent ghmodels configuration stored as
// config.toml in the .ghmodels/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version int          `toml:"version"`
	Client  ClientConfig `toml:"client"`
	Retry   RetryConfig  `toml:"retry"`
	Stream  StreamConfig `toml:"stream"`
	Server  ServerConfig `toml:"server"`
	Events  EventsConfig `toml:"events"`
}

// ClientConfig holds the chat-completions endpoint and request defaults.
type ClientConfig struct {
	Endpoint    string   `toml:"endpoint,omitempty"`
	Model       string   `toml:"model,omitempty"`
	Temperature *float64 `toml:"temperature,omitempty"`
	MaxTokens   uint     `toml:"max_tokens,omitempty"`

	// Provider selects the stored credential ("github" by default).
	Provider string `toml:"provider,omitempty"`

	// TokenEnv overrides the environment variable holding the token.
	TokenEnv string `toml:"token_env,omitempty"`
}

// RetryConfig holds the backoff policy. Durations are in milliseconds.
type RetryConfig struct {
	MaxRetries           *uint `toml:"max_retries,omitempty"`
	BaseDelayMs          uint  `toml:"base_delay_ms,omitempty"`
	JitterMs             *uint `toml:"jitter_ms,omitempty"`
	MaxRetryAfterMs      uint  `toml:"max_retry_after_ms,omitempty"`
	Statuses             []int `toml:"statuses"`
	RetryTransportErrors bool  `toml:"retry_transport_errors,omitempty"`
}

// StreamConfig holds event-stream parsing limits.
type StreamConfig struct {
	MaxBufferBytes uint `toml:"max_buffer_bytes,omitempty"`
}

// ServerConfig holds "ghmodels serve" settings.
type ServerConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// EventsConfig holds completion telemetry settings.
type EventsConfig struct {
	// Provider is "nop" or "kafka".
	Provider  string   `toml:"provider,omitempty"`
	Brokers   []string `toml:"brokers,omitempty"`
	Topic     string   `toml:"topic,omitempty"`
	Workers   uint     `toml:"workers,omitempty"`
	QueueSize uint     `toml:"queue_size,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
// Values are exchanged as strings; lists are comma separated.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

// optionalUintKey is uintKey for settings where zero is meaningful.
func optionalUintKey(name string, field func(c *Config) **uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == nil {
				return ""
			}
			return strconv.FormatUint(uint64(**field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			u := uint(n)
			*field(c) = &u
			return nil
		},
	}
}

func floatKey(name string, field func(c *Config) **float64) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == nil {
				return ""
			}
			return strconv.FormatFloat(**field(c), 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = &f
			return nil
		},
	}
}

func boolKey(name string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

func stringListKey(field func(c *Config) *[]string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strings.Join(*field(c), ",") },
		set: func(c *Config, v string) error {
			if strings.EqualFold(strings.TrimSpace(v), emptyList) {
				*field(c) = nil
				return nil
			}
			*field(c) = splitList(v)
			return nil
		},
	}
}

// emptyList is how an explicitly empty list is written in the string form
// of a key, so it stays distinct from an unset one.
const emptyList = "none"

func intListKey(name string, field func(c *Config) *[]int) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) != nil && len(*field(c)) == 0 {
				return emptyList
			}
			parts := make([]string, 0, len(*field(c)))
			for _, n := range *field(c) {
				parts = append(parts, strconv.Itoa(n))
			}
			return strings.Join(parts, ",")
		},
		set: func(c *Config, v string) error {
			if strings.EqualFold(strings.TrimSpace(v), emptyList) {
				*field(c) = []int{}
				return nil
			}
			var out []int
			for _, p := range splitList(v) {
				n, err := strconv.Atoi(p)
				if err != nil {
					return fmt.Errorf("invalid value for %s: %w", name, err)
				}
				out = append(out, n)
			}
			*field(c) = out
			return nil
		},
	}
}

// splitList splits a comma separated list, dropping blanks.
func splitList(v string) []string {
	var out []string
	for p := range strings.SplitSeq(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// orderedKeys is the stable, logical order matching the TOML section layout.
var orderedKeys = []string{
	"client.endpoint",
	"client.model",
	"client.temperature",
	"client.max_tokens",
	"client.provider",
	"client.token_env",
	"retry.max_retries",
	"retry.base_delay_ms",
	"retry.jitter_ms",
	"retry.max_retry_after_ms",
	"retry.statuses",
	"retry.retry_transport_errors",
	"stream.max_buffer_bytes",
	"server.listen",
	"events.provider",
	"events.brokers",
	"events.topic",
	"events.workers",
	"events.queue_size",
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"client.endpoint":    stringKey(func(c *Config) *string { return &c.Client.Endpoint }),
	"client.model":       stringKey(func(c *Config) *string { return &c.Client.Model }),
	"client.temperature": floatKey("client.temperature", func(c *Config) **float64 { return &c.Client.Temperature }),
	"client.max_tokens":  uintKey("client.max_tokens", func(c *Config) *uint { return &c.Client.MaxTokens }),
	"client.provider":    stringKey(func(c *Config) *string { return &c.Client.Provider }),
	"client.token_env":   stringKey(func(c *Config) *string { return &c.Client.TokenEnv }),

	"retry.max_retries":            optionalUintKey("retry.max_retries", func(c *Config) **uint { return &c.Retry.MaxRetries }),
	"retry.base_delay_ms":          uintKey("retry.base_delay_ms", func(c *Config) *uint { return &c.Retry.BaseDelayMs }),
	"retry.jitter_ms":              optionalUintKey("retry.jitter_ms", func(c *Config) **uint { return &c.Retry.JitterMs }),
	"retry.max_retry_after_ms":     uintKey("retry.max_retry_after_ms", func(c *Config) *uint { return &c.Retry.MaxRetryAfterMs }),
	"retry.statuses":               intListKey("retry.statuses", func(c *Config) *[]int { return &c.Retry.Statuses }),
	"retry.retry_transport_errors": boolKey("retry.retry_transport_errors", func(c *Config) *bool { return &c.Retry.RetryTransportErrors }),

	"stream.max_buffer_bytes": uintKey("stream.max_buffer_bytes", func(c *Config) *uint { return &c.Stream.MaxBufferBytes }),

	"server.listen": stringKey(func(c *Config) *string { return &c.Server.Listen }),

	"events.provider":   stringKey(func(c *Config) *string { return &c.Events.Provider }),
	"events.brokers":    stringListKey(func(c *Config) *[]string { return &c.Events.Brokers }),
	"events.topic":      stringKey(func(c *Config) *string { return &c.Events.Topic }),
	"events.workers":    uintKey("events.workers", func(c *Config) *uint { return &c.Events.Workers }),
	"events.queue_size": uintKey("events.queue_size", func(c *Config) *uint { return &c.Events.QueueSize }),
}

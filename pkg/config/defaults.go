package config

import (
	"github.com/papercomputeco/ghmodels/pkg/chat"
	"github.com/papercomputeco/ghmodels/pkg/credentials"
	"github.com/papercomputeco/ghmodels/pkg/sse"
)

const (
	defaultMaxRetries  = 5
	defaultBaseDelayMs = 500
	defaultJitterMs    = 200

	defaultServerListen = ":8080"

	defaultEventsProvider  = EventsProviderNop
	defaultEventsTopic     = "ghmodels.completions"
	defaultEventsWorkers   = 2
	defaultEventsQueueSize = 256
)

// Telemetry backends.
const (
	EventsProviderNop   = "nop"
	EventsProviderKafka = "kafka"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	temperature := float64(chat.DefaultTemperature)
	maxRetries := uint(defaultMaxRetries)
	jitter := uint(defaultJitterMs)

	return &Config{
		Version: CurrentV,
		Client: ClientConfig{
			Endpoint:    chat.DefaultEndpoint,
			Model:       chat.DefaultModel,
			Temperature: &temperature,
			MaxTokens:   chat.DefaultMaxTokens,
			Provider:    credentials.DefaultProvider,
		},
		Retry: RetryConfig{
			MaxRetries:  &maxRetries,
			BaseDelayMs: defaultBaseDelayMs,
			JitterMs:    &jitter,
			Statuses:    []int{429, 500, 503},
		},
		Stream: StreamConfig{
			MaxBufferBytes: sse.DefaultMaxBufferSize,
		},
		Server: ServerConfig{
			Listen: defaultServerListen,
		},
		Events: EventsConfig{
			Provider:  defaultEventsProvider,
			Topic:     defaultEventsTopic,
			Workers:   defaultEventsWorkers,
			QueueSize: defaultEventsQueueSize,
		},
	}
}

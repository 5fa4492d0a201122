package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/papercomputeco/ghmodels/pkg/backoff"
	"github.com/papercomputeco/ghmodels/pkg/chat"
	"github.com/papercomputeco/ghmodels/pkg/llm"
)

// Validate checks cross-field constraints that the per-key parsers cannot.
func (c *Config) Validate() error {
	var errs []error

	if c.Client.Endpoint != "" {
		u, err := url.Parse(c.Client.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("client.endpoint: %q is not an absolute http(s) URL", c.Client.Endpoint))
		}
	}

	if t := c.Client.Temperature; t != nil && (*t < 0 || *t > 2) {
		errs = append(errs, fmt.Errorf("client.temperature: %v is outside [0, 2]", *t))
	}

	for _, s := range c.Retry.Statuses {
		if s < 100 || s > 599 {
			errs = append(errs, fmt.Errorf("retry.statuses: %d is not an HTTP status", s))
		}
	}

	switch c.Events.Provider {
	case "", EventsProviderNop:
	case EventsProviderKafka:
		if len(c.Events.Brokers) == 0 {
			errs = append(errs, errors.New("events.brokers: required when events.provider is kafka"))
		}
	default:
		errs = append(errs, fmt.Errorf("events.provider: unknown provider %q (available: nop, kafka)", c.Events.Provider))
	}

	return errors.Join(errs...)
}

// RetryPolicy translates the [retry] section.
func (c *Config) RetryPolicy() backoff.Policy {
	p := backoff.DefaultPolicy()

	if c.Retry.MaxRetries != nil {
		p.MaxRetries = int(*c.Retry.MaxRetries)
	}
	if c.Retry.BaseDelayMs > 0 {
		p.BaseDelay = time.Duration(c.Retry.BaseDelayMs) * time.Millisecond
	}
	if c.Retry.JitterMs != nil {
		p.JitterBound = time.Duration(*c.Retry.JitterMs) * time.Millisecond
	}
	p.MaxRetryAfter = time.Duration(c.Retry.MaxRetryAfterMs) * time.Millisecond
	p.RetryTransportErrors = c.Retry.RetryTransportErrors

	if c.Retry.Statuses != nil {
		p.RetryableStatuses = make(map[int]bool, len(c.Retry.Statuses))
		for _, s := range c.Retry.Statuses {
			p.RetryableStatuses[s] = true
		}
	}

	return p
}

// ChatConfig translates the [client], [retry] and [stream] sections. The
// caller supplies the token and any runtime collaborators (publisher,
// logger, HTTP client).
func (c *Config) ChatConfig(token string) chat.Config {
	policy := c.RetryPolicy()

	cc := chat.Config{
		Endpoint:      c.Client.Endpoint,
		Token:         token,
		TokenEnv:      c.Client.TokenEnv,
		Model:         c.Client.Model,
		Retry:         &policy,
		MaxBufferSize: int(c.Stream.MaxBufferBytes),
	}
	if c.Client.Temperature != nil {
		cc.Temperature = llm.Ptr(*c.Client.Temperature)
	}
	if c.Client.MaxTokens > 0 {
		cc.MaxTokens = llm.Ptr(int(c.Client.MaxTokens))
	}
	return cc
}

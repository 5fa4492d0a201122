package chat

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/papercomputeco/ghmodels/pkg/backoff"
	"github.com/papercomputeco/ghmodels/pkg/eventstream"
	"github.com/papercomputeco/ghmodels/pkg/llm"
	"github.com/papercomputeco/ghmodels/pkg/logger"
	"github.com/papercomputeco/ghmodels/pkg/sse"
)

const (
	// DefaultEndpoint is the GitHub Models inference base URL.
	DefaultEndpoint = "https://models.github.ai/inference"

	// CompletionsPath is appended to the endpoint.
	CompletionsPath = "/chat/completions"

	DefaultModel       = "openai/gpt-4o"
	DefaultTemperature = 0.2
	DefaultMaxTokens   = 4000

	// DefaultTokenEnv names the credential in configuration errors.
	DefaultTokenEnv = "GITHUB_TOKEN"

	clientName = "ghmodels"
)

// Config configures a Client.
type Config struct {
	// Endpoint is the API base URL. Defaults to DefaultEndpoint.
	Endpoint string

	// Token is the bearer credential. Required.
	Token string

	// TokenEnv names where Token came from, for error messages.
	TokenEnv string

	// Defaults applied to requests that leave them unset.
	Model       string
	Temperature *float64
	MaxTokens   *int

	// Retry is the backoff policy. Nil selects backoff.DefaultPolicy().
	Retry *backoff.Policy

	// BackoffOptions are passed to the executor (sleeper, jitter, hooks).
	BackoffOptions []backoff.Option

	// MaxBufferSize bounds a single unterminated stream event.
	MaxBufferSize int

	// HTTPClient performs requests. Defaults to a client without a total
	// timeout, since streams may run for minutes; use ctx to bound calls.
	HTTPClient *http.Client

	// Publisher receives one completion event per call. Nil disables
	// telemetry.
	Publisher eventstream.Publisher

	Logger *slog.Logger
}

func (c Config) withDefaults() (Config, error) {
	if c.TokenEnv == "" {
		c.TokenEnv = DefaultTokenEnv
	}
	if strings.TrimSpace(c.Token) == "" {
		return c, &llm.ConfigurationError{Key: c.TokenEnv}
	}

	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return c, &llm.ConfigurationError{Key: "endpoint", Reason: "must be an absolute http(s) URL"}
	}
	c.Endpoint = strings.TrimRight(c.Endpoint, "/")

	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Temperature == nil {
		c.Temperature = llm.Ptr(DefaultTemperature)
	}
	if c.MaxTokens == nil {
		c.MaxTokens = llm.Ptr(DefaultMaxTokens)
	}
	if c.Retry == nil {
		p := backoff.DefaultPolicy()
		c.Retry = &p
	}
	if c.MaxBufferSize <= 0 {
		c.MaxBufferSize = sse.DefaultMaxBufferSize
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: 60 * time.Second,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
			},
		}
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}
	return c, nil
}

// Package credentials resolves the API token used to authenticate chat
// completions. The process environment wins; a token saved with
// "ghmodels auth login" in .ghmodels/credentials.toml is the fallback.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/ghmodels/pkg/dotdir"
)

const (
	credentialsFile = "credentials.toml"

	currentVersion = 0

	// DefaultProvider is the provider whose token the client uses unless
	// told otherwise.
	DefaultProvider = "github"
)

// providerEnvVars maps provider names to their expected environment variables.
var providerEnvVars = map[string]string{
	"github": "GITHUB_TOKEN",
	"openai": "OPENAI_API_KEY",
}

// Store reads and writes credentials.toml in the .ghmodels/ directory.
type Store struct {
	path string
}

// NewStore creates a Store. If override is non-empty it is used as the
// .ghmodels/ directory; otherwise the standard dotdir resolution applies,
// creating ~/.ghmodels/ when nothing is found.
func NewStore(override string) (*Store, error) {
	dir, err := dotdir.NewManager().Ensure(override)
	if err != nil {
		return nil, err
	}
	return &Store{path: filepath.Join(dir, credentialsFile)}, nil
}

// Path returns the resolved path to the credentials file.
func (s *Store) Path() string {
	return s.path
}

// Load reads credentials.toml. A missing file yields an empty File.
func (s *Store) Load() (*File, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &File{Version: currentVersion, Tokens: map[string]StoredToken{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	f := &File{}
	if err := toml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}
	if f.Tokens == nil {
		f.Tokens = map[string]StoredToken{}
	}
	return f, nil
}

// Save writes f with 0600 permissions.
func (s *Store) Save(f *File) error {
	if f == nil {
		return errors.New("cannot save nil credentials")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(f); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}
	if err := os.WriteFile(s.path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

// SetToken stores a token for provider, keeping the others.
func (s *Store) SetToken(provider, token string) error {
	return s.update(func(f *File) {
		f.Tokens[provider] = StoredToken{Token: token}
	})
}

// RemoveToken deletes the stored token for provider. Removing an unknown
// provider is a no-op.
func (s *Store) RemoveToken(provider string) error {
	return s.update(func(f *File) {
		delete(f.Tokens, provider)
	})
}

// Token returns the stored token for provider, or "" when none is stored.
func (s *Store) Token(provider string) (string, error) {
	f, err := s.Load()
	if err != nil {
		return "", err
	}
	return f.Tokens[provider].Token, nil
}

// Providers returns the names of providers with stored tokens, sorted.
func (s *Store) Providers() ([]string, error) {
	f, err := s.Load()
	if err != nil {
		return nil, err
	}
	return slices.Sorted(maps.Keys(f.Tokens)), nil
}

func (s *Store) update(fn func(*File)) error {
	f, err := s.Load()
	if err != nil {
		return err
	}
	fn(f)
	return s.Save(f)
}

// FromEnv returns the value of the named variable. Blank values count as
// unset.
func FromEnv(name string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	return v, v != ""
}

// Resolve returns the token for provider. envName overrides the provider's
// default variable. The store is consulted only when the environment has no
// token, and may be nil. An empty token with SourceNone means nothing was found.
func Resolve(provider, envName string, store *Store) (string, Source, error) {
	if envName == "" {
		envName = EnvVarForProvider(provider)
	}
	if envName != "" {
		if v, ok := FromEnv(envName); ok {
			return v, SourceEnv, nil
		}
	}

	if store == nil {
		return "", SourceNone, nil
	}
	token, err := store.Token(provider)
	if err != nil {
		return "", SourceNone, err
	}
	if token = strings.TrimSpace(token); token != "" {
		return token, SourceFile, nil
	}
	return "", SourceNone, nil
}

// EnvVarForProvider returns the environment variable name for a given provider.
// Returns an empty string for unknown providers.
func EnvVarForProvider(provider string) string {
	return providerEnvVars[provider]
}

// SupportedProviders returns the providers with a known token variable.
func SupportedProviders() []string {
	return slices.Sorted(maps.Keys(providerEnvVars))
}

// IsSupportedProvider returns true if the given provider is supported.
func IsSupportedProvider(provider string) bool {
	_, ok := providerEnvVars[provider]
	return ok
}

// File: internal/config/runconfig.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// PlaceholderPrefix marks credential values copied verbatim from the example template.
const PlaceholderPrefix = "YOUR_"

// Credentials is one source's view of the destination site's credentials.
type Credentials struct {
	AccessToken string `json:"access_token,omitempty"`
	APIKey      string `json:"api_key,omitempty"`
	Username    string `json:"username,omitempty"`
	Password    string `json:"password,omitempty"`
}

// DefaultValues fill record fields the extractor left empty.
type DefaultValues struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// RunConfig is the user-edited run configuration (config.json).
type RunConfig struct {
	Credentials
	DefaultValues DefaultValues `json:"default_values"`
}

// IsAbsent reports whether a credential value should be treated as not provided.
func IsAbsent(value string) bool {
	v := strings.TrimSpace(value)
	return v == "" || strings.HasPrefix(v, PlaceholderPrefix)
}

// HasAny reports whether at least one usable credential is present.
func (c Credentials) HasAny() bool {
	return !IsAbsent(c.AccessToken) || !IsAbsent(c.APIKey) ||
		(!IsAbsent(c.Username) && !IsAbsent(c.Password))
}

// exampleRunConfig is written next to a missing run configuration.
func exampleRunConfig() RunConfig {
	return RunConfig{
		Credentials: Credentials{
			AccessToken: "YOUR_ACCESS_TOKEN",
			APIKey:      "YOUR_API_KEY",
		},
		DefaultValues: DefaultValues{Tags: []string{}},
	}
}

// ExamplePath returns the template location for a run configuration path.
func ExamplePath(path string) string {
	dir := filepath.Dir(path)
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(filepath.Base(path), ext)
	if ext == "" {
		ext = ".json"
	}
	return filepath.Join(dir, base+".example"+ext)
}

// LoadRunConfig reads the run configuration. A missing file yields an empty
// configuration and writes an example template alongside; created reports whether
// the template was written.
func LoadRunConfig(path string) (cfg RunConfig, created bool, err error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return RunConfig{}, false, fmt.Errorf("failed to expand run config path %q: %w", path, err)
	}

	data, err := os.ReadFile(expanded)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return RunConfig{}, false, fmt.Errorf("failed to read run config %q: %w", expanded, err)
		}
		if werr := SaveRunConfig(ExamplePath(expanded), exampleRunConfig()); werr != nil {
			return RunConfig{}, false, werr
		}
		return RunConfig{}, true, nil
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return RunConfig{}, false, fmt.Errorf("failed to parse run config %q: %w", expanded, err)
	}
	return cfg, false, nil
}

// SaveRunConfig writes the run configuration as indented JSON.
func SaveRunConfig(path string, cfg RunConfig) error {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return fmt.Errorf("failed to expand run config path %q: %w", path, err)
	}
	if cfg.DefaultValues.Tags == nil {
		cfg.DefaultValues.Tags = []string{}
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode run config: %w", err)
	}
	if dir := filepath.Dir(expanded); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %q: %w", expanded, err)
		}
	}
	if err := os.WriteFile(expanded, data, 0o600); err != nil {
		return fmt.Errorf("failed to write run config %q: %w", expanded, err)
	}
	return nil
}

// Environment variable names carrying credentials.
const (
	EnvAccessToken = "PATHFINDER_ACCESS_TOKEN"
	EnvAPIKey      = "PATHFINDER_API_KEY"
	EnvUsername    = "PATHFINDER_USERNAME"
	EnvPassword    = "PATHFINDER_PASSWORD"
)

// LoadEnvCredentials reads credentials from the process environment, falling back
// to a dotenv file when one exists. Process variables win over the file.
func LoadEnvCredentials(dotenvPath string) Credentials {
	v := viper.New()
	for _, key := range []string{EnvAccessToken, EnvAPIKey, EnvUsername, EnvPassword} {
		_ = v.BindEnv(strings.ToLower(key), key)
	}

	if dotenvPath != "" {
		if expanded, err := homedir.Expand(dotenvPath); err == nil {
			if _, statErr := os.Stat(expanded); statErr == nil {
				v.SetConfigFile(expanded)
				v.SetConfigType("dotenv")
				// A malformed .env is ignored; the process environment still applies.
				_ = v.ReadInConfig()
			}
		}
	}

	return Credentials{
		AccessToken: v.GetString(strings.ToLower(EnvAccessToken)),
		APIKey:      v.GetString(strings.ToLower(EnvAPIKey)),
		Username:    v.GetString(strings.ToLower(EnvUsername)),
		Password:    v.GetString(strings.ToLower(EnvPassword)),
	}
}

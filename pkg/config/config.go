// Package config resolves run configuration from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/codeGROOVE-dev/duostreak/pkg/profile"
)

// Environment keys.
const (
	EnvProfile = "DUO_PROFILE"
	EnvUser    = "DUO_USER"
	EnvPass    = "DUO_PASS"
	EnvOut     = "DUO_OUT"
)

// DefaultOut is where the snapshot is written unless DUO_OUT or -out says otherwise.
const DefaultOut = "assets/data/duolingo.json"

// ErrNoHandle means no profile handle could be derived from the configuration.
var ErrNoHandle = errors.New("no profile handle configured: set " + EnvProfile + ", a non-email " + EnvUser + ", or " + EnvUser + " and " + EnvPass)

// Config is the resolved run configuration.
type Config struct {
	Handle string
	User   string
	Pass   string
	Out    string
}

// DiscoverHandle reports whether the handle must be read from the signed-in session.
func (c *Config) DiscoverHandle() bool {
	return c.Handle == "" && c.HasCredentials()
}

// HasCredentials reports whether both sign-in values are present.
func (c *Config) HasCredentials() bool {
	return c.User != "" && c.Pass != ""
}

// LoadDotEnv loads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv(path string, logger *slog.Logger) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug("no .env file", "path", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	logger.Debug("loaded .env file", "path", path)
	return nil
}

// FromEnv builds a Config from lookup, typically os.LookupEnv. With credentials
// but no usable handle the Config is returned with an empty Handle; see DiscoverHandle.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}
	cfg := &Config{
		Handle: profile.Handle(get(EnvProfile)),
		User:   get(EnvUser),
		Pass:   get(EnvPass),
		Out:    get(EnvOut),
	}
	if cfg.Out == "" {
		cfg.Out = DefaultOut
	}
	if cfg.Handle == "" && cfg.User != "" && !strings.Contains(cfg.User, "@") {
		cfg.Handle = profile.Handle(cfg.User)
	}
	if cfg.Handle == "" && !cfg.HasCredentials() {
		return cfg, ErrNoHandle
	}
	return cfg, nil
}

// Load reads the .env file at path, then the process environment.
func Load(path string, logger *slog.Logger) (*Config, error) {
	if err := LoadDotEnv(path, logger); err != nil {
		return nil, err
	}
	return FromEnv(os.LookupEnv)
}

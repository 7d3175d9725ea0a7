package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/yndnr/attrmesh/internal/infra/confloader"
)

// EnvPrefix is the environment prefix for CLI settings.
const EnvPrefix = "ATTRMESH_CLI_"

func baseDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".attrmesh"
	}
	return filepath.Join(homeDir, ".attrmesh")
}

// DefaultConfigPath returns the default CLI config file path.
func DefaultConfigPath() string {
	return filepath.Join(baseDir(), "cli.yaml")
}

// DefaultCookiePath returns the default session cookie file path.
func DefaultCookiePath() string {
	return filepath.Join(baseDir(), "cookies.json")
}

// Load loads CLI configuration from path. A missing file at the default
// path yields the defaults; a missing explicit path is an error.
func Load(path string) (*CLIConfig, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}

	opts := []confloader.Option{confloader.WithEnvPrefix(EnvPrefix)}
	if _, err := os.Stat(path); err == nil {
		opts = append(opts, confloader.WithConfigFile(path))
	} else if explicit {
		return nil, fmt.Errorf("cli config: %w", err)
	}

	cfg := Default()
	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, fmt.Errorf("cli config: %w", err)
	}
	return cfg, nil
}

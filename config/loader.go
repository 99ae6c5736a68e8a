package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// UserConfigDir is the directory of the user-level config file.
	UserConfigDir = ".config/xmlcatalog"
	// UserConfigFile is the name of the user-level config file.
	UserConfigFile = "config.yaml"
)

// Loader loads configuration with layered precedence.
type Loader struct {
	logger *slog.Logger
	lookup func(string) (string, bool)
}

// NewLoader creates a loader reading the process environment.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger, lookup: os.LookupEnv}
}

// Load builds the configuration from, in increasing precedence: the
// defaults, the user config file, the file named by XML_CATALOG_CONFIG and
// the XML_CATALOG_* variables.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range l.files() {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		l.logger.Debug("loaded config", slog.String("path", path))
		cfg.Merge(fileCfg)
	}

	if err := cfg.ApplyEnv(l.lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) files() []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, UserConfigDir, UserConfigFile))
	}
	if p, ok := l.lookup(EnvConfig); ok && p != "" {
		paths = append(paths, p)
	}
	return paths
}

// Load loads configuration with the default loader.
func Load() (*Config, error) {
	return NewLoader(nil).Load()
}

// Package config loads resolver configuration from YAML files and the
// environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Prefer values.
const (
	PreferPublic = "public"
	PreferSystem = "system"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvFiles   = "XML_CATALOG_FILES"
	EnvPrefer  = "XML_CATALOG_PREFER"
	EnvCache   = "XML_CATALOG_CACHE"
	EnvOffline = "XML_CATALOG_OFFLINE"
	EnvConfig  = "XML_CATALOG_CONFIG"
)

// Config is the resolver configuration.
type Config struct {
	// Catalogs is the ordered search path: file paths or absolute URIs.
	Catalogs []string     `yaml:"catalogs"`
	Prefer   string       `yaml:"prefer"`
	Cache    CacheConfig  `yaml:"cache"`
	Access   AccessConfig `yaml:"access"`

	// Offline disables cache staleness probes.
	Offline      bool `yaml:"offline"`
	MergeHTTPS   bool `yaml:"merge_https"`
	URIForSystem bool `yaml:"uri_for_system"`
	ParseRDDL    bool `yaml:"parse_rddl"`

	// AlwaysResolve fetches the original identifier when no catalog entry
	// matches.
	AlwaysResolve bool `yaml:"always_resolve"`
}

// CacheConfig configures the resource cache.
type CacheConfig struct {
	Dir     string `yaml:"dir"`
	Enabled bool   `yaml:"enabled"`
}

// AccessConfig lists allow and deny URI patterns.
type AccessConfig struct {
	Allow []string `yaml:"allow,omitempty"`
	Deny  []string `yaml:"deny,omitempty"`
}

// DefaultConfig returns a Config with the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Catalogs:      []string{"./catalog.xml"},
		Prefer:        PreferPublic,
		MergeHTTPS:    true,
		URIForSystem:  true,
		AlwaysResolve: true,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Prefer {
	case PreferPublic, PreferSystem:
	default:
		return fmt.Errorf("prefer must be %q or %q, got %q", PreferPublic, PreferSystem, c.Prefer)
	}
	for i, cat := range c.Catalogs {
		if strings.TrimSpace(cat) == "" {
			return fmt.Errorf("catalogs[%d] is empty", i)
		}
	}
	if c.Cache.Enabled && c.Cache.Dir == "" {
		return fmt.Errorf("cache.dir is required when the cache is enabled")
	}
	for _, list := range [][]string{c.Access.Allow, c.Access.Deny} {
		for _, p := range list {
			if !doublestar.ValidatePattern(p) {
				return fmt.Errorf("invalid access pattern %q", p)
			}
		}
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// SaveToFile writes the configuration as YAML.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file %s: %w", path, err)
	}
	return nil
}

// Merge merges other into c. Non-empty lists and strings in other win;
// booleans in other win when they differ from the defaults.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}
	def := DefaultConfig()

	if len(other.Catalogs) > 0 && !equalStrings(other.Catalogs, def.Catalogs) {
		c.Catalogs = other.Catalogs
	}
	if other.Prefer != "" && other.Prefer != def.Prefer {
		c.Prefer = other.Prefer
	}
	if other.Cache.Dir != "" {
		c.Cache.Dir = other.Cache.Dir
	}
	if other.Cache.Enabled {
		c.Cache.Enabled = true
	}
	if len(other.Access.Allow) > 0 {
		c.Access.Allow = other.Access.Allow
	}
	if len(other.Access.Deny) > 0 {
		c.Access.Deny = other.Access.Deny
	}
	if other.Offline != def.Offline {
		c.Offline = other.Offline
	}
	if other.MergeHTTPS != def.MergeHTTPS {
		c.MergeHTTPS = other.MergeHTTPS
	}
	if other.URIForSystem != def.URIForSystem {
		c.URIForSystem = other.URIForSystem
	}
	if other.ParseRDDL != def.ParseRDDL {
		c.ParseRDDL = other.ParseRDDL
	}
	if other.AlwaysResolve != def.AlwaysResolve {
		c.AlwaysResolve = other.AlwaysResolve
	}
}

// ApplyEnv overrides c from environment variables read through lookup.
// XML_CATALOG_FILES holds catalogs separated by semicolons or whitespace;
// setting XML_CATALOG_CACHE enables the cache in that directory.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvFiles); ok && strings.TrimSpace(v) != "" {
		c.Catalogs = splitList(v)
	}
	if v, ok := lookup(EnvPrefer); ok && v != "" {
		c.Prefer = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(EnvCache); ok && v != "" {
		c.Cache.Dir = v
		c.Cache.Enabled = true
	}
	if v, ok := lookup(EnvOffline); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvOffline, err)
		}
		c.Offline = b
	}
	return nil
}

func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ';' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

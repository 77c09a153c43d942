// Package config loads the accord configuration file.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/accord/internal/identity"
	"github.com/ppiankov/accord/internal/policy"
	"github.com/ppiankov/accord/internal/stream"
	"github.com/ppiankov/accord/internal/weight"
)

// DirName is the per-user configuration directory under $HOME.
const DirName = ".accord"

// FeatureConfig locates the feature-source file.
type FeatureConfig struct {
	Path     string        `yaml:"path"`
	Watch    bool          `yaml:"watch"`
	Debounce time.Duration `yaml:"debounce"`
}

// LedgerConfig locates the SQLite ledger.
type LedgerConfig struct {
	Path string `yaml:"path"`
}

// AuditConfig locates the audit log. An empty path disables auditing.
type AuditConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig holds listen addresses for `accord serve`.
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// Config is the complete accord configuration.
type Config struct {
	Policy     policy.Config    `yaml:"policy"`
	Identities []identity.Entry `yaml:"identities"`
	Weight     weight.Config    `yaml:"weight"`
	Feature    FeatureConfig    `yaml:"feature"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Audit      AuditConfig      `yaml:"audit"`
	Stream     stream.Config    `yaml:"stream"`
	Server     ServerConfig     `yaml:"server"`
}

// Dir returns ~/.accord, or ".accord" when the home directory is unknown.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DirName
	}
	return filepath.Join(home, DirName)
}

// DefaultPath returns ~/.accord/config.yaml.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the built-in configuration.
func Default() *Config {
	dir := Dir()
	return &Config{
		Policy:     *policy.DefaultConfig(),
		Identities: identity.DefaultEntries(),
		Weight:     weight.DefaultConfig(),
		Feature: FeatureConfig{
			Path:     filepath.Join(dir, "potential.bin"),
			Debounce: 200 * time.Millisecond,
		},
		Ledger: LedgerConfig{Path: filepath.Join(dir, "ledger.db")},
		Audit:  AuditConfig{Path: filepath.Join(dir, "audit.jsonl")},
		Stream: stream.DefaultConfig(),
		Server: ServerConfig{
			Addr:        "127.0.0.1:50551",
			MetricsAddr: "127.0.0.1:9551",
		},
	}
}

// Load reads the configuration at path. An empty path means DefaultPath;
// a missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg, _, err := LoadWithHash(path)
	return cfg, err
}

// LoadWithHash loads the configuration and returns the SHA-256 of the raw
// file bytes. When no file exists the hash is that of empty input.
func LoadWithHash(path string) (*Config, string, error) {
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), Hash(nil), nil
		}
		return nil, "", fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, "", err
	}
	return cfg, Hash(data), nil
}

// Parse overlays YAML onto the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Feature.Path = ExpandHome(cfg.Feature.Path)
	cfg.Ledger.Path = ExpandHome(cfg.Ledger.Path)
	cfg.Audit.Path = ExpandHome(cfg.Audit.Path)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Hash returns "sha256:<hex>" of data.
func Hash(data []byte) string {
	h := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(h[:])
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Policy.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := identity.NewRegistry(c.Identities); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.Weight.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Feature.Debounce < 0 {
		return fmt.Errorf("config: feature.debounce must not be negative")
	}
	if err := c.Stream.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Registry builds the identity registry from the identities section.
func (c *Config) Registry() (*identity.Registry, error) {
	return identity.NewRegistry(c.Identities)
}

// DefaultYAML returns a commented configuration file for `accord init`.
func DefaultYAML() string {
	return policy.DefaultConfigYAML() + `
identities:
  - {did: "did:t0:protocol-overseer", tier: t0, fingerprint: "0xdeadbeefc0dec0de"}
  - {did: "did:t1:rozel-rosel-admin", tier: t1, fingerprint: "0xaffecafebabebabe"}
  - {did: "did:t3:*", tier: t3, fingerprint: "0xfacebeef"}

weight:
  cohesion_factor: 0.005
  override_bonus: 9000000000
  override_intents: [OVERRIDE]
  invalid_feature_floor: 10000000
  # Changing the key changes every hash component.
  hash_key: accord-svt-v1

feature:
  path: ~/.accord/potential.bin
  watch: true
  debounce: 200ms

ledger:
  path: ~/.accord/ledger.db

audit:
  path: ~/.accord/audit.jsonl

stream:
  # Empty brokers disables publishing.
  brokers: []
  topic: AEGIS_SOVEREIGNTY_LOG
  group: accord-archivers
  min_weight: 1000

server:
  addr: 127.0.0.1:50551
  metrics_addr: 127.0.0.1:9551
`
}

// ExpandHome replaces a leading "~/" with the home directory.
func ExpandHome(path string) string {
	if len(path) < 2 || path[:2] != "~/" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

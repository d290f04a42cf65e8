// Package config loads the tether client configuration.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultURL is the gateway endpoint used when none is configured.
const DefaultURL = "ws://localhost:18789/ws"

// Config is the client configuration. Files ending in .yaml or .yml are
// read as YAML, anything else as JSON.
type Config struct {
	URL           string `json:"url" yaml:"url"`
	Token         string `json:"token,omitempty" yaml:"token,omitempty"` // supports ${ENV_VAR}
	UserID        string `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	ClientName    string `json:"client_name,omitempty" yaml:"client_name,omitempty"`
	AssistantName string `json:"assistant_name,omitempty" yaml:"assistant_name,omitempty"`
	Timezone      string `json:"timezone,omitempty" yaml:"timezone,omitempty"`

	Reconnect             *bool `json:"reconnect,omitempty" yaml:"reconnect,omitempty"`
	ReconnectDelaySeconds int   `json:"reconnect_delay_seconds,omitempty" yaml:"reconnect_delay_seconds,omitempty"`
	HeartbeatSeconds      int   `json:"heartbeat_seconds,omitempty" yaml:"heartbeat_seconds,omitempty"`

	LogLevel    string `json:"log_level,omitempty" yaml:"log_level,omitempty"`
	LogFile     string `json:"log_file,omitempty" yaml:"log_file,omitempty"`
	MetricsAddr string `json:"metrics_addr,omitempty" yaml:"metrics_addr,omitempty"`

	SSH SSHConfig `json:"ssh,omitempty" yaml:"ssh,omitempty"`

	// placeholder names seen by the last expandEnvVars
	resolved   []string
	unresolved []string
}

// SSHConfig holds configuration for the SSH front end
type SSHConfig struct {
	Listen         string `json:"listen,omitempty" yaml:"listen,omitempty"`
	HostKey        string `json:"host_key,omitempty" yaml:"host_key,omitempty"`
	AuthorizedKeys string `json:"authorized_keys,omitempty" yaml:"authorized_keys,omitempty"`
}

// Overrides are command-line values that take precedence over the file.
type Overrides struct {
	URL       string
	Token     string
	Reconnect *bool
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{URL: DefaultURL}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if c.Reconnect == nil {
		enabled := true
		c.Reconnect = &enabled
	}
	if c.ReconnectDelaySeconds == 0 {
		c.ReconnectDelaySeconds = 5
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.AssistantName == "" {
		c.AssistantName = "Assistant"
	}
	if c.SSH.Listen == "" {
		c.SSH.Listen = ":2222"
	}
}

// ShouldReconnect reports whether automatic reconnection is enabled.
func (c *Config) ShouldReconnect() bool {
	return c.Reconnect == nil || *c.Reconnect
}

// Heartbeat returns the heartbeat interval, zero when disabled.
func (c *Config) Heartbeat() time.Duration {
	return time.Duration(c.HeartbeatSeconds) * time.Second
}

// Load reads the config at path, creating a default file when it does not
// exist. Placeholders and ~ are expanded, defaults applied and the result
// validated.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		if err := cfg.Save(path); err != nil {
			return nil, fmt.Errorf("failed to save default config: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Created default configuration at %s\n", path)
		return cfg, nil
	}

	cfg, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrCreate loads the config at path (if any), applies overrides and
// fills in the client identity from the hostname. The identity is saved
// back so it stays stable across runs; the token from overrides is not.
func LoadOrCreate(path string, o Overrides) (*Config, error) {
	saved := &Config{}
	if _, err := os.Stat(path); err == nil {
		if saved, err = read(path); err != nil {
			return nil, err
		}
	}

	changed := false
	if o.URL != "" && o.URL != saved.URL {
		saved.URL = o.URL
		changed = true
	}
	if saved.UserID == "" {
		saved.UserID = hostname("tui-user")
		changed = true
	}
	if saved.ClientName == "" {
		saved.ClientName = fmt.Sprintf("tui-%s", hostname("local"))
		changed = true
	}
	if changed {
		if err := saved.Save(path); err != nil {
			return nil, err
		}
	}

	cfg := *saved
	if o.Token != "" {
		cfg.Token = o.Token
	}
	if o.Reconnect != nil {
		cfg.Reconnect = o.Reconnect
	}
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func hostname(fallback string) string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return fallback
	}
	return h
}

func read(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if isYAML(path) {
		err = yaml.Unmarshal(data, &cfg)
	} else {
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &cfg, nil
}

func (c *Config) finish() error {
	c.expandTilde()
	c.expandEnvVars()
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// Save writes the config to path in the format its extension selects.
func (c *Config) Save(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	// the file may hold a token
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// expandEnvVars expands ${ENV_VAR} placeholders and records which names
// were set and which were not. An unset name expands to "".
func (c *Config) expandEnvVars() {
	c.resolved, c.unresolved = nil, nil
	lookup := func(name string) string {
		v, ok := os.LookupEnv(name)
		if ok {
			c.resolved = appendOnce(c.resolved, name)
		} else {
			c.unresolved = appendOnce(c.unresolved, name)
		}
		return v
	}

	c.URL = os.Expand(c.URL, lookup)
	c.Token = os.Expand(c.Token, lookup)
	c.LogFile = os.Expand(c.LogFile, lookup)
	c.MetricsAddr = os.Expand(c.MetricsAddr, lookup)
	c.SSH.HostKey = os.Expand(c.SSH.HostKey, lookup)
	c.SSH.AuthorizedKeys = os.Expand(c.SSH.AuthorizedKeys, lookup)
}

// Placeholders returns the ${VAR} names found while loading, split by
// whether the environment had them.
func (c *Config) Placeholders() (resolved, unresolved []string) {
	return c.resolved, c.unresolved
}

func appendOnce(names []string, name string) []string {
	for _, n := range names {
		if n == name {
			return names
		}
	}
	return append(names, name)
}

// expandTilde replaces a leading "~/" with the user's home directory in
// path-valued fields.
func (c *Config) expandTilde() {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	expand := func(p string) string {
		if p == "~" {
			return home
		}
		if strings.HasPrefix(p, "~/") {
			return filepath.Join(home, p[2:])
		}
		return p
	}

	c.LogFile = expand(c.LogFile)
	c.SSH.HostKey = expand(c.SSH.HostKey)
	c.SSH.AuthorizedKeys = expand(c.SSH.AuthorizedKeys)
}

// Validate checks the configuration
func (c *Config) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid url '%s': %w", c.URL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("url must use ws:// or wss://, got '%s'", c.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("url '%s' has no host", c.URL)
	}

	if c.ReconnectDelaySeconds < 1 {
		return fmt.Errorf("reconnect_delay_seconds must be at least 1")
	}
	if c.HeartbeatSeconds < 0 {
		return fmt.Errorf("heartbeat_seconds cannot be negative")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level '%s' (debug, info, warn, error)", c.LogLevel)
	}

	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("invalid timezone '%s': %w", c.Timezone, err)
		}
	}
	return nil
}

// GetLocation returns the configured timezone, falling back to time.Local.
func (c *Config) GetLocation() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jiwuchat/jiwuchat-shell/internal/deeplink"
)

// LoadFromBytes loads configuration from YAML bytes with environment variable
// expansion. Missing values fall back to Default().
func LoadFromBytes(data []byte) (Config, error) {
	c := Default()
	if err := c.merge(data); err != nil {
		return c, err
	}
	return c, nil
}

// LoadFile layers the YAML file at path over c.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := c.merge(data); err != nil {
		return fmt.Errorf("config: %s: %w", path, err)
	}
	return nil
}

func (c *Config) merge(data []byte) error {
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return fmt.Errorf("config: decode yaml: %w", err)
	}
	return nil
}

// parseBool parses a string as boolean with a default value.
// Accepts: "true", "1", "yes" as true; empty or other values return default.
func parseBool(s string, defaultVal bool) bool {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return defaultVal
	}
	return s == "true" || s == "1" || s == "yes"
}

type Config struct {
	App struct {
		Name   string `yaml:"Name"`
		Scheme string `yaml:"Scheme"`
		// FrontendURL is what the desktop window loads.
		FrontendURL string `yaml:"FrontendURL"`
	} `yaml:"App"`
	Server struct {
		Host string `yaml:"Host"`
		// Port 0 picks an unused port.
		Port int `yaml:"Port"`
	} `yaml:"Server"`
	DeepLink struct {
		Variant string `yaml:"Variant"`
		Schema  string `yaml:"Schema"`
		// StartupDelayMs overrides the variant's delay when positive.
		StartupDelayMs    int    `yaml:"StartupDelayMs"`
		RegisterOnStartup string `yaml:"RegisterOnStartup"`
	} `yaml:"DeepLink"`
	Window struct {
		Width     int `yaml:"Width"`
		Height    int `yaml:"Height"`
		MinWidth  int `yaml:"MinWidth"`
		MinHeight int `yaml:"MinHeight"`
	} `yaml:"Window"`
	Log struct {
		Level  string `yaml:"Level"`
		Format string `yaml:"Format"`
	} `yaml:"Log"`
}

// Default returns the built-in configuration.
func Default() Config {
	var c Config
	c.App.Name = "JiwuChat"
	c.App.Scheme = deeplink.DefaultScheme
	c.App.FrontendURL = "http://127.0.0.1:3000"
	c.Server.Host = "127.0.0.1"
	c.DeepLink.Schema = string(deeplink.SchemaRich)
	c.Window.Width = 1280
	c.Window.Height = 860
	c.Window.MinWidth = 375
	c.Window.MinHeight = 600
	c.Log.Level = "info"
	c.Log.Format = "text"
	return c
}

// Validate rejects settings the shell cannot run with.
func (c Config) Validate() error {
	if c.App.Scheme == "" || strings.Contains(c.App.Scheme, "://") {
		return fmt.Errorf("config: App.Scheme %q is not a bare scheme", c.App.Scheme)
	}
	if !c.Variant().Valid() {
		return fmt.Errorf("config: unknown DeepLink.Variant %q", c.DeepLink.Variant)
	}
	if !c.Schema().Valid() {
		return fmt.Errorf("config: unknown DeepLink.Schema %q", c.DeepLink.Schema)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: Server.Port %d out of range", c.Server.Port)
	}
	return nil
}

// Variant is the configured variant, desktop when none is set.
func (c Config) Variant() deeplink.Variant {
	return c.VariantOr(deeplink.VariantDesktop)
}

// VariantOr returns the configured variant or def when none is set. Headless
// mode defaults to mobile this way.
func (c Config) VariantOr(def deeplink.Variant) deeplink.Variant {
	if strings.TrimSpace(c.DeepLink.Variant) == "" {
		return def
	}
	return deeplink.Variant(strings.ToLower(c.DeepLink.Variant))
}

func (c Config) Schema() deeplink.Schema {
	return deeplink.Schema(strings.ToLower(c.DeepLink.Schema))
}

// StartupDelay is zero when the variant default applies.
func (c Config) StartupDelay() time.Duration {
	if c.DeepLink.StartupDelayMs <= 0 {
		return 0
	}
	return time.Duration(c.DeepLink.StartupDelayMs) * time.Millisecond
}

func (c Config) IsRegisterOnStartup() bool {
	return parseBool(c.DeepLink.RegisterOnStartup, true)
}

// ServerAddr is the listen address for the local API.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

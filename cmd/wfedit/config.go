package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lumingya/universal-web-api/browser"
	"github.com/lumingya/universal-web-api/profile"
)

// fileConfig is the top-level wfedit configuration.
type fileConfig struct {
	URL  string `yaml:"url"`
	Host string `yaml:"host"`

	Browser  browserConfig  `yaml:"browser"`
	Registry registryConfig `yaml:"registry"`

	// MCP enables the tool server: "" (off) or "stdio".
	MCP string `yaml:"mcp"`
}

// browserConfig controls Chrome lifecycle.
type browserConfig struct {
	Remote      string `yaml:"remote"`
	Stealth     string `yaml:"stealth"` // plain | headless | headful
	XvfbDisplay string `yaml:"xvfb_display"`
}

// registryConfig selects where profiles live: a local SQLite database,
// or a remote registry reached over HTTP.
type registryConfig struct {
	DBPath   string `yaml:"db_path"`
	AuthHash string `yaml:"auth_hash"`
	Listen   string `yaml:"listen"`

	Endpoint string `yaml:"endpoint"`
	Token    string `yaml:"token"`
}

// loadConfigFile reads a YAML configuration file.
func loadConfigFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *fileConfig) applyDefaults() {
	if c.Browser.Stealth == "" {
		c.Browser.Stealth = "headful"
	}
	if c.Browser.XvfbDisplay == "" {
		c.Browser.XvfbDisplay = ":99"
	}
	if c.Registry.Endpoint == "" && c.Registry.DBPath == "" {
		c.Registry.DBPath = "profiles.db"
	}
}

func parseStealth(s string) (browser.StealthLevel, error) {
	switch s {
	case "plain":
		return browser.LevelPlain, nil
	case "headless":
		return browser.LevelHeadless, nil
	case "headful", "":
		return browser.LevelHeadful, nil
	}
	return 0, fmt.Errorf("unknown stealth level %q", s)
}

func (c *registryConfig) profileConfig() *profile.Config {
	return &profile.Config{
		DBPath:   c.DBPath,
		AuthHash: c.AuthHash,
	}
}

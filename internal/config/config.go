// Package config loads conversion settings from an optional TOML or YAML
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// ErrUnsupportedFormat is returned for config files that are neither TOML nor YAML.
var ErrUnsupportedFormat = errors.New("unsupported config file format")

// Config holds every setting of a conversion run.
type Config struct {
	Title         string    `toml:"title" yaml:"title"`
	Author        string    `toml:"author" yaml:"author"`
	Cover         string    `toml:"cover" yaml:"cover"`
	Output        string    `toml:"output" yaml:"output"`
	CoverPage     bool      `toml:"cover_page" yaml:"cover_page"`
	MissingImages string    `toml:"missing_images" yaml:"missing_images"`
	WorkDir       string    `toml:"work_dir" yaml:"work_dir"`
	KeepImages    bool      `toml:"keep_images" yaml:"keep_images"`
	Normalize     bool      `toml:"normalize" yaml:"normalize"`
	Proxy         string    `toml:"proxy" yaml:"proxy"`
	Log           LogConfig `toml:"log" yaml:"log"`
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// Default returns the built-in settings. An empty Cover means a generated cover.
func Default() Config {
	return Config{
		Title:         "HTML",
		Author:        "html_to_epub",
		Output:        "output.epub",
		MissingImages: "abort",
		WorkDir:       ".",
		Normalize:     true,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the file at path on top of Default. The format follows the
// extension: .toml, .yaml or .yml. ${VAR} and ${VAR:-default} references
// are replaced from the environment before decoding.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	content, missing := substituteEnvVars(string(data))

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(content, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal([]byte(content), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	cfgErr := &Error{Path: path, Missing: missing, Errors: cfg.Validate()}
	if cfgErr.HasErrors() {
		return nil, cfgErr
	}
	return &cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// substituteEnvVars expands ${VAR} and ${VAR:-default}. References to unset
// variables without a default are left unchanged and reported.
func substituteEnvVars(content string) (string, []string) {
	var missing []string
	out := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		m := envVarPattern.FindStringSubmatch(match)
		name, hasDefault, def := m[1], m[2] != "", m[3]
		if value, ok := os.LookupEnv(name); ok && (value != "" || !hasDefault) {
			return value
		}
		if hasDefault {
			return def
		}
		missing = append(missing, name)
		return match
	})
	return out, missing
}

// ProxyURL returns the proxy to use: the configured one, else the
// http_proxy environment variable, else nil.
func (c *Config) ProxyURL() (*url.URL, error) {
	if c.Proxy != "" {
		return ParseProxy(c.Proxy)
	}
	return ProxyFromEnv()
}

// ProxyFromEnv reads http_proxy, falling back to HTTP_PROXY.
func ProxyFromEnv() (*url.URL, error) {
	for _, key := range []string{"http_proxy", "HTTP_PROXY"} {
		if v := os.Getenv(key); v != "" {
			return ParseProxy(v)
		}
	}
	return nil, nil
}

// ParseProxy parses a proxy address. A bare host:port is taken as http.
func ParseProxy(s string) (*url.URL, error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: proxy %q: %v", ErrInvalid, s, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: proxy %q has no host", ErrInvalid, s)
	}
	return u, nil
}

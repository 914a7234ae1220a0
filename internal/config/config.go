// Package config loads kube9 settings from defaults, an optional YAML file
// and KUBE9_* environment variables, in that order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap/zapcore"

	"github.com/alto9/kube9-vscode-sub011/internal/types"
)

// EnvPrefix is stripped from environment variable names before mapping them to keys.
const EnvPrefix = "KUBE9_"

// Config is the full kube9 configuration.
type Config struct {
	Log         LogConfig      `koanf:"log"`
	Kubeconfig  string         `koanf:"kubeconfig"`
	Issues      IssuesConfig   `koanf:"issues"`
	Docs        DocsConfig     `koanf:"docs"`
	Interactive bool           `koanf:"interactive"`
	Throttle    ThrottleConfig `koanf:"throttle"`
	Webhook     WebhookConfig  `koanf:"webhook"`
	Metrics     MetricsConfig  `koanf:"metrics"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, console
	File   string `koanf:"file"`   // diagnostic log file; empty keeps it in memory
}

type IssuesConfig struct {
	URL string `koanf:"url"`
}

type DocsConfig struct {
	URL string `koanf:"url"`
}

// ThrottleConfig enables periodic eviction of throttle entries when both values are > 0.
type ThrottleConfig struct {
	SweepInterval time.Duration `koanf:"sweep_interval"`
	MaxAge        time.Duration `koanf:"max_age"`
}

type WebhookConfig struct {
	URL                string `koanf:"url"`
	TimeoutSeconds     int    `koanf:"timeout_seconds"`
	MinSeverity        string `koanf:"min_severity"`
	AuthToken          string `koanf:"auth_token"`
	InsecureSkipVerify bool   `koanf:"insecure_skip_verify"`
	PerMinute          int    `koanf:"per_minute"`
}

type MetricsConfig struct {
	Addr string `koanf:"addr"` // empty disables the /metrics listener
}

// sections are the top-level keys whose env names carry a nested field,
// e.g. KUBE9_WEBHOOK_MIN_SEVERITY -> webhook.min_severity.
var sections = map[string]bool{
	"log":      true,
	"issues":   true,
	"docs":     true,
	"throttle": true,
	"webhook":  true,
	"metrics":  true,
}

// envKey maps an environment variable name to a config key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	head, rest, ok := strings.Cut(s, "_")
	if ok && sections[head] {
		return head + "." + rest
	}
	return s
}

func defaults(k *koanf.Koanf) {
	k.Set("log.level", "info")
	k.Set("log.format", "json")
	k.Set("issues.url", "https://github.com/alto9/kube9-vscode")
	k.Set("interactive", true)
	k.Set("throttle.sweep_interval", "0s")
	k.Set("throttle.max_age", "0s")
	k.Set("webhook.timeout_seconds", 10)
	k.Set("webhook.min_severity", string(types.SeverityWarning))
	k.Set("webhook.per_minute", 60)
}

// Load reads the configuration. path may be empty to skip the file layer.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	defaults(k)

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level %q: %w", c.Log.Level, err)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log.format %q: must be json or console", c.Log.Format)
	}
	if c.Throttle.SweepInterval < 0 || c.Throttle.MaxAge < 0 {
		return fmt.Errorf("throttle durations must not be negative")
	}
	if c.Webhook.MinSeverity != "" && !types.Severity(strings.ToUpper(c.Webhook.MinSeverity)).Valid() {
		return fmt.Errorf("invalid webhook.min_severity %q", c.Webhook.MinSeverity)
	}
	if c.Webhook.TimeoutSeconds < 0 {
		return fmt.Errorf("webhook.timeout_seconds must not be negative")
	}
	return nil
}

// SweepEnabled reports whether throttle eviction is turned on.
func (c *Config) SweepEnabled() bool {
	return c.Throttle.SweepInterval > 0 && c.Throttle.MaxAge > 0
}

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"wakewatch/internal/logging"
)

// FallbackBackendURL is used whenever the configured backend URL is missing or invalid.
const FallbackBackendURL = "http://localhost:8000"

const (
	defaultIntervalMS     = 30000
	defaultConfirmDelayMS = 2000
	defaultStatusCheckMS  = 5000
	defaultWakeUpMS       = 15000
	defaultHistorySize    = 2880
)

// Config represents configuration data for the availability monitor.
type Config struct {
	BackendURL            string   `yaml:"backend_url"`
	StatusCheckIntervalMS int      `yaml:"status_check_interval_ms"`
	ConfirmDelayMS        int      `yaml:"confirm_delay_ms"`
	Timeouts              Timeouts `yaml:"timeouts"`
	HistorySize           int      `yaml:"history_size"`
	Notify                Notify   `yaml:"notify"`
}

// Timeouts bounds the requests issued against the backend.
type Timeouts struct {
	StatusCheckMS int `yaml:"status_check_ms"`
	WakeUpMS      int `yaml:"wake_up_ms"`
}

// Notify configures where online/offline transitions are published.
type Notify struct {
	AMQPURL    string `yaml:"amqp_url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
}

// DefaultConfig returns sensible defaults in case no configuration file is provided.
func DefaultConfig() Config {
	return Config{
		BackendURL:            FallbackBackendURL,
		StatusCheckIntervalMS: defaultIntervalMS,
		ConfirmDelayMS:        defaultConfirmDelayMS,
		Timeouts: Timeouts{
			StatusCheckMS: defaultStatusCheckMS,
			WakeUpMS:      defaultWakeUpMS,
		},
		HistorySize: defaultHistorySize,
		Notify: Notify{
			Exchange:   "wakewatch",
			RoutingKey: "backend.availability",
		},
	}
}

// Load reads configuration from yaml file and applies environment overrides.
// Missing files fall back to defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		content, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(content, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	applyEnv(&cfg, os.Getenv)
	cfg.normalize()
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) {
	for _, key := range []string{"BACKEND_URL", "NEXT_PUBLIC_API_URL"} {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			cfg.BackendURL = v
			break
		}
	}
	if v := strings.TrimSpace(getenv("WAKEWATCH_AMQP_URL")); v != "" {
		cfg.Notify.AMQPURL = v
	}
}

func (c *Config) normalize() {
	defaults := DefaultConfig()
	c.BackendURL = ResolveBackendURL(c.BackendURL)
	if c.StatusCheckIntervalMS <= 0 {
		c.StatusCheckIntervalMS = defaults.StatusCheckIntervalMS
	}
	if c.ConfirmDelayMS <= 0 {
		c.ConfirmDelayMS = defaults.ConfirmDelayMS
	}
	if c.Timeouts.StatusCheckMS <= 0 {
		c.Timeouts.StatusCheckMS = defaults.Timeouts.StatusCheckMS
	}
	if c.Timeouts.WakeUpMS <= 0 {
		c.Timeouts.WakeUpMS = defaults.Timeouts.WakeUpMS
	}
	if c.HistorySize <= 0 {
		c.HistorySize = defaults.HistorySize
	}
	if c.Notify.Exchange == "" {
		c.Notify.Exchange = defaults.Notify.Exchange
	}
	if c.Notify.RoutingKey == "" {
		c.Notify.RoutingKey = defaults.Notify.RoutingKey
	}
}

// ValidateBackendURL reports whether raw is an absolute http(s) URL with a host.
func ValidateBackendURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ResolveBackendURL returns raw without trailing slashes, or FallbackBackendURL when raw is invalid.
func ResolveBackendURL(raw string) string {
	if !ValidateBackendURL(raw) {
		logging.Warn("invalid backend url configured, using fallback", logging.Fields{
			"configured": raw,
			"fallback":   FallbackBackendURL,
		})
		return FallbackBackendURL
	}
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

// Interval is the spacing between scheduled probe cycles.
func (c Config) Interval() time.Duration {
	return time.Duration(c.StatusCheckIntervalMS) * time.Millisecond
}

// ConfirmDelay is the wait before the follow-up probe after a successful wake.
func (c Config) ConfirmDelay() time.Duration {
	return time.Duration(c.ConfirmDelayMS) * time.Millisecond
}

// StatusCheckTimeout bounds a single health probe.
func (c Config) StatusCheckTimeout() time.Duration {
	return time.Duration(c.Timeouts.StatusCheckMS) * time.Millisecond
}

// WakeUpTimeout bounds the whole wake sequence.
func (c Config) WakeUpTimeout() time.Duration {
	return time.Duration(c.Timeouts.WakeUpMS) * time.Millisecond
}

package config

import (
	"fmt"
	"time"
)

// DefaultFileName is the config file looked up when --config is not given.
const DefaultFileName = "xcoffee.yaml"

// Config represents an xcoffee.yaml configuration file.
// All values are optional and act as defaults for xcoffee flags.
// CLI flags always override config values.
type Config struct {
	Endpoint        string        `yaml:"endpoint"`
	ReconnectDelay  Duration      `yaml:"reconnect_delay"`
	MaxBufferBytes  int           `yaml:"max_buffer_bytes"`
	ReadBufferBytes int           `yaml:"read_buffer_bytes"`
	Policy          string        `yaml:"policy"`
	Preview         bool          `yaml:"preview"`
	Log             LogConfig     `yaml:"log"`
	Adapter         AdapterConfig `yaml:"adapter"`
}

// LogConfig holds logging defaults from the config file.
type LogConfig struct {
	Level string `yaml:"level"`
}

// AdapterConfig holds adapter defaults from the config file.
type AdapterConfig struct {
	Type           string            `yaml:"type"`
	URL            string            `yaml:"url"`
	Channel        string            `yaml:"channel,omitempty"`
	LatestFrameKey string            `yaml:"latest_frame_key,omitempty"`
	LatestFrameTTL Duration          `yaml:"latest_frame_ttl,omitempty"`
	Headers        map[string]string `yaml:"headers,omitempty"`
	Timeout        Duration          `yaml:"timeout,omitempty"`
	Retries        *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML renders the duration in time.Duration string form.
func (d Duration) MarshalYAML() (any, error) {
	if d.Duration == 0 {
		return "", nil
	}
	return d.String(), nil
}

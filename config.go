// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mirror

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the tunables of a mirror and its delivery queue.
type Config struct {
	// QueueCapacity bounds the number of events buffered between the
	// transport goroutine and the consumer.
	QueueCapacity int `yaml:"queue_capacity" json:"queue_capacity"`

	// PumpLimit caps the events applied per pump; 0 drains everything
	// available.
	PumpLimit int `yaml:"pump_limit" json:"pump_limit"`

	// PumpInterval is the tick at which a live consumer pumps.
	PumpInterval time.Duration `yaml:"pump_interval" json:"pump_interval"`

	// MetricsNamespace prefixes every metric name.
	MetricsNamespace string `yaml:"metrics_namespace" json:"metrics_namespace"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		QueueCapacity:    1024,
		PumpLimit:        0,
		PumpInterval:     20 * time.Millisecond,
		MetricsNamespace: "mirror",
	}
}

// LoadConfig builds a Config from the defaults, then the YAML or JSON file
// at path (skipped when path is empty or the file does not exist), then the
// MIRROR_* environment variables, and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if err := loadConfigFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}
	if err := loadConfigFromEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	// YAML is a superset of JSON
	return yaml.Unmarshal(data, cfg)
}

func loadConfigFromEnv(cfg *Config) error {
	if v := os.Getenv("MIRROR_QUEUE_CAPACITY"); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: MIRROR_QUEUE_CAPACITY=%q: %v", ErrInvalidConfig, v, err)
		}
		cfg.QueueCapacity = i
	}
	if v := os.Getenv("MIRROR_PUMP_LIMIT"); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: MIRROR_PUMP_LIMIT=%q: %v", ErrInvalidConfig, v, err)
		}
		cfg.PumpLimit = i
	}
	if v := os.Getenv("MIRROR_PUMP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: MIRROR_PUMP_INTERVAL=%q: %v", ErrInvalidConfig, v, err)
		}
		cfg.PumpInterval = d
	}
	if v := os.Getenv("MIRROR_METRICS_NAMESPACE"); v != "" {
		cfg.MetricsNamespace = v
	}
	return nil
}

var metricName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.QueueCapacity < 2 {
		return fmt.Errorf("%w: queue_capacity must be >= 2, got %d", ErrInvalidConfig, c.QueueCapacity)
	}
	if c.PumpLimit < 0 {
		return fmt.Errorf("%w: pump_limit must be >= 0, got %d", ErrInvalidConfig, c.PumpLimit)
	}
	if c.PumpInterval <= 0 {
		return fmt.Errorf("%w: pump_interval must be positive, got %s", ErrInvalidConfig, c.PumpInterval)
	}
	if c.MetricsNamespace != "" && !metricName.MatchString(c.MetricsNamespace) {
		return fmt.Errorf("%w: metrics_namespace %q is not a valid metric name", ErrInvalidConfig, c.MetricsNamespace)
	}
	return nil
}

// Package config loads the optional YAML file holding run timeouts and
// scheduled triggers.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	DefaultActionTimeout   = 30 * time.Second
	DefaultWorkflowTimeout = 2 * time.Minute
)

var ErrInvalidConfig = errors.New("invalid config")

// Config is the structure of the autoflow.yaml file.
type Config struct {
	Timeouts  Timeouts   `yaml:"timeouts"`
	Schedules []Schedule `yaml:"schedules" validate:"dive"`
}

type Timeouts struct {
	Action   time.Duration `yaml:"action"   validate:"gte=0"`
	Workflow time.Duration `yaml:"workflow" validate:"gte=0"`
}

// Schedule fires Trigger with Payload every time Cron matches.
type Schedule struct {
	Name    string         `yaml:"name"    validate:"required"`
	Cron    string         `yaml:"cron"    validate:"required"`
	Trigger string         `yaml:"trigger" validate:"required"`
	Payload map[string]any `yaml:"payload"`
	Enabled *bool          `yaml:"enabled"`
}

// Active reports whether the schedule should be registered. Schedules are
// enabled unless explicitly turned off.
func (s Schedule) Active() bool {
	return s.Enabled == nil || *s.Enabled
}

// Default returns a config with default timeouts and no schedules.
func Default() *Config {
	return &Config{
		Timeouts: Timeouts{
			Action:   DefaultActionTimeout,
			Workflow: DefaultWorkflowTimeout,
		},
		Schedules: []Schedule{},
	}
}

// Load reads the config file at path. An empty path yields Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes and validates a YAML document, filling in defaults.
func Parse(data []byte) (*Config, error) {
	var config Config

	err := yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if config.Timeouts.Action == 0 {
		config.Timeouts.Action = DefaultActionTimeout
	}

	if config.Timeouts.Workflow == 0 {
		config.Timeouts.Workflow = DefaultWorkflowTimeout
	}

	if config.Schedules == nil {
		config.Schedules = []Schedule{}
	}

	err = config.Validate()
	if err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())

	err := validate.Struct(c)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	names := make(map[string]bool, len(c.Schedules))

	for i, schedule := range c.Schedules {
		if names[schedule.Name] {
			return fmt.Errorf("%w: schedules[%d]: duplicate name %q", ErrInvalidConfig, i, schedule.Name)
		}

		names[schedule.Name] = true

		_, err := cron.ParseStandard(schedule.Cron)
		if err != nil {
			return fmt.Errorf("%w: schedules[%d]: invalid cron expression %q: %w", ErrInvalidConfig, i, schedule.Cron, err)
		}
	}

	return nil
}

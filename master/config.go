// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package master

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v2"

	"github.com/aqea/go-extractor/coordinate"
)

// Config is the master daemon's YAML configuration.
type Config struct {
	// Listen is the HTTP bind address.
	Listen string `yaml:"listen"`

	// Backend selects the storage backend as "impl:address".
	Backend string `yaml:"backend"`

	// LogLevel is a logrus level name.
	LogLevel string `yaml:"log_level"`

	// Plans describes the extractions this master coordinates.
	Plans []coordinate.LanguagePlan `yaml:"plans"`
}

// DefaultListen is the bind address used when the config does not
// name one.
const DefaultListen = ":8080"

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(raw)
}

// ParseConfig parses and validates YAML config text.
func ParseConfig(raw []byte) (*Config, error) {
	config := &Config{}
	if err := yaml.Unmarshal(raw, config); err != nil {
		return nil, err
	}
	if config.Listen == "" {
		config.Listen = DefaultListen
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks every plan in the config.
func (c *Config) Validate() error {
	if len(c.Plans) == 0 {
		return fmt.Errorf("config has no language plans")
	}
	for i := range c.Plans {
		if err := c.Plans[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

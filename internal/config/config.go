package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	JWT      JWTConfig      `yaml:"jwt"`
	Redis    RedisConfig    `yaml:"redis"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// Status event publishing is skipped when disabled.
	Enabled bool `yaml:"enabled"`
}

func LoadConfig() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/lesson.yaml"
	}

	// Ensure absolute path
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	// Read config file
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Service.Payment.WindowMinutes == 0 {
		c.Service.Payment.WindowMinutes = 5
	}
	if c.Service.Payment.PollMaxAttempts == 0 {
		c.Service.Payment.PollMaxAttempts = 20
	}
	if c.Service.Payment.PollIntervalMs == 0 {
		c.Service.Payment.PollIntervalMs = 3000
	}
	if c.Service.Payment.SweepSpec == "" {
		// Sweep expired unpaid enrollments every minute.
		c.Service.Payment.SweepSpec = "* * * * *"
	}
	if c.Service.Payment.VerifyRetries == 0 {
		c.Service.Payment.VerifyRetries = 3
	}
	if c.Service.Payment.LockerTotalPerGender == 0 {
		c.Service.Payment.LockerTotalPerGender = 40
	}
}

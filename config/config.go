// Package config loads the service configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config is the full server configuration. Durations are expressed in
// integer seconds in the file.
type Config struct {
	Http struct {
		Port                int      `yaml:"port"`
		ReadTimeoutSeconds  int      `yaml:"read_timeout_seconds"`
		WriteTimeoutSeconds int      `yaml:"write_timeout_seconds"`
		MaxRequestBytes     int64    `yaml:"max_request_bytes"`
		AllowedOrigins      []string `yaml:"allowed_origins"`
	} `yaml:"http"`
	Model struct {
		Path      string `yaml:"path"`
		Watch     bool   `yaml:"watch"`
		CacheSize int    `yaml:"cache_size"`
		RemoteKey string `yaml:"remote_key"`
	} `yaml:"model"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`
	Artifact struct {
		Endpoint  string `yaml:"endpoint"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		Region    string `yaml:"region"`
		UseSSL    bool   `yaml:"use_ssl"`
		Bucket    string `yaml:"bucket"`
	} `yaml:"artifact"`
	Events struct {
		Broker string `yaml:"broker"`
		Topic  string `yaml:"topic"`
	} `yaml:"events"`
}

// Default returns the configuration used when a key is absent from
// the file.
func Default() *Config {
	c := &Config{}
	c.Http.Port = 8080
	c.Http.ReadTimeoutSeconds = 15
	c.Http.WriteTimeoutSeconds = 30
	c.Http.MaxRequestBytes = 1 << 20
	c.Http.AllowedOrigins = []string{"*"}
	c.Model.Path = "models/model.json"
	c.Model.CacheSize = 1024
	c.Database.Path = "./freight.db"
	c.Log.Level = "info"
	c.Log.MaxSizeMB = 100
	c.Log.MaxBackups = 3
	c.Log.MaxAgeDays = 28
	c.Events.Topic = "shipment.quotes"
	return c
}

// Load reads the YAML file at path over the defaults.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	config := Default()
	if err := yaml.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	if c.Http.Port < 1 || c.Http.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.Http.Port)
	}
	if c.Http.ReadTimeoutSeconds <= 0 || c.Http.WriteTimeoutSeconds <= 0 {
		return fmt.Errorf("http timeouts must be positive")
	}
	if c.Http.MaxRequestBytes <= 0 {
		return fmt.Errorf("http.max_request_bytes must be positive")
	}
	if c.Model.Path == "" {
		return fmt.Errorf("model.path is required")
	}
	if c.Model.CacheSize <= 0 {
		return fmt.Errorf("model.cache_size must be positive")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	return nil
}

func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Http.ReadTimeoutSeconds) * time.Second
}

func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Http.WriteTimeoutSeconds) * time.Second
}

// ArtifactEnabled reports whether an object store is configured.
func (c *Config) ArtifactEnabled() bool {
	return c.Artifact.Endpoint != ""
}

// EventsEnabled reports whether a Kafka broker is configured.
func (c *Config) EventsEnabled() bool {
	return c.Events.Broker != ""
}

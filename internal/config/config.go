package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           int      `yaml:"port"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"server"`

	Upstream struct {
		BaseURL        string `yaml:"baseURL"`
		TimeoutSeconds int    `yaml:"timeoutSeconds"`
	} `yaml:"upstream"`

	Preferences struct {
		Dir string `yaml:"dir"`
	} `yaml:"preferences"`

	// History is optional; leave driver empty to disable the audit trail.
	History struct {
		Driver   string `yaml:"driver"` // mysql | postgres | ""
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslmode"`
	} `yaml:"history"`

	// Minio is optional; leave endpoint empty to disable snapshot archiving.
	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	// OpenAI is optional; leave apiKey empty to disable briefings.
	OpenAI struct {
		APIKey string `yaml:"apiKey"`
		Model  string `yaml:"model"`
	} `yaml:"openai"`

	// Auth maps operator -> API key. Empty disables auth (local dev).
	Auth struct {
		Keys map[string]string `yaml:"keys"`
	} `yaml:"auth"`
}

// Load reads the config.yaml file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.Upstream.BaseURL == "" {
		return nil, fmt.Errorf("upstream.baseURL is required")
	}
	return &cfg, nil
}

// UpstreamTimeout returns the transport deadline for analysis calls.
func (c *Config) UpstreamTimeout() time.Duration {
	if c.Upstream.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.Upstream.TimeoutSeconds) * time.Second
}

// MySQLDSN builds the history DSN for the mysql driver
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.History.User,
		c.History.Password,
		c.History.Host,
		c.History.Port,
		c.History.Name,
	)
}

// PostgresDSN builds the history DSN for lib/pq
func (c *Config) PostgresDSN() string {
	sslmode := c.History.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.History.Host,
		c.History.Port,
		c.History.User,
		c.History.Password,
		c.History.Name,
		sslmode,
	)
}

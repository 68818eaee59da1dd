package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	DefaultHTTPAddr  = ":8080"
	DefaultBackend   = "redis"
	DefaultRedisHost = "localhost"
	DefaultRedisPort = 6379
)

type Config struct {
	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"`
	Backend  string `yaml:"backend"`
	Redis    Redis  `yaml:"redis"`
}

type Redis struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	PingOnStart bool   `yaml:"ping_on_start"`
	SSL         SSL    `yaml:"ssl"`
}

type SSL struct {
	Enabled            bool   `yaml:"enabled"`
	TrustStore         string `yaml:"trust_store"`
	TrustStorePassword string `yaml:"trust_store_password"`
	TrustStoreType     string `yaml:"trust_store_type"`
	ServerName         string `yaml:"server_name"`
}

// LoadConfig loads configuration from a YAML file if path is provided,
// otherwise it falls back to environment variables. Environment variables
// always override values read from the file.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) setDefaults() {
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = DefaultHTTPAddr
	}
	if cfg.Backend == "" {
		cfg.Backend = DefaultBackend
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = DefaultRedisHost
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = DefaultRedisPort
	}
}

// Validate checks the configuration is usable.
func (cfg *Config) Validate() error {
	switch cfg.Backend {
	case "redis", "memory":
	default:
		return fmt.Errorf("invalid backend %q: must be redis or memory", cfg.Backend)
	}
	if cfg.Redis.Port < 1 || cfg.Redis.Port > 65535 {
		return fmt.Errorf("invalid redis port: %d", cfg.Redis.Port)
	}
	if cfg.Redis.SSL.Enabled && cfg.Redis.SSL.TrustStore == "" {
		return fmt.Errorf("REDIS_SSL_TRUST_STORE is required when ssl is enabled")
	}
	return nil
}

// applyEnvOverrides allows environment variables to override YAML config values
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("GRPC_ADDR"); v != "" {
		cfg.GRPCAddr = v
	}
	if v := os.Getenv("STORE_BACKEND"); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		cfg.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid REDIS_PORT value: %w", err)
		}
		cfg.Redis.Port = port
	}
	if v := os.Getenv("REDIS_PING_ON_START"); v != "" {
		ping, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid REDIS_PING_ON_START value: %w", err)
		}
		cfg.Redis.PingOnStart = ping
	}
	if v := os.Getenv("REDIS_SSL_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid REDIS_SSL_ENABLED value: %w", err)
		}
		cfg.Redis.SSL.Enabled = enabled
	}
	if v := os.Getenv("REDIS_SSL_TRUST_STORE"); v != "" {
		cfg.Redis.SSL.TrustStore = v
	}
	if v := os.Getenv("REDIS_SSL_TRUST_STORE_PASSWORD"); v != "" {
		cfg.Redis.SSL.TrustStorePassword = v
	}
	if v := os.Getenv("REDIS_SSL_TRUST_STORE_TYPE"); v != "" {
		cfg.Redis.SSL.TrustStoreType = v
	}
	if v := os.Getenv("REDIS_SSL_SERVER_NAME"); v != "" {
		cfg.Redis.SSL.ServerName = v
	}
	return nil
}

package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Engine   EngineConfig   `yaml:"engine"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the configured host, defaulting to localhost.
func (s ServerConfig) GetHost() string {
	if s.Host == "" {
		return "localhost"
	}
	return s.Host
}

// DatabaseConfig holds the connection settings for the interaction
// history database. The engine only ever reads from it.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig holds the durable profile cache settings. Redis is
// optional: with no address configured the engine runs memory-only.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// EngineConfig holds tunables for the behavior analysis engine
type EngineConfig struct {
	Timezone             string         `yaml:"timezone"`
	AnalysisHistoryLimit int            `yaml:"analysis_history_limit"`
	InsightsHistoryLimit int            `yaml:"insights_history_limit"`
	FrequencyCaps        map[string]int `yaml:"frequency_caps"` // per-type daily caps, overrides built-in defaults
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Engine.Timezone == "" {
		cfg.Engine.Timezone = "UTC"
	}
	if cfg.Engine.AnalysisHistoryLimit == 0 {
		cfg.Engine.AnalysisHistoryLimit = 500
	}
	if cfg.Engine.InsightsHistoryLimit == 0 {
		cfg.Engine.InsightsHistoryLimit = 200
	}

	return &cfg, nil
}

// LoadFromEnv loads config from file and applies environment overrides
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables if present
	if host := os.Getenv("SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if pw := os.Getenv("REDIS_PASSWORD"); pw != "" {
		cfg.Redis.Password = pw
	}
	if tz := os.Getenv("ENGINE_TIMEZONE"); tz != "" {
		cfg.Engine.Timezone = tz
	}

	return cfg, nil
}

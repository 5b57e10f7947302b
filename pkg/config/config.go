package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"workpulse/pkg/constants"
)

var GlobalConfig *Config

// Config global configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	MySQL   MySQLConfig   `yaml:"mysql"`
	Redis   RedisConfig   `yaml:"redis"`
	Auth    AuthConfig    `yaml:"auth"`
	CORS    CORSConfig    `yaml:"cors"`
	Workers WorkersConfig `yaml:"workers"`
	Logger  LoggerConfig  `yaml:"logger"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release
}

// MySQLConfig MySQL configuration
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// RedisConfig Redis configuration
type RedisConfig struct {
	Addr     string `yaml:"addr"` // optional; empty addr runs background jobs without leader election
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AuthConfig access gate configuration
type AuthConfig struct {
	JWTSecret     string   `yaml:"jwt_secret"`     // HMAC secret for bearer token verification
	AllowedEmails []string `yaml:"allowed_emails"` // optional; empty list admits any verified identity
}

// CORSConfig cross-origin configuration
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WorkersConfig worker fleet configuration
type WorkersConfig struct {
	Names               []string `yaml:"names"`                 // fixed allow-list of worker names
	LogIntervalMs       int      `yaml:"log_interval_ms"`       // log tick interval (milliseconds)
	HeartbeatIntervalMs int      `yaml:"heartbeat_interval_ms"` // heartbeat interval (milliseconds)
}

// LoggerConfig logger configuration
type LoggerConfig struct {
	Level  string           `yaml:"level"`  // debug, info, warn, error
	Output string           `yaml:"output"` // console, file, both
	File   LoggerFileConfig `yaml:"file"`
}

// LoggerFileConfig logger file configuration
type LoggerFileConfig struct {
	Path string `yaml:"path"`
}

// DefaultWorkersConfig returns the fallback values for the worker fleet.
func DefaultWorkersConfig() WorkersConfig {
	return WorkersConfig{
		LogIntervalMs:       constants.DefaultLogIntervalMs,
		HeartbeatIntervalMs: constants.DefaultHeartbeatIntervalMs,
	}
}

// Init initializes configuration
func Init() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return err
	}

	validateAndApplyDefaults(&cfg)

	GlobalConfig = &cfg
	return nil
}

// validateAndApplyDefaults replaces missing or invalid values with safe fallbacks
// so a sparse configuration file still yields a runnable process.
func validateAndApplyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}

	workerDefaults := DefaultWorkersConfig()
	if cfg.Workers.LogIntervalMs <= 0 {
		cfg.Workers.LogIntervalMs = workerDefaults.LogIntervalMs
	}
	if cfg.Workers.HeartbeatIntervalMs <= 0 {
		cfg.Workers.HeartbeatIntervalMs = workerDefaults.HeartbeatIntervalMs
	}

	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Logger.Output == "" {
		cfg.Logger.Output = "console"
	}
}

// Package config loads the service configuration from YAML with environment overrides.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration of the market-data store.
type Config struct {
	Server   Server   `yaml:"server"`
	Database Database `yaml:"database"`
	Redis    Redis    `yaml:"redis"`
	Auth     Auth     `yaml:"auth"`
	Logging  Logging  `yaml:"logging"`
}

// Server holds the HTTP listener configuration.
type Server struct {
	Addr string `yaml:"addr"`
}

// Database selects the gorm driver and its connection parameters.
type Database struct {
	Driver         string        `yaml:"driver"` // mysql | postgres | sqlite
	User           string        `yaml:"user"`
	Password       string        `yaml:"password"`
	Name           string        `yaml:"name"`
	Host           string        `yaml:"host"`
	Port           string        `yaml:"port"`
	InstanceName   string        `yaml:"instance_connection_name"`
	SQLitePath     string        `yaml:"sqlite_path"`
	RunMigrations  bool          `yaml:"run_migrations"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// Redis configures the optional range cache. An empty Host disables it.
type Redis struct {
	Host      string        `yaml:"host"`
	Port      string        `yaml:"port"`
	Password  string        `yaml:"password"`
	Namespace string        `yaml:"namespace"`
	TTL       time.Duration `yaml:"ttl"`
}

// Auth holds the HMAC secret used to verify bearer tokens.
type Auth struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: Server{Addr: ":8080"},
		Database: Database{
			Driver:         "sqlite",
			SQLitePath:     "ashare.db",
			RunMigrations:  true,
			ConnectTimeout: 60 * time.Second,
		},
		Redis:   Redis{Port: "6379", Namespace: "bars"},
		Logging: Logging{Level: "info", Format: "json"},
	}
}

// Load reads the YAML file at path over the defaults and then applies environment
// overrides. A missing file is not an error; an empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.Server.Addr = v
	}

	if v := os.Getenv("DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		cfg.Database.Port = v
	}
	if v := os.Getenv("INSTANCE_CONNECTION_NAME"); v != "" {
		cfg.Database.InstanceName = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("RUN_MIGRATIONS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Database.RunMigrations = b
		}
	}

	if v := os.Getenv("REDIS_HOST"); v != "" {
		cfg.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		cfg.Redis.Port = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}

	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Package config reads the messenger configuration from a JSON file and lets
// MESSENGER_* environment variables (or a .env file) override it.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	ModeConsole = "console"
	ModeServer  = "server"

	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendMySQL  = "mysql"
	BackendRemote = "remote"
)

type Config struct {
	Mode    string `env:"MESSENGER_MODE" validate:"oneof=console server"`
	Backend string `env:"MESSENGER_BACKEND" validate:"oneof=json sqlite mysql remote"`

	JsonPath   string `env:"MESSENGER_JSON_PATH"`
	SqlitePath string `env:"MESSENGER_SQLITE_PATH" validate:"required_if=Backend sqlite"`

	DbUser     string `env:"MESSENGER_DB_USER" validate:"required_if=Backend mysql"`
	DbPassword string `env:"MESSENGER_DB_PASSWORD"`
	DbAddress  string `env:"MESSENGER_DB_ADDRESS" validate:"required_if=Backend mysql"`
	DbPort     string `env:"MESSENGER_DB_PORT" validate:"required_if=Backend mysql"`
	DbDatabase string `env:"MESSENGER_DB_DATABASE" validate:"required_if=Backend mysql"`

	RemoteURL            string `env:"MESSENGER_REMOTE_URL" validate:"required_if=Backend remote"`
	RemoteTimeoutSeconds int    `env:"MESSENGER_REMOTE_TIMEOUT_SECONDS" validate:"min=1"`
	CacheTTLSeconds      int    `env:"MESSENGER_CACHE_TTL_SECONDS" validate:"min=0"`

	Address           string `env:"MESSENGER_ADDRESS"`
	Port              string `env:"MESSENGER_PORT" validate:"required_if=Mode server"`
	TlsCert           string `env:"MESSENGER_TLS_CERT"`
	TlsKey            string `env:"MESSENGER_TLS_KEY"`
	Cors              bool   `env:"MESSENGER_CORS"`
	PrintHttpRequests bool   `env:"MESSENGER_PRINT_HTTP_REQUESTS"`

	LogToFile bool   `env:"MESSENGER_LOG_TO_FILE"`
	LogLevel  string `env:"MESSENGER_LOG_LEVEL" validate:"oneof=debug info warn error"`

	// empty RedisAddress means self contained, events and cache stay in process
	RedisAddress  string `env:"MESSENGER_REDIS_ADDRESS"`
	RedisPassword string `env:"MESSENGER_REDIS_PASSWORD"`
	RedisDB       int    `env:"MESSENGER_REDIS_DB" validate:"min=0"`

	SnowflakeWorkerID int64 `env:"MESSENGER_SNOWFLAKE_WORKER_ID" validate:"min=0,max=1023"`
}

func Default() Config {
	return Config{
		Mode:                 ModeConsole,
		Backend:              BackendJSON,
		JsonPath:             "server.json",
		SqlitePath:           "messenger.db",
		RemoteTimeoutSeconds: 10,
		CacheTTLSeconds:      30,
		Address:              "localhost",
		Port:                 "3000",
		LogLevel:             "info",
	}
}

// Load applies, in order: defaults, the JSON file at path (skipped when it
// doesn't exist), a .env file in the working directory, the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		bytes, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		if err == nil {
			if err := json.Unmarshal(bytes, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	// a missing .env file is fine
	_ = godotenv.Load()

	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	return validator.New(validator.WithRequiredStructEnabled()).Struct(c)
}

func (c *Config) IsHttps() bool {
	return c.TlsCert != "" && c.TlsKey != ""
}

func (c *Config) SelfContained() bool {
	return c.RedisAddress == ""
}

func (c *Config) RemoteTimeout() time.Duration {
	return time.Duration(c.RemoteTimeoutSeconds) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func (c *Config) FullAddress() string {
	protocol := "http"
	if c.IsHttps() {
		protocol = "https"
	}
	return fmt.Sprintf("%s://%s:%s", protocol, c.Address, c.Port)
}

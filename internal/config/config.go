// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config contains service configuration parameters.
type Config struct {
	Stage     string   `env:"STAGE" envDefault:"dev"`
	Version   string   `env:"VERSION" envDefault:"unknown"`
	IsOffline bool     `env:"IS_OFFLINE" envDefault:"false"`
	Log       Log      `envPrefix:"LOG_"`
	AWS       AWS      `envPrefix:"AWS_"`
	DynamoDB  DynamoDB `envPrefix:"DYNAMODB_"`
	Store     Store
	HTTP      HTTP `envPrefix:"HTTP_"`

	// CORSOrigin is sent as Access-Control-Allow-Origin.
	CORSOrigin string `env:"CORS_ORIGIN" envDefault:"*"`
}

// Log contains logger parameters.
type Log struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

// AWS contains SDK parameters.
type AWS struct {
	Region string `env:"REGION" envDefault:"us-east-1"`
}

// DynamoDB contains connection parameters for offline runs.
type DynamoDB struct {
	Endpoint string `env:"ENDPOINT" envDefault:"http://localhost:8000"`
}

// Store contains table and driver parameters.
type Store struct {
	Driver           string `env:"STORE_DRIVER" envDefault:"dynamodb"`
	UsersTable       string `env:"USERS_TABLE" envDefault:"users"`
	EmailClaimsTable string `env:"EMAIL_CLAIMS_TABLE" envDefault:"users_email_claims"`
	ListLimit        int32  `env:"LIST_LIMIT" envDefault:"100"`
}

// HTTP contains local server parameters.
type HTTP struct {
	Port           string        `env:"PORT" envDefault:"3000"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
}

// Environment describes where the service runs, as reported by health.
func (c *Config) Environment() string {
	if c.IsOffline {
		return "offline (local)"
	}
	return "AWS Lambda"
}

// DynamoDBEndpoint returns the endpoint override, empty unless offline.
func (c *Config) DynamoDBEndpoint() string {
	if c.IsOffline {
		return c.DynamoDB.Endpoint
	}
	return ""
}

// NewConfig loads configuration from environment variables, reading a .env
// file in the working directory first when one exists.
func NewConfig() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	switch cfg.Store.Driver {
	case "dynamodb", "memory":
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	return &cfg, nil
}

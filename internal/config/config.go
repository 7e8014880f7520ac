package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	pkghttp "github.com/paygate-ir/payment-service/pkg/http"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Mellat   MellatConfig
	Zarinpal ZarinpalConfig
	Secrets  SecretsConfig
	Logger   LoggerConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        int
	Host        string
	MetricsPort int

	// ProcessingURL is where the payer's browser lands after any callback,
	// regardless of the reconciliation outcome.
	ProcessingURL string

	// Rate limit applied to the public callback endpoints.
	CallbackRatePerSecond float64
	CallbackBurst         int
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// MellatConfig holds Behpardakht gateway configuration. Credentials come from
// the secret manager, not from the environment.
type MellatConfig struct {
	Environment    string // "prod" or "test"
	CredentialPath string
	Timeout        int // seconds
}

// ZarinpalConfig holds ZarinPal aggregator configuration
type ZarinpalConfig struct {
	CredentialPath string
	Timeout        int // seconds

	// Fee policy applied when requesting tokens.
	FeeActive     bool
	FeePercent    float64
	FeeUpperLimit int64
}

// SecretsConfig selects and configures the secret manager backend
type SecretsConfig struct {
	// Provider: "local", "aws" or "vault"
	Provider string

	// Local provider
	LocalBasePath string

	// AWS provider
	AWSRegion   string
	AWSProfile  string
	AWSEndpoint string

	// Vault provider
	VaultAddress string
	VaultToken   string
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string // debug, info, warn, error
	Development bool
}

// Both gateway timeouts default to the shared gateway round-trip bound.
const defaultGatewayTimeoutSeconds = int(pkghttp.DefaultGatewayTimeout / time.Second)

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:                  getEnvAsInt("SERVER_PORT", 8080),
			Host:                  getEnv("SERVER_HOST", "0.0.0.0"),
			MetricsPort:           getEnvAsInt("METRICS_PORT", 9090),
			ProcessingURL:         getEnv("PAYMENT_PROCESSING_URL", "/payment/process"),
			CallbackRatePerSecond: getEnvAsFloat("CALLBACK_RATE_PER_SECOND", 10),
			CallbackBurst:         getEnvAsInt("CALLBACK_BURST", 20),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "payment_service"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
			MaxConns: int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns: int32(getEnvAsInt("DB_MIN_CONNS", 5)),
		},
		Mellat: MellatConfig{
			Environment:    getEnv("MELLAT_ENVIRONMENT", "test"),
			CredentialPath: getEnv("MELLAT_CREDENTIAL_PATH", "payment-service/gateways/mellat/credentials"),
			Timeout:        getEnvAsInt("MELLAT_TIMEOUT", defaultGatewayTimeoutSeconds),
		},
		Zarinpal: ZarinpalConfig{
			CredentialPath: getEnv("ZARINPAL_CREDENTIAL_PATH", "payment-service/gateways/zarinpal/credentials"),
			Timeout:        getEnvAsInt("ZARINPAL_TIMEOUT", defaultGatewayTimeoutSeconds),
			FeeActive:      getEnvAsBool("ZARINPAL_FEE_ACTIVE", false),
			FeePercent:     getEnvAsFloat("ZARINPAL_FEE_PERCENT", 0),
			FeeUpperLimit:  int64(getEnvAsInt("ZARINPAL_FEE_UPPER_LIMIT", 0)),
		},
		Secrets: SecretsConfig{
			Provider:      getEnv("SECRETS_PROVIDER", "local"),
			LocalBasePath: getEnv("SECRETS_LOCAL_PATH", "./secrets"),
			AWSRegion:     getEnv("AWS_REGION", "eu-central-1"),
			AWSProfile:    getEnv("AWS_PROFILE", ""),
			AWSEndpoint:   getEnv("AWS_SECRETS_ENDPOINT", ""),
			VaultAddress:  getEnv("VAULT_ADDR", ""),
			VaultToken:    getEnv("VAULT_TOKEN", ""),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
	}

	// Validate required fields
	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	switch cfg.Secrets.Provider {
	case "local", "aws":
	case "vault":
		if cfg.Secrets.VaultAddress == "" {
			return nil, fmt.Errorf("VAULT_ADDR is required for the vault secrets provider")
		}
	default:
		return nil, fmt.Errorf("unknown SECRETS_PROVIDER %q", cfg.Secrets.Provider)
	}

	return cfg, nil
}

// ConnectionString returns PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

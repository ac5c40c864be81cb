package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"mneebet/database"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	StorageBackendPostgres = "postgres"
	StorageBackendMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL    string
	DatabaseName   string
	StorageBackend string // "postgres" or "memory"

	// HTTP configuration
	HTTPAddr    string
	CORSOrigins []string

	// Token configuration
	TokenSymbol     string
	TokenDecimals   int32
	FaucetEnabled   bool
	FaucetMaxAmount decimal.Decimal // base units per faucet call

	// Bet rules
	MinBetAmount        decimal.Decimal // base units
	MinDeadlineBuffer   time.Duration
	MinTermsLength      int
	RequireNeutralJudge bool

	// NATS configuration
	NATSServers string // NATS server addresses (comma-separated), empty disables publishing

	// OpenTelemetry configuration
	OTelEnabled     bool
	OTelEndpoint    string // OTLP gRPC endpoint, empty exports to stdout
	OTelServiceName string

	// Logging
	LogLevel string

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// load loads configuration from environment variables and an optional .env file
func load() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DatabaseName:   os.Getenv("DATABASE_NAME"),
		StorageBackend: getEnvWithDefault("STORAGE_BACKEND", StorageBackendPostgres),

		HTTPAddr:    getEnvWithDefault("HTTP_ADDR", ":8080"),
		CORSOrigins: splitList(getEnvWithDefault("CORS_ORIGINS", "*")),

		TokenSymbol:     getEnvWithDefault("TOKEN_SYMBOL", "MNEE"),
		TokenDecimals:   18,
		FaucetEnabled:   getEnvWithDefault("FAUCET_ENABLED", "true") == "true",
		FaucetMaxAmount: decimal.New(1000, 18),

		MinBetAmount:        decimal.NewFromInt(1),
		MinDeadlineBuffer:   5 * time.Minute,
		MinTermsLength:      10,
		RequireNeutralJudge: os.Getenv("REQUIRE_NEUTRAL_JUDGE") == "true",

		NATSServers: os.Getenv("NATS_SERVERS"),

		OTelEnabled:     os.Getenv("OTEL_ENABLED") == "true",
		OTelEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTelServiceName: getEnvWithDefault("OTEL_SERVICE_NAME", "mneebet"),

		LogLevel:    getEnvWithDefault("LOG_LEVEL", "info"),
		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Override defaults if environment variables are set
	if decimals := os.Getenv("TOKEN_DECIMALS"); decimals != "" {
		parsed, err := strconv.ParseInt(decimals, 10, 32)
		if err != nil || parsed < 0 || parsed > 36 {
			return nil, fmt.Errorf("TOKEN_DECIMALS must be an integer between 0 and 36, got %q", decimals)
		}
		config.TokenDecimals = int32(parsed)
		config.FaucetMaxAmount = decimal.New(1000, config.TokenDecimals)
	}
	if amount := os.Getenv("MIN_BET_AMOUNT"); amount != "" {
		parsed, err := decimal.NewFromString(amount)
		if err != nil || !parsed.IsInteger() || !parsed.IsPositive() {
			return nil, fmt.Errorf("MIN_BET_AMOUNT must be a positive integer in base units, got %q", amount)
		}
		config.MinBetAmount = parsed
	}
	if amount := os.Getenv("FAUCET_MAX_AMOUNT"); amount != "" {
		parsed, err := decimal.NewFromString(amount)
		if err != nil || !parsed.IsInteger() || !parsed.IsPositive() {
			return nil, fmt.Errorf("FAUCET_MAX_AMOUNT must be a positive integer in base units, got %q", amount)
		}
		config.FaucetMaxAmount = parsed
	}
	if buffer := os.Getenv("MIN_DEADLINE_BUFFER"); buffer != "" {
		parsed, err := time.ParseDuration(buffer)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("MIN_DEADLINE_BUFFER must be a non-negative duration, got %q", buffer)
		}
		config.MinDeadlineBuffer = parsed
	}
	if length := os.Getenv("MIN_TERMS_LENGTH"); length != "" {
		parsed, err := strconv.Atoi(length)
		if err != nil || parsed < 1 {
			return nil, fmt.Errorf("MIN_TERMS_LENGTH must be a positive integer, got %q", length)
		}
		config.MinTermsLength = parsed
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	switch config.StorageBackend {
	case StorageBackendPostgres, StorageBackendMemory:
	default:
		return nil, fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", StorageBackendPostgres, StorageBackendMemory, config.StorageBackend)
	}

	if config.Environment != "test" && config.StorageBackend == StorageBackendPostgres {
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		// If DatabaseName is provided, ensure it's not empty
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
	}

	return config, nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		StorageBackend:    StorageBackendMemory,
		HTTPAddr:          ":0",
		CORSOrigins:       []string{"*"},
		TokenSymbol:       "MNEE",
		TokenDecimals:     18,
		FaucetEnabled:     true,
		FaucetMaxAmount:   decimal.New(1000, 18),
		MinBetAmount:      decimal.NewFromInt(1),
		MinDeadlineBuffer: 5 * time.Minute,
		MinTermsLength:    10,
		OTelServiceName:   "mneebet-test",
		LogLevel:          "debug",
		Environment:       "test",
	}
}

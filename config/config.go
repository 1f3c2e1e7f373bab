// Package config provides configuration management for the quizcraft application.
// It handles loading and validation of configuration values from environment
// variables, with support for required variables, default values, and
// collective error reporting: every problem found during loading is reported
// in one aggregated error instead of failing on the first.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Identity provider and record store binding modes.
const (
	// ModeHosted selects the HTTP bindings against the hosted service.
	ModeHosted = "hosted"
	// ModeLocal selects the Postgres-backed identity provider.
	ModeLocal = "local"
	// ModePostgres selects the Postgres-backed record store.
	ModePostgres = "postgres"
)

// Attempt store backends for the signup guard.
const (
	AttemptBackendMemory = "memory"
	AttemptBackendRedis  = "redis"
)

// PoolConfig represents configuration for a single database connection pool.
type PoolConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	MaxSize  int
}

// AuthConfig holds token-related configuration used by the JWT middleware and
// the local identity provider.
type AuthConfig struct {
	JWTSecret            string        // Secret key for signing JWTs
	AccessTokenDuration  time.Duration // Duration for access tokens
	RefreshTokenDuration time.Duration // Duration for refresh tokens
}

// GuardConfig holds the signup guard's rate-limit and validation thresholds.
type GuardConfig struct {
	Window         time.Duration // sliding window for counting attempts
	EmailLimit     int           // max attempts per normalized email inside the window
	IPLimit        int           // max attempts per client IP inside the window
	MinStrength    int           // minimum password strength score accepted
	PruneInterval  time.Duration // how often stale attempt keys are discarded
	AttemptBackend string        // "memory" or "redis"
}

// RedisConfig holds connection settings for the Redis-backed attempt store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// IdentityConfig holds the identity provider binding settings.
type IdentityConfig struct {
	Mode       string        // "hosted" or "local"
	BaseURL    string        // hosted provider base URL
	ServiceKey string        // bearer key for signup/signin calls
	AdminKey   string        // elevated key for the compensating delete
	Timeout    time.Duration // per-request timeout for hosted calls
}

// StoreConfig holds the record store binding settings.
type StoreConfig struct {
	Mode       string // "hosted" or "postgres"
	BaseURL    string // hosted store base URL
	ServiceKey string
	Timeout    time.Duration
}

// IPLookupConfig holds the optional client-IP lookup endpoint. An empty
// endpoint disables the external lookup and the guard falls back to the
// request's remote address.
type IPLookupConfig struct {
	Endpoint string
	Timeout  time.Duration
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port     string // Port for the HTTP server
	LogLevel string // zap log level: debug, info, warn, error
}

// AppConfig is the top-level configuration structure for the application.
type AppConfig struct {
	DB       *PoolConfig
	Auth     *AuthConfig
	Guard    *GuardConfig
	Redis    *RedisConfig
	Identity *IdentityConfig
	Store    *StoreConfig
	IPLookup *IPLookupConfig
	Server   *ServerConfig
}

// getRequiredEnv reads a required environment variable, appending an error to
// the errors slice if the variable is not set.
func getRequiredEnv(key string, errors *[]string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		*errors = append(*errors, fmt.Sprintf("missing required environment variable: %s", key))
		return ""
	}
	return value
}

// getOptionalEnv reads an optional environment variable with a default value.
func getOptionalEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getOptionalEnvInt reads an optional environment variable parsed as an int.
// Uses defaultValue if not set; appends an error if parsing fails.
func getOptionalEnvInt(key string, defaultValue int, errors *[]string) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		*errors = append(*errors, fmt.Sprintf("invalid value for %s: expected integer, got '%s': %v", key, valueStr, err))
		return defaultValue
	}
	return valueInt
}

// getOptionalEnvDuration reads an optional environment variable parsed as a
// time.Duration ("15m", "1h30s"). Uses defaultValue if not set; appends an
// error if parsing fails.
func getOptionalEnvDuration(key string, defaultValue time.Duration, errors *[]string) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueDuration, err := time.ParseDuration(valueStr)
	if err != nil {
		*errors = append(*errors, fmt.Sprintf("invalid value for %s: expected duration string, got '%s': %v", key, valueStr, err))
		return defaultValue
	}
	return valueDuration
}

// validatePoolSize clamps a pool size between 5 and 100, collecting an error
// when the configured value falls outside those bounds.
func validatePoolSize(size int, varName string, errors *[]string) int {
	if size < 5 {
		*errors = append(*errors, fmt.Sprintf("pool size for %s (%d) is less than minimum 5, clamping to 5", varName, size))
		size = 5
	}
	if size > 100 {
		*errors = append(*errors, fmt.Sprintf("pool size for %s (%d) is greater than maximum 100, clamping to 100", varName, size))
		size = 100
	}
	return size
}

// validateChoice checks that value is one of the allowed options, collecting
// an error otherwise.
func validateChoice(value, varName string, allowed []string, errors *[]string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	*errors = append(*errors, fmt.Sprintf("invalid value for %s: got '%s', expected one of %s", varName, value, strings.Join(allowed, ", ")))
}

// LoadConfig creates and returns an AppConfig by reading and validating
// environment variables. It collects all errors encountered during loading
// and returns a single aggregated error if any exist.
func LoadConfig() (*AppConfig, error) {
	var errors []string

	// Binding modes decide which sections below are required.
	identityMode := getOptionalEnv("IDENTITY_MODE", ModeHosted)
	validateChoice(identityMode, "IDENTITY_MODE", []string{ModeHosted, ModeLocal}, &errors)
	storeMode := getOptionalEnv("STORE_MODE", ModeHosted)
	validateChoice(storeMode, "STORE_MODE", []string{ModeHosted, ModePostgres}, &errors)

	needsDB := identityMode == ModeLocal || storeMode == ModePostgres

	// Database configuration, required only when a Postgres-backed binding
	// is selected.
	var dbConfig *PoolConfig
	if needsDB {
		dbUser := getRequiredEnv("DB_USER", &errors)
		dbPassword := getRequiredEnv("DB_PASSWORD", &errors)
		dbName := getRequiredEnv("DB_NAME", &errors)
		dbHost := getOptionalEnv("DB_HOST", "localhost")
		dbPort := getOptionalEnvInt("DB_PORT", 5432, &errors)
		poolSize := validatePoolSize(getOptionalEnvInt("DB_POOL_SIZE", 10, &errors), "DB_POOL_SIZE", &errors)

		dbConfig = &PoolConfig{
			Host:     dbHost,
			Port:     dbPort,
			User:     dbUser,
			Password: dbPassword,
			DBName:   dbName,
			MaxSize:  poolSize,
		}
	}

	// Hosted bindings need a base URL and service key.
	identityConfig := &IdentityConfig{
		Mode:    identityMode,
		Timeout: getOptionalEnvDuration("IDENTITY_TIMEOUT", 10*time.Second, &errors),
	}
	if identityMode == ModeHosted {
		identityConfig.BaseURL = getRequiredEnv("IDENTITY_BASE_URL", &errors)
		identityConfig.ServiceKey = getRequiredEnv("IDENTITY_SERVICE_KEY", &errors)
		identityConfig.AdminKey = getOptionalEnv("IDENTITY_ADMIN_KEY", "")
	}

	storeConfig := &StoreConfig{
		Mode:    storeMode,
		Timeout: getOptionalEnvDuration("STORE_TIMEOUT", 10*time.Second, &errors),
	}
	if storeMode == ModeHosted {
		storeConfig.BaseURL = getRequiredEnv("STORE_BASE_URL", &errors)
		storeConfig.ServiceKey = getRequiredEnv("STORE_SERVICE_KEY", &errors)
	}

	// Auth configuration. The JWT secret is required even in hosted mode
	// because the middleware verifies access tokens locally.
	authConfig := &AuthConfig{
		JWTSecret:            getRequiredEnv("JWT_SECRET", &errors),
		AccessTokenDuration:  getOptionalEnvDuration("JWT_ACCESS_TOKEN_DURATION", 15*time.Minute, &errors),
		RefreshTokenDuration: getOptionalEnvDuration("JWT_REFRESH_TOKEN_DURATION", 168*time.Hour, &errors), // 7 days
	}

	// Signup guard thresholds.
	guardConfig := &GuardConfig{
		Window:         getOptionalEnvDuration("GUARD_WINDOW", 15*time.Minute, &errors),
		EmailLimit:     getOptionalEnvInt("GUARD_EMAIL_LIMIT", 3, &errors),
		IPLimit:        getOptionalEnvInt("GUARD_IP_LIMIT", 6, &errors),
		MinStrength:    getOptionalEnvInt("GUARD_MIN_STRENGTH", 50, &errors),
		PruneInterval:  getOptionalEnvDuration("GUARD_PRUNE_INTERVAL", 5*time.Minute, &errors),
		AttemptBackend: getOptionalEnv("GUARD_ATTEMPT_BACKEND", AttemptBackendMemory),
	}
	validateChoice(guardConfig.AttemptBackend, "GUARD_ATTEMPT_BACKEND", []string{AttemptBackendMemory, AttemptBackendRedis}, &errors)

	var redisConfig *RedisConfig
	if guardConfig.AttemptBackend == AttemptBackendRedis {
		redisConfig = &RedisConfig{
			Addr:     getRequiredEnv("REDIS_ADDR", &errors),
			Password: getOptionalEnv("REDIS_PASSWORD", ""),
			DB:       getOptionalEnvInt("REDIS_DB", 0, &errors),
		}
	}

	ipLookupConfig := &IPLookupConfig{
		Endpoint: getOptionalEnv("IP_LOOKUP_ENDPOINT", ""),
		Timeout:  getOptionalEnvDuration("IP_LOOKUP_TIMEOUT", 3*time.Second, &errors),
	}

	serverConfig := &ServerConfig{
		Port:     getOptionalEnv("PORT", "8080"),
		LogLevel: getOptionalEnv("LOG_LEVEL", "info"),
	}

	if len(errors) > 0 {
		return nil, fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return &AppConfig{
		DB:       dbConfig,
		Auth:     authConfig,
		Guard:    guardConfig,
		Redis:    redisConfig,
		Identity: identityConfig,
		Store:    storeConfig,
		IPLookup: ipLookupConfig,
		Server:   serverConfig,
	}, nil
}

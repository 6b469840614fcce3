package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
)

// RepositoryVersion is the repository version tag for config file references.
const RepositoryVersion = "v0.1.0"

// CurrentVersion is the current version of the config file.
const CurrentVersion = 1

// EnvPrefix marks environment variables that override config values.
// ORA_GEMINI__API_KEY sets gemini.api_key.
const EnvPrefix = "ORA_"

// Config represents the entire application configuration.
type Config struct {
	// Version of the config file.
	Version    int        `koanf:"version"`
	Debug      Debug      `koanf:"debug"`
	PostgreSQL PostgreSQL `koanf:"postgresql"`
	Redis      Redis      `koanf:"redis"`
	Gemini     Gemini     `koanf:"gemini"`
	API        API        `koanf:"api"`
	Comments   Comments   `koanf:"comments"`
	Trending   Trending   `koanf:"trending"`
	Telemetry  Telemetry  `koanf:"telemetry"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// Maximum log sessions to keep.
	MaxLogsToKeep int `koanf:"max_logs_to_keep"`
	// Enable pprof debugging.
	EnablePprof bool `koanf:"enable_pprof"`
	// pprof server port.
	PprofPort int `koanf:"pprof_port"`
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	// Database hostname.
	Host string `koanf:"host"`
	// Database port.
	Port int `koanf:"port"`
	// Database username.
	User string `koanf:"user"`
	// Database password.
	Password string `koanf:"password"`
	// Database name.
	DBName string `koanf:"db_name"`
	// Require TLS for the connection.
	TLS bool `koanf:"tls"`
	// Maximum open connections.
	MaxOpenConns int `koanf:"max_open_conns"`
	// Maximum idle connections.
	MaxIdleConns int `koanf:"max_idle_conns"`
	// Connection lifetime in minutes.
	MaxLifetime int `koanf:"max_lifetime"`
	// Idle timeout in minutes.
	MaxIdleTime int `koanf:"max_idle_time"`
}

// Redis contains Redis connection configuration.
type Redis struct {
	// Redis hostname.
	Host string `koanf:"host"`
	// Redis port.
	Port int `koanf:"port"`
	// Redis username.
	Username string `koanf:"username"`
	// Redis password.
	Password string `koanf:"password"`
}

// Gemini contains language model configuration.
type Gemini struct {
	// API key for authentication.
	APIKey string `koanf:"api_key"`
	// Model name.
	Model string `koanf:"model"`
	// Sampling temperature.
	Temperature float32 `koanf:"temperature"`
	// Maximum tokens per response.
	MaxOutputTokens int32 `koanf:"max_output_tokens"`
	// Maximum concurrent requests.
	MaxConcurrent int64 `koanf:"max_concurrent"`
	// Timeout for a single request in seconds.
	RequestTimeout int `koanf:"request_timeout"`
}

// API contains REST server configuration.
type API struct {
	Server    Server    `koanf:"server"`
	Auth      Auth      `koanf:"auth"`
	RateLimit RateLimit `koanf:"rate_limit"`
}

// Server contains the listen address of the REST server.
type Server struct {
	// Host to bind to.
	Host string `koanf:"host"`
	// Port to listen on.
	Port int `koanf:"port"`
}

// Auth contains bearer token verification settings.
type Auth struct {
	// HMAC secret used to sign access tokens.
	JWTSecret string `koanf:"jwt_secret"`
	// Expected token issuer. Empty accepts any issuer.
	Issuer string `koanf:"issuer"`
}

// RateLimit contains per-client request limits.
type RateLimit struct {
	// Requests allowed per second.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	// Maximum burst size.
	BurstSize int `koanf:"burst_size"`
	// Violations before a client is blocked.
	StrikeLimit int `koanf:"strike_limit"`
	// Block duration in seconds.
	BlockDuration int `koanf:"block_duration"`
}

// Comments contains comment processing configuration.
type Comments struct {
	// Timeout for a background summary refresh in seconds.
	SummaryTimeout int `koanf:"summary_timeout"`
}

// Trending contains trending feed configuration.
type Trending struct {
	// How long a ranking stays cached in seconds.
	CacheTTL int `koanf:"cache_ttl"`
}

// Telemetry contains trace export configuration.
type Telemetry struct {
	// Uptrace project DSN. Empty disables export.
	UptraceDSN string `koanf:"uptrace_dsn"`
	// Deployment environment reported with traces.
	Environment string `koanf:"environment"`
}

// LoadConfig loads the configuration from ora.toml and the environment.
// Returns the config along with the used config directory.
func LoadConfig() (*Config, string, error) {
	k := koanf.New(".")

	// Get user's home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	// List search paths
	configPaths := []string{
		".ora",
		homeDir + "/.ora/config",
		"/etc/ora/config",
		"/app/config",
		"config",
		".",
	}

	usedConfigPath := ""
	for _, path := range configPaths {
		if err := k.Load(file.Provider(path+"/ora.toml"), toml.Parser()); err == nil {
			usedConfigPath = path
			break
		}
	}

	if usedConfigPath == "" {
		return nil, "", fmt.Errorf("%w: ora.toml", ErrConfigFileNotFound)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load environment overrides: %w", err)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := checkConfigVersion(config.Version, CurrentVersion); err != nil {
		return nil, "", err
	}

	return &config, usedConfigPath, nil
}

// envKey maps ORA_API__RATE_LIMIT__BURST_SIZE to api.rate_limit.burst_size.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(current, expected int) error {
	if current == 0 {
		return fmt.Errorf("%w: ora.toml", ErrConfigVersionMissing)
	}

	if current != expected {
		return fmt.Errorf(
			"%w: ora.toml (got: %d, expected: %d)\n"+
				"Please update your config file from: https://github.com/ora-civic/ora/tree/%s/config/ora.toml",
			ErrConfigVersionMismatch,
			current,
			expected,
			RepositoryVersion,
		)
	}

	return nil
}

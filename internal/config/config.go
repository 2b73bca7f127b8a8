// Package config loads service configuration from environment variables
// with sensible defaults. Secrets (Anthropic, Twilio, Stripe) are only
// ever read from the environment, never persisted.
package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the Bottega ordering service.
type Config struct {
	Port      int
	Version   string
	Agent     AgentConfig
	Database  DatabaseConfig
	SMS       SMSConfig
	Payments  PaymentsConfig
	Telemetry TelemetryConfig
}

// AgentConfig controls the conversational agent.
type AgentConfig struct {
	// Model is the Anthropic model id used by the reasoning step.
	Model string
	// MaxTurns bounds how many model calls a single drive of the loop may make.
	MaxTurns int
	// SensitiveTools lists tool names that require human approval before
	// execution. Empty by default; any registered tool name is accepted.
	SensitiveTools []string
}

// DatabaseConfig selects the storage backends.
type DatabaseConfig struct {
	// SQLitePath is the restaurant database (customers, menu, cart, orders).
	SQLitePath string
	// MenuPath is the YAML file used to seed the menu when empty.
	MenuPath string
	// DataDir holds the JSON snapshot of conversation threads when no
	// Postgres URL is configured.
	DataDir string
	// PostgresURL, when set, switches the thread store to Postgres.
	PostgresURL string
}

// SMSConfig configures the Twilio driver. Empty AccountSID disables SMS.
type SMSConfig struct {
	AccountSID      string
	AuthToken       string
	FromNumber      string
	RestaurantPhone string
}

// PaymentsConfig configures the Stripe driver. Empty SecretKey disables
// payment-link generation.
type PaymentsConfig struct {
	SecretKey   string
	RedirectURL string
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:    envInt("PORT", 10000),
		Version: envStr("BOTTEGA_VERSION", "0.2.0"),
		Agent: AgentConfig{
			Model:          envStr("BOTTEGA_MODEL", "claude-3-5-sonnet-latest"),
			MaxTurns:       envInt("BOTTEGA_MAX_TURNS", 10),
			SensitiveTools: envList("BOTTEGA_SENSITIVE_TOOLS"),
		},
		Database: DatabaseConfig{
			SQLitePath:  envStr("BOTTEGA_DB_PATH", "bottega.db"),
			MenuPath:    envStr("BOTTEGA_MENU_PATH", "menu.yaml"),
			DataDir:     envStr("BOTTEGA_DATA_DIR", ""),
			PostgresURL: envStr("DATABASE_URL", ""),
		},
		SMS: SMSConfig{
			AccountSID:      envStr("TWILIO_ACCOUNT_SID", ""),
			AuthToken:       envStr("TWILIO_AUTH_TOKEN", ""),
			FromNumber:      envStr("TWILIO_FROM_NUMBER", ""),
			RestaurantPhone: envStr("RESTAURANT_PHONE_NUMBER", ""),
		},
		Payments: PaymentsConfig{
			SecretKey:   envStr("STRIPE_SECRET_KEY", ""),
			RedirectURL: envStr("BOTTEGA_PAYMENT_REDIRECT_URL", "https://bottega.example.com/order-confirmation"),
		},
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "bottega-ordering"),
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

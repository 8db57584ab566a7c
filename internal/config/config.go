// Package config loads process settings from the environment, following
// the same getEnv-family pattern used throughout this codebase.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Config bundles every setting the composition root needs.
type Config struct {
	// Mode/observability
	Debug bool

	// Telegram
	TelegramToken  string
	TelegramChatID int64

	// Registry / market data
	RegistryPageSize int

	// Replay feed pacing
	ReplayWaitQuantum time.Duration

	// Compliance
	ComplianceBurstAlertThreshold int
	OpposingOrderTimeout          time.Duration
	OpposingOrderOffset           decimal.Decimal

	// Risk
	RiskFlattenTimeout time.Duration

	// Historical store
	HistoricalQuerySize int
}

// Load reads Config from the environment, applying defaults for anything
// unset.
func Load() (*Config, error) {
	cfg := &Config{
		Debug:                         getEnvBool("DEBUG", false),
		TelegramToken:                 os.Getenv("TELEGRAM_BOT_TOKEN"),
		RegistryPageSize:              getEnvInt("REGISTRY_PAGE_SIZE", 1000),
		ReplayWaitQuantum:             getEnvDuration("REPLAY_WAIT_QUANTUM", time.Second),
		ComplianceBurstAlertThreshold: getEnvInt("COMPLIANCE_BURST_ALERT_THRESHOLD", 5),
		OpposingOrderTimeout:          getEnvDuration("OPPOSING_ORDER_TIMEOUT", 5*time.Second),
		OpposingOrderOffset:           getEnvDecimal("OPPOSING_ORDER_OFFSET", decimal.NewFromFloat(0.01)),
		RiskFlattenTimeout:            getEnvDuration("RISK_FLATTEN_TIMEOUT", 30*time.Second),
		HistoricalQuerySize:           getEnvInt("HISTORICAL_QUERY_SIZE", 1000),
	}

	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = id
	}

	return cfg, nil
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}

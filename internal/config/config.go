// Package config loads the runtime knobs for the copier from the process
// environment, with sane defaults when keys are missing.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime knobs for the copier service.
type Config struct {
	Port int

	// Broker API
	FXAPIBaseURL string
	FXAPIToken   string
	MaxRetries   int
	HTTPTimeout  time.Duration

	// Rule knobs (initial values; tunable at runtime via the settings API)
	NearMissPips           float64
	VIPTrailDistance       float64
	TP1ThresholdPercent    float64
	MaxConcurrentPerSymbol int
	MinLot                 float64
	TightenOffset          float64

	// Watchdog
	WatchdogInterval time.Duration

	// Persistence
	DatabaseURL string // optional; file-backed state when empty
	StateFile   string
	TradeLogCSV string
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Port: getEnvInt("PORT", 8080),

		FXAPIBaseURL: getEnv("FXAPI_BASE_URL", "https://fxapi.io"),
		FXAPIToken:   getEnv("FXAPI_TOKEN", ""),
		MaxRetries:   getEnvInt("MAX_RETRIES", 6),
		HTTPTimeout:  getEnvDuration("HTTP_TIMEOUT", 3*time.Second),

		NearMissPips:           getEnvFloat("NEAR_MISS_PIPS", 2),
		VIPTrailDistance:       getEnvFloat("VIP_PROFIT_TRAIL_PIPS", 3),
		TP1ThresholdPercent:    getEnvFloat("TP1_THRESHOLD_PERCENT", 75),
		MaxConcurrentPerSymbol: getEnvInt("MAX_CONCURRENT_PER_SYMBOL", 3),
		MinLot:                 getEnvFloat("MIN_LOT", 0.01),
		TightenOffset:          getEnvFloat("TIGHTEN_OFFSET", 0.5),

		WatchdogInterval: getEnvDuration("WATCHDOG_INTERVAL", 250*time.Millisecond),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		StateFile:   getEnv("STATE_FILE", "fxcopier_state.json"),
		TradeLogCSV: getEnv("LOG_CSV", "fxcopier_trades.csv"),
	}
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getEnvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

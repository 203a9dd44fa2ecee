package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port          int
	NatsURL       string
	NatsToken     string
	DatabaseURL   string
	LogLevel      string
	APIToken      string
	Scenario      string
	Sensitivity   float64
	Debounce      time.Duration
	WindowChunks  int
	ScenarioFile  string
	SlackBotToken string
	SlackChannel  string
}

func Load() Config {
	return Config{
		Port:          envInt("PARLEY_PORT", 8760),
		NatsURL:       envStr("NATS_URL", "nats://hermes:4222"),
		NatsToken:     envStr("NATS_TOKEN", ""),
		DatabaseURL:   envStr("DATABASE_URL", ""),
		LogLevel:      envStr("LOG_LEVEL", "info"),
		APIToken:      envStr("PARLEY_API_TOKEN", ""),
		Scenario:      envStr("PARLEY_SCENARIO", "general"),
		Sensitivity:   envFloat("PARLEY_SENSITIVITY", 1.0),
		Debounce:      time.Duration(envInt("PARLEY_DEBOUNCE_MS", 300)) * time.Millisecond,
		WindowChunks:  envInt("PARLEY_WINDOW_CHUNKS", 3),
		ScenarioFile:  envStr("PARLEY_SCENARIO_FILE", ""),
		SlackBotToken: envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel:  envStr("SLACK_SUMMARY_CHANNEL", ""),
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
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	WorkerCount   int
	ContextWindow int
	BlankLabel    string
	RulesFile     string
	DatabaseURL   string
	LogLevel      string
	ReportFormat  string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	return &Config{
		WorkerCount:   getEnvInt("WORKER_COUNT", 8),
		ContextWindow: getEnvInt("CONTEXT_WINDOW", 20),
		BlankLabel:    getEnv("BLANK_LABEL", "a"),
		RulesFile:     getEnv("RULES_FILE", ""),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		ReportFormat:  getEnv("REPORT_FORMAT", "json"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid integer, using default")
		return fallback
	}
	return n
}

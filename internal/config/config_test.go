package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"WORKER_COUNT", "CONTEXT_WINDOW", "BLANK_LABEL", "RULES_FILE", "DATABASE_URL", "LOG_LEVEL", "REPORT_FORMAT"} {
		t.Setenv(key, "")
	}
	t.Chdir(t.TempDir())

	cfg := Load()
	assert.Equal(t, 8, cfg.WorkerCount)
	assert.Equal(t, 20, cfg.ContextWindow)
	assert.Equal(t, "a", cfg.BlankLabel)
	assert.Empty(t, cfg.RulesFile)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.ReportFormat)
}

func TestLoad_Environment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("WORKER_COUNT", "3")
	t.Setenv("CONTEXT_WINDOW", "12")
	t.Setenv("BLANK_LABEL", "b")
	t.Setenv("REPORT_FORMAT", "tsv")

	cfg := Load()
	assert.Equal(t, 3, cfg.WorkerCount)
	assert.Equal(t, 12, cfg.ContextWindow)
	assert.Equal(t, "b", cfg.BlankLabel)
	assert.Equal(t, "tsv", cfg.ReportFormat)
}

func TestGetEnvInt_Invalid(t *testing.T) {
	t.Setenv("WORKER_COUNT", "many")
	assert.Equal(t, 8, getEnvInt("WORKER_COUNT", 8))
}

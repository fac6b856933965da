/*
Package config loads server configuration from the environment.

PURPOSE:
  Centralizes environment handling: a .env file is loaded when present
  (development convenience), then values are read from the process
  environment with sane defaults. Flags in cmd/server override these.

VARIABLES:
  PORT                      HTTP port (default 8080)
  DB_PATH                   SQLite database path (default fieldservice.db)
  LOG_LEVEL                 logrus level: debug, info, warn, error (default info)
  ATTACHMENT_WINDOW_HOURS   follow-up upload window after report creation
                            (default 24)
*/
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Port             int
	DBPath           string
	LogLevel         logrus.Level
	AttachmentWindow time.Duration
}

// Load reads configuration from .env (if present) and the environment.
func Load() Config {
	// Missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg := Config{
		Port:             envInt("PORT", 8080),
		DBPath:           envString("DB_PATH", "fieldservice.db"),
		LogLevel:         logrus.InfoLevel,
		AttachmentWindow: time.Duration(envInt("ATTACHMENT_WINDOW_HOURS", 24)) * time.Hour,
	}

	if lvl, err := logrus.ParseLevel(envString("LOG_LEVEL", "info")); err == nil {
		cfg.LogLevel = lvl
	}
	return cfg
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

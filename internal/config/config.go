// Package config loads the CLI and server settings from the environment.
// A .env file in the working directory is read first; variables already set
// in the process environment win over it, and command flags win over both.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvDataDir    = "GEONOTES_DATA_DIR"
	EnvAdapter    = "GEONOTES_ADAPTER"
	EnvListenAddr = "GEONOTES_LISTEN_ADDR"
	EnvTimezone   = "GEONOTES_TIMEZONE"
	EnvLogLevel   = "GEONOTES_LOG_LEVEL"
	EnvReadOnly   = "GEONOTES_READ_ONLY"
	EnvMaxUpload  = "GEONOTES_MAX_UPLOAD_BYTES"
)

type Config struct {
	Desk    DeskConfig
	Server  ServerConfig
	Logging LoggingConfig
}

type DeskConfig struct {
	DataDir  string
	Adapter  string
	ReadOnly bool
	Timezone *time.Location
}

type ServerConfig struct {
	ListenAddr     string
	MaxUploadBytes int64
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

type LoggingConfig struct {
	Level slog.Level
}

// Load reads the optional env files (".env" when none are given) and the
// process environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		// A missing .env is the common case.
		_ = godotenv.Load()
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	loc, err := time.LoadLocation(getEnv(EnvTimezone, "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", EnvTimezone, err)
	}

	level, err := ParseLevel(getEnv(EnvLogLevel, "info"))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", EnvLogLevel, err)
	}

	adapter := getEnv(EnvAdapter, "fs")
	if adapter != "fs" && adapter != "memory" {
		return nil, fmt.Errorf("invalid %s: unknown adapter %q", EnvAdapter, adapter)
	}

	return &Config{
		Desk: DeskConfig{
			DataDir:  getEnv(EnvDataDir, "."),
			Adapter:  adapter,
			ReadOnly: getEnvAsBool(EnvReadOnly, false),
			Timezone: loc,
		},
		Server: ServerConfig{
			ListenAddr:     getEnv(EnvListenAddr, "127.0.0.1:9898"),
			MaxUploadBytes: getEnvAsInt64(EnvMaxUpload, 10<<20),
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   15 * time.Second,
		},
		Logging: LoggingConfig{
			Level: level,
		},
	}, nil
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(strings.TrimSpace(s)))); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, err := strconv.ParseInt(getEnv(key, ""), 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

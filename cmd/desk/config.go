package main

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"librarydesk/internal/platform/libraryapi"
)

type config struct {
	addr             string
	apiURL           string
	apiTimeout       time.Duration
	apiRPS           float64
	dashboardRefresh time.Duration
	logLevel         slog.Level
	rateLimitRPS     float64
	rateLimitBurst   int
	enableHSTS       bool
}

func loadEnvFiles() {
	// Do not override environment provided by the runtime (e.g. Docker).
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

func loadConfig() config {
	return config{
		addr:             getEnv("DESK_ADDR", ":8090"),
		apiURL:           getEnv("LIBRARY_API_URL", libraryapi.DefaultBaseURL),
		apiTimeout:       getDuration("API_TIMEOUT", 15*time.Second),
		apiRPS:           getFloat("API_RPS", 0),
		dashboardRefresh: getDuration("DASHBOARD_REFRESH", 30*time.Second),
		logLevel:         parseLevel(getEnv("LOG_LEVEL", "info")),
		rateLimitRPS:     getFloat("RATE_LIMIT_RPS", 20),
		rateLimitBurst:   getInt("RATE_LIMIT_BURST", 40),
		enableHSTS:       getBool("ENABLE_HSTS", false),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d < 0 {
		return def
	}
	return d
}

func getFloat(key string, def float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || f < 0 {
		return def
	}
	return f
}

func getInt(key string, def int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n < 0 {
		return def
	}
	return n
}

func getBool(key string, def bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return b
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	SQLitePath        string
	ReportingTimezone string        // fixed timezone all reporting dates are computed in
	SweepInterval     time.Duration // how often the boundary sweeper checks for a closed date
	SweepWorkers      int           // max concurrent per-pair closes in one sweep
	HistoryDays       int           // recent-history window for reports
	StoreTimeout      time.Duration // per-operation store timeout
	AdminAddr         string        // admin HTTP listen address, empty disables the server
	AdminAPIKey       string        // key guarding the manual sweep endpoint
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults/environment variables")
	}

	return Config{
		SQLitePath:        getenv("SQLITE_PATH", "./data/ghostwatch.db"),
		ReportingTimezone: getenv("REPORTING_TIMEZONE", "Asia/Singapore"),
		SweepInterval:     getenvDuration("SWEEP_INTERVAL", 5*time.Minute),
		SweepWorkers:      getenvInt("SWEEP_WORKERS", 8),
		HistoryDays:       getenvInt("HISTORY_DAYS", 7),
		StoreTimeout:      getenvDuration("STORE_TIMEOUT", 5*time.Second),
		AdminAddr:         getenv("ADMIN_ADDR", ""),
		AdminAPIKey:       getenv("ADMIN_API_KEY", ""),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

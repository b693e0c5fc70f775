package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Config struct {
	Port                string
	DatabaseDSN         string
	CORSOrigin          string
	SchedulerEnabled    bool
	LateFeeInterval     time.Duration
	RecurringInterval   time.Duration
	CollectionAfterDays int
}

// Load reads configuration from the environment. Every value has a local
// development default.
func Load() *Config {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getenv("PG_HOST", "127.0.0.1"),
			getenv("PG_PORT", "5432"),
			getenv("PG_USER", "postgres"),
			getenv("PG_PASSWORD", "postgres"),
			getenv("PG_DB", "property_ledger"),
			getenv("PG_SSLMODE", "disable"),
		)
	}

	return &Config{
		Port:                getenv("SERVER_PORT", "8080"),
		DatabaseDSN:         dsn,
		CORSOrigin:          getenv("CORS_ORIGIN", "http://localhost:3000"),
		SchedulerEnabled:    getenv("SCHEDULER_ENABLED", "true") == "true",
		LateFeeInterval:     getenvDuration("LATE_FEE_INTERVAL", 24*time.Hour),
		RecurringInterval:   getenvDuration("RECURRING_INTERVAL", time.Hour),
		CollectionAfterDays: getenvInt("COLLECTION_AFTER_DAYS", 60),
	}
}

// InitDB opens the Postgres connection.
func (c *Config) InitDB() *gorm.DB {
	db, err := gorm.Open(postgres.Open(c.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}
	return db
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
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

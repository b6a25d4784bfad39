package config

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	Port           string
	StoreDriver    string
	JWTSecret      string
	LogLevel       string
	Timezone       string
	RetentionWeeks int
	PurgeSchedule  string
	DB             DBConfig
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// Store drivers
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Load reads .env when present and then the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, using system environment")
	} else {
		log.Info(".env file loaded")
	}

	return &Config{
		Port:           GetEnv("PORT", "8080"),
		StoreDriver:    GetEnv("STORE_DRIVER", DriverPostgres),
		JWTSecret:      GetEnv("JWT_SECRET", "clockbook-dev-secret"),
		LogLevel:       GetEnv("LOG_LEVEL", "info"),
		Timezone:       GetEnv("TIMEZONE", "Africa/Johannesburg"),
		RetentionWeeks: GetEnvInt("RETENTION_WEEKS", 0),
		PurgeSchedule:  GetEnv("PURGE_SCHEDULE", "5 0 * * 1"),
		DB: DBConfig{
			Host:     GetEnv("DB_HOST", "localhost"),
			Port:     GetEnv("DB_PORT", "5432"),
			User:     GetEnv("DB_USER", "postgres"),
			Password: GetEnv("DB_PASSWORD", ""),
			Name:     GetEnv("DB_NAME", "clockbook"),
			SSLMode:  GetEnv("DB_SSLMODE", "disable"),
		},
	}
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func GetEnvInt(key string, defaultValue int) int {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Warnf("Ignoring %s=%q: not an integer", key, raw)
		return defaultValue
	}
	return v
}

// DSN renders the lib/pq connection string.
func (c DBConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s connect_timeout=30",
		c.Host, c.Port, c.User, c.Name, c.SSLMode)
	if c.Password != "" {
		dsn += " password=" + c.Password
	}
	return dsn
}

// OpenDB connects to PostgreSQL and verifies the connection.
func OpenDB(c DBConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", c.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	log.WithFields(log.Fields{"host": c.Host, "db": c.Name}).Info("Testing database connection...")
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	log.Info("Database connected successfully")
	return db, nil
}

// SetupLogging applies the configured level and a structured formatter.
func SetupLogging(level string) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.Warnf("Unknown LOG_LEVEL %q, using info", level)
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}

// SetupTimezone sets time.Local, falling back to UTC.
func SetupTimezone(name string) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Warnf("Failed to load %s location, falling back to UTC: %v", name, err)
		time.Local = time.UTC
		return
	}
	time.Local = loc
	log.Printf("Application time zone set to: %s", time.Local.String())
}

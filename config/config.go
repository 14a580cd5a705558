// Package config assembles runtime configuration from environment
// variables (via godotenv) and CLI flags (via cobra): env vars seed the
// defaults, flags override them at the command layer.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config is the fully resolved runtime configuration for one invocation.
type Config struct {
	// Database connection.
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Logging.
	LogLevel  string
	LogPretty bool

	// Crawl parameters. Load reads Concurrency, FetchTimeoutSec and
	// UserAgent from the environment; main.go sets Debug from --debug. The
	// other fields are not filled in by Load or main.go.
	Sitemaps        []string
	MaxPages        int
	FetchMode       string
	Debug           bool
	DryRun          bool
	Recrawl         bool
	Concurrency     int
	FetchTimeoutSec int
	UserAgent       string
}

// Load reads environment variables (after loading a .env file if present)
// and returns a Config with database/logging settings populated. CLI flags
// are merged in separately by the cobra command once flags are parsed.
func Load() *Config {
	godotenv.Load()

	return &Config{
		DBHost:          getEnv("DB_HOST", "localhost"),
		DBPort:          getEnvInt("DB_PORT", 5432),
		DBUser:          getEnv("DB_USER", "postgres"),
		DBPassword:      getEnv("DB_PASSWORD", "password"),
		DBName:          getEnv("DB_NAME", "archivecrawl"),
		DBSSLMode:       getEnv("DB_SSLMODE", "disable"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogPretty:       getEnvBool("LOG_PRETTY", true),
		Concurrency:     getEnvInt("CRAWL_CONCURRENCY", 10),
		FetchTimeoutSec: getEnvInt("FETCH_TIMEOUT_SECONDS", 30),
		UserAgent:       getEnv("USER_AGENT", "ArchiveCrawl/1.0"),
	}
}

// DSN assembles the Postgres connection string from the discrete fields.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// Logger builds a *logrus.Logger configured per LOG_LEVEL/LOG_PRETTY.
func (c *Config) Logger() *logrus.Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	if c.Debug {
		level = logrus.DebugLevel
	}
	log.SetLevel(level)

	if c.LogPretty {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/yukikurage/annonest-api/internal/constants"
)

type Config struct {
	HTTPAddr string

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	SessionStore  string
	RedisHost     string
	RedisPort     string
	SessionSecret string

	GinMode   string
	LogLevel  string
	LogFormat string

	LockTTL           time.Duration
	LockSweepInterval time.Duration
	TrialDays         int
	RateLimitPerMin   int

	OpenAIAPIKey string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		DBDriver:          getEnv("DB_DRIVER", "mysql"),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "3306"),
		DBUser:            getEnv("DB_USER", "annonest"),
		DBPassword:        getEnv("DB_PASSWORD", "annonest"),
		DBName:            getEnv("DB_NAME", "annonest"),
		DBSSLMode:         getEnv("DB_SSLMODE", "disable"),
		SQLitePath:        getEnv("SQLITE_PATH", "annonest.db"),
		SessionStore:      getEnv("SESSION_STORE", "redis"),
		RedisHost:         getEnv("REDIS_HOST", "localhost"),
		RedisPort:         getEnv("REDIS_PORT", "6379"),
		SessionSecret:     getEnv("SESSION_SECRET", "default-secret-key-change-me"),
		GinMode:           getEnv("GIN_MODE", "debug"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
		LockTTL:           getEnvDuration("LOCK_TTL", constants.DefaultLockTTL),
		LockSweepInterval: getEnvDuration("LOCK_SWEEP_INTERVAL", 0),
		TrialDays:         getEnvInt("TRIAL_DAYS", constants.DefaultTrialDays),
		RateLimitPerMin:   getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
	}
}

// IsProduction reports whether gin runs in release mode.
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// getEnvDuration accepts Go duration strings ("15m") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

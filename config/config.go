package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Firebase      FirebaseConfig
	Ollama        OllamaConfig
	MetricsSource MetricsSourceConfig
	Scheduler     SchedulerConfig
	App           AppConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type FirebaseConfig struct {
	// CredentialsPath is optional; when empty the API falls back to the
	// X-User-Id dev header instead of verifying ID tokens.
	CredentialsPath string
}

type OllamaConfig struct {
	URL        string
	Model      string
	NumCtx     int
	NumPredict int
	// RatePerSec limits outbound generate calls.
	RatePerSec float64
	Burst      int
}

type MetricsSourceConfig struct {
	URL      string
	APIToken string
}

type SchedulerConfig struct {
	Disabled           bool
	AlertEvalSpec      string
	OEERollupSpec      string
	AuditPurgeSpec     string
	AuditRetentionDays int
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "plantpulse"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Firebase: FirebaseConfig{
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		},
		Ollama: OllamaConfig{
			URL:        getEnv("OLLAMA_URL", "http://localhost:11434"),
			Model:      getEnv("OLLAMA_MODEL", "llama3:instruct"),
			NumCtx:     getEnvAsInt("OLLAMA_NUM_CTX", 2048),
			NumPredict: getEnvAsInt("OLLAMA_NUM_PREDICT", 512),
			RatePerSec: getEnvAsFloat("OLLAMA_RATE_PER_SEC", 2),
			Burst:      getEnvAsInt("OLLAMA_BURST", 4),
		},
		MetricsSource: MetricsSourceConfig{
			URL:      getEnv("METRICS_SOURCE_URL", ""),
			APIToken: getEnv("METRICS_SOURCE_TOKEN", ""),
		},
		Scheduler: SchedulerConfig{
			Disabled:           getEnv("SCHEDULER_DISABLED", "") != "",
			AlertEvalSpec:      getEnv("ALERT_EVAL_CRON", "0 * * * * *"),
			OEERollupSpec:      getEnv("OEE_ROLLUP_CRON", "0 0 * * * *"),
			AuditPurgeSpec:     getEnv("AUDIT_PURGE_CRON", "0 0 3 * * *"),
			AuditRetentionDays: getEnvAsInt("AUDIT_RETENTION_DAYS", 90),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}

	if c.Ollama.URL == "" {
		return fmt.Errorf("OLLAMA_URL is required")
	}

	return nil
}

// DSN builds a lib/pq style connection string for the configured database.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid number for %s, using default: %v", key, defaultValue)
		return defaultValue
	}

	return value
}

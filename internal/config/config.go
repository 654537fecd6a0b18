package config

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App    AppConfig
	API    APIConfig
	Ingest IngestConfig
}

type AppConfig struct {
	Environment string
	LogFilePath string
}

type APIConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	UploadTimeout  time.Duration
	TokenFilePath  string
	// RefreshSkew is how close to expiry an access token may get before the
	// client refreshes it ahead of a request instead of waiting for a 401.
	RefreshSkew time.Duration
}

type IngestConfig struct {
	PollInterval   time.Duration
	PresetCacheTTL time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Environment: getEnv("GO_ENV", "development"),
			LogFilePath: getEnv("LOG_FILE_PATH", "console.log"),
		},
		API: APIConfig{
			BaseURL:        getEnv("LLM_BUILDER_API_URL", "http://localhost:8000"),
			RequestTimeout: getEnvAsDuration("API_REQUEST_TIMEOUT", 30*time.Second),
			UploadTimeout:  getEnvAsDuration("API_UPLOAD_TIMEOUT", 120*time.Second),
			TokenFilePath:  getEnv("TOKEN_FILE_PATH", defaultTokenPath()),
			RefreshSkew:    getEnvAsDuration("TOKEN_REFRESH_SKEW", 30*time.Second),
		},
		Ingest: IngestConfig{
			PollInterval:   getEnvAsDuration("INGEST_POLL_INTERVAL", 2500*time.Millisecond),
			PresetCacheTTL: getEnvAsDuration("PRESET_CACHE_TTL", 30*time.Second),
		},
	}
}

func defaultTokenPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".llm-builder-tokens.json"
	}
	return filepath.Join(dir, "llm-builder", "tokens.json")
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

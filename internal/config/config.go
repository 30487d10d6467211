package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Basecamp BasecampConfig
	Engine   EngineConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	QueryExecutedTopic string
}

type BasecampConfig struct {
	BaseURL        string
	AccountID      string
	AccessToken    string
	TimeoutSeconds int
}

type EngineConfig struct {
	// DefaultProjectID scopes queries that carry no project reference.
	DefaultProjectID string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			QueryExecutedTopic: getEnv("QUERY_EXECUTED_TOPIC_NAME", "QUERY_EXECUTED"),
		},
		Basecamp: BasecampConfig{
			BaseURL:        getEnv("BASECAMP_BASE_URL", "https://3.basecampapi.com"),
			AccountID:      getEnv("BASECAMP_ACCOUNT_ID", ""),
			AccessToken:    getEnv("BASECAMP_ACCESS_TOKEN", ""),
			TimeoutSeconds: getEnvAsInt("BASECAMP_TIMEOUT_SECONDS", 15),
		},
		Engine: EngineConfig{
			DefaultProjectID: getEnv("DEFAULT_PROJECT_ID", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

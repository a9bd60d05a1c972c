package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"dreamweaver/internal/models"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Port        string
	StoragePath string // *.db opens the embedded SQLite store, anything else a JSON file

	// Generation service configuration (OpenAI-compatible endpoint)
	ProviderBaseURL string
	ProviderAPIKey  string
	ProviderModel   string

	// Annotation call behavior
	AnnotationTimeout time.Duration // bounded wait per call, no retries
	AnnotationRPS     float64       // requests/second allowed against the provider

	// Optional YAML file overriding the built-in prompt templates
	PromptsFile string

	AllowedOrigins string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "3001"),
		StoragePath: getEnv("STORAGE_PATH", "dreams.json"),

		ProviderBaseURL: getEnv("PROVIDER_BASE_URL", "https://api.openai.com/v1"),
		ProviderAPIKey:  getEnv("PROVIDER_API_KEY", ""),
		ProviderModel:   getEnv("PROVIDER_MODEL", "gpt-4o-mini"),

		AnnotationTimeout: getDurationEnv("ANNOTATION_TIMEOUT", 60*time.Second),
		AnnotationRPS:     getFloatEnv("ANNOTATION_RPS", 2.0),

		PromptsFile: getEnv("PROMPTS_FILE", ""),

		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000"),
	}
}

// LoadPrompts loads prompt template overrides from a YAML file
func LoadPrompts(filePath string) (*models.PromptsConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	var prompts models.PromptsConfig
	if err := yaml.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("failed to parse prompts YAML: %w", err)
	}

	return &prompts, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

package config

import (
	"os"
	"strconv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	ML       MLConfig
	Storage  StorageConfig
	OpenAI   OpenAIConfig
	Gemini   GeminiConfig
	Classify ClassifyConfig
}

type ServerConfig struct {
	Addr     string // listen address (default :8080)
	APIToken string // bearer token required on /api/v1 (optional, empty disables auth)
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type MLConfig struct {
	URL string // embedding service base URL (default http://localhost:8000)
	Dim int    // embedding dimension (default 768)
}

type StorageConfig struct {
	URL string // object store base URL photos are fetched from
}

type OpenAIConfig struct {
	Token string
}

type GeminiConfig struct {
	APIKey string
}

type ClassifyConfig struct {
	ScoreThreshold float64 // minimum similarity for candidate proposals (default 0.55)
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a float in (0, 1].
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 && f <= 1 {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:     envString("SERVER_ADDR", ":8080"),
			APIToken: os.Getenv("API_TOKEN"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		ML: MLConfig{
			URL: envString("ML_URL", "http://localhost:8000"),
			Dim: envInt("ML_EMBEDDING_DIM", 768),
		},
		Storage: StorageConfig{
			URL: os.Getenv("STORAGE_URL"),
		},
		OpenAI: OpenAIConfig{
			Token: os.Getenv("OPENAI_TOKEN"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
		},
		Classify: ClassifyConfig{
			ScoreThreshold: envFloat("CLASSIFY_SCORE_THRESHOLD", 0.55),
		},
	}
}

package scenario

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Env is the process configuration shared by the API server and the CLI.
type Env struct {
	DatabaseURL  string
	APIAddr      string
	CacheDir     string
	QCacheSize   int
	SweepWorkers int
}

// LoadEnv reads .env when present, then the process environment.
func LoadEnv() Env {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	return Env{
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		APIAddr:      getEnv("FUSION_API_ADDR", ":8080"),
		CacheDir:     getEnv("FUSION_CACHE_DIR", "data/results"),
		QCacheSize:   getEnvAsInt("FUSION_Q_CACHE_SIZE", 4096),
		SweepWorkers: getEnvAsInt("FUSION_SWEEP_WORKERS", 8),
	}
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
	if err != nil || value <= 0 {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

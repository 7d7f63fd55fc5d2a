package config

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port          string
	DataDir       string
	EmbeddingsDir string

	EmbeddingsProvider    string
	EmbeddingsModel       string
	EmbeddingsBaseURL     string
	EmbeddingsConcurrency int
	EmbeddingsRateLimit   float64 // requests per second, 0 disables throttling

	SearchMinScore float64
	ChunkChars     int
	ChunkOverlap   int
	MMRLambda      float64
	MMRPoolBase    int
	MMRPoolMin     int
	SentTokenizer  string

	HistoryDBPath    string // empty disables run history
	QdrantURL        string // empty disables the mirror
	QdrantCollection string

	MetricsEnabled    bool
	CORSAllowedOrigin string

	LogLevel  slog.Level
	LogFormat string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields, clamps numeric options into their valid
// ranges and rejects values that are not numbers at all.
// If a .env file exists in the current directory or a parent directory, it is loaded first.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	loadDotEnv()

	dataDir := getEnv("DATA_DIR", "./data")

	cfg := &Config{
		Port:               getEnv("PORT", "3000"),
		DataDir:            dataDir,
		EmbeddingsDir:      getEnv("EMBEDDINGS_DIR", filepath.Join(dataDir, "embeddings")),
		EmbeddingsProvider: getEnv("EMBEDDINGS_PROVIDER", "ollama"),
		EmbeddingsModel:    getEnv("EMBEDDINGS_MODEL", "nomic-embed-text"),
		EmbeddingsBaseURL:  strings.TrimRight(getEnv("EMBEDDINGS_BASE_URL", "http://localhost:11434"), "/"),
		SentTokenizer:      "regex",
		HistoryDBPath:      getEnvAllowEmpty("HISTORY_DB_PATH", filepath.Join(dataDir, "raggy.db")),
		QdrantURL:          getEnv("QDRANT_URL", ""),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "raggy"),
		CORSAllowedOrigin:  getEnv("CORS_ALLOWED_ORIGIN", ""),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	if getEnv("SENT_TOKENIZER", "regex") == "smart" {
		cfg.SentTokenizer = "smart"
	}

	var err error
	if cfg.EmbeddingsConcurrency, err = getInt("EMBEDDINGS_CONCURRENCY", 4); err != nil {
		return nil, err
	}
	cfg.EmbeddingsConcurrency = max(1, cfg.EmbeddingsConcurrency)

	if cfg.EmbeddingsRateLimit, err = getFloat("EMBEDDINGS_RATE_LIMIT", 0); err != nil {
		return nil, err
	}
	cfg.EmbeddingsRateLimit = math.Max(0, cfg.EmbeddingsRateLimit)

	if cfg.SearchMinScore, err = getFloat("SEARCH_MIN_SCORE", 0.5); err != nil {
		return nil, err
	}
	cfg.SearchMinScore = clamp01(cfg.SearchMinScore)

	if cfg.ChunkChars, err = getInt("CHUNK_CHARS", 800); err != nil {
		return nil, err
	}
	cfg.ChunkChars = max(200, cfg.ChunkChars)

	if cfg.ChunkOverlap, err = getInt("CHUNK_OVERLAP", 120); err != nil {
		return nil, err
	}
	cfg.ChunkOverlap = min(500, max(0, cfg.ChunkOverlap))

	if cfg.MMRLambda, err = getFloat("MMR_LAMBDA", 0.5); err != nil {
		return nil, err
	}
	cfg.MMRLambda = clamp01(cfg.MMRLambda)

	if cfg.MMRPoolBase, err = getInt("MMR_POOL_BASE", 8); err != nil {
		return nil, err
	}
	cfg.MMRPoolBase = max(1, cfg.MMRPoolBase)

	if cfg.MMRPoolMin, err = getInt("MMR_POOL_MIN", 50); err != nil {
		return nil, err
	}
	cfg.MMRPoolMin = max(0, cfg.MMRPoolMin)

	if cfg.MetricsEnabled, err = getBool("METRICS_ENABLED", true); err != nil {
		return nil, err
	}

	if cfg.LogLevel, err = parseLogLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return nil, fmt.Errorf("PORT must be a valid integer: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// loadDotEnv loads the first .env file found in the working directory or up to
// five of its parents. A missing file is not an error.
func loadDotEnv() {
	wd, err := os.Getwd()
	if err != nil {
		_ = godotenv.Load()
		return
	}
	dir := wd
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty distinguishes an unset variable from one explicitly set to "".
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return v, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s must be a finite number", key)
	}
	return v, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return v, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL is invalid: %w", err)
	}
	return level, nil
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

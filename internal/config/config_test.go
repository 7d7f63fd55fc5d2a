package config

import (
	"log/slog"
	"path/filepath"
	"testing"
)

var configEnvVars = []string{
	"PORT", "DATA_DIR", "EMBEDDINGS_DIR",
	"EMBEDDINGS_PROVIDER", "EMBEDDINGS_MODEL", "EMBEDDINGS_BASE_URL",
	"EMBEDDINGS_CONCURRENCY", "EMBEDDINGS_RATE_LIMIT",
	"SEARCH_MIN_SCORE", "CHUNK_CHARS", "CHUNK_OVERLAP",
	"MMR_LAMBDA", "MMR_POOL_BASE", "MMR_POOL_MIN", "SENT_TOKENIZER",
	"QDRANT_URL", "QDRANT_COLLECTION", "METRICS_ENABLED", "CORS_ALLOWED_ORIGIN",
	"LOG_LEVEL", "LOG_FORMAT",
}

// clearEnv blanks every variable Load reads and points DATA_DIR at a temp dir.
func clearEnv(t *testing.T) string {
	t.Helper()
	for _, key := range configEnvVars {
		t.Setenv(key, "")
	}
	dataDir := filepath.Join(t.TempDir(), "data")
	t.Setenv("DATA_DIR", dataDir)
	t.Setenv("HISTORY_DB_PATH", filepath.Join(dataDir, "raggy.db"))
	return dataDir
}

func TestLoad_Defaults(t *testing.T) {
	dataDir := clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "3000" {
		t.Errorf("Load() Port = %v, want 3000", cfg.Port)
	}
	if cfg.EmbeddingsDir != filepath.Join(dataDir, "embeddings") {
		t.Errorf("Load() EmbeddingsDir = %v, want %v", cfg.EmbeddingsDir, filepath.Join(dataDir, "embeddings"))
	}
	if cfg.EmbeddingsProvider != "ollama" {
		t.Errorf("Load() EmbeddingsProvider = %v, want ollama", cfg.EmbeddingsProvider)
	}
	if cfg.EmbeddingsModel != "nomic-embed-text" {
		t.Errorf("Load() EmbeddingsModel = %v, want nomic-embed-text", cfg.EmbeddingsModel)
	}
	if cfg.EmbeddingsBaseURL != "http://localhost:11434" {
		t.Errorf("Load() EmbeddingsBaseURL = %v, want http://localhost:11434", cfg.EmbeddingsBaseURL)
	}
	if cfg.EmbeddingsConcurrency != 4 {
		t.Errorf("Load() EmbeddingsConcurrency = %v, want 4", cfg.EmbeddingsConcurrency)
	}
	if cfg.SearchMinScore != 0.5 {
		t.Errorf("Load() SearchMinScore = %v, want 0.5", cfg.SearchMinScore)
	}
	if cfg.ChunkChars != 800 || cfg.ChunkOverlap != 120 {
		t.Errorf("Load() chunking = %d/%d, want 800/120", cfg.ChunkChars, cfg.ChunkOverlap)
	}
	if cfg.MMRLambda != 0.5 || cfg.MMRPoolBase != 8 || cfg.MMRPoolMin != 50 {
		t.Errorf("Load() MMR = %v/%d/%d, want 0.5/8/50", cfg.MMRLambda, cfg.MMRPoolBase, cfg.MMRPoolMin)
	}
	if cfg.SentTokenizer != "regex" {
		t.Errorf("Load() SentTokenizer = %v, want regex", cfg.SentTokenizer)
	}
	if cfg.QdrantURL != "" {
		t.Errorf("Load() QdrantURL = %v, want empty", cfg.QdrantURL)
	}
	if !cfg.MetricsEnabled {
		t.Error("Load() MetricsEnabled = false, want true")
	}
	if cfg.LogLevel != slog.LevelInfo || cfg.LogFormat != "text" {
		t.Errorf("Load() logging = %v/%v, want INFO/text", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestLoad_Clamping(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		check func(*testing.T, *Config)
	}{
		{
			name: "concurrency floor",
			env:  map[string]string{"EMBEDDINGS_CONCURRENCY": "0"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.EmbeddingsConcurrency != 1 {
					t.Errorf("EmbeddingsConcurrency = %d, want 1", cfg.EmbeddingsConcurrency)
				}
			},
		},
		{
			name: "chunk chars floor",
			env:  map[string]string{"CHUNK_CHARS": "50"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.ChunkChars != 200 {
					t.Errorf("ChunkChars = %d, want 200", cfg.ChunkChars)
				}
			},
		},
		{
			name: "chunk overlap ceiling",
			env:  map[string]string{"CHUNK_OVERLAP": "9000"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.ChunkOverlap != 500 {
					t.Errorf("ChunkOverlap = %d, want 500", cfg.ChunkOverlap)
				}
			},
		},
		{
			name: "chunk overlap floor",
			env:  map[string]string{"CHUNK_OVERLAP": "-3"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.ChunkOverlap != 0 {
					t.Errorf("ChunkOverlap = %d, want 0", cfg.ChunkOverlap)
				}
			},
		},
		{
			name: "lambda and min score clamp",
			env:  map[string]string{"MMR_LAMBDA": "1.7", "SEARCH_MIN_SCORE": "-0.2"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.MMRLambda != 1 {
					t.Errorf("MMRLambda = %v, want 1", cfg.MMRLambda)
				}
				if cfg.SearchMinScore != 0 {
					t.Errorf("SearchMinScore = %v, want 0", cfg.SearchMinScore)
				}
			},
		},
		{
			name: "smart tokenizer",
			env:  map[string]string{"SENT_TOKENIZER": "smart"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.SentTokenizer != "smart" {
					t.Errorf("SentTokenizer = %v, want smart", cfg.SentTokenizer)
				}
			},
		},
		{
			name: "unknown tokenizer falls back to regex",
			env:  map[string]string{"SENT_TOKENIZER": "nltk"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.SentTokenizer != "regex" {
					t.Errorf("SentTokenizer = %v, want regex", cfg.SentTokenizer)
				}
			},
		},
		{
			name: "base url trailing slash trimmed",
			env:  map[string]string{"EMBEDDINGS_BASE_URL": "http://ollama:11434/"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.EmbeddingsBaseURL != "http://ollama:11434" {
					t.Errorf("EmbeddingsBaseURL = %v, want http://ollama:11434", cfg.EmbeddingsBaseURL)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "non-numeric concurrency", key: "EMBEDDINGS_CONCURRENCY", val: "four"},
		{name: "non-numeric min score", key: "SEARCH_MIN_SCORE", val: "high"},
		{name: "NaN lambda", key: "MMR_LAMBDA", val: "NaN"},
		{name: "bad bool", key: "METRICS_ENABLED", val: "sometimes"},
		{name: "bad log level", key: "LOG_LEVEL", val: "chatty"},
		{name: "bad log format", key: "LOG_FORMAT", val: "xml"},
		{name: "bad port", key: "PORT", val: "http"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)
			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%s expected error, got nil", tt.key, tt.val)
			}
		})
	}
}

func TestLoad_HistoryCanBeDisabled(t *testing.T) {
	clearEnv(t)
	t.Setenv("HISTORY_DB_PATH", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HistoryDBPath != "" {
		t.Errorf("Load() HistoryDBPath = %v, want empty", cfg.HistoryDBPath)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("RAGGY_TEST_KEY", "value")
	if got := getEnv("RAGGY_TEST_KEY", "default"); got != "value" {
		t.Errorf("getEnv() = %v, want value", got)
	}
	t.Setenv("RAGGY_TEST_KEY", "")
	if got := getEnv("RAGGY_TEST_KEY", "default"); got != "default" {
		t.Errorf("getEnv() = %v, want default", got)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

// setEnv sets an environment variable, ignoring errors (for test setup)
func setEnv(key, value string) {
	_ = os.Setenv(key, value)
}

// unsetEnv unsets an environment variable, ignoring errors (for test cleanup)
func unsetEnv(key string) {
	_ = os.Unsetenv(key)
}

func TestLoad(t *testing.T) {
	// Save original env vars
	originalEnv := make(map[string]string)
	envVars := []string{
		"CSV_PATH", "QDRANT_VECTOR_SIZE", "VECTOR_STORE",
		"LLM_BASE_URL", "LLM_API_KEY", "LLM_MODEL",
		"EMBEDDING_BASE_URL", "EMBEDDING_MODEL_NAME",
		"DB_PATH", "QDRANT_URL", "QDRANT_COLLECTION", "API_PORT",
		"RETRIEVE_TOP_N", "TOP_K", "LOG_LEVEL", "LOG_FORMAT",
	}
	for _, key := range envVars {
		originalEnv[key] = os.Getenv(key)
		unsetEnv(key)
	}
	defer func() {
		for key, value := range originalEnv {
			if value != "" {
				setEnv(key, value)
			} else {
				unsetEnv(key)
			}
		}
	}()

	csvFile := func(t *testing.T) string {
		path := filepath.Join(t.TempDir(), "failures.csv")
		if err := os.WriteFile(path, []byte("Part Number\n"), 0644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	tests := []struct {
		name        string
		setupEnv    func(*testing.T)
		wantErr     bool
		checkConfig func(*Config) bool
	}{
		{
			name: "valid config with all required fields",
			setupEnv: func(t *testing.T) {
				setEnv("CSV_PATH", csvFile(t))
				setEnv("QDRANT_VECTOR_SIZE", "768")
				setEnv("DB_PATH", filepath.Join(t.TempDir(), "test.db"))
			},
			wantErr: false,
			checkConfig: func(cfg *Config) bool {
				return cfg.CSVPath != "" &&
					cfg.QdrantVectorSize == 768 &&
					cfg.QdrantCollection == "failures" &&
					cfg.RetrieveTopN == 30 &&
					cfg.TopK == 3 &&
					cfg.VectorStore == "qdrant"
			},
		},
		{
			name: "missing CSV_PATH",
			setupEnv: func(t *testing.T) {
				setEnv("QDRANT_VECTOR_SIZE", "768")
			},
			wantErr: true,
		},
		{
			name: "missing QDRANT_VECTOR_SIZE",
			setupEnv: func(t *testing.T) {
				setEnv("CSV_PATH", csvFile(t))
			},
			wantErr: true,
		},
		{
			name: "invalid QDRANT_VECTOR_SIZE",
			setupEnv: func(t *testing.T) {
				setEnv("CSV_PATH", csvFile(t))
				setEnv("QDRANT_VECTOR_SIZE", "not-a-number")
			},
			wantErr: true,
		},
		{
			name: "negative QDRANT_VECTOR_SIZE",
			setupEnv: func(t *testing.T) {
				setEnv("CSV_PATH", csvFile(t))
				setEnv("QDRANT_VECTOR_SIZE", "-1")
			},
			wantErr: true,
		},
		{
			name: "invalid VECTOR_STORE",
			setupEnv: func(t *testing.T) {
				setEnv("CSV_PATH", csvFile(t))
				setEnv("QDRANT_VECTOR_SIZE", "768")
				setEnv("VECTOR_STORE", "faiss")
			},
			wantErr: true,
		},
		{
			name: "memory vector store accepted",
			setupEnv: func(t *testing.T) {
				setEnv("CSV_PATH", csvFile(t))
				setEnv("QDRANT_VECTOR_SIZE", "768")
				setEnv("VECTOR_STORE", "memory")
				setEnv("DB_PATH", filepath.Join(t.TempDir(), "test.db"))
			},
			wantErr: false,
			checkConfig: func(cfg *Config) bool {
				return cfg.VectorStore == "memory"
			},
		},
		{
			name: "custom retrieval knobs",
			setupEnv: func(t *testing.T) {
				setEnv("CSV_PATH", csvFile(t))
				setEnv("QDRANT_VECTOR_SIZE", "768")
				setEnv("RETRIEVE_TOP_N", "50")
				setEnv("TOP_K", "5")
				setEnv("DB_PATH", filepath.Join(t.TempDir(), "test.db"))
			},
			wantErr: false,
			checkConfig: func(cfg *Config) bool {
				return cfg.RetrieveTopN == 50 && cfg.TopK == 5
			},
		},
		{
			name: "invalid RETRIEVE_TOP_N",
			setupEnv: func(t *testing.T) {
				setEnv("CSV_PATH", csvFile(t))
				setEnv("QDRANT_VECTOR_SIZE", "768")
				setEnv("RETRIEVE_TOP_N", "zero")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range envVars {
				unsetEnv(key)
			}
			tt.setupEnv(t)

			cfg, err := Load()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if tt.checkConfig != nil && !tt.checkConfig(cfg) {
				t.Errorf("Load() config check failed: %+v", cfg)
			}
		})
	}
}

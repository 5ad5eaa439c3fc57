// Package config provides configuration loading and structs for the kotaeru server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	AI         AIConfig         `yaml:"ai"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Upload     UploadConfig     `yaml:"upload"`
	Watch      WatchConfig      `yaml:"watch"`
	Restricted RestrictedConfig `yaml:"restricted"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the database, keyword index, and uploaded files.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path"`
	BleveIndexPath string `yaml:"bleve_index_path"`
	DocumentsDir   string `yaml:"documents_dir"`
}

// AIConfig holds settings for the remote embedding and chat-completion APIs.
// APIKey is normally left empty in the file and supplied via the
// OPENROUTER_API_KEY environment variable.
type AIConfig struct {
	BaseURL          string  `yaml:"base_url"`
	APIKey           string  `yaml:"api_key"`
	EmbedModel       string  `yaml:"embed_model"`
	ChatModel        string  `yaml:"chat_model"`
	EmbedTimeoutSecs int     `yaml:"embed_timeout"`
	ChatTimeoutSecs  int     `yaml:"chat_timeout"`
	Temperature      float64 `yaml:"temperature"`
	MaxTokens        int     `yaml:"max_tokens"`
	MaxRetries       int     `yaml:"max_retries"`
	RetryDelayMs     int     `yaml:"retry_delay_ms"`
}

// ChunkingConfig holds chunker settings. Overlap is expressed in characters for
// historical reasons but is consumed as overlap/10 trailing words.
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// RetrievalConfig holds similarity ranking settings.
type RetrievalConfig struct {
	TopK               int     `yaml:"top_k"`
	RelevanceThreshold float64 `yaml:"relevance_threshold"`
	PrefilterThreshold float64 `yaml:"prefilter_threshold"`
}

// IngestConfig holds ingestion pipeline settings.
type IngestConfig struct {
	BatchSize       int     `yaml:"batch_size"`
	EmbedsPerSecond float64 `yaml:"embeds_per_second"`
	QueueSize       int     `yaml:"queue_size"`
}

// UploadConfig holds upload boundary limits.
type UploadConfig struct {
	MaxFileBytes int64    `yaml:"max_file_bytes"`
	MaxFiles     int      `yaml:"max_files"`
	Extensions   []string `yaml:"extensions"`
}

// WatchConfig holds drop-folder watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// RestrictedConfig holds the denylist for the restricted-topic filter.
type RestrictedConfig struct {
	Keywords []string `yaml:"keywords"`
}

// Load reads and parses the config file at path, expands paths, applies defaults,
// and overlays environment variables (OPENROUTER_API_KEY, OPENROUTER_BASE_URL).
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	cfg.Storage.DocumentsDir = expandPath(cfg.Storage.DocumentsDir, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// applyEnvOverrides lets environment variables take precedence over file values
// so API credentials never need to live in the config file.
func applyEnvOverrides(cfg *Config) {
	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		cfg.AI.APIKey = key
	}
	if base := os.Getenv("OPENROUTER_BASE_URL"); base != "" {
		cfg.AI.BaseURL = base
	}
	if model := os.Getenv("OPENROUTER_EMBED_MODEL"); model != "" {
		cfg.AI.EmbedModel = model
	}
	if model := os.Getenv("OPENROUTER_CHAT_MODEL"); model != "" {
		cfg.AI.ChatModel = model
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

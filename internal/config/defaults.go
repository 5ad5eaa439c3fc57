package config

// DefaultRestrictedKeywords is the denylist used by the restricted-topic filter
// when none is configured. Substring matching is intentionally blunt; false
// positives are accepted.
var DefaultRestrictedKeywords = []string{
	"salary", "personal", "phone", "contact",
	"email", "address", "hr", "manager", "security",
	"password", "confidential", "private",
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/kotaeru/data/db/kotaeru.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/kotaeru/data/indices/bleve"
	}
	if cfg.Storage.DocumentsDir == "" {
		cfg.Storage.DocumentsDir = "/usr/local/var/kotaeru/data/documents"
	}
	if cfg.AI.BaseURL == "" {
		cfg.AI.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.AI.EmbedModel == "" {
		cfg.AI.EmbedModel = "openai/text-embedding-3-small"
	}
	if cfg.AI.ChatModel == "" {
		cfg.AI.ChatModel = "openai/gpt-4o-mini"
	}
	if cfg.AI.EmbedTimeoutSecs == 0 {
		cfg.AI.EmbedTimeoutSecs = 30
	}
	if cfg.AI.ChatTimeoutSecs == 0 {
		cfg.AI.ChatTimeoutSecs = 60
	}
	if cfg.AI.Temperature == 0 {
		cfg.AI.Temperature = 0.2
	}
	if cfg.AI.MaxTokens == 0 {
		cfg.AI.MaxTokens = 1024
	}
	if cfg.AI.MaxRetries == 0 {
		cfg.AI.MaxRetries = 3
	}
	if cfg.AI.RetryDelayMs == 0 {
		cfg.AI.RetryDelayMs = 500
	}
	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = 500
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = 100
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Retrieval.RelevanceThreshold == 0 {
		cfg.Retrieval.RelevanceThreshold = 0.2
	}
	if cfg.Retrieval.PrefilterThreshold == 0 {
		cfg.Retrieval.PrefilterThreshold = 0.15
	}
	if cfg.Ingest.BatchSize == 0 {
		cfg.Ingest.BatchSize = 3
	}
	if cfg.Ingest.EmbedsPerSecond == 0 {
		cfg.Ingest.EmbedsPerSecond = 10
	}
	if cfg.Ingest.QueueSize == 0 {
		cfg.Ingest.QueueSize = 64
	}
	if cfg.Upload.MaxFileBytes == 0 {
		cfg.Upload.MaxFileBytes = 10 << 20
	}
	if cfg.Upload.MaxFiles == 0 {
		cfg.Upload.MaxFiles = 5
	}
	if cfg.Upload.Extensions == nil {
		cfg.Upload.Extensions = []string{".txt", ".md", ".pdf", ".docx", ".xlsx"}
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = cfg.Upload.Extensions
	}
	if cfg.Restricted.Keywords == nil {
		cfg.Restricted.Keywords = DefaultRestrictedKeywords
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}

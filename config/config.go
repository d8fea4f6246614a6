package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the corpus QA service.
type Config struct {
	Corpus        CorpusConfig        `yaml:"corpus"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	Retrieve      RetrieveConfig      `yaml:"retrieve"`
	Generate      GenerateConfig      `yaml:"generate"`
	Conversations ConversationsConfig `yaml:"conversations"`
	Server        ServerConfig        `yaml:"server"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// CorpusConfig locates the corpus source and the derived index artifacts.
type CorpusConfig struct {
	Path          string `yaml:"path"`            // corpus text file
	DataDir       string `yaml:"data_dir"`        // where index + conversation DBs live
	MinChunkChars int    `yaml:"min_chunk_chars"` // chunks shorter than this are discarded
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"`    // "openai", "mock"
	Model       string `yaml:"model"`       // e.g., "text-embedding-3-small"
	BaseURL     string `yaml:"base_url"`    // OpenAI-compatible endpoint
	APIKeyEnv   string `yaml:"api_key_env"` // environment variable for API key
	Dimension   int    `yaml:"dimension"`
	BatchSize   int    `yaml:"batch_size"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK int `yaml:"top_k"`
	// RelevanceThreshold is the maximum squared L2 distance a result may
	// have before it is dropped as noise. Distances are not normalized,
	// so this value must be recalibrated when the embedding model changes.
	RelevanceThreshold float64 `yaml:"relevance_threshold"`
	KeywordFallback    bool    `yaml:"keyword_fallback"`
}

// GenerateConfig holds answer generation configuration.
type GenerateConfig struct {
	Model       string  `yaml:"model"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
	TimeoutSecs int     `yaml:"timeout_secs"`
}

// ConversationsConfig controls conversation logging.
type ConversationsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Corpus: CorpusConfig{
			Path:          "corpus.txt",
			DataDir:       ".corpusqa",
			MinChunkChars: 40,
		},
		Embedding: EmbeddingConfig{
			Provider:    "openai",
			Model:       "text-embedding-3-small",
			BaseURL:     "https://api.openai.com/v1",
			APIKeyEnv:   "OPENAI_API_KEY",
			Dimension:   1536,
			BatchSize:   100,
			TimeoutSecs: 60,
		},
		Retrieve: RetrieveConfig{
			TopK:               5,
			RelevanceThreshold: 1.2,
			KeywordFallback:    true,
		},
		Generate: GenerateConfig{
			Model:       "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			MaxTokens:   300,
			Temperature: 0.7,
			TimeoutSecs: 30,
		},
		Conversations: ConversationsConfig{
			Enabled: true,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for corpusqa.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "corpusqa.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".corpusqa", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks that the configuration is usable. A provider that needs
// credentials but cannot find them is a startup failure: the process must
// refuse to serve rather than run with a broken embedder.
func (c *Config) Validate() error {
	if c.Corpus.Path == "" {
		return fmt.Errorf("corpus.path must be set")
	}
	if c.Corpus.MinChunkChars < 0 {
		return fmt.Errorf("corpus.min_chunk_chars must not be negative")
	}
	if c.Retrieve.TopK < 1 {
		return fmt.Errorf("retrieve.top_k must be >= 1")
	}
	if c.Retrieve.RelevanceThreshold <= 0 {
		return fmt.Errorf("retrieve.relevance_threshold must be > 0")
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be > 0")
	}

	switch c.Embedding.Provider {
	case "mock":
	case "openai":
		if os.Getenv(c.Embedding.APIKeyEnv) == "" {
			return fmt.Errorf("embedding API key not found in environment variable %s", c.Embedding.APIKeyEnv)
		}
	default:
		return fmt.Errorf("unsupported embedding provider: %s", c.Embedding.Provider)
	}

	return nil
}

// SnapshotDBPath returns the path to the index snapshot database.
func (c *Config) SnapshotDBPath() string {
	return filepath.Join(c.Corpus.DataDir, "index.db")
}

// ConversationDBPath returns the path to the conversation log database.
func (c *Config) ConversationDBPath() string {
	return filepath.Join(c.Corpus.DataDir, "conversations.db")
}

// EnsureDataDir ensures the data directory exists.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.Corpus.DataDir, 0755)
}

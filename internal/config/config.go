package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"docusage/internal/models"
)

// Supported LLM providers.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Supported vector store backends.
const (
	StorePgvector = "pgvector"
	StoreChromem  = "chromem"
)

type Config struct {
	Server   ServerConfig `yaml:"server"`
	Store    StoreConfig  `yaml:"store"`
	EmbedLLM LLMConfig    `yaml:"embed_llm"`
	ChatLLM  LLMConfig    `yaml:"chat_llm"`
	RAG      RAGConfig    `yaml:"rag"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	UploadDir      string   `yaml:"upload_dir"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// StoreConfig selects and configures the vector store backend.
// Type "pgvector" needs DSN; type "chromem" needs Path and Collection.
type StoreConfig struct {
	Type       string `yaml:"type"`
	DSN        string `yaml:"dsn"`
	Password   string `yaml:"password"`
	Debug      bool   `yaml:"debug"`
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
	InMemory   bool   `yaml:"in_memory"`
}

type LLMConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
	Key      string `yaml:"key"`
}

type RAGConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	TopK         int `yaml:"top_k"`
	VectorSize   int `yaml:"vector_size"`
}

// LoadConfig reads the YAML config at path, applies defaults and env-var
// overrides for secrets, and validates required connection parameters.
// A validation failure here is fatal at startup.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	if cfg.Server.UploadDir == "" {
		cfg.Server.UploadDir = "./uploaded_docs"
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = StoreChromem
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "./chromemdb"
	}
	if cfg.Store.Collection == "" {
		cfg.Store.Collection = "documents"
	}
	if cfg.EmbedLLM.Provider == "" {
		cfg.EmbedLLM.Provider = ProviderOllama
	}
	if cfg.EmbedLLM.BaseURL == "" {
		cfg.EmbedLLM.BaseURL = "http://localhost:11434"
	}
	if cfg.EmbedLLM.Model == "" {
		cfg.EmbedLLM.Model = "nomic-embed-text"
	}
	if cfg.ChatLLM.Provider == "" {
		cfg.ChatLLM.Provider = ProviderOllama
	}
	if cfg.ChatLLM.BaseURL == "" {
		cfg.ChatLLM.BaseURL = "http://localhost:11434"
	}
	if cfg.ChatLLM.Model == "" {
		cfg.ChatLLM.Model = "tinyllama"
	}
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = models.DefaultChunkSize
	}
	if cfg.RAG.ChunkOverlap == 0 {
		cfg.RAG.ChunkOverlap = models.DefaultChunkOverlap
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = models.DefaultTopK
	}
	if cfg.RAG.VectorSize == 0 {
		cfg.RAG.VectorSize = models.DefaultVectorSize
	}
}

// applyEnv lets secrets come from the environment instead of the file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("DOCUSAGE_STORE_DSN"); v != "" {
		cfg.Store.DSN = v
	}
	if v := os.Getenv("DOCUSAGE_STORE_PASSWORD"); v != "" {
		cfg.Store.Password = v
	}
	if v := os.Getenv("DOCUSAGE_EMBED_API_KEY"); v != "" {
		cfg.EmbedLLM.Key = v
	}
	if v := os.Getenv("DOCUSAGE_CHAT_API_KEY"); v != "" {
		cfg.ChatLLM.Key = v
	}
}

func (c *Config) Validate() error {
	switch c.Store.Type {
	case StorePgvector:
		if c.Store.DSN == "" {
			return fmt.Errorf("config: store type %q requires dsn (or DOCUSAGE_STORE_DSN)", c.Store.Type)
		}
	case StoreChromem:
		if !c.Store.InMemory && c.Store.Path == "" {
			return fmt.Errorf("config: store type %q requires path", c.Store.Type)
		}
	default:
		return fmt.Errorf("config: unknown store type %q", c.Store.Type)
	}
	for _, llm := range []struct {
		name string
		cfg  LLMConfig
	}{{"embed_llm", c.EmbedLLM}, {"chat_llm", c.ChatLLM}} {
		switch llm.cfg.Provider {
		case ProviderOllama:
		case ProviderOpenAI:
			if llm.cfg.Key == "" {
				return fmt.Errorf("config: %s provider %q requires key", llm.name, llm.cfg.Provider)
			}
		default:
			return fmt.Errorf("config: %s has unknown provider %q", llm.name, llm.cfg.Provider)
		}
	}
	if c.RAG.ChunkSize <= c.RAG.ChunkOverlap {
		return fmt.Errorf("config: chunk_size %d must be greater than chunk_overlap %d",
			c.RAG.ChunkSize, c.RAG.ChunkOverlap)
	}
	return nil
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/xxxsen/common/logger"
)

type Config struct {
	LogConfig  logger.LogConfig `json:"log_config"`
	DB         DatabaseConfig   `json:"db"`
	AI         AIConfig         `json:"ai"`
	Memory     MemoryConfig     `json:"memory"`
	RAG        RAGConfig        `json:"rag"`
	EmbedCache EmbedCacheConfig `json:"embed_cache"`
	Server     ServerConfig     `json:"server"`
	Jobs       JobsConfig       `json:"jobs"`
}

type DatabaseConfig struct {
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
}

type AIConfig struct {
	Providers          []ProviderConfig `json:"providers"`
	Timeout            int              `json:"timeout"`
	MaxRetries         int              `json:"max_retries"`
	BotName            string           `json:"bot_name"`
	ChatTemperature    float64          `json:"chat_temperature"`
	RAGTemperature     float64          `json:"rag_temperature"`
	SummaryTemperature float64          `json:"summary_temperature"`
	ChatInstruction    string           `json:"chat_instruction"`
	RAGInstruction     string           `json:"rag_instruction"`
	SummaryInstruction string           `json:"summary_instruction"`
	GreetingPrompt     string           `json:"greeting_prompt"`
}

type ProviderConfig struct {
	Name       string                 `json:"name"`
	Provider   string                 `json:"provider"`
	Model      string                 `json:"model"`
	EmbedModel string                 `json:"embed_model"`
	Data       map[string]interface{} `json:"data"`
}

type MemoryConfig struct {
	ShortTermTurns    int `json:"short_term_turns"`
	SummaryWindow     int `json:"summary_window"`
	LongTermSummaries int `json:"long_term_summaries"`
}

type RAGConfig struct {
	KnowledgeFile       string `json:"knowledge_file"`
	TopK                int    `json:"top_k"`
	QueryCacheSize      int    `json:"query_cache_size"`
	QueryCacheTTLSecond int    `json:"query_cache_ttl_seconds"`
}

type EmbedCacheConfig struct {
	Type      string          `json:"type"`
	FileStore FileStoreConfig `json:"file_store"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type ServerConfig struct {
	Port        int      `json:"port"`
	JWTSecret   string   `json:"jwt_secret"`
	CORSOrigins []string `json:"cors_origins"`
	RateLimitMs int      `json:"rate_limit_ms"`
}

type JobsConfig struct {
	EmbeddingCacheCleanupSpec string `json:"embedding_cache_cleanup_spec"`
	EmbeddingCacheMaxAgeDays  int    `json:"embedding_cache_max_age_days"`
}

const (
	defaultChatInstruction = "Be a friendly, outgoing friend. Do not reveal that you are an AI. " +
		"Use emojis in your answers. Avoid very long answers."
	defaultRAGInstruction = "You are an expert on the subject of the provided text. " +
		"Base your answers only on the information provided in the context. " +
		"Be precise, clear and direct. If the information is not available in the context, " +
		"say that you do not have that specific information."
	defaultSummaryInstruction = "Briefly and objectively summarize the following interactions for long-term memory. " +
		"Focus on the main topics, decisions made and feelings expressed."
)

// apiKeyEnv maps a provider type to the environment variable that supplies
// its api_key when the config file leaves it empty.
var apiKeyEnv = map[string]string{
	"gemini":     "GEMINI_API_KEY",
	"openai":     "OPENAI_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
}

func Default() *Config {
	return &Config{
		LogConfig: logger.LogConfig{
			Level:   "info",
			Console: true,
		},
		DB: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "membot.db",
		},
		AI: AIConfig{
			Providers: []ProviderConfig{
				{
					Name:       "gemini",
					Provider:   "gemini",
					Model:      "gemini-2.5-flash-lite",
					EmbedModel: "gemini-embedding-001",
				},
			},
			Timeout:            60,
			MaxRetries:         3,
			BotName:            "Bob",
			ChatTemperature:    1.0,
			RAGTemperature:     0.7,
			SummaryTemperature: 1.0,
			ChatInstruction:    defaultChatInstruction,
			RAGInstruction:     defaultRAGInstruction,
			SummaryInstruction: defaultSummaryInstruction,
			GreetingPrompt:     "Introduce yourself as my friend, Bob.",
		},
		Memory: MemoryConfig{
			ShortTermTurns:    5,
			SummaryWindow:     10,
			LongTermSummaries: 10,
		},
		RAG: RAGConfig{
			KnowledgeFile:       "knowledge.txt",
			TopK:                3,
			QueryCacheSize:      1024,
			QueryCacheTTLSecond: 3600,
		},
		EmbedCache: EmbedCacheConfig{
			Type: "file",
			FileStore: FileStoreConfig{
				Type: "local",
				Data: map[string]interface{}{"dir": ".membot"},
			},
		},
		Server: ServerConfig{
			Port:        8080,
			RateLimitMs: 1000,
		},
		Jobs: JobsConfig{
			EmbeddingCacheCleanupSpec: "0 3 * * *",
			EmbeddingCacheMaxAgeDays:  30,
		},
	}
}

// Load reads the optional JSON config at path on top of Default, then fills
// provider credentials from the environment (including a .env file in the
// working directory).
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()
		if err := json.NewDecoder(file).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	for i := range cfg.AI.Providers {
		p := &cfg.AI.Providers[i]
		envName, ok := apiKeyEnv[strings.ToLower(strings.TrimSpace(p.Provider))]
		if !ok {
			continue
		}
		if p.Data == nil {
			p.Data = map[string]interface{}{}
		}
		if key, _ := p.Data["api_key"].(string); strings.TrimSpace(key) != "" {
			continue
		}
		if val := strings.TrimSpace(os.Getenv(envName)); val != "" {
			p.Data["api_key"] = val
		}
	}
}

func (c *Config) Validate() error {
	if c.LogConfig.Level == "" {
		c.LogConfig.Level = "info"
	}
	switch c.DB.Driver {
	case "":
		c.DB.Driver = "sqlite"
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("db.driver must be sqlite or postgres")
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("db.dsn is required")
	}
	if len(c.AI.Providers) == 0 {
		return fmt.Errorf("ai.providers is required")
	}
	for i, p := range c.AI.Providers {
		if strings.TrimSpace(p.Provider) == "" {
			return fmt.Errorf("ai.providers[%d].provider is required", i)
		}
		if strings.TrimSpace(p.Model) == "" {
			return fmt.Errorf("ai.providers[%d].model is required", i)
		}
	}
	for name, t := range map[string]float64{
		"chat_temperature":    c.AI.ChatTemperature,
		"rag_temperature":     c.AI.RAGTemperature,
		"summary_temperature": c.AI.SummaryTemperature,
	} {
		if t < 0 || t > 2 {
			return fmt.Errorf("ai.%s must be within [0, 2]", name)
		}
	}
	if c.AI.Timeout < 0 {
		return fmt.Errorf("ai.timeout must not be negative")
	}
	if c.Memory.ShortTermTurns < 0 {
		return fmt.Errorf("memory.short_term_turns must not be negative")
	}
	if c.Memory.SummaryWindow <= 0 {
		return fmt.Errorf("memory.summary_window must be positive")
	}
	if c.Memory.LongTermSummaries <= 0 {
		return fmt.Errorf("memory.long_term_summaries must be positive")
	}
	if c.RAG.TopK <= 0 {
		c.RAG.TopK = 3
	}
	switch c.EmbedCache.Type {
	case "":
		c.EmbedCache.Type = "file"
	case "file", "db":
	default:
		return fmt.Errorf("embed_cache.type must be file or db")
	}
	if c.EmbedCache.Type == "file" && c.EmbedCache.FileStore.Type == "" {
		return fmt.Errorf("embed_cache.file_store.type is required for file cache")
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Jobs.EmbeddingCacheMaxAgeDays <= 0 {
		c.Jobs.EmbeddingCacheMaxAgeDays = 30
	}
	return nil
}

// HasCredential reports whether at least one provider has an api key.
func (c *AIConfig) HasCredential() bool {
	for _, p := range c.Providers {
		if key, _ := p.Data["api_key"].(string); strings.TrimSpace(key) != "" {
			return true
		}
	}
	return false
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"avvai/internal/constants"
	"avvai/internal/utils"
)

// Config holds everything the server and setup commands need.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Asset     AssetConfig     `yaml:"asset"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Index     IndexConfig     `yaml:"index"`
	LLM       LLMConfig       `yaml:"llm"`
}

type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowOrigins   []string `yaml:"allow_origins"`
	MaxQueryLength int      `yaml:"max_query_length"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// AssetConfig describes the fine-tuned embedding model cached on disk. An empty RepoID disables the check.
type AssetConfig struct {
	RepoID         string   `yaml:"repo_id"`
	CacheDir       string   `yaml:"cache_dir"`
	Endpoint       string   `yaml:"endpoint"`
	Token          string   `yaml:"-"`
	IgnorePatterns []string `yaml:"ignore_patterns"`
}

type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // openai | ollama | gemini | tfidf
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"-"`
}

type CorpusConfig struct {
	Paths []string `yaml:"paths"`
}

type IndexConfig struct {
	Backend          string `yaml:"backend"` // chromem | qdrant
	TopK             int    `yaml:"top_k"`
	QdrantAddr       string `yaml:"qdrant_addr"`
	QdrantCollection string `yaml:"qdrant_collection"`
}

// APIKey - One numbered credential slot, e.g. GOOGLE_API_KEY_2
type APIKey struct {
	Slot  string
	Value string
}

type LLMConfig struct {
	Provider   string   `yaml:"provider"` // gemini | openai
	Model      string   `yaml:"model"`
	BaseURL    string   `yaml:"base_url"`
	KeyPrefix  string   `yaml:"key_prefix"`
	KeySlots   int      `yaml:"key_slots"`
	PromptFile string   `yaml:"prompt_file"`
	Keys       []APIKey `yaml:"-"`
}

// Load reads .env (if present), then the optional YAML file, then lets the environment override both.
func Load(envFilePath, yamlPath string) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	cfg := defaultConfig()
	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(cfg, os.LookupEnv)
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8000,
			AllowOrigins:   []string{"*"},
			MaxQueryLength: 1000,
		},
		Log: LogConfig{Level: "info", Pretty: true},
		Asset: AssetConfig{
			RepoID:         constants.ModelRepoID,
			CacheDir:       constants.ModelCacheDir,
			Endpoint:       "https://huggingface.co",
			IgnorePatterns: []string{"*.msgpack", "*.h5"},
		},
		Embedding: EmbeddingConfig{
			Provider: "openai",
			BaseURL:  "http://localhost:8080/v1",
			APIKey:   "unused",
		},
		Corpus: CorpusConfig{Paths: []string{constants.CorpusFile}},
		Index: IndexConfig{
			Backend:          "chromem",
			TopK:             constants.MaxResultsLimit,
			QdrantAddr:       "localhost:6334", // 6333 is the http port
			QdrantCollection: constants.CollectionName,
		},
		LLM: LLMConfig{
			Provider:  "gemini",
			KeyPrefix: "GOOGLE_API_KEY",
			KeySlots:  3,
		},
	}
}

func applyEnv(cfg *Config, lookupEnv func(string) (string, bool)) {
	env := envReader{lookupEnv: lookupEnv}

	cfg.Server.Host = env.str("HOST", cfg.Server.Host)
	cfg.Server.Port = env.integer("PORT", cfg.Server.Port)
	cfg.Server.AllowOrigins = env.list("CORS_ORIGINS", cfg.Server.AllowOrigins)
	cfg.Server.MaxQueryLength = env.integer("MAX_QUERY_LENGTH", cfg.Server.MaxQueryLength)

	cfg.Log.Level = env.str("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Pretty = env.boolean("LOG_PRETTY", cfg.Log.Pretty)

	if v, ok := env.lookup("HF_REPO_ID"); ok {
		cfg.Asset.RepoID = v // may be blank on purpose
	}
	cfg.Asset.CacheDir = env.str("MODEL_CACHE_DIR", cfg.Asset.CacheDir)
	cfg.Asset.Endpoint = strings.TrimRight(env.str("HF_ENDPOINT", cfg.Asset.Endpoint), "/")
	cfg.Asset.Token = env.str("HF_TOKEN", cfg.Asset.Token)

	cfg.Embedding.Provider = strings.ToLower(env.str("EMBEDDING_PROVIDER", cfg.Embedding.Provider))
	cfg.Embedding.BaseURL = env.str("EMBEDDING_BASE_URL", cfg.Embedding.BaseURL)
	cfg.Embedding.Model = env.str("EMBEDDING_MODEL", cfg.Embedding.Model)
	cfg.Embedding.APIKey = env.str("EMBEDDING_API_KEY", cfg.Embedding.APIKey)
	// the sidecar serves the cached fine-tuned model under its repo id
	if cfg.Embedding.Model == "" && (cfg.Embedding.Provider == "openai" || cfg.Embedding.Provider == "ollama") {
		cfg.Embedding.Model = cfg.Asset.RepoID
	}

	cfg.Corpus.Paths = env.list("CORPUS_PATHS", cfg.Corpus.Paths)

	cfg.Index.Backend = strings.ToLower(env.str("INDEX_BACKEND", cfg.Index.Backend))
	cfg.Index.TopK = env.integer("INDEX_TOP_K", cfg.Index.TopK)
	cfg.Index.QdrantAddr = env.str("QDRANT_ADDR", cfg.Index.QdrantAddr)
	cfg.Index.QdrantCollection = env.str("QDRANT_COLLECTION", cfg.Index.QdrantCollection)
	if cfg.Index.TopK <= 0 {
		cfg.Index.TopK = constants.MaxResultsLimit
	}

	cfg.LLM.Provider = strings.ToLower(env.str("LLM_PROVIDER", cfg.LLM.Provider))
	cfg.LLM.Model = env.str("LLM_MODEL", cfg.LLM.Model)
	// other providers serve their own model names, so only gemini gets one for free
	if cfg.LLM.Model == "" && (cfg.LLM.Provider == "gemini" || cfg.LLM.Provider == "") {
		cfg.LLM.Model = constants.ChatModel
	}
	cfg.LLM.BaseURL = env.str("LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.KeyPrefix = env.str("LLM_KEY_PREFIX", cfg.LLM.KeyPrefix)
	cfg.LLM.KeySlots = env.integer("LLM_KEY_SLOTS", cfg.LLM.KeySlots)
	cfg.LLM.PromptFile = env.str("PROMPT_FILE", cfg.LLM.PromptFile)
	cfg.LLM.Keys = DiscoverKeys(cfg.LLM.KeyPrefix, cfg.LLM.KeySlots, env.get)
}

// DiscoverKeys collects <prefix>_1..<prefix>_slots. Empty slots are skipped. The bare <prefix> is only
// consulted when no numbered slot is set, and never joins the rotation alongside them.
func DiscoverKeys(prefix string, slots int, getenv func(string) string) []APIKey {
	var keys []APIKey
	for i := 1; i <= slots; i++ {
		slot := prefix + "_" + strconv.Itoa(i)
		if value := strings.TrimSpace(getenv(slot)); value != "" {
			keys = append(keys, APIKey{Slot: slot, Value: value})
		}
	}
	if len(keys) == 0 {
		if value := strings.TrimSpace(getenv(prefix)); value != "" {
			keys = append(keys, APIKey{Slot: prefix, Value: value})
		}
	}
	return keys
}

// Addr - host:port for echo
func (c *Config) Addr() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

type envReader struct {
	lookupEnv func(string) (string, bool)
}

func (e envReader) lookup(key string) (string, bool) {
	value, ok := e.lookupEnv(key)
	return strings.TrimSpace(value), ok
}

func (e envReader) get(key string) string {
	value, _ := e.lookup(key)
	return value
}

func (e envReader) str(key, defaultValue string) string {
	if value, ok := e.lookup(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func (e envReader) integer(key string, defaultValue int) int {
	if value, ok := e.lookup(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func (e envReader) boolean(key string, defaultValue bool) bool {
	if value, ok := e.lookup(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func (e envReader) list(key string, defaultValue []string) []string {
	if value, ok := e.lookup(key); ok {
		if items := utils.SplitList(value); len(items) > 0 {
			return items
		}
	}
	return defaultValue
}

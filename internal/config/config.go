package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override, e.g. SWIFTME_SERVER_PORT.
const EnvPrefix = "SWIFTME_"

// ConfigPathEnv names an explicit YAML config file.
const ConfigPathEnv = "SWIFTME_CONFIG"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	LLM       LLMConfig       `koanf:"llm"`
	Ollama    OllamaConfig    `koanf:"ollama"`
	OpenAI    OpenAIConfig    `koanf:"openai"`
	Gemini    GeminiConfig    `koanf:"gemini"`
	Retrieval RetrievalConfig `koanf:"retrieval"`
	Storage   StorageConfig   `koanf:"storage"`
	History   HistoryConfig   `koanf:"history"`
	Log       LogConfig       `koanf:"log"`
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// Addr is the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type LLMConfig struct {
	Provider             string        `koanf:"provider"`
	AnalyzerModel        string        `koanf:"analyzer_model"`
	GeneratorModel       string        `koanf:"generator_model"`
	EmbedModel           string        `koanf:"embed_model"`
	AnalyzerTemperature  float64       `koanf:"analyzer_temperature"`
	GeneratorTemperature float64       `koanf:"generator_temperature"`
	ExtractTimeout       time.Duration `koanf:"extract_timeout"`
	GenerateTimeout      time.Duration `koanf:"generate_timeout"`
}

type OllamaConfig struct {
	BaseURL  string `koanf:"base_url"`
	AutoPull bool   `koanf:"auto_pull"`
}

type OpenAIConfig struct {
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
}

type GeminiConfig struct {
	APIKey string `koanf:"api_key"`
}

type RetrievalConfig struct {
	IndexDir     string `koanf:"index_dir"`
	ChunkSize    int    `koanf:"chunk_size"`
	ChunkOverlap int    `koanf:"chunk_overlap"`
	TopK         int    `koanf:"top_k"`
	Metric       string `koanf:"metric"`
}

type StorageConfig struct {
	DataDir string `koanf:"data_dir"`
}

type HistoryConfig struct {
	Capacity int `koanf:"capacity"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func defaults() Config {
	return Config{
		Server: ServerConfig{Host: "127.0.0.1", Port: 8000},
		LLM: LLMConfig{
			Provider:             "ollama",
			AnalyzerModel:        "llama3:8b-instruct",
			GeneratorModel:       "llama2:7b",
			EmbedModel:           "nomic-embed-text",
			AnalyzerTemperature:  0,
			GeneratorTemperature: 0.7,
			ExtractTimeout:       60 * time.Second,
			GenerateTimeout:      180 * time.Second,
		},
		Ollama: OllamaConfig{
			BaseURL:  "http://localhost:11434",
			AutoPull: true,
		},
		Retrieval: RetrievalConfig{
			ChunkSize:    1000,
			ChunkOverlap: 200,
			TopK:         3,
			Metric:       "l2",
		},
		Storage: StorageConfig{DataDir: defaultDataDir()},
		History: HistoryConfig{Capacity: 5},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds a Config by layering, from lowest to highest precedence:
//  1. built-in defaults
//  2. the YAML file named by SWIFTME_CONFIG, or
//     $XDG_CONFIG_HOME/swiftme/config.yaml when it exists
//  3. SWIFTME_* environment variables
//
// An empty retrieval.index_dir resolves to <storage.data_dir>/index.
func Load() (Config, error) {
	return loadFrom(FilePath())
}

func loadFrom(path string) (Config, error) {
	k := koanf.New(".")

	def := defaults()
	for _, s := range specs {
		if err := k.Set(s.key, s.extract(def)); err != nil {
			return Config{}, fmt.Errorf("setting default %s: %w", s.key, err)
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return Config{}, fmt.Errorf("loading config file %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.Retrieval.IndexDir == "" {
		cfg.Retrieval.IndexDir = filepath.Join(cfg.Storage.DataDir, "index")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the rest of the program cannot run with.
func (c Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.LLM.Provider) {
	case "ollama", "openai", "gemini":
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q must be one of ollama, openai, gemini", c.LLM.Provider))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Retrieval.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.chunk_size must be positive, got %d", c.Retrieval.ChunkSize))
	}
	if c.Retrieval.ChunkOverlap < 0 || c.Retrieval.ChunkOverlap >= c.Retrieval.ChunkSize {
		errs = append(errs, fmt.Errorf("retrieval.chunk_overlap %d must be in [0, chunk_size)", c.Retrieval.ChunkOverlap))
	}
	if c.Retrieval.TopK <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK))
	}
	switch c.Retrieval.Metric {
	case "cosine", "l2":
	default:
		errs = append(errs, fmt.Errorf("retrieval.metric %q must be cosine or l2", c.Retrieval.Metric))
	}
	if c.History.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("history.capacity must be positive, got %d", c.History.Capacity))
	}
	if c.LLM.ExtractTimeout <= 0 || c.LLM.GenerateTimeout <= 0 {
		errs = append(errs, errors.New("llm timeouts must be positive"))
	}
	return errors.Join(errs...)
}

package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kFloat
	kDuration
)

type keySpec struct {
	key     string
	typ     keyType
	secret  bool
	extract func(cfg Config) any
}

// env is the override variable for the key: SWIFTME_ plus the key in
// upper case with dots replaced by underscores.
func (s keySpec) env() string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(s.key, ".", "_"))
}

// parse converts a command-line value into the key's type.
func (s keySpec) parse(raw string) (any, error) {
	switch s.typ {
	case kInt:
		return strconv.Atoi(raw)
	case kBool:
		return strconv.ParseBool(raw)
	case kFloat:
		return strconv.ParseFloat(raw, 64)
	case kDuration:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, err
		}
		return d.String(), nil
	default:
		return raw, nil
	}
}

var specs = []keySpec{
	{key: "server.host", typ: kString, extract: func(c Config) any { return c.Server.Host }},
	{key: "server.port", typ: kInt, extract: func(c Config) any { return c.Server.Port }},

	{key: "llm.provider", typ: kString, extract: func(c Config) any { return c.LLM.Provider }},
	{key: "llm.analyzer_model", typ: kString, extract: func(c Config) any { return c.LLM.AnalyzerModel }},
	{key: "llm.generator_model", typ: kString, extract: func(c Config) any { return c.LLM.GeneratorModel }},
	{key: "llm.embed_model", typ: kString, extract: func(c Config) any { return c.LLM.EmbedModel }},
	{key: "llm.analyzer_temperature", typ: kFloat, extract: func(c Config) any { return c.LLM.AnalyzerTemperature }},
	{key: "llm.generator_temperature", typ: kFloat, extract: func(c Config) any { return c.LLM.GeneratorTemperature }},
	{key: "llm.extract_timeout", typ: kDuration, extract: func(c Config) any { return c.LLM.ExtractTimeout }},
	{key: "llm.generate_timeout", typ: kDuration, extract: func(c Config) any { return c.LLM.GenerateTimeout }},

	{key: "ollama.base_url", typ: kString, extract: func(c Config) any { return c.Ollama.BaseURL }},
	{key: "ollama.auto_pull", typ: kBool, extract: func(c Config) any { return c.Ollama.AutoPull }},

	{key: "openai.api_key", typ: kString, secret: true, extract: func(c Config) any { return c.OpenAI.APIKey }},
	{key: "openai.base_url", typ: kString, extract: func(c Config) any { return c.OpenAI.BaseURL }},
	{key: "gemini.api_key", typ: kString, secret: true, extract: func(c Config) any { return c.Gemini.APIKey }},

	{key: "retrieval.index_dir", typ: kString, extract: func(c Config) any { return c.Retrieval.IndexDir }},
	{key: "retrieval.chunk_size", typ: kInt, extract: func(c Config) any { return c.Retrieval.ChunkSize }},
	{key: "retrieval.chunk_overlap", typ: kInt, extract: func(c Config) any { return c.Retrieval.ChunkOverlap }},
	{key: "retrieval.top_k", typ: kInt, extract: func(c Config) any { return c.Retrieval.TopK }},
	{key: "retrieval.metric", typ: kString, extract: func(c Config) any { return c.Retrieval.Metric }},

	{key: "storage.data_dir", typ: kString, extract: func(c Config) any { return c.Storage.DataDir }},
	{key: "history.capacity", typ: kInt, extract: func(c Config) any { return c.History.Capacity }},

	{key: "log.level", typ: kString, extract: func(c Config) any { return c.Log.Level }},
	{key: "log.format", typ: kString, extract: func(c Config) any { return c.Log.Format }},
}

var envToKey = func() map[string]string {
	m := make(map[string]string, len(specs))
	for _, s := range specs {
		m[s.env()] = s.key
	}
	return m
}()

// envKey maps SWIFTME_LLM_ANALYZER_MODEL to llm.analyzer_model. Variables
// that match no key return "" and are skipped by the env provider.
func envKey(name string) string {
	return envToKey[name]
}

func lookupSpec(key string) (keySpec, error) {
	for _, s := range specs {
		if s.key == key {
			return s, nil
		}
	}
	return keySpec{}, fmt.Errorf("unknown config key: %q", key)
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sheikhmdsamiul/swiftme/internal/api"
	"github.com/sheikhmdsamiul/swiftme/internal/config"
	"github.com/sheikhmdsamiul/swiftme/internal/document"
	"github.com/sheikhmdsamiul/swiftme/internal/engine"
	"github.com/sheikhmdsamiul/swiftme/internal/metrics"
	"github.com/sheikhmdsamiul/swiftme/internal/pipeline"
	"github.com/sheikhmdsamiul/swiftme/internal/proposal"
	"github.com/sheikhmdsamiul/swiftme/internal/requirements"
	"github.com/sheikhmdsamiul/swiftme/internal/retrieval"
	"github.com/sheikhmdsamiul/swiftme/internal/storage"
)

// app holds the wired service and the resources it owns.
type app struct {
	cfg     config.Config
	engine  engine.Engine
	service *pipeline.Service
	metrics *metrics.Manager
	fetch   api.Fetcher

	experience *retrieval.ExperienceStore
	archive    *storage.Store
}

func setupLogging(cfg config.LogConfig, w io.Writer) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler = slog.NewTextHandler(w, opts)
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	}
	slog.SetDefault(slog.New(h))
}

// newApp detects the engine, checks model readiness and wires the pipeline.
// Progress is written to out.
func newApp(ctx context.Context, cfg config.Config, out io.Writer) (*app, error) {
	eng, err := engine.Detect(ctx, engine.DetectConfig{
		Provider:      cfg.LLM.Provider,
		OllamaBaseURL: cfg.Ollama.BaseURL,
		OpenAIAPIKey:  cfg.OpenAI.APIKey,
		OpenAIBaseURL: cfg.OpenAI.BaseURL,
		GeminiAPIKey:  cfg.Gemini.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("detecting inference engine: %w", err)
	}
	models := []string{cfg.LLM.AnalyzerModel, cfg.LLM.GeneratorModel, cfg.LLM.EmbedModel}
	if err := engine.EnsureReady(ctx, eng, models, cfg.Ollama.AutoPull, out); err != nil {
		return nil, err
	}

	metric, err := retrieval.ParseMetric(cfg.Retrieval.Metric)
	if err != nil {
		return nil, err
	}
	experience, err := retrieval.NewExperienceStore(retrieval.StoreConfig{
		Dir:          cfg.Retrieval.IndexDir,
		ChunkSize:    cfg.Retrieval.ChunkSize,
		ChunkOverlap: cfg.Retrieval.ChunkOverlap,
		TopK:         cfg.Retrieval.TopK,
		Metric:       metric,
	}, retrieval.NewEmbedder(eng, cfg.LLM.EmbedModel))
	if err != nil {
		return nil, fmt.Errorf("creating experience store: %w", err)
	}

	archive, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		experience.Close()
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	m := metrics.NewManager(metrics.WithRuntimeCollectors())
	history := proposal.NewHistory(cfg.History.Capacity)
	svc := pipeline.New(pipeline.Config{
		Analyzer: requirements.NewExtractor(eng, cfg.LLM.AnalyzerModel,
			requirements.WithTemperature(cfg.LLM.AnalyzerTemperature)),
		Store: experience,
		Generator: proposal.NewAssembler(eng, cfg.LLM.GeneratorModel,
			proposal.WithTemperature(cfg.LLM.GeneratorTemperature)),
		History:         history,
		Archive:         archive,
		Engine:          eng,
		Metrics:         m,
		ExtractTimeout:  cfg.LLM.ExtractTimeout,
		GenerateTimeout: cfg.LLM.GenerateTimeout,
		TopK:            cfg.Retrieval.TopK,
	})
	if err := svc.RestoreHistory(ctx); err != nil {
		slog.Warn("restoring proposal history failed", "error", err)
	}

	fetchClient := &http.Client{Timeout: 20 * time.Second}
	return &app{
		cfg:     cfg,
		engine:  eng,
		service: svc,
		metrics: m,
		fetch: func(ctx context.Context, url string) (string, error) {
			return document.Fetch(ctx, fetchClient, url)
		},
		experience: experience,
		archive:    archive,
	}, nil
}

func (a *app) Close() {
	if err := a.experience.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing experience index: %v\n", err)
	}
	if err := a.archive.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
	}
}

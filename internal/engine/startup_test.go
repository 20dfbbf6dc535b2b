package engine

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

type mockEngine struct {
	isRunning bool
	models    map[string]bool
	pulled    []string
	pullErr   error
	chatErr   error
}

func (m *mockEngine) Name() string { return "mock" }
func (m *mockEngine) Chat(_ context.Context, _ string, _ []Message, _ ChatOptions) (string, error) {
	return "pong", m.chatErr
}
func (m *mockEngine) Embed(_ context.Context, _ string, _ string) ([]float32, error) {
	return nil, nil
}
func (m *mockEngine) IsRunning(_ context.Context) bool { return m.isRunning }
func (m *mockEngine) ListModels(_ context.Context) ([]string, error) {
	var names []string
	for n := range m.models {
		names = append(names, n)
	}
	return names, nil
}
func (m *mockEngine) HasModel(_ context.Context, name string) bool { return m.models[name] }
func (m *mockEngine) PullModel(_ context.Context, name string, cb func(PullProgress)) error {
	if m.pullErr != nil {
		return m.pullErr
	}
	m.pulled = append(m.pulled, name)
	if cb != nil {
		cb(PullProgress{Status: "downloading", Total: 4, Completed: 2})
		cb(PullProgress{Status: "success"})
	}
	return nil
}

// hostedEngine has no ModelManager methods.
type hostedEngine struct{}

func (hostedEngine) Name() string { return "hosted" }
func (hostedEngine) Chat(context.Context, string, []Message, ChatOptions) (string, error) {
	return "", nil
}
func (hostedEngine) Embed(context.Context, string, string) ([]float32, error) { return nil, nil }

func TestEnsureReady_AllModelsPresent(t *testing.T) {
	m := &mockEngine{isRunning: true, models: map[string]bool{"llama3:8b-instruct": true, "nomic-embed-text": true}}
	err := EnsureReady(context.Background(), m, []string{"llama3:8b-instruct", "nomic-embed-text"}, true, io.Discard)
	if err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	if len(m.pulled) != 0 {
		t.Errorf("pulled = %v, want none", m.pulled)
	}
}

func TestEnsureReady_PullsMissingOnce(t *testing.T) {
	m := &mockEngine{isRunning: true, models: map[string]bool{"llama3:8b-instruct": true}}
	var out bytes.Buffer
	models := []string{"llama3:8b-instruct", "llama2:7b", "llama2:7b", "", "nomic-embed-text"}
	if err := EnsureReady(context.Background(), m, models, true, &out); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	if len(m.pulled) != 2 || m.pulled[0] != "llama2:7b" || m.pulled[1] != "nomic-embed-text" {
		t.Errorf("pulled = %v, want [llama2:7b nomic-embed-text]", m.pulled)
	}
	if !strings.Contains(out.String(), "50%") {
		t.Errorf("progress output %q missing percentage", out.String())
	}
}

func TestEnsureReady_NoAutoPull(t *testing.T) {
	m := &mockEngine{isRunning: true, models: map[string]bool{}}
	err := EnsureReady(context.Background(), m, []string{"llama2:7b"}, false, io.Discard)
	if err == nil {
		t.Fatal("expected error for missing model with auto pull disabled")
	}
	if len(m.pulled) != 0 {
		t.Errorf("pulled = %v, want none", m.pulled)
	}
}

func TestEnsureReady_NotRunning(t *testing.T) {
	m := &mockEngine{isRunning: false}
	err := EnsureReady(context.Background(), m, []string{"llama2:7b"}, true, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "not running") {
		t.Errorf("EnsureReady() error = %v, want not running", err)
	}
}

func TestEnsureReady_PullFailure(t *testing.T) {
	m := &mockEngine{isRunning: true, models: map[string]bool{}, pullErr: errors.New("disk full")}
	err := EnsureReady(context.Background(), m, []string{"llama2:7b"}, true, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("EnsureReady() error = %v, want wrapped pull error", err)
	}
}

func TestEnsureReady_HostedSkipsChecks(t *testing.T) {
	if err := EnsureReady(context.Background(), hostedEngine{}, []string{"gpt-4o-mini"}, true, io.Discard); err != nil {
		t.Errorf("EnsureReady(hosted) = %v, want nil", err)
	}
}

func TestWarmUp_ReportsFailure(t *testing.T) {
	var out bytes.Buffer
	WarmUp(context.Background(), &mockEngine{chatErr: errors.New("boom")}, "llama2:7b", &out)
	if !strings.Contains(out.String(), "warm-up failed") {
		t.Errorf("output = %q, want warm-up failure notice", out.String())
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		cfg     DetectConfig
		want    string
		wantErr bool
	}{
		{cfg: DetectConfig{OllamaBaseURL: "http://localhost:11434"}, want: ProviderOllama},
		{cfg: DetectConfig{Provider: "Ollama"}, want: ProviderOllama},
		{cfg: DetectConfig{Provider: "openai", OpenAIAPIKey: "sk-test"}, want: ProviderOpenAI},
		{cfg: DetectConfig{Provider: "openai", OpenAIBaseURL: "http://localhost:1234/v1"}, want: ProviderOpenAI},
		{cfg: DetectConfig{Provider: "openai"}, wantErr: true},
		{cfg: DetectConfig{Provider: "gemini"}, wantErr: true},
		{cfg: DetectConfig{Provider: "mystery"}, wantErr: true},
	}
	for _, tt := range tests {
		e, err := Detect(context.Background(), tt.cfg)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Detect(%+v) error = nil, want error", tt.cfg)
			}
			continue
		}
		if err != nil {
			t.Errorf("Detect(%+v): %v", tt.cfg, err)
			continue
		}
		if e.Name() != tt.want {
			t.Errorf("Detect(%+v).Name() = %q, want %q", tt.cfg, e.Name(), tt.want)
		}
	}
}

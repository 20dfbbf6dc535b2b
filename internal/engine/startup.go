package engine

import (
	"context"
	"fmt"
	"io"
	"time"
)

// EnsureReady verifies a locally hosted backend before serving. When e
// implements ModelManager it must be reachable; missing models are pulled
// if autoPull is set, with progress written to w, and the first model is
// warmed up so the first request does not pay the load cost. Hosted
// backends pass through unchecked.
func EnsureReady(ctx context.Context, e Engine, models []string, autoPull bool, w io.Writer) error {
	mm, ok := e.(ModelManager)
	if !ok {
		fmt.Fprintf(w, "engine %s: hosted, skipping model checks\n", e.Name())
		return nil
	}
	if !mm.IsRunning(ctx) {
		return fmt.Errorf("%s is not running; start it (e.g. `ollama serve`) and retry", e.Name())
	}

	seen := make(map[string]bool, len(models))
	for _, model := range models {
		if model == "" || seen[model] {
			continue
		}
		seen[model] = true

		if mm.HasModel(ctx, model) {
			fmt.Fprintf(w, "model %s: ready\n", model)
			continue
		}
		if !autoPull {
			return fmt.Errorf("model %s is not installed and auto pull is disabled", model)
		}

		fmt.Fprintf(w, "model %s: pulling...\n", model)
		err := mm.PullModel(ctx, model, func(p PullProgress) {
			if p.Total > 0 {
				fmt.Fprintf(w, "  %s %.0f%%\n", p.Status, float64(p.Completed)/float64(p.Total)*100)
			} else {
				fmt.Fprintf(w, "  %s\n", p.Status)
			}
		})
		if err != nil {
			return fmt.Errorf("pulling model %s: %w", model, err)
		}
		fmt.Fprintf(w, "model %s: ready\n", model)
	}
	return nil
}

// WarmUp sends a trivial prompt so model is resident before real traffic.
// Failures are reported to w and otherwise ignored.
func WarmUp(ctx context.Context, e Engine, model string, w io.Writer) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	fmt.Fprintf(w, "model %s: warming up...\n", model)
	if _, err := e.Chat(ctx, model, []Message{{Role: RoleUser, Content: "ping"}}, ChatOptions{}); err != nil {
		fmt.Fprintf(w, "model %s: warm-up failed (non-fatal): %v\n", model, err)
		return
	}
	fmt.Fprintf(w, "model %s: warm\n", model)
}

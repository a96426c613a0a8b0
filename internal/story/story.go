// Package story holds the instrumented generation flows. Every step runs in
// its own observation so the dashboard shows one nested trace per flow.
package story

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"GeminiTrace/internal/config"
	"GeminiTrace/internal/observe"
)

// ExplainPrompt is sent by Explain.
const ExplainPrompt = "Explain Langfuse in a simple and consice way, suitable for a beginner."

// Generator produces text for a prompt.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Explain asks the model for a beginner explanation of Langfuse. It produces
// one trace named story_generation with a single child observation, story.
func Explain(ctx context.Context, gen Generator) (string, error) {
	return observe.Run(ctx, "story_generation", func(ctx context.Context) (string, error) {
		return observe.Run(ctx, "story", func(ctx context.Context) (string, error) {
			return gen.GenerateText(ctx, ExplainPrompt)
		})
	})
}

// Writer runs the multi-step flows against one generator.
type Writer struct {
	gen      Generator
	logger   *slog.Logger
	progress io.Writer
	now      func() time.Time
	model    string
	location string
}

// Option configures a Writer.
type Option func(*Writer)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Writer) {
		w.logger = logger
	}
}

// WithProgress sets where step announcements are printed.
func WithProgress(out io.Writer) Option {
	return func(w *Writer) {
		w.progress = out
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) {
		w.now = now
	}
}

// WithModel records the model and location in trace metadata.
func WithModel(model, location string) Option {
	return func(w *Writer) {
		w.model = model
		w.location = location
	}
}

// NewWriter creates a Writer.
func NewWriter(gen Generator, opts ...Option) *Writer {
	w := &Writer{
		gen:      gen,
		logger:   slog.Default(),
		progress: io.Discard,
		now:      time.Now,
		model:    config.DefaultModel,
		location: config.DefaultLocation,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Writer) announce(format string, args ...any) {
	fmt.Fprintf(w.progress, format+"\n", args...)
}

func (w *Writer) timestamp() string {
	return w.now().Format(time.DateTime)
}

// decodeJSON parses a model reply that may be wrapped in a markdown code fence.
func decodeJSON(text string, v any) error {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return json.Unmarshal([]byte(cleaned), v)
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

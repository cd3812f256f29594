package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/richinex/seoscout/internal/llmtext"
	"github.com/richinex/seoscout/llm"
	"github.com/richinex/seoscout/logging"
)

const narrativePrompt = `You are a senior SEO analyst writing for a site owner.
The user message is a JSON report produced by an automated SEO pipeline:
keywords found in search results, Lighthouse category scores in [0,1],
failing audits (lowest score first) and derived findings. A "partial"
status means later stages did not run; say so and do not invent data.

Write an executive-level markdown document with exactly these sections:
## Key findings
## Prioritised recommendations
## Quick-win checklist

Output only markdown.`

// ErrEmptyNarrative is returned when the provider answers with no text.
var ErrEmptyNarrative = errors.New("provider returned an empty narrative")

// Writer turns a Report into an executive markdown narrative through a
// text-generation provider.
type Writer struct {
	provider llm.Provider
	logger   *slog.Logger
}

// NewWriter creates a narrative writer over provider.
func NewWriter(provider llm.Provider) *Writer {
	return &Writer{
		provider: provider,
		logger:   logging.New("narrative"),
	}
}

// Write asks the provider for a narrative of r.
func (w *Writer) Write(ctx context.Context, r Report) (string, error) {
	payload, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}

	w.logger.Debug("requesting narrative",
		slog.String("provider", w.provider.Name()),
		slog.String("model", w.provider.Model()),
		slog.String("target", r.Target))

	resp, err := w.provider.Complete(ctx, llm.Prompt{System: narrativePrompt, User: string(payload)})
	if err != nil {
		return "", fmt.Errorf("narrative: %w", err)
	}

	text := llmtext.Unfence(resp.Text)
	if text == "" {
		return "", ErrEmptyNarrative
	}
	if resp.Truncated {
		w.logger.Warn("narrative truncated at the token limit",
			slog.String("provider", w.provider.Name()),
			slog.String("target", r.Target))
	}
	if resp.Usage != nil {
		w.logger.Debug("narrative received", slog.Int("total_tokens", int(resp.Usage.Total())))
	}
	return text, nil
}

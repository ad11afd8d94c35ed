package tasks

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"legal-docs/internal/llm"
	"legal-docs/internal/prompt"
)

// Task pairs a prompt template with a gateway and a post-processing step.
// Every failure comes back as an error: a *prompt.MissingVariableError when
// the template cannot be filled, or a *llm.GenerationError for the remote call.
type Task[T any] struct {
	tmpl *prompt.Template
	post func(string) T
	gw   llm.Gateway
	log  *slog.Logger
}

// NewTask binds a template and post-processing function to a gateway.
func NewTask[T any](tmpl *prompt.Template, post func(string) T, gw llm.Gateway, log *slog.Logger) *Task[T] {
	if log == nil {
		log = slog.Default()
	}
	return &Task[T]{tmpl: tmpl, post: post, gw: gw, log: log.With("task", tmpl.Name())}
}

func (t *Task[T]) Name() string { return t.tmpl.Name() }

// Run fills the template, calls the gateway once and post-processes the text.
func (t *Task[T]) Run(ctx context.Context, vars map[string]string) (T, error) {
	var zero T
	p, err := t.tmpl.Format(vars)
	if err != nil {
		return zero, err
	}

	start := time.Now()
	text, err := t.gw.Generate(ctx, p)
	if err != nil {
		var genErr *llm.GenerationError
		if !errors.As(err, &genErr) {
			genErr = &llm.GenerationError{Err: err}
		}
		t.log.Warn("generation failed", "err", err, "duration_ms", time.Since(start).Milliseconds())
		return zero, genErr
	}
	t.log.Debug("generation finished",
		"prompt_chars", len(p),
		"response_chars", len(text),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return t.post(text), nil
}

// Raw returns the response unchanged.
func Raw(s string) string { return s }

// Lines splits the response on newlines, keeping order and blank lines.
func Lines(s string) []string { return strings.Split(s, "\n") }

// JoinChunks renders the ordered chunks as the document text handed to a prompt.
func JoinChunks(chunks []string) string {
	return strings.Join(chunks, "\n\n")
}

package tasks

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"legal-docs/internal/llm"
	"legal-docs/internal/prompt"
)

// ClauseExtractor asks the model for the key clauses of a contract.
type ClauseExtractor struct{ task *Task[string] }

func NewClauseExtractor(gw llm.Gateway, log *slog.Logger) *ClauseExtractor {
	return &ClauseExtractor{task: NewTask(clauseTemplate, Raw, gw, log)}
}

// Extract returns the raw model response.
func (c *ClauseExtractor) Extract(ctx context.Context, chunks []string) (string, error) {
	return c.task.Run(ctx, map[string]string{VarContractText: JoinChunks(chunks)})
}

// Summarizer produces a summary split into lines.
type Summarizer struct{ task *Task[[]string] }

func NewSummarizer(gw llm.Gateway, log *slog.Logger) *Summarizer {
	return &Summarizer{task: NewTask(summaryTemplate, Lines, gw, log)}
}

func (s *Summarizer) Summarize(ctx context.Context, chunks []string) ([]string, error) {
	return s.task.Run(ctx, map[string]string{VarContractText: JoinChunks(chunks)})
}

// DraftGenerator drafts text answering a user query against the contract.
type DraftGenerator struct{ task *Task[[]string] }

func NewDraftGenerator(gw llm.Gateway, log *slog.Logger) *DraftGenerator {
	return &DraftGenerator{task: NewTask(draftTemplate, Lines, gw, log)}
}

// Draft fails with a *prompt.MissingVariableError when query is blank.
func (d *DraftGenerator) Draft(ctx context.Context, query string, chunks []string) ([]string, error) {
	vars := map[string]string{VarChunk: JoinChunks(chunks)}
	if q := strings.TrimSpace(query); q != "" {
		vars[VarUserQuery] = q
	}
	return d.task.Run(ctx, vars)
}

// Suite bundles the three task modules behind one gateway.
type Suite struct {
	Clauses *ClauseExtractor
	Summary *Summarizer
	Draft   *DraftGenerator
}

func NewSuite(gw llm.Gateway, log *slog.Logger) *Suite {
	return &Suite{
		Clauses: NewClauseExtractor(gw, log),
		Summary: NewSummarizer(gw, log),
		Draft:   NewDraftGenerator(gw, log),
	}
}

// DraftRequiresQuery reports whether err is the blank-query failure of Draft.
func DraftRequiresQuery(err error) bool {
	var mv *prompt.MissingVariableError
	return errors.As(err, &mv) && mv.Name == VarUserQuery
}

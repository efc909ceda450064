// Package evaluator asks the text-generation service whether activity
// matches a goal, whether it stays on topic, and for block summaries.
// Service failures never surface as errors: judgments become Unknown and
// summaries fall back to FallbackSummary.
package evaluator

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/fakeyudi/focustrail/internal/aggregate"
	"github.com/fakeyudi/focustrail/internal/session"
	"github.com/fakeyudi/focustrail/internal/textgen"
)

// FallbackSummary is returned when no summary could be generated.
const FallbackSummary = "Summary unavailable."

// Judgment is the outcome of a binary evaluation.
type Judgment int

const (
	Unknown Judgment = iota
	Yes
	No
)

func (j Judgment) String() string {
	switch j {
	case Yes:
		return "true"
	case No:
		return "false"
	default:
		return "unknown"
	}
}

// ParseJudgment accepts exactly "true" or "false" after trimming
// surrounding whitespace. Anything else is Unknown.
func ParseJudgment(text string) Judgment {
	switch strings.TrimSpace(text) {
	case "true":
		return Yes
	case "false":
		return No
	default:
		return Unknown
	}
}

// Evaluator builds prompts and interprets responses.
type Evaluator struct {
	gen    textgen.Generator
	logger *slog.Logger
}

// New returns an Evaluator backed by gen. A nil logger uses slog.Default.
func New(gen textgen.Generator, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{gen: gen, logger: logger}
}

// GoalRelevance reports whether s supports goal.
func (e *Evaluator) GoalRelevance(ctx context.Context, goal string, s *session.Session, asOf time.Time) Judgment {
	if strings.TrimSpace(goal) == "" {
		return Unknown
	}
	return e.judge(ctx, "goal", GoalPrompt(goal, s, asOf))
}

// Consistency reports whether next is consistent with the majority of prior.
func (e *Evaluator) Consistency(ctx context.Context, prior []session.Session, next *session.Session, asOf time.Time) Judgment {
	if len(prior) == 0 {
		return Unknown
	}
	return e.judge(ctx, "consistency", ConsistencyPrompt(prior, next, asOf))
}

// Summary returns a generated recap of r, or FallbackSummary.
func (e *Evaluator) Summary(ctx context.Context, r *aggregate.FocusRecord, asOf time.Time) string {
	if e.gen == nil {
		return FallbackSummary
	}
	out, err := e.gen.Generate(ctx, []textgen.Message{
		textgen.System(summarySystemPrompt),
		textgen.User(SummaryPrompt(r, asOf)),
	})
	if err != nil {
		e.logger.Warn("summary generation failed", "error", err)
		return FallbackSummary
	}
	if out = strings.TrimSpace(out); out == "" {
		return FallbackSummary
	}
	return out
}

func (e *Evaluator) judge(ctx context.Context, kind, prompt string) Judgment {
	if e.gen == nil {
		return Unknown
	}
	out, err := e.gen.Generate(ctx, []textgen.Message{
		textgen.System(judgeSystemPrompt),
		textgen.User(prompt),
	})
	if err != nil {
		e.logger.Warn("evaluation failed", "kind", kind, "error", err)
		return Unknown
	}
	j := ParseJudgment(out)
	if j == Unknown {
		e.logger.Debug("indeterminate evaluation response", "kind", kind, "response", out)
	}
	return j
}

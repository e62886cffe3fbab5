package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/SheetSQL/internal/observability"
	"go.uber.org/zap"
)

// Result is the outcome of one generation call: Success or Failure.
type Result interface {
	isResult()
}

// Success carries the trimmed text returned by the model.
type Success struct {
	Text string
}

// Failure carries an operator-facing diagnostic.
type Failure struct {
	Reason string
}

func (Success) isResult() {}
func (Failure) isResult() {}

// Generator wraps a Provider so that every call ends in a Result.
type Generator struct {
	provider Provider
	timeout  time.Duration
	logger   *zap.Logger
}

// NewGenerator returns a Generator. A non-positive timeout disables the
// per-call deadline.
func NewGenerator(provider Provider, timeout time.Duration, logger *zap.Logger) *Generator {
	return &Generator{
		provider: provider,
		timeout:  timeout,
		logger:   logger.With(zap.String("provider", provider.Name())),
	}
}

// Generate makes exactly one provider call. Errors, empty output and panics
// are logged and returned as Failure; nothing is retried.
func (g *Generator) Generate(ctx context.Context, req GenerationRequest) (res Result) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = g.fail(fmt.Errorf("provider panic: %v", r), start)
		}
	}()

	text, err := g.provider.Complete(ctx, req)
	if err != nil {
		return g.fail(err, start)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return g.fail(errors.New("empty completion"), start)
	}

	elapsed := time.Since(start)
	observability.ObserveGeneration(g.provider.Name(), "success", elapsed)
	g.logger.Debug("generation succeeded",
		zap.Duration("duration", elapsed),
		zap.Int("chars", len(text)),
	)
	return Success{Text: text}
}

func (g *Generator) fail(err error, start time.Time) Failure {
	elapsed := time.Since(start)
	observability.ObserveGeneration(g.provider.Name(), "failure", elapsed)
	g.logger.Error("generation failed",
		zap.Duration("duration", elapsed),
		zap.Error(err),
	)
	return Failure{Reason: err.Error()}
}

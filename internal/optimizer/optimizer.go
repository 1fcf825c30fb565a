// Package optimizer forwards Power Query M code to a text-generation model and
// decodes the optimization it proposes.
package optimizer

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/goodtune/pqoptimizer/internal/metrics"
	"github.com/rs/zerolog"
)

// Optimizer submits code to a Generator and validates its answer.
type Optimizer struct {
	gen    Generator
	model  string
	logger zerolog.Logger
}

// New creates an optimizer. A nil gen means no credentials are configured; every
// submission then fails with KindConfiguration.
func New(gen Generator, model string, logger zerolog.Logger) *Optimizer {
	return &Optimizer{
		gen:    gen,
		model:  model,
		logger: logger.With().Str("component", "optimizer").Logger(),
	}
}

// Model returns the configured model name.
func (o *Optimizer) Model() string {
	return o.model
}

// Configured reports whether a generator is available.
func (o *Optimizer) Configured() bool {
	return o.gen != nil
}

// Submit optimizes code. Failures are always *Error. There is no retry; ctx bounds
// the provider round trip.
func (o *Optimizer) Submit(ctx context.Context, code string) (*Result, error) {
	start := time.Now()

	result, err := o.submit(ctx, code)

	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = KindOf(err).Outcome()
	}
	elapsed := time.Since(start)
	metrics.OptimizeRequests.WithLabelValues(outcome).Inc()
	metrics.OptimizeDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())

	if err != nil {
		o.logger.Warn().
			Err(err).
			Str("kind", KindOf(err).String()).
			Dur("duration", elapsed).
			Msg("Optimization failed")
		return nil, err
	}

	o.logger.Info().
		Int("original_steps", result.Metrics.OriginalSteps).
		Int("optimized_steps", result.Metrics.OptimizedSteps).
		Int("improvements", len(result.Improvements)).
		Dur("duration", elapsed).
		Msg("Optimization completed")

	return result, nil
}

func (o *Optimizer) submit(ctx context.Context, code string) (*Result, error) {
	if strings.TrimSpace(code) == "" {
		return nil, &Error{
			Kind:    KindValidation,
			Message: "Power Query code is required",
		}
	}

	if o.gen == nil {
		return nil, &Error{
			Kind:    KindConfiguration,
			Message: "Gemini API key is not configured",
			Details: "Set GEMINI_API_KEY (or gemini.api_key in the config file) and restart the server.",
		}
	}

	o.logger.Debug().Str("model", o.model).Int("code_bytes", len(code)).Msg("Submitting code to model")

	text, err := o.gen.Generate(ctx, o.model, Prompt(code))
	if err != nil {
		return nil, Classify(err, o.model)
	}

	return decode(text)
}

// decode extracts and validates the result embedded in model output.
func decode(text string) (*Result, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, &Error{
			Kind:    KindResponseShape,
			Message: "Could not parse response from AI",
			Details: "The model response did not contain a JSON object.",
			Err:     err,
		}
	}

	var result Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, &Error{
			Kind:    KindResponseShape,
			Message: "Could not parse response from AI",
			Details: "The model response contained malformed JSON.",
			Err:     err,
		}
	}

	if strings.TrimSpace(result.OptimizedCode) == "" {
		return nil, &Error{
			Kind:    KindResponseShape,
			Message: "Could not parse response from AI",
			Details: "The model response did not include optimized code.",
		}
	}

	if result.Improvements == nil {
		result.Improvements = []Improvement{}
	}
	if result.Warnings == nil {
		result.Warnings = []string{}
	}
	return &result, nil
}

package llm

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// MetricsRecorder receives generation outcomes for instrumentation. A nil
// recorder disables recording. Defined here so the llm package does not
// depend on the observability package.
type MetricsRecorder interface {
	// RecordGeneration records one provider call with its outcome
	// ("success" or "error") and duration.
	RecordGeneration(provider, outcome string, duration time.Duration)
	// RecordFailover records a failover from one provider to another.
	RecordFailover(from, to string)
}

// FallbackGateway implements TextGenerator over a primary provider with
// bounded retries and an optional single-shot secondary provider. When both
// fail, the primary's original error is returned; the secondary's error is
// only logged.
type FallbackGateway struct {
	primary   TextGenerator
	secondary TextGenerator
	retry     RetryPolicy
	logger    zerolog.Logger
	metrics   MetricsRecorder
}

// NewFallbackGateway creates a gateway over primary with the given retry
// policy. secondary may be nil, in which case primary exhaustion is final.
func NewFallbackGateway(primary, secondary TextGenerator, retry RetryPolicy, logger zerolog.Logger, metrics MetricsRecorder) *FallbackGateway {
	return &FallbackGateway{
		primary:   primary,
		secondary: secondary,
		retry:     retry,
		logger:    logger.With().Str("component", "llm_gateway").Logger(),
		metrics:   metrics,
	}
}

// Generate validates the request, runs the primary provider under the retry
// policy, and on exhaustion makes one attempt against the secondary provider
// with MaxTokens clamped to the secondary's output limit.
func (g *FallbackGateway) Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var result *GenerationResult
	primaryErr := g.retry.Do(ctx, func(ctx context.Context, attempt int) error {
		start := time.Now()
		res, err := g.primary.Generate(ctx, req)
		g.record(g.primary.Provider(), err, time.Since(start))
		if err != nil {
			g.logger.Warn().
				Err(err).
				Str("provider", g.primary.Provider()).
				Int("attempt", attempt).
				Msg("generation attempt failed")
			return err
		}
		result = res
		return nil
	})
	if primaryErr == nil {
		return result, nil
	}

	if g.secondary == nil {
		return nil, primaryErr
	}

	g.logger.Warn().
		Err(primaryErr).
		Str("from", g.primary.Provider()).
		Str("to", g.secondary.Provider()).
		Msg("primary provider exhausted, failing over")
	if g.metrics != nil {
		g.metrics.RecordFailover(g.primary.Provider(), g.secondary.Provider())
	}

	fallbackReq := req
	if limit := g.secondary.MaxOutputTokens(); fallbackReq.MaxTokens > limit {
		fallbackReq.MaxTokens = limit
	}

	start := time.Now()
	res, secondaryErr := g.secondary.Generate(ctx, fallbackReq)
	g.record(g.secondary.Provider(), secondaryErr, time.Since(start))
	if secondaryErr != nil {
		// The caller sees the primary's error; the secondary failure is
		// an implementation detail of the failover path.
		g.logger.Error().
			Err(secondaryErr).
			Str("provider", g.secondary.Provider()).
			Msg("secondary provider failed")
		return nil, primaryErr
	}

	return res, nil
}

// Provider returns the primary provider's name.
func (g *FallbackGateway) Provider() string {
	return g.primary.Provider()
}

// Model returns the primary provider's model identifier.
func (g *FallbackGateway) Model() string {
	return g.primary.Model()
}

// MaxOutputTokens returns the primary provider's output limit.
func (g *FallbackGateway) MaxOutputTokens() int {
	return g.primary.MaxOutputTokens()
}

func (g *FallbackGateway) record(provider string, err error, duration time.Duration) {
	if g.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	g.metrics.RecordGeneration(provider, outcome, duration)
}

var _ TextGenerator = (*FallbackGateway)(nil)

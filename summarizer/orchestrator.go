// Package summarizer decides how a piece of content gets summarized: through
// the generative API with key rotation and model degradation, or through the
// extractive fallback when the API is unavailable.
package summarizer

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/vereoman/better-summerize/extractive"
	"github.com/vereoman/better-summerize/llm"
	"github.com/vereoman/better-summerize/models"
	"github.com/vereoman/better-summerize/ratelimit"
)

// VerbatimThreshold is the length below which content is returned as is.
const VerbatimThreshold = 200

type Config struct {
	StandardModel string
	DegradedModel string
	Temperature   float32
	MaxTokens     int
	// CallTimeout bounds each generative call. Expiry is a retryable error.
	CallTimeout time.Duration
	RotateDelay time.Duration
	RetryDelay  time.Duration
}

func DefaultConfig() Config {
	return Config{
		StandardModel: "gemini-1.5-pro",
		DegradedModel: "gemini-1.0-pro",
		Temperature:   0.4,
		MaxTokens:     2048,
		CallTimeout:   60 * time.Second,
		RotateDelay:   500 * time.Millisecond,
		RetryDelay:    time.Second,
	}
}

type Option func(*Orchestrator)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithSleep replaces the delay between rounds.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) { o.sleep = sleep }
}

func WithLogger(logger *logrus.Entry) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

type Orchestrator struct {
	gen     llm.Generator
	limiter *ratelimit.Limiter
	cfg     Config
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
	logger  *logrus.Entry
}

func New(gen llm.Generator, limiter *ratelimit.Limiter, cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gen:     gen,
		limiter: limiter,
		cfg:     cfg,
		now:     time.Now,
		sleep:   sleepContext,
		logger:  logrus.WithField("component", "summarizer"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) Limiter() *ratelimit.Limiter {
	return o.limiter
}

// Summarize always returns a result. The worst case is the extractive fallback.
func (o *Orchestrator) Summarize(ctx context.Context, req models.SummarizationRequest) models.SummarizationResult {
	const op = "Orchestrator.Summarize"
	logger := o.logger.WithFields(logrus.Fields{
		"op":            op,
		"content_type":  req.ContentType,
		"metadata_only": req.IsMetadataOnly,
	})

	if !o.limiter.IsAvailable(o.now()) {
		logger.Info("API in cooldown, using extractive summary")
		return o.fallback(req)
	}

	if utf8.RuneCountInString(req.Content) < VerbatimThreshold {
		return models.SummarizationResult{Text: req.Content, Source: models.SourceVerbatim}
	}

	pool := o.limiter.Pool()
	rounds := max(pool.Size(), 2)
	prompt := BuildPrompt(req.Content, req.ContentType, req.IsMetadataOnly)

	for attempt := 1; attempt <= rounds; attempt++ {
		if ctx.Err() != nil || !o.limiter.IsAvailable(o.now()) {
			break
		}

		key, idx := pool.Current()
		model := o.modelFor(o.limiter.SelectTier())
		logger.WithFields(logrus.Fields{
			"attempt": attempt,
			"max":     rounds,
			"key":     idx + 1,
			"keys":    pool.Size(),
			"model":   model,
		}).Info("Summarization attempt")

		text, err := o.call(ctx, llm.Request{
			APIKey:      key,
			Model:       model,
			Prompt:      prompt,
			Temperature: o.cfg.Temperature,
			MaxTokens:   o.cfg.MaxTokens,
		})
		if err == nil {
			o.limiter.RecordSuccess()
			logger.WithField("chars", utf8.RuneCountInString(text)).Info("Generated summary")
			if req.IsMetadataOnly {
				text = AnnotateMetadataOnly(text)
			}
			return models.SummarizationResult{Text: text, Source: models.SourceGenerated}
		}

		if llm.IsQuota(err) {
			if o.limiter.RecordQuotaError(idx, o.now(), err) == ratelimit.CooledDown {
				return o.fallback(req)
			}
			if attempt < rounds && o.sleep(ctx, o.cfg.RotateDelay) != nil {
				break
			}
			continue
		}

		logger.WithError(err).WithField("attempt", attempt).Warn("Generative call failed")
		if attempt < rounds {
			if pool.Size() > 1 {
				pool.RotateFrom(idx)
			}
			if o.sleep(ctx, o.cfg.RetryDelay) != nil {
				break
			}
		}
	}

	logger.Warn("Summarization rounds exhausted, using extractive summary")
	return o.fallback(req)
}

func (o *Orchestrator) fallback(req models.SummarizationRequest) models.SummarizationResult {
	return models.SummarizationResult{
		Text:   extractive.Summarize(req.Content, req.ContentType),
		Source: models.SourceExtractive,
	}
}

func (o *Orchestrator) modelFor(tier ratelimit.ModelTier) string {
	if tier == ratelimit.TierDegraded {
		return o.cfg.DegradedModel
	}
	return o.cfg.StandardModel
}

// call runs one generative request under CallTimeout. A failure after the
// call's context ended is reported as that context error, never as quota.
func (o *Orchestrator) call(ctx context.Context, req llm.Request) (string, error) {
	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if o.cfg.CallTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, o.cfg.CallTimeout)
	}
	defer cancel()

	text, err := o.gen.GenerateText(callCtx, req)
	if err != nil && callCtx.Err() != nil {
		return "", errors.Wrapf(callCtx.Err(), "generative call %s interrupted", req.Model)
	}
	return text, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

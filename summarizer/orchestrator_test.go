package summarizer

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/status"

	"github.com/vereoman/better-summerize/llm"
	"github.com/vereoman/better-summerize/models"
	"github.com/vereoman/better-summerize/ratelimit"
)

type step struct {
	text string
	err  error
}

// scriptedGenerator replays steps in order and records every request.
type scriptedGenerator struct {
	mu    sync.Mutex
	steps []step
	calls []llm.Request
}

func (g *scriptedGenerator) GenerateText(_ context.Context, req llm.Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, req)
	if len(g.steps) == 0 {
		return "", errors.New("no scripted response")
	}
	s := g.steps[0]
	g.steps = g.steps[1:]
	return s.text, s.err
}

type fixture struct {
	gen     *scriptedGenerator
	limiter *ratelimit.Limiter
	orch    *Orchestrator
	now     time.Time
	sleeps  []time.Duration
}

func newFixture(t *testing.T, keys []string, steps ...step) *fixture {
	t.Helper()
	pool, err := ratelimit.NewKeyPool(keys)
	require.NoError(t, err)

	f := &fixture{
		gen:     &scriptedGenerator{steps: steps},
		limiter: ratelimit.NewLimiter(pool),
		now:     time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	f.orch = New(f.gen, f.limiter, DefaultConfig(),
		WithClock(func() time.Time { return f.now }),
		WithSleep(func(_ context.Context, d time.Duration) error {
			f.sleeps = append(f.sleeps, d)
			return nil
		}),
	)
	return f
}

func quota() error { return &llm.QuotaError{Err: errors.New("429 Too Many Requests")} }

var longText = strings.Repeat("The lecture covers distributed consensus in depth. ", 20)

func TestSummarizeShortContentIsVerbatim(t *testing.T) {
	f := newFixture(t, []string{"k1"}, step{text: "unused"})

	res := f.orch.Summarize(context.Background(), models.SummarizationRequest{Content: "tiny note", ContentType: models.ContentText})
	assert.Equal(t, models.SourceVerbatim, res.Source)
	assert.Equal(t, "tiny note", res.Text)
	assert.Empty(t, f.gen.calls)
}

func TestSummarizeSuccess(t *testing.T) {
	f := newFixture(t, []string{"k1", "k2"}, step{text: "model summary"})

	res := f.orch.Summarize(context.Background(), models.SummarizationRequest{Content: longText, ContentType: models.ContentLecture})
	assert.Equal(t, models.SourceGenerated, res.Source)
	assert.Equal(t, "model summary", res.Text)

	require.Len(t, f.gen.calls, 1)
	call := f.gen.calls[0]
	assert.Equal(t, "k1", call.APIKey)
	assert.Equal(t, "gemini-1.5-pro", call.Model)
	assert.InDelta(t, 0.4, call.Temperature, 1e-6)
	assert.Equal(t, 2048, call.MaxTokens)
	assert.Contains(t, call.Prompt, "Summarize this lecture concisely:")
}

func TestSummarizeMetadataOnlyIsAnnotated(t *testing.T) {
	f := newFixture(t, []string{"k1"}, step{text: "about a talk"})

	res := f.orch.Summarize(context.Background(), models.SummarizationRequest{
		Content:        longText,
		ContentType:    models.ContentLecture,
		IsMetadataOnly: true,
	})
	assert.Equal(t, models.SourceGenerated, res.Source)
	assert.True(t, strings.HasPrefix(res.Text, "# Summary Based on Limited Metadata"))
	assert.True(t, strings.HasSuffix(res.Text, "about a talk"))
	assert.Contains(t, f.gen.calls[0].Prompt, "Summarize this video metadata:")
}

func TestSummarizeQuotaRotatesThenSucceeds(t *testing.T) {
	f := newFixture(t, []string{"k1", "k2", "k3"}, step{err: quota()}, step{text: "ok"})

	res := f.orch.Summarize(context.Background(), models.SummarizationRequest{Content: longText, ContentType: models.ContentBook})
	assert.Equal(t, models.SourceGenerated, res.Source)

	require.Len(t, f.gen.calls, 2)
	assert.Equal(t, "k1", f.gen.calls[0].APIKey)
	assert.Equal(t, "k2", f.gen.calls[1].APIKey)
	assert.Equal(t, []time.Duration{500 * time.Millisecond}, f.sleeps)

	st := f.limiter.Snapshot(f.now)
	assert.Zero(t, st.ErrorCount)
	assert.Nil(t, st.CooldownUntil)
}

func TestSummarizeSingleKeyQuotaEntersCooldown(t *testing.T) {
	f := newFixture(t, []string{"only"}, step{err: quota()}, step{text: "never"})

	res := f.orch.Summarize(context.Background(), models.SummarizationRequest{Content: longText, ContentType: models.ContentText})
	assert.Equal(t, models.SourceExtractive, res.Source)
	assert.Len(t, f.gen.calls, 1)

	st := f.limiter.Snapshot(f.now)
	require.NotNil(t, st.CooldownUntil)
	assert.Equal(t, f.now.Add(time.Minute), *st.CooldownUntil)
}

func TestSummarizeDuringCooldownMakesNoCalls(t *testing.T) {
	f := newFixture(t, []string{"only"}, step{err: quota()})
	f.orch.Summarize(context.Background(), models.SummarizationRequest{Content: longText})
	calls := len(f.gen.calls)

	f.now = f.now.Add(30 * time.Second)
	res := f.orch.Summarize(context.Background(), models.SummarizationRequest{Content: longText, ContentType: models.ContentNotes})
	assert.Equal(t, models.SourceExtractive, res.Source)
	assert.Len(t, f.gen.calls, calls)

	short := f.orch.Summarize(context.Background(), models.SummarizationRequest{Content: "short", ContentType: models.ContentText})
	assert.Equal(t, models.SourceExtractive, short.Source)
}

func TestSummarizeAfterCooldownExpiresResets(t *testing.T) {
	f := newFixture(t, []string{"only"}, step{err: quota()}, step{text: "back online"})
	f.orch.Summarize(context.Background(), models.SummarizationRequest{Content: longText})

	f.now = f.now.Add(time.Minute)
	res := f.orch.Summarize(context.Background(), models.SummarizationRequest{Content: longText})
	assert.Equal(t, models.SourceGenerated, res.Source)

	st := f.limiter.Snapshot(f.now)
	assert.Zero(t, st.ErrorCount)
	assert.Nil(t, st.CooldownUntil)
}

func TestSummarizeOtherErrorsExhaustRounds(t *testing.T) {
	boom := errors.New("connection reset")
	f := newFixture(t, []string{"only"}, step{err: boom}, step{err: boom}, step{err: boom})

	res := f.orch.Summarize(context.Background(), models.SummarizationRequest{Content: longText})
	assert.Equal(t, models.SourceExtractive, res.Source)
	require.Len(t, f.gen.calls, 2)
	assert.Equal(t, "only", f.gen.calls[1].APIKey)
	assert.Equal(t, []time.Duration{time.Second}, f.sleeps)
	assert.Zero(t, f.limiter.Snapshot(f.now).ErrorCount)
}

func TestSummarizeOtherErrorRotatesMultiKey(t *testing.T) {
	f := newFixture(t, []string{"k1", "k2"}, step{err: errors.New("timeout")}, step{text: "ok"})

	res := f.orch.Summarize(context.Background(), models.SummarizationRequest{Content: longText})
	assert.Equal(t, models.SourceGenerated, res.Source)
	require.Len(t, f.gen.calls, 2)
	assert.Equal(t, "k2", f.gen.calls[1].APIKey)
	assert.Equal(t, []time.Duration{time.Second}, f.sleeps)
}

func TestSummarizeDegradesModelAfterRepeatedQuota(t *testing.T) {
	f := newFixture(t, []string{"k1", "k2", "k3", "k4"},
		step{err: quota()}, step{err: quota()}, step{err: quota()}, step{text: "cheap"})

	res := f.orch.Summarize(context.Background(), models.SummarizationRequest{Content: longText})
	assert.Equal(t, models.SourceGenerated, res.Source)
	require.Len(t, f.gen.calls, 4)
	assert.Equal(t, "gemini-1.5-pro", f.gen.calls[2].Model)
	assert.Equal(t, "gemini-1.0-pro", f.gen.calls[3].Model)
}

func TestSummarizeCancelledContext(t *testing.T) {
	f := newFixture(t, []string{"k1", "k2"}, step{text: "never"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := f.orch.Summarize(ctx, models.SummarizationRequest{Content: longText})
	assert.Equal(t, models.SourceExtractive, res.Source)
	assert.Empty(t, f.gen.calls)
}

// blockingGenerator waits for the call context to end and then fails with
// fail(ctx), counting every call.
func blockingGenerator(calls *atomic.Int32, fail func(ctx context.Context, req llm.Request) error) llm.Generator {
	return llm.GeneratorFunc(func(ctx context.Context, req llm.Request) (string, error) {
		calls.Add(1)
		<-ctx.Done()
		return "", fail(ctx, req)
	})
}

func newTimeoutOrchestrator(t *testing.T, gen llm.Generator) (*Orchestrator, *ratelimit.Limiter) {
	t.Helper()
	pool, err := ratelimit.NewKeyPool([]string{"only"})
	require.NoError(t, err)
	limiter := ratelimit.NewLimiter(pool)

	cfg := DefaultConfig()
	cfg.CallTimeout = 10 * time.Millisecond
	orch := New(gen, limiter, cfg, WithSleep(func(context.Context, time.Duration) error { return nil }))
	return orch, limiter
}

func TestSummarizeCallTimeoutIsNotQuota(t *testing.T) {
	var calls atomic.Int32
	gen := blockingGenerator(&calls, func(ctx context.Context, req llm.Request) error {
		return llm.Classify(errors.Wrapf(status.FromContextError(ctx.Err()).Err(), "gemini %s", req.Model))
	})
	orch, limiter := newTimeoutOrchestrator(t, gen)

	res := orch.Summarize(context.Background(), models.SummarizationRequest{Content: longText, ContentType: models.ContentText})
	assert.Equal(t, models.SourceExtractive, res.Source)
	assert.EqualValues(t, 2, calls.Load())

	st := limiter.Snapshot(time.Now())
	assert.Zero(t, st.ErrorCount)
	assert.False(t, st.InCooldown)
	assert.Nil(t, st.CooldownUntil)
	assert.True(t, limiter.IsAvailable(time.Now()))
}

func TestSummarizeQuotaLookingErrorAfterTimeoutIsNotQuota(t *testing.T) {
	var calls atomic.Int32
	gen := blockingGenerator(&calls, func(context.Context, llm.Request) error {
		return quota()
	})
	orch, limiter := newTimeoutOrchestrator(t, gen)

	orch.Summarize(context.Background(), models.SummarizationRequest{Content: longText, ContentType: models.ContentText})
	assert.EqualValues(t, 2, calls.Load())
	assert.Zero(t, limiter.Snapshot(time.Now()).ErrorCount)
	assert.True(t, limiter.IsAvailable(time.Now()))
}

func TestBuildPromptPerContentType(t *testing.T) {
	tests := []struct {
		ct   models.ContentType
		meta bool
		want string
	}{
		{models.ContentLecture, false, "Summarize this lecture concisely:"},
		{models.ContentLecture, true, "Summarize this video metadata:"},
		{models.ContentBook, false, "Summarize this book content briefly:"},
		{models.ContentBook, true, "Summarize this book content briefly:"},
		{models.ContentNotes, false, "Organize these notes concisely:"},
		{models.ContentText, false, "Summarize this text concisely:"},
		{"", false, "Summarize this text concisely:"},
	}
	for _, tt := range tests {
		t.Run(string(tt.ct), func(t *testing.T) {
			p := BuildPrompt("BODY", tt.ct, tt.meta)
			assert.True(t, strings.HasPrefix(p, tt.want))
			assert.Contains(t, p, "BODY")
		})
	}
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}

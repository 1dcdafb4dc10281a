package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type generateCall struct {
	model  string
	prompt string
	opts   GenerationOptions
}

type scriptedResult struct {
	text string
	err  error
}

// fakeGenerator replays a script of results and records every call.
type fakeGenerator struct {
	calls  []generateCall
	script []scriptedResult
}

func (f *fakeGenerator) GenerateText(_ context.Context, model, prompt string, opts GenerationOptions) (string, error) {
	f.calls = append(f.calls, generateCall{model: model, prompt: prompt, opts: opts})
	if len(f.script) == 0 {
		return "ok", nil
	}
	r := f.script[0]
	f.script = f.script[1:]
	return r.text, r.err
}

// newTestGeminiService builds a controller with pacing and retry delays
// neutralized; sleeps are recorded instead of taken.
func newTestGeminiService(gen Generator) (*GeminiService, *[]time.Duration) {
	var sleeps []time.Duration
	svc := NewGeminiService(gen)
	svc.minRequestInterval = 0
	svc.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	return svc, &sleeps
}

func quotaErr() error {
	return classifyModelError(errors.New("googleapi: Error 429: quota exceeded for model"))
}

func TestAskSwitchesToFallbackOnQuota(t *testing.T) {
	gen := &fakeGenerator{script: []scriptedResult{
		{err: quotaErr()},
		{text: "fallback answer"},
	}}
	svc, _ := newTestGeminiService(gen)
	state := NewSessionStore(DefaultModel).Get("")

	answer := svc.Ask(context.Background(), state, "prompt", 0.2, "")

	assert.Equal(t, "fallback answer", answer)
	require.Len(t, gen.calls, 2)
	assert.Equal(t, DefaultModel, gen.calls[0].model)
	assert.Equal(t, FallbackModel, gen.calls[1].model)
	assert.Equal(t, FallbackModel, state.ActiveModel())
}

func TestAskNeverRetriesPrimaryAfterFallback(t *testing.T) {
	gen := &fakeGenerator{script: []scriptedResult{
		{err: quotaErr()},
		{text: "first"},
		{text: "second"},
	}}
	svc, _ := newTestGeminiService(gen)
	state := NewSessionStore(DefaultModel).Get("")

	svc.Ask(context.Background(), state, "one", 0.2, "")
	svc.Ask(context.Background(), state, "two", 0.2, "")

	require.Len(t, gen.calls, 3)
	// The second question goes straight to the fallback model.
	assert.Equal(t, FallbackModel, gen.calls[2].model)
}

func TestAskQuotaOnFallbackDoesNotSwitchAgain(t *testing.T) {
	q := quotaErr()
	gen := &fakeGenerator{script: []scriptedResult{
		{err: q}, {err: q}, {err: q}, {err: q},
	}}
	svc, sleeps := newTestGeminiService(gen)
	state := NewSessionStore(DefaultModel).Get("")

	answer := svc.Ask(context.Background(), state, "prompt", 0.2, "")

	// One free switch to the fallback, then quota errors count against
	// the attempt budget like any other failure.
	require.Len(t, gen.calls, 4)
	assert.Equal(t, DefaultModel, gen.calls[0].model)
	for _, c := range gen.calls[1:] {
		assert.Equal(t, FallbackModel, c.model)
	}
	assert.Contains(t, answer, "I apologize")
	assert.Len(t, *sleeps, 2)
}

func TestAskRetriesTransientThenReturnsDiagnostic(t *testing.T) {
	transient := errors.New("connection reset by peer")
	gen := &fakeGenerator{script: []scriptedResult{
		{err: transient}, {err: transient}, {err: transient},
	}}
	svc, sleeps := newTestGeminiService(gen)
	state := NewSessionStore(DefaultModel).Get("")

	answer := svc.Ask(context.Background(), state, "prompt", 0.2, "")

	assert.Len(t, gen.calls, 3)
	assert.Contains(t, answer, "I apologize, but I encountered an error")
	assert.Contains(t, answer, "connection reset")
	assert.Len(t, *sleeps, 2)
	for _, d := range *sleeps {
		assert.Equal(t, defaultRetryDelay, d)
	}
	// The failing session stays on its model; transient errors never
	// trigger the fallback switch.
	assert.Equal(t, DefaultModel, state.ActiveModel())
}

func TestAskDiagnosticTruncationKeepsValidUTF8(t *testing.T) {
	// An error message carrying multibyte text must not be cut mid-rune
	// when embedded in the diagnostic answer.
	long := errors.New("अनुरोध विफल " + strings.Repeat("त्रुटि ", 60))
	gen := &fakeGenerator{script: []scriptedResult{
		{err: long}, {err: long}, {err: long},
	}}
	svc, _ := newTestGeminiService(gen)
	state := NewSessionStore(DefaultModel).Get("")

	answer := svc.Ask(context.Background(), state, "prompt", 0.2, "")

	assert.True(t, utf8.ValidString(answer))
	assert.Contains(t, answer, "...")
}

func TestAskSafetyBlockedReturnsAdvisory(t *testing.T) {
	gen := &fakeGenerator{script: []scriptedResult{
		{err: classifyModelError(errors.New("response blocked by safety settings"))},
	}}
	svc, _ := newTestGeminiService(gen)
	state := NewSessionStore(DefaultModel).Get("")

	answer := svc.Ask(context.Background(), state, "prompt", 0.2, "")

	assert.Equal(t, safetyAdvisory, answer)
	assert.Len(t, gen.calls, 1)
}

func TestAskModelOverrideWins(t *testing.T) {
	gen := &fakeGenerator{}
	svc, _ := newTestGeminiService(gen)
	state := NewSessionStore(DefaultModel).Get("")

	svc.Ask(context.Background(), state, "prompt", 0.7, "gemini-2.5-pro")

	require.Len(t, gen.calls, 1)
	assert.Equal(t, "gemini-2.5-pro", gen.calls[0].model)
	assert.InDelta(t, 0.7, gen.calls[0].opts.Temperature, 1e-9)
}

func TestAskEnforcesMinimumInterval(t *testing.T) {
	gen := &fakeGenerator{}
	svc := NewGeminiService(gen)
	svc.minRequestInterval = 60 * time.Millisecond
	state := NewSessionStore(DefaultModel).Get("")

	start := time.Now()
	svc.Ask(context.Background(), state, "one", 0.2, "")
	svc.Ask(context.Background(), state, "two", 0.2, "")
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
}

func TestClassifyModelError(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want error
	}{
		{"quota keyword", "per-day quota exhausted", ErrQuotaExceeded},
		{"429 status", "googleapi: Error 429: too many requests", ErrQuotaExceeded},
		{"rate limit", "rate limit reached", ErrQuotaExceeded},
		{"safety keyword", "candidate blocked for safety reasons", ErrSafetyBlocked},
		{"transient", "connection refused", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyModelError(errors.New(tt.msg))
			if tt.want == nil {
				assert.False(t, errors.Is(got, ErrQuotaExceeded))
				assert.False(t, errors.Is(got, ErrSafetyBlocked))
			} else {
				assert.ErrorIs(t, got, tt.want)
			}
		})
	}
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"google.golang.org/genai"
)

// GenerationOptions carries the per-call knobs forwarded to the model.
type GenerationOptions struct {
	Temperature float64
}

// Generator is the minimal surface of the LLM API the controller needs.
// The real implementation wraps the Gemini client; tests substitute fakes.
type Generator interface {
	GenerateText(ctx context.Context, model, prompt string, opts GenerationOptions) (string, error)
}

// geminiGenerator adapts google.golang.org/genai to the Generator interface
// and translates API failures into the typed taxonomy.
type geminiGenerator struct {
	client *genai.Client
}

// NewGeminiGenerator wraps a Gemini client.
func NewGeminiGenerator(client *genai.Client) Generator {
	return &geminiGenerator{client: client}
}

// permissiveSafetySettings sets every safety category to its most
// permissive threshold. Legal questions routinely trip the default
// filters (criminal procedure, violence in case facts).
func permissiveSafetySettings() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}
	settings := make([]*genai.SafetySetting, 0, len(categories))
	for _, c := range categories {
		settings = append(settings, &genai.SafetySetting{
			Category:  c,
			Threshold: genai.HarmBlockThresholdBlockNone,
		})
	}
	return settings
}

// GenerateText issues one generation request and returns the response text.
func (g *geminiGenerator) GenerateText(ctx context.Context, model, prompt string, opts GenerationOptions) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(opts.Temperature)),
		TopP:            genai.Ptr(float32(0.95)),
		TopK:            genai.Ptr(float32(40)),
		MaxOutputTokens: 8192,
		SafetySettings:  permissiveSafetySettings(),
	}

	result, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), config)
	if err != nil {
		return "", classifyModelError(fmt.Errorf("gemini api call failed: %w", err))
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", classifyModelError(errors.New("gemini returned an empty response (candidate blocked)"))
	}

	var sb strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		if p.Text != "" {
			sb.WriteString(p.Text)
		}
	}
	return sb.String(), nil
}

const (
	// DefaultModel is the primary Gemini model identifier.
	DefaultModel = "gemini-2.5-flash"
	// FallbackModel is used after a quota failure, for the rest of the
	// session.
	FallbackModel = "gemini-2.5-flash-lite"

	defaultMinRequestInterval = 1200 * time.Millisecond
	defaultMaxAttempts        = 3
	defaultRetryDelay         = 2 * time.Second
	defaultTemperature        = 0.2

	safetyAdvisory = "I'm not able to answer that as phrased. Please rephrase your question and I'll try again."
)

// GeminiService wraps a single logical "ask the model" operation with rate
// limiting, bounded retries, and a one-time downgrade to the fallback model
// on quota errors. Every path returns a displayable string; no error
// escapes to the caller.
type GeminiService struct {
	generator Generator

	defaultModel       string
	fallbackModel      string
	minRequestInterval time.Duration
	maxAttempts        int
	retryDelay         time.Duration

	// injectable for tests
	now   func() time.Time
	sleep func(time.Duration)
}

// NewGeminiService builds the controller with production defaults.
func NewGeminiService(generator Generator) *GeminiService {
	return &GeminiService{
		generator:          generator,
		defaultModel:       DefaultModel,
		fallbackModel:      FallbackModel,
		minRequestInterval: defaultMinRequestInterval,
		maxAttempts:        defaultMaxAttempts,
		retryDelay:         defaultRetryDelay,
		now:                time.Now,
		sleep:              time.Sleep,
	}
}

// Ask sends the prompt to the model and returns the answer text, or a
// user-facing diagnostic when all attempts fail.
//
// Model selection: explicit override > the session's active model > the
// configured default. A quota failure on a non-fallback model switches the
// session to the fallback and retries once with the same prompt; the
// session stays on the fallback afterwards.
func (g *GeminiService) Ask(ctx context.Context, state *SessionState, prompt string, temperature float64, modelOverride string) string {
	// Self-imposed pacing: block the caller until the minimum interval
	// since the session's previous call has elapsed. The stamp advances
	// even if the call below fails.
	if wait := state.ReserveRequestSlot(g.now(), g.minRequestInterval); wait > 0 {
		g.sleep(wait)
	}

	model := modelOverride
	if model == "" {
		model = state.ActiveModel()
	}
	if model == "" {
		model = g.defaultModel
	}

	attempt := 0
	for {
		text, err := g.generator.GenerateText(ctx, model, prompt, GenerationOptions{Temperature: temperature})
		if err == nil {
			return text
		}

		switch {
		case errors.Is(err, ErrSafetyBlocked):
			log.Printf("SERVICE: safety filter blocked response on %s", model)
			return safetyAdvisory

		case errors.Is(err, ErrQuotaExceeded) && model != g.fallbackModel:
			log.Printf("SERVICE: quota exhausted on %s, switching session %s to %s", model, state.ID(), g.fallbackModel)
			model = g.fallbackModel
			state.SwitchModel(model)
			continue

		default:
			attempt++
			if attempt >= g.maxAttempts {
				log.Printf("SERVICE: giving up after %d attempts on %s: %v", attempt, model, err)
				return fmt.Sprintf("I apologize, but I encountered an error: %s. Please try again or rephrase your question.", truncateError(err, 160))
			}
			log.Printf("SERVICE: attempt %d on %s failed, retrying: %v", attempt, model, err)
			g.sleep(g.retryDelay)
		}
	}
}

package analysis

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/audioinsight/audioinsight-back/internal/ai"
	"github.com/audioinsight/audioinsight-back/internal/cache"
	"github.com/audioinsight/audioinsight-back/internal/domain"
	"github.com/audioinsight/audioinsight-back/internal/policy"
)

// Transcripts longer than the per-stage input budget are truncated before
// prompting. Budget is in tokens, approximated at four characters per token.
const transcriptTokenBudget = 6000

type EngineDependencies struct {
	Router *ai.ModelRouter
	Client ai.TextGenerator
	Cache  *cache.AnalysisCache
	Logger *log.Logger
}

// Engine runs one LLM analysis pass per stage over a meeting transcript.
// Every public method is total: on any failure it returns the stage's
// degraded default along with the error so the caller can record it.
type Engine struct {
	router *ai.ModelRouter
	client ai.TextGenerator
	cache  *cache.AnalysisCache
	logger *log.Logger
}

func NewEngine(deps EngineDependencies) *Engine {
	if deps.Router == nil {
		deps.Router = ai.NewModelRouter(ai.ModelRouterConfig{})
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewAnalysisCache(cache.Config{})
	}
	return &Engine{
		router: deps.Router,
		client: deps.Client,
		cache:  deps.Cache,
		logger: deps.Logger,
	}
}

// generateJSON resolves the model profile for the task, consults the cache,
// and otherwise calls the provider with primary/fallback model selection.
// The returned bytes are a validated JSON document.
func (e *Engine) generateJSON(ctx context.Context, task ai.TaskKind, prompt, transcript string) ([]byte, error) {
	signature := cache.Signature(string(task), transcript)
	if cached, ok := e.cache.Get(signature); ok {
		return cached.Value, nil
	}

	if e.client == nil || !e.client.Available() {
		return nil, ai.ErrModelUnavailable
	}

	profile := e.router.Select(task)
	text, modelID, err := e.generateText(ctx, profile, prompt)
	if err != nil {
		return nil, err
	}

	payload, err := ai.ExtractJSON(text)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", task, err)
	}

	e.cache.Set(signature, cache.Entry{Value: payload, ModelID: modelID})
	return payload, nil
}

func (e *Engine) generateText(ctx context.Context, profile ai.ModelProfile, prompt string) (string, string, error) {
	primaryResult, err := e.client.Generate(ctx, ai.GenerateRequest{
		Model:           profile.PrimaryModel,
		Instructions:    "Return only valid JSON. Do not use markdown code fences.",
		Input:           prompt,
		Temperature:     profile.Temperature,
		MaxOutputTokens: profile.MaxOutputTokens,
	})
	if err == nil {
		return primaryResult.Text, firstNonEmpty(primaryResult.ModelID, profile.PrimaryModel), nil
	}

	if strings.TrimSpace(profile.FallbackModel) == "" || profile.FallbackModel == profile.PrimaryModel {
		return "", "", err
	}

	fallbackResult, fallbackErr := e.client.Generate(ctx, ai.GenerateRequest{
		Model:           profile.FallbackModel,
		Instructions:    "Return only valid JSON. Do not use markdown code fences.",
		Input:           prompt,
		Temperature:     profile.Temperature,
		MaxOutputTokens: profile.MaxOutputTokens,
	})
	if fallbackErr != nil {
		return "", "", fmt.Errorf("primary model failed: %v; fallback failed: %w", err, fallbackErr)
	}
	return fallbackResult.Text, firstNonEmpty(fallbackResult.ModelID, profile.FallbackModel), nil
}

// PrepareTranscript masks PII and enforces the input token budget. The same
// prepared text feeds all three stages so their cache signatures agree.
func PrepareTranscript(transcript domain.Transcript) string {
	masked := policy.MaskTranscript(transcript.Text)
	return truncateToTokenBudget(masked, transcriptTokenBudget)
}

func truncateToTokenBudget(text string, tokenBudget int) string {
	maxChars := tokenBudget * 4
	if len(text) <= maxChars {
		return text
	}

	cut := text[:maxChars]
	if lastSpace := strings.LastIndexByte(cut, ' '); lastSpace > maxChars/2 {
		cut = cut[:lastSpace]
	}
	// The byte cut can land mid-rune; drop any trailing partial rune.
	for len(cut) > 0 {
		r, size := utf8.DecodeLastRuneInString(cut)
		if r != utf8.RuneError || size > 1 {
			break
		}
		cut = cut[:len(cut)-1]
	}
	return cut + "\n[transcript truncated]"
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func (e *Engine) logf(format string, args ...any) {
	if e.logger == nil {
		return
	}
	e.logger.Printf(format, args...)
}

package ai

import "strings"

type TaskKind string

const (
	TaskContentAnalysis TaskKind = "content_analysis"
	TaskActionItems     TaskKind = "action_items"
	TaskInsights        TaskKind = "insights"
)

type ModelProfile struct {
	PrimaryModel    string
	FallbackModel   string
	Temperature     float64
	MaxOutputTokens int
}

type ModelRouterConfig struct {
	ContentPrimary  string
	ContentFallback string

	ActionItemsPrimary  string
	ActionItemsFallback string

	InsightsPrimary  string
	InsightsFallback string
}

type ModelRouter struct {
	config ModelRouterConfig
}

func NewModelRouter(config ModelRouterConfig) *ModelRouter {
	if strings.TrimSpace(config.ContentPrimary) == "" {
		config.ContentPrimary = "anthropic/claude-3.5-sonnet"
	}
	if strings.TrimSpace(config.ContentFallback) == "" {
		config.ContentFallback = "anthropic/claude-3-haiku"
	}
	if strings.TrimSpace(config.ActionItemsPrimary) == "" {
		config.ActionItemsPrimary = "anthropic/claude-3-haiku"
	}
	if strings.TrimSpace(config.ActionItemsFallback) == "" {
		config.ActionItemsFallback = "openai/gpt-4.1-mini"
	}
	if strings.TrimSpace(config.InsightsPrimary) == "" {
		config.InsightsPrimary = "anthropic/claude-3.5-sonnet"
	}
	if strings.TrimSpace(config.InsightsFallback) == "" {
		config.InsightsFallback = "anthropic/claude-3-haiku"
	}

	return &ModelRouter{config: config}
}

func (r *ModelRouter) Select(task TaskKind) ModelProfile {
	switch task {
	case TaskContentAnalysis:
		return ModelProfile{
			PrimaryModel:    r.config.ContentPrimary,
			FallbackModel:   r.config.ContentFallback,
			Temperature:     0.3,
			MaxOutputTokens: 1200,
		}
	case TaskActionItems:
		return ModelProfile{
			PrimaryModel:    r.config.ActionItemsPrimary,
			FallbackModel:   r.config.ActionItemsFallback,
			Temperature:     0.2,
			MaxOutputTokens: 1000,
		}
	case TaskInsights:
		return ModelProfile{
			PrimaryModel:    r.config.InsightsPrimary,
			FallbackModel:   r.config.InsightsFallback,
			Temperature:     0.5,
			MaxOutputTokens: 1200,
		}
	default:
		return ModelProfile{
			PrimaryModel:    r.config.ContentPrimary,
			FallbackModel:   r.config.ContentFallback,
			Temperature:     0.3,
			MaxOutputTokens: 1200,
		}
	}
}

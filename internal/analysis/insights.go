package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/audioinsight/audioinsight-back/internal/ai"
	"github.com/audioinsight/audioinsight-back/internal/domain"
)

const insightsPromptTemplate = `Review this meeting transcript and respond with JSON only:

{
  "teamDynamics": "one paragraph on collaboration and participation",
  "processRecommendations": ["concrete process improvement"],
  "riskFlags": ["risk or blocker worth escalating"],
  "followUpSuggestions": ["suggested follow-up"]
}

Transcript:
%s`

// GenerateInsights produces the meta-level read on team dynamics and risks.
// On failure it returns the degraded insight default alongside the error.
func (e *Engine) GenerateInsights(ctx context.Context, transcript string) (domain.InsightReport, error) {
	prompt := fmt.Sprintf(insightsPromptTemplate, transcript)
	payload, err := e.generateJSON(ctx, ai.TaskInsights, prompt, transcript)
	if err != nil {
		e.logf("insight generation failed err=%v", err)
		return domain.DegradedInsights(err.Error()), err
	}

	report, err := parseInsightsPayload(payload)
	if err != nil {
		e.logf("insights payload rejected err=%v", err)
		return domain.DegradedInsights(err.Error()), err
	}
	return report, nil
}

func parseInsightsPayload(payload []byte) (domain.InsightReport, error) {
	var decoded struct {
		TeamDynamics                string   `json:"teamDynamics"`
		TeamDynamicsSnake           string   `json:"team_dynamics"`
		ProcessRecommendations      []string `json:"processRecommendations"`
		ProcessRecommendationsSnake []string `json:"process_recommendations"`
		RiskFlags                   []string `json:"riskFlags"`
		RiskFlagsSnake              []string `json:"risk_flags"`
		FollowUpSuggestions         []string `json:"followUpSuggestions"`
		FollowUpSuggestionsSnake    []string `json:"follow_up_suggestions"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return domain.InsightReport{}, fmt.Errorf("decode insights json: %w", err)
	}

	return domain.InsightReport{
		TeamDynamics:           strings.TrimSpace(firstNonEmpty(decoded.TeamDynamics, decoded.TeamDynamicsSnake)),
		ProcessRecommendations: cleanStrings(firstNonEmptyList(decoded.ProcessRecommendations, decoded.ProcessRecommendationsSnake)),
		RiskFlags:              cleanStrings(firstNonEmptyList(decoded.RiskFlags, decoded.RiskFlagsSnake)),
		FollowUpSuggestions:    cleanStrings(firstNonEmptyList(decoded.FollowUpSuggestions, decoded.FollowUpSuggestionsSnake)),
	}, nil
}

func firstNonEmptyList(lists ...[]string) []string {
	for _, list := range lists {
		if len(list) > 0 {
			return list
		}
	}
	return nil
}

func cleanStrings(values []string) []string {
	cleaned := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		cleaned = append(cleaned, trimmed)
	}
	return cleaned
}

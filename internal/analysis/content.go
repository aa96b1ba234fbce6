package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/audioinsight/audioinsight-back/internal/ai"
	"github.com/audioinsight/audioinsight-back/internal/domain"
)

const contentPromptTemplate = `Analyze this meeting transcript and respond with JSON only:

{
  "topics": [{"topic": "name", "summary": "one sentence", "duration_estimate": "5 minutes"}],
  "decisions": [{"decision": "what was decided", "context": "why", "impact": "expected effect"}],
  "meetingType": "standup|planning|review|retrospective|general",
  "effectivenessScore": 0.0
}

effectivenessScore is a number between 0 and 1.

Transcript:
%s`

// AnalyzeContent extracts topics, decisions, and the meeting classification.
// On failure it returns the degraded content default alongside the error.
func (e *Engine) AnalyzeContent(ctx context.Context, transcript string) (domain.Content, error) {
	prompt := fmt.Sprintf(contentPromptTemplate, transcript)
	payload, err := e.generateJSON(ctx, ai.TaskContentAnalysis, prompt, transcript)
	if err != nil {
		e.logf("content analysis failed meeting_type=error err=%v", err)
		return domain.DegradedContent(), err
	}

	content, err := parseContentPayload(payload)
	if err != nil {
		e.logf("content payload rejected err=%v", err)
		return domain.DegradedContent(), err
	}
	return content, nil
}

func parseContentPayload(payload []byte) (domain.Content, error) {
	var decoded struct {
		Topics []struct {
			Topic            string `json:"topic"`
			Title            string `json:"title"`
			Summary          string `json:"summary"`
			Description      string `json:"description"`
			DurationEstimate string `json:"duration_estimate"`
			DurationCamel    string `json:"durationEstimate"`
			TimeDiscussed    string `json:"time_discussed"`
		} `json:"topics"`
		Decisions []struct {
			Decision string `json:"decision"`
			Title    string `json:"title"`
			Context  string `json:"context"`
			Impact   string `json:"impact"`
		} `json:"decisions"`
		MeetingType        string   `json:"meetingType"`
		MeetingTypeSnake   string   `json:"meeting_type"`
		EffectivenessScore *float64 `json:"effectivenessScore"`
		EffectivenessSnake *float64 `json:"effectiveness_score"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return domain.Content{}, fmt.Errorf("decode content json: %w", err)
	}

	content := domain.Content{
		Topics:      make([]domain.Topic, 0, len(decoded.Topics)),
		Decisions:   make([]domain.Decision, 0, len(decoded.Decisions)),
		MeetingType: firstNonEmpty(decoded.MeetingType, decoded.MeetingTypeSnake, "general"),
	}

	for _, item := range decoded.Topics {
		name := firstNonEmpty(item.Topic, item.Title)
		if strings.TrimSpace(name) == "" {
			continue
		}
		content.Topics = append(content.Topics, domain.Topic{
			Topic:            strings.TrimSpace(name),
			Summary:          strings.TrimSpace(firstNonEmpty(item.Summary, item.Description)),
			DurationEstimate: strings.TrimSpace(firstNonEmpty(item.DurationEstimate, item.DurationCamel, item.TimeDiscussed)),
		})
	}

	for _, item := range decoded.Decisions {
		name := firstNonEmpty(item.Decision, item.Title)
		if strings.TrimSpace(name) == "" {
			continue
		}
		content.Decisions = append(content.Decisions, domain.Decision{
			Decision: strings.TrimSpace(name),
			Context:  strings.TrimSpace(item.Context),
			Impact:   strings.TrimSpace(item.Impact),
		})
	}

	score := 0.0
	if decoded.EffectivenessScore != nil {
		score = *decoded.EffectivenessScore
	} else if decoded.EffectivenessSnake != nil {
		score = *decoded.EffectivenessSnake
	}
	content.EffectivenessScore = clampScore(score)

	return content, nil
}

// clampScore maps effectiveness onto [0,1]. Models occasionally answer on a
// ten-point scale despite the template, so values above 1 are divided down.
func clampScore(score float64) float64 {
	if score > 1 {
		score = score / 10
	}
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

package normalize

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/audioinsight/audioinsight-back/internal/domain"
)

func sampleDomainResult() domain.AnalysisResult {
	uploaded := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	return domain.AnalysisResult{
		ID:          "meeting-1",
		Filename:    "standup.wav",
		Status:      domain.StatusCompleted,
		UploadedAt:  uploaded,
		ProcessedAt: uploaded.Add(45 * time.Second),
		Transcript: domain.Transcript{
			Text:             "We planned the sprint.",
			Duration:         272,
			Language:         "en-US",
			ParticipantCount: 3,
			Confidence:       0.85,
		},
		Content: domain.Content{
			Topics:             []domain.Topic{{Topic: "Sprint planning", Summary: "Scoped the sprint.", DurationEstimate: "10 minutes"}},
			Decisions:          []domain.Decision{{Decision: "Ship Friday", Context: "Demo ready", Impact: "Earlier feedback"}},
			MeetingType:        "standup",
			EffectivenessScore: 0.8,
		},
		ActionItems: []domain.ActionItem{{ID: "task_1", Task: "Update roadmap", Assignee: "Sarah", Priority: "high", Status: "pending"}},
		Insights: domain.InsightReport{
			TeamDynamics:           "Balanced participation.",
			ProcessRecommendations: []string{"Timebox demos"},
			RiskFlags:              []string{"Migration behind schedule"},
			FollowUpSuggestions:    []string{"Schedule checkpoint"},
		},
	}
}

func TestNormalizeDomainResult(t *testing.T) {
	result := New(nil).Normalize(sampleDomainResult())

	if result.ID != "meeting-1" || result.Status != "completed" {
		t.Fatalf("unexpected header: %+v", result)
	}
	if result.Transcription != "We planned the sprint." {
		t.Fatalf("transcription not lifted from transcript: %q", result.Transcription)
	}
	if len(result.Content.Topics) != 1 || result.Content.Topics[0].DurationEstimate != "10 minutes" {
		t.Fatalf("unexpected topics: %+v", result.Content.Topics)
	}
	if len(result.Insights) != 3 {
		t.Fatalf("expected teamwork+process+followup insights, got %+v", result.Insights)
	}
	categories := map[string]Insight{}
	for _, insight := range result.Insights {
		categories[insight.Category] = insight
	}
	for _, want := range []string{"teamwork", "process", "followup"} {
		if _, ok := categories[want]; !ok {
			t.Fatalf("missing %s insight in %+v", want, result.Insights)
		}
	}
	if categories["teamwork"].Recommendation != "" {
		t.Fatalf("teamwork insight should carry no recommendation: %+v", categories["teamwork"])
	}
	if categories["process"].Recommendation != "Timebox demos" {
		t.Fatalf("process insight should recommend its own text: %+v", categories["process"])
	}
	if categories["followup"].Recommendation != "Schedule checkpoint" {
		t.Fatalf("followup insight should recommend its own text: %+v", categories["followup"])
	}
	if !reflect.DeepEqual(result.Risks, []string{"Migration behind schedule"}) {
		t.Fatalf("unexpected risks: %+v", result.Risks)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	normalizer := New(nil)
	inputs := []any{
		sampleDomainResult(),
		nil,
		map[string]any{},
		domain.ErrorResult("meeting-9", "dead.wav", "boom", time.Now().UTC()),
	}

	for _, input := range inputs {
		once := normalizer.Normalize(input)
		twice := normalizer.Normalize(once)
		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("normalize is not idempotent for %T:\nonce:  %+v\ntwice: %+v", input, once, twice)
		}
	}
}

func TestNormalizeLegacyKeySpellings(t *testing.T) {
	raw := map[string]any{
		"id":       "meeting-2",
		"filename": "review.mp3",
		"status":   "completed",
		"content": map[string]any{
			"topics": []any{
				map[string]any{"title": "Q3 review", "description": "Numbers look fine.", "time_discussed": "15 minutes"},
			},
			"meeting_type":        "review",
			"effectiveness_score": 0.7,
		},
		"tasks": []any{
			map[string]any{"description": "Send the deck", "owner": "John", "due_date": "Friday", "priority": "URGENT"},
		},
		"insights": map[string]any{
			"team_dynamics": "One person dominated.",
			"risk_flags":    []any{"Budget overrun"},
		},
	}

	result := New(nil).Normalize(raw)

	if result.Content.Topics[0].Topic != "Q3 review" || result.Content.Topics[0].DurationEstimate != "15 minutes" {
		t.Fatalf("legacy topic keys not mapped: %+v", result.Content.Topics)
	}
	if result.Content.MeetingType != "review" || result.Content.EffectivenessScore != 0.7 {
		t.Fatalf("legacy content keys not mapped: %+v", result.Content)
	}
	item := result.ActionItems[0]
	if item.Task != "Send the deck" || item.Assignee != "John" || item.Deadline != "Friday" || item.Priority != "high" {
		t.Fatalf("legacy task keys not mapped: %+v", item)
	}
	if item.ID != "task_1" {
		t.Fatalf("expected assigned id, got %q", item.ID)
	}
	if result.Risks[0] != "Budget overrun" {
		t.Fatalf("snake_case risks not mapped: %+v", result.Risks)
	}
}

func TestNormalizeToleratesWrongTypes(t *testing.T) {
	raw := map[string]any{
		"id":     42.0,
		"status": "completed",
		"transcript": map[string]any{
			"text":             "hello",
			"duration":         "271.5",
			"participantCount": "not a number",
		},
		"content": map[string]any{
			"topics":             "not a list",
			"effectivenessScore": 12.0,
		},
		"actionItems": []any{"just a string", map[string]any{"task": "Real one"}},
		"insights":    "broken",
		"risks":       []any{"ok", 99.0},
	}

	result := New(nil).Normalize(raw)

	if result.ID != "42" {
		t.Fatalf("numeric id should be stringified, got %q", result.ID)
	}
	if result.Transcript.Duration != 271.5 {
		t.Fatalf("string duration should parse, got %f", result.Transcript.Duration)
	}
	if result.Transcript.ParticipantCount != 0 {
		t.Fatalf("bad participant count should default, got %d", result.Transcript.ParticipantCount)
	}
	if len(result.Content.Topics) != 0 || result.Content.Topics == nil {
		t.Fatalf("wrong-typed topics should become empty list: %+v", result.Content.Topics)
	}
	if result.Content.EffectivenessScore != 1 {
		t.Fatalf("score should clamp to 1, got %f", result.Content.EffectivenessScore)
	}
	if len(result.ActionItems) != 1 || result.ActionItems[0].Task != "Real one" {
		t.Fatalf("non-object items should be dropped: %+v", result.ActionItems)
	}
	if len(result.Insights) != 0 || result.Insights == nil {
		t.Fatalf("broken insights should become empty list: %+v", result.Insights)
	}
	if !reflect.DeepEqual(result.Risks, []string{"ok"}) {
		t.Fatalf("non-string risks should be dropped: %+v", result.Risks)
	}
}

func TestNormalizeIsTotal(t *testing.T) {
	normalizer := New(nil)
	inputs := []any{
		nil,
		"just a string",
		[]any{1, 2, 3},
		map[string]any{},
		func() {},
		map[string]any{"insights": []any{nil, 1, "x"}},
	}

	for _, input := range inputs {
		result := normalizer.Normalize(input)
		if result.Status == "" {
			t.Fatalf("normalize returned broken result for %T", input)
		}
		if result.ActionItems == nil || result.Insights == nil || result.Content.Topics == nil {
			t.Fatalf("list fields must never be nil for %T: %+v", input, result)
		}
		if _, err := json.Marshal(result); err != nil {
			t.Fatalf("result not serializable for %T: %v", input, err)
		}
	}
}

func TestNormalizeDefaultsMissingTranscript(t *testing.T) {
	result := New(nil).Normalize(map[string]any{"id": "meeting-4", "status": "completed"})

	if result.Transcript.Text != "No transcript available" || result.Transcription != "No transcript available" {
		t.Fatalf("missing transcript should get placeholder text: %+v", result.Transcript)
	}
	if result.Transcript.ParticipantCount != 1 {
		t.Fatalf("missing participant count should default to 1, got %d", result.Transcript.ParticipantCount)
	}
	if result.Transcript.Language != "en-US" {
		t.Fatalf("missing language should default, got %q", result.Transcript.Language)
	}
}

func TestNormalizeLegacyEffectivenessScale(t *testing.T) {
	normalizer := New(nil)

	legacy := normalizer.Normalize(map[string]any{
		"status":  "completed",
		"content": map[string]any{"effectivenessScore": 7.0},
	})
	if legacy.Content.EffectivenessScore != 0.7 {
		t.Fatalf("ten-point score should scale down, got %f", legacy.Content.EffectivenessScore)
	}

	current := normalizer.Normalize(map[string]any{
		"status":  "completed",
		"content": map[string]any{"effectivenessScore": 0.7},
	})
	if current.Content.EffectivenessScore != 0.7 {
		t.Fatalf("unit-scale score should pass through, got %f", current.Content.EffectivenessScore)
	}
}

func TestNormalizeFlattenedInsightsKeepRecommendations(t *testing.T) {
	result := New(nil).Normalize(map[string]any{
		"status": "completed",
		"insights": []any{
			map[string]any{"category": "process", "insight": "do retros"},
			map[string]any{"category": "teamwork", "insight": "quiet room"},
		},
	})

	if len(result.Insights) != 2 {
		t.Fatalf("unexpected insights: %+v", result.Insights)
	}
	if result.Insights[0].Recommendation != "do retros" {
		t.Fatalf("process entry should recommend its own text: %+v", result.Insights[0])
	}
	if result.Insights[1].Recommendation != "" {
		t.Fatalf("teamwork entry should carry no recommendation: %+v", result.Insights[1])
	}
}

func TestNormalizeFailedResultKeepsErrorShape(t *testing.T) {
	failed := domain.ErrorResult("meeting-3", "broken.wav", "transcription blew up", time.Now().UTC())
	result := New(nil).Normalize(failed)

	if result.Status != "failed" {
		t.Fatalf("unexpected status: %s", result.Status)
	}
	if result.Error != "transcription blew up" {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if len(result.Risks) != 1 {
		t.Fatalf("expected processing failure risk, got %+v", result.Risks)
	}
}

package analysis

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"github.com/audioinsight/audioinsight-back/internal/ai"
	"github.com/audioinsight/audioinsight-back/internal/domain"
)

// scriptedGenerator answers per stage based on the prompt text.
type scriptedGenerator struct {
	calls     atomic.Int32
	content   string
	tasks     string
	insights  string
	failTasks bool
}

func (g *scriptedGenerator) Generate(_ context.Context, request ai.GenerateRequest) (ai.GenerateResult, error) {
	g.calls.Add(1)
	switch {
	case strings.Contains(request.Input, "action item"):
		if g.failTasks {
			return ai.GenerateResult{}, errors.New("provider exploded")
		}
		return ai.GenerateResult{Text: g.tasks, ModelID: request.Model}, nil
	case strings.Contains(request.Input, "teamDynamics"):
		return ai.GenerateResult{Text: g.insights, ModelID: request.Model}, nil
	default:
		return ai.GenerateResult{Text: g.content, ModelID: request.Model}, nil
	}
}

func (g *scriptedGenerator) Available() bool { return true }

const validContentJSON = `{
	"topics": [{"topic": "Sprint planning", "summary": "Scoped the next sprint.", "duration_estimate": "10 minutes"}],
	"decisions": [{"decision": "Ship beta Friday", "context": "Demo went well", "impact": "Earlier feedback"}],
	"meetingType": "planning",
	"effectivenessScore": 0.8
}`

const validTasksJSON = `{"actionItems": [{"task": "Update the roadmap", "assignee": "Sarah", "deadline": "2026-09-01", "priority": "high", "context": "Needed before the review"}]}`

const validInsightsJSON = `{
	"teamDynamics": "Balanced participation across the team.",
	"processRecommendations": ["Timebox the demo section"],
	"riskFlags": ["Backend migration is behind"],
	"followUpSuggestions": ["Schedule a migration checkpoint"]
}`

func testTranscript() domain.Transcript {
	return domain.Transcript{Text: "We planned the sprint and assigned tasks.", Duration: 300, Language: "en-US", ParticipantCount: 3}
}

func newTestEngine(generator ai.TextGenerator) *Engine {
	return NewEngine(EngineDependencies{Client: generator})
}

func TestAnalyzeContentParsesModelOutput(t *testing.T) {
	engine := newTestEngine(&scriptedGenerator{content: validContentJSON})

	content, err := engine.AnalyzeContent(context.Background(), "transcript text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content.MeetingType != "planning" {
		t.Fatalf("unexpected meeting type: %s", content.MeetingType)
	}
	if len(content.Topics) != 1 || content.Topics[0].DurationEstimate != "10 minutes" {
		t.Fatalf("unexpected topics: %+v", content.Topics)
	}
	if len(content.Decisions) != 1 || content.Decisions[0].Decision != "Ship beta Friday" {
		t.Fatalf("unexpected decisions: %+v", content.Decisions)
	}
	if content.EffectivenessScore != 0.8 {
		t.Fatalf("unexpected score: %f", content.EffectivenessScore)
	}
}

func TestAnalyzeContentCachesByTranscript(t *testing.T) {
	generator := &scriptedGenerator{content: validContentJSON}
	engine := newTestEngine(generator)

	for i := 0; i < 3; i++ {
		if _, err := engine.AnalyzeContent(context.Background(), "same transcript"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if calls := generator.calls.Load(); calls != 1 {
		t.Fatalf("expected one provider call, got %d", calls)
	}
}

func TestUnavailableClientDegradesContent(t *testing.T) {
	engine := newTestEngine(nil)

	content, err := engine.AnalyzeContent(context.Background(), "transcript")
	if err == nil {
		t.Fatal("expected error when client is unavailable")
	}
	if content.MeetingType != "error" {
		t.Fatalf("expected degraded meeting type, got %s", content.MeetingType)
	}
	if content.Topics == nil || content.Decisions == nil {
		t.Fatal("degraded content must keep empty slices, not nil")
	}
}

func TestExtractActionItemsAcceptsLegacyShapes(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		task    string
	}{
		{"canonical envelope", validTasksJSON, "Update the roadmap"},
		{"legacy tasks with description", `{"tasks": [{"description": "File the report", "owner": "John", "due_date": "Friday"}]}`, "File the report"},
		{"bare array", `[{"task": "Ping legal"}]`, "Ping legal"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			items, err := parseActionItemsPayload([]byte(tc.payload))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(items) != 1 {
				t.Fatalf("expected one item, got %d", len(items))
			}
			if items[0].Task != tc.task {
				t.Fatalf("unexpected task: %s", items[0].Task)
			}
			if items[0].ID != "task_1" {
				t.Fatalf("unexpected id: %s", items[0].ID)
			}
			if items[0].Priority == "" || items[0].Status == "" || items[0].Assignee == "" {
				t.Fatalf("missing defaults: %+v", items[0])
			}
		})
	}
}

func TestNormalizePriorityClampsUnknownValues(t *testing.T) {
	if got := normalizePriority("URGENT"); got != "high" {
		t.Fatalf("urgent should map to high, got %s", got)
	}
	if got := normalizePriority("whenever"); got != "medium" {
		t.Fatalf("unknown should map to medium, got %s", got)
	}
}

func TestPrepareTranscriptMasksContactDetails(t *testing.T) {
	transcript := domain.Transcript{Text: "Email the summary to lead@example.com today."}
	prepared := PrepareTranscript(transcript)
	if strings.Contains(prepared, "lead@example.com") {
		t.Fatalf("email leaked into prompt input: %s", prepared)
	}
}

func TestTruncateToTokenBudget(t *testing.T) {
	long := strings.Repeat("word ", 10000)
	truncated := truncateToTokenBudget(long, 100)
	if len(truncated) > 100*4+len("\n[transcript truncated]") {
		t.Fatalf("truncation did not enforce budget: %d chars", len(truncated))
	}
	if !strings.HasSuffix(truncated, "[transcript truncated]") {
		t.Fatal("expected truncation marker")
	}

	short := "short transcript"
	if truncateToTokenBudget(short, 100) != short {
		t.Fatal("short input must pass through unchanged")
	}
}

func TestTruncateToTokenBudgetKeepsValidUTF8(t *testing.T) {
	// No spaces past the midpoint, so the cut lands on a raw byte offset
	// inside a multi-byte rune.
	long := strings.Repeat("日本語テキスト", 1000)
	truncated := truncateToTokenBudget(long, 100)
	if !utf8.ValidString(truncated) {
		t.Fatalf("truncation produced invalid UTF-8: %q", truncated[len(truncated)-30:])
	}
	if !strings.HasSuffix(truncated, "[transcript truncated]") {
		t.Fatal("expected truncation marker")
	}
}

func TestClampScoreAcceptsTenPointScale(t *testing.T) {
	if got := clampScore(8.0); got != 0.8 {
		t.Fatalf("ten-point score should scale down, got %f", got)
	}
	if got := clampScore(0.8); got != 0.8 {
		t.Fatalf("unit-scale score should pass through, got %f", got)
	}
	if got := clampScore(-2); got != 0 {
		t.Fatalf("negative score should clamp to zero, got %f", got)
	}
}

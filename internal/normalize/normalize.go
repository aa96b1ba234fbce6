package normalize

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
)

// Result is the frontend-facing payload shape. Every field is present and
// type-correct regardless of what the analysis stages produced.
type Result struct {
	ID            string       `json:"id"`
	Filename      string       `json:"filename"`
	Status        string       `json:"status"`
	Error         string       `json:"error,omitempty"`
	UploadedAt    string       `json:"uploadedAt"`
	ProcessedAt   string       `json:"processedAt"`
	Transcription string       `json:"transcription"`
	Transcript    Transcript   `json:"transcript"`
	Content       Content      `json:"content"`
	ActionItems   []ActionItem `json:"actionItems"`
	Insights      []Insight    `json:"insights"`
	Risks         []string     `json:"risks"`
}

type Transcript struct {
	Text             string  `json:"text"`
	Duration         float64 `json:"duration"`
	Language         string  `json:"language"`
	ParticipantCount int     `json:"participantCount"`
	Confidence       float64 `json:"confidence,omitempty"`
}

type Topic struct {
	Topic            string `json:"topic"`
	Summary          string `json:"summary"`
	DurationEstimate string `json:"duration_estimate"`
}

type Decision struct {
	Decision string `json:"decision"`
	Context  string `json:"context"`
	Impact   string `json:"impact"`
}

type Content struct {
	Topics             []Topic    `json:"topics"`
	Decisions          []Decision `json:"decisions"`
	MeetingType        string     `json:"meetingType"`
	EffectivenessScore float64    `json:"effectivenessScore"`
}

type ActionItem struct {
	ID       string `json:"id"`
	Task     string `json:"task"`
	Assignee string `json:"assignee"`
	Deadline string `json:"deadline"`
	Priority string `json:"priority"`
	Status   string `json:"status"`
	Context  string `json:"context"`
}

// Insight is one flattened insight entry tagged with its category. Process and
// followup entries carry their text as the recommendation; teamwork entries are
// observations and carry an empty one.
type Insight struct {
	Category       string `json:"category"`
	Insight        string `json:"insight"`
	Recommendation string `json:"recommendation"`
}

// Normalizer turns raw analysis output into the canonical Result. It accepts
// model output shaped loosely (snake_case, legacy key spellings, wrong
// container types) as well as its own output, so normalizing twice is a no-op.
type Normalizer struct {
	logger *log.Logger
}

func New(logger *log.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize never panics and never returns a structurally broken Result.
func (n *Normalizer) Normalize(raw any) (result Result) {
	defer func() {
		if recovered := recover(); recovered != nil {
			n.logf("normalization panic recovered: %v", recovered)
			result = minimalResult(fmt.Sprintf("validation error: %v", recovered))
		}
	}()

	data, err := toMap(raw)
	if err != nil {
		n.logf("normalization input rejected: %v", err)
		return minimalResult("validation error: " + err.Error())
	}

	result = Result{
		ID:          n.getString(data, "id"),
		Filename:    n.getString(data, "filename"),
		Error:       n.getString(data, "error"),
		UploadedAt:  n.getString(data, "uploadedAt", "uploaded_at"),
		ProcessedAt: n.getString(data, "processedAt", "processed_at"),
	}
	result.Status = normalizeStatus(n.getString(data, "status"), result.Error)
	result.Transcript = n.normalizeTranscript(data)
	result.Transcription = result.Transcript.Text
	result.Content = n.normalizeContent(data)
	result.ActionItems = n.normalizeActionItems(data)
	result.Insights, result.Risks = n.normalizeInsights(data)
	return result
}

func minimalResult(reason string) Result {
	return Result{
		Status:        "failed",
		Error:         reason,
		Transcription: "Validation error occurred",
		Transcript: Transcript{
			Text:     "Validation error occurred",
			Language: "en-US",
		},
		Content: Content{
			Topics:      []Topic{},
			Decisions:   []Decision{},
			MeetingType: "failed",
		},
		ActionItems: []ActionItem{},
		Insights:    []Insight{},
		Risks:       []string{"Processing failed: " + reason},
	}
}

func (n *Normalizer) normalizeTranscript(data map[string]any) Transcript {
	nested := n.getMap(data, "transcript")

	transcript := Transcript{
		Text:             n.getString(nested, "text"),
		Duration:         n.getFloat(nested, "duration"),
		Language:         n.getString(nested, "language"),
		ParticipantCount: int(n.getFloat(nested, "participantCount", "participant_count")),
		Confidence:       n.getFloat(nested, "confidence"),
	}
	if transcript.Text == "" {
		transcript.Text = n.getString(data, "transcription")
	}
	if transcript.Text == "" {
		transcript.Text = "No transcript available"
	}
	if transcript.Language == "" {
		transcript.Language = "en-US"
	}
	if transcript.Duration < 0 {
		transcript.Duration = 0
	}
	if transcript.ParticipantCount < 0 {
		transcript.ParticipantCount = 0
	}
	if !hasAny(nested, "participantCount", "participant_count") {
		transcript.ParticipantCount = 1
	}
	return transcript
}

func (n *Normalizer) normalizeContent(data map[string]any) Content {
	nested := n.getMap(data, "content")

	content := Content{
		Topics:             []Topic{},
		Decisions:          []Decision{},
		MeetingType:        firstNonEmpty(n.getString(nested, "meetingType", "meeting_type"), "general"),
		EffectivenessScore: clampScore(n.getFloat(nested, "effectivenessScore", "effectiveness_score")),
	}

	for _, entry := range n.getList(nested, "topics") {
		item, ok := entry.(map[string]any)
		if !ok {
			n.logf("dropping non-object topic entry of type %T", entry)
			continue
		}
		name := n.getString(item, "topic", "title")
		if name == "" {
			continue
		}
		content.Topics = append(content.Topics, Topic{
			Topic:            name,
			Summary:          n.getString(item, "summary", "description"),
			DurationEstimate: n.getString(item, "duration_estimate", "durationEstimate", "time_discussed", "timeDiscussed"),
		})
	}

	for _, entry := range n.getList(nested, "decisions") {
		item, ok := entry.(map[string]any)
		if !ok {
			n.logf("dropping non-object decision entry of type %T", entry)
			continue
		}
		name := n.getString(item, "decision", "title")
		if name == "" {
			continue
		}
		content.Decisions = append(content.Decisions, Decision{
			Decision: name,
			Context:  n.getString(item, "context"),
			Impact:   n.getString(item, "impact"),
		})
	}

	return content
}

func (n *Normalizer) normalizeActionItems(data map[string]any) []ActionItem {
	items := []ActionItem{}
	for _, entry := range n.getList(data, "actionItems", "action_items", "tasks") {
		item, ok := entry.(map[string]any)
		if !ok {
			n.logf("dropping non-object action item of type %T", entry)
			continue
		}
		task := n.getString(item, "task", "description", "title")
		if task == "" {
			continue
		}
		items = append(items, ActionItem{
			ID:       firstNonEmpty(n.getString(item, "id"), fmt.Sprintf("task_%d", len(items)+1)),
			Task:     task,
			Assignee: firstNonEmpty(n.getString(item, "assignee", "owner"), "Unassigned"),
			Deadline: n.getString(item, "deadline", "due_date"),
			Priority: normalizePriority(n.getString(item, "priority")),
			Status:   firstNonEmpty(n.getString(item, "status"), "pending"),
			Context:  n.getString(item, "context"),
		})
	}
	return items
}

// normalizeInsights accepts both the staged object shape (teamDynamics,
// processRecommendations, riskFlags, followUpSuggestions) and the already
// flattened list shape, and returns the flat list plus string-only risks.
func (n *Normalizer) normalizeInsights(data map[string]any) ([]Insight, []string) {
	insights := []Insight{}
	risks := n.getStringList(data, "risks")

	switch raw := data["insights"].(type) {
	case []any:
		for _, entry := range raw {
			item, ok := entry.(map[string]any)
			if !ok {
				n.logf("dropping non-object insight entry of type %T", entry)
				continue
			}
			text := n.getString(item, "insight", "text")
			if text == "" {
				continue
			}
			category := normalizeCategory(n.getString(item, "category"))
			recommendation := n.getString(item, "recommendation")
			if recommendation == "" && category != "teamwork" {
				recommendation = text
			}
			insights = append(insights, Insight{
				Category:       category,
				Insight:        text,
				Recommendation: recommendation,
			})
		}
	case map[string]any:
		if dynamics := n.getString(raw, "teamDynamics", "team_dynamics"); dynamics != "" {
			insights = append(insights, Insight{Category: "teamwork", Insight: dynamics})
		}
		for _, text := range n.getStringList(raw, "processRecommendations", "process_recommendations") {
			insights = append(insights, Insight{Category: "process", Insight: text, Recommendation: text})
		}
		for _, text := range n.getStringList(raw, "followUpSuggestions", "follow_up_suggestions") {
			insights = append(insights, Insight{Category: "followup", Insight: text, Recommendation: text})
		}
		if len(risks) == 0 {
			risks = n.getStringList(raw, "riskFlags", "risk_flags")
		}
	case nil:
	default:
		n.logf("insights has unexpected type %T", raw)
	}

	return insights, risks
}

func toMap(raw any) (map[string]any, error) {
	if raw == nil {
		return nil, fmt.Errorf("nil analysis payload")
	}
	if data, ok := raw.(map[string]any); ok {
		return data, nil
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("payload is not serializable: %w", err)
	}
	var data map[string]any
	if err := json.Unmarshal(encoded, &data); err != nil {
		return nil, fmt.Errorf("payload is not an object: %w", err)
	}
	return data, nil
}

func normalizeStatus(status, errorText string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "processing":
		return "processing"
	case "failed", "error":
		return "failed"
	case "completed":
		return "completed"
	}
	if strings.TrimSpace(errorText) != "" {
		return "failed"
	}
	return "completed"
}

func normalizePriority(priority string) string {
	switch strings.ToLower(strings.TrimSpace(priority)) {
	case "low":
		return "low"
	case "high", "urgent", "critical":
		return "high"
	default:
		return "medium"
	}
}

func normalizeCategory(category string) string {
	switch strings.ToLower(strings.TrimSpace(category)) {
	case "teamwork", "team":
		return "teamwork"
	case "followup", "follow_up", "follow-up":
		return "followup"
	default:
		return "process"
	}
}

// clampScore maps effectiveness onto [0,1]. Values above 1 are treated as the
// legacy 1-10 scale and divided down before clamping.
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

func hasAny(data map[string]any, keys ...string) bool {
	for _, key := range keys {
		if _, ok := data[key]; ok {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func (n *Normalizer) logf(format string, args ...any) {
	if n.logger == nil {
		return
	}
	n.logger.Printf(format, args...)
}

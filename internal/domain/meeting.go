package domain

import "time"

type MeetingStatus string

const (
	StatusProcessing MeetingStatus = "processing"
	StatusCompleted  MeetingStatus = "completed"
	StatusFailed     MeetingStatus = "failed"
)

// MeetingProgress tracks an in-flight meeting job between submission and its
// terminal state. Mutated only by the worker that owns the meeting id.
type MeetingProgress struct {
	ID          string        `json:"id"`
	Filename    string        `json:"filename"`
	Status      MeetingStatus `json:"status"`
	Progress    int           `json:"progress"`
	CurrentStep string        `json:"current_step"`
	StartedAt   time.Time     `json:"started_at"`
	UploadedAt  time.Time     `json:"uploaded_at"`
}

// Transcript is the output of the speech-to-text stage.
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

type ActionItem struct {
	ID       string `json:"id"`
	Task     string `json:"task"`
	Assignee string `json:"assignee"`
	Deadline string `json:"deadline"`
	Priority string `json:"priority"`
	Status   string `json:"status"`
	Context  string `json:"context"`
}

// Content is the merged output of the content-analysis stage.
type Content struct {
	Topics             []Topic    `json:"topics"`
	Decisions          []Decision `json:"decisions"`
	MeetingType        string     `json:"meetingType"`
	EffectivenessScore float64    `json:"effectivenessScore"`
}

// InsightReport keeps the four insight channels as produced by the insight
// stage. The normalizer flattens them for the frontend.
type InsightReport struct {
	TeamDynamics           string   `json:"teamDynamics"`
	ProcessRecommendations []string `json:"processRecommendations"`
	RiskFlags              []string `json:"riskFlags"`
	FollowUpSuggestions    []string `json:"followUpSuggestions"`
}

// AnalysisResult is the terminal payload for a meeting job. Every field is
// populated with a type-correct default even when a stage degraded.
type AnalysisResult struct {
	ID          string        `json:"id"`
	Filename    string        `json:"filename"`
	Status      MeetingStatus `json:"status"`
	Error       string        `json:"error,omitempty"`
	UploadedAt  time.Time     `json:"uploadedAt"`
	ProcessedAt time.Time     `json:"processedAt"`
	Transcript  Transcript    `json:"transcript"`
	Content     Content       `json:"content"`
	ActionItems []ActionItem  `json:"actionItems"`
	Insights    InsightReport `json:"insights"`
}

// QueueMessage is the transport format sent to queue backends.
type QueueMessage struct {
	MeetingID   string    `json:"meeting_id"`
	Filename    string    `json:"filename"`
	AudioPath   string    `json:"audio_path"`
	Demo        bool      `json:"demo"`
	Attempt     int       `json:"attempt"`
	RequestedAt time.Time `json:"requested_at"`
}

// DegradedContent is the content stage default used when analysis fails.
func DegradedContent() Content {
	return Content{
		Topics:      []Topic{},
		Decisions:   []Decision{},
		MeetingType: "error",
	}
}

// DegradedInsights flags the failure as data instead of propagating it.
func DegradedInsights(reason string) InsightReport {
	return InsightReport{
		ProcessRecommendations: []string{},
		RiskFlags:              []string{"Analysis failed: " + reason},
		FollowUpSuggestions:    []string{},
	}
}

// ErrorResult builds the terminal failed payload so a meeting never vanishes.
func ErrorResult(meetingID, filename, message string, uploadedAt time.Time) AnalysisResult {
	now := time.Now().UTC()
	if uploadedAt.IsZero() {
		uploadedAt = now
	}
	return AnalysisResult{
		ID:          meetingID,
		Filename:    filename,
		Status:      StatusFailed,
		Error:       message,
		UploadedAt:  uploadedAt,
		ProcessedAt: now,
		Transcript:  Transcript{Language: "en-US"},
		Content: Content{
			Topics:      []Topic{},
			Decisions:   []Decision{},
			MeetingType: "failed",
		},
		ActionItems: []ActionItem{},
		Insights: InsightReport{
			ProcessRecommendations: []string{},
			RiskFlags:              []string{"Processing failed: " + message},
			FollowUpSuggestions:    []string{},
		},
	}
}

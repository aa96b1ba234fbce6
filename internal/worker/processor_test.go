package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/audioinsight/audioinsight-back/internal/analysis"
	"github.com/audioinsight/audioinsight-back/internal/domain"
	"github.com/audioinsight/audioinsight-back/internal/store"
)

type stubTranscriber struct {
	transcript domain.Transcript
}

func (s *stubTranscriber) Transcribe(_ context.Context, _, _ string) domain.Transcript {
	return s.transcript
}

type stubAnalyzer struct {
	outcome analysis.Outcome
	stages  []analysis.Stage
	panics  bool
}

func (s *stubAnalyzer) Analyze(_ context.Context, _ domain.Transcript, onStage func(analysis.Stage)) analysis.Outcome {
	if s.panics {
		panic("analysis blew up")
	}
	stages := s.stages
	if stages == nil {
		stages = []analysis.Stage{analysis.StageContent, analysis.StageActionItems, analysis.StageInsights}
	}
	if onStage != nil {
		for _, stage := range stages {
			onStage(stage)
		}
	}
	return s.outcome
}

type stubArchiver struct {
	saved []domain.AnalysisResult
	err   error
}

func (s *stubArchiver) Save(_ context.Context, result domain.AnalysisResult) error {
	s.saved = append(s.saved, result)
	return s.err
}

// recordingStore captures Advance calls on top of a real file store.
type recordingStore struct {
	store.MeetingStore
	advances []string
}

func (r *recordingStore) Advance(meetingID string, progress int, step string) error {
	r.advances = append(r.advances, step)
	return r.MeetingStore.Advance(meetingID, progress, step)
}

func cleanOutcome() analysis.Outcome {
	return analysis.Outcome{
		Content: domain.Content{
			Topics:      []domain.Topic{{Topic: "Planning", Summary: "Scoped work."}},
			Decisions:   []domain.Decision{},
			MeetingType: "planning",
		},
		ActionItems: []domain.ActionItem{{ID: "task_1", Task: "Update roadmap", Assignee: "Sarah", Priority: "high", Status: "pending"}},
		Insights:    domain.InsightReport{TeamDynamics: "Balanced."},
		StageErrors: map[analysis.Stage]string{},
	}
}

func testMessage() domain.QueueMessage {
	return domain.QueueMessage{
		MeetingID:   "meeting-1",
		Filename:    "standup.wav",
		RequestedAt: time.Now().UTC(),
	}
}

func newTestProcessor(t *testing.T, analyzer Analyzer, archive Archiver) (*Processor, *recordingStore, string) {
	t.Helper()
	fileStore, err := store.NewFileStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	recording := &recordingStore{MeetingStore: fileStore}
	uploadsDir := t.TempDir()

	processor := NewProcessor(ProcessorDependencies{
		Store:       recording,
		Transcriber: &stubTranscriber{transcript: domain.Transcript{Text: "We planned the sprint.", Duration: 272, Language: "en-US", ParticipantCount: 3}},
		Analyzer:    analyzer,
		Archive:     archive,
		UploadsDir:  uploadsDir,
	})
	return processor, recording, uploadsDir
}

func TestProcessMessageCompletesMeeting(t *testing.T) {
	processor, recording, _ := newTestProcessor(t, &stubAnalyzer{outcome: cleanOutcome()}, nil)
	message := testMessage()

	if err := processor.ProcessMessage(context.Background(), message); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := recording.Get(message.MeetingID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("meeting should leave the in-flight map, got err=%v", err)
	}

	result, err := recording.Result(message.MeetingID)
	if err != nil {
		t.Fatalf("load result: %v", err)
	}
	if result.Status != domain.StatusCompleted {
		t.Fatalf("unexpected status: %s", result.Status)
	}
	if result.Transcript.Duration != 272 {
		t.Fatalf("transcript not merged: %+v", result.Transcript)
	}
	if len(result.ActionItems) != 1 {
		t.Fatalf("action items not merged: %+v", result.ActionItems)
	}
	if result.ProcessedAt.IsZero() {
		t.Fatal("processedAt must be set on completion")
	}
}

func TestProcessMessageReportsEveryPipelineStep(t *testing.T) {
	processor, recording, _ := newTestProcessor(t, &stubAnalyzer{outcome: cleanOutcome()}, nil)

	if err := processor.ProcessMessage(context.Background(), testMessage()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"Transcribing audio", "Analyzing content", "Extracting action items", "Generating insights"}
	if len(recording.advances) != len(want) {
		t.Fatalf("unexpected advance calls: %v", recording.advances)
	}
	for index, step := range want {
		if recording.advances[index] != step {
			t.Fatalf("advance %d = %q, want %q", index, recording.advances[index], step)
		}
	}
}

func TestProcessMessageOutOfOrderStagesStillComplete(t *testing.T) {
	analyzer := &stubAnalyzer{
		outcome: cleanOutcome(),
		stages:  []analysis.Stage{analysis.StageInsights, analysis.StageContent, analysis.StageActionItems},
	}
	processor, recording, _ := newTestProcessor(t, analyzer, nil)

	if err := processor.ProcessMessage(context.Background(), testMessage()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result, err := recording.Result("meeting-1"); err != nil || result.Status != domain.StatusCompleted {
		t.Fatalf("expected completed result, got %+v err=%v", result, err)
	}
}

func TestProcessMessagePanicRecordsFailedResult(t *testing.T) {
	processor, recording, _ := newTestProcessor(t, &stubAnalyzer{panics: true}, nil)
	message := testMessage()

	err := processor.ProcessMessage(context.Background(), message)
	if err == nil {
		t.Fatal("expected catastrophic error")
	}

	result, loadErr := recording.Result(message.MeetingID)
	if loadErr != nil {
		t.Fatalf("failed meeting must still have a result: %v", loadErr)
	}
	if result.Status != domain.StatusFailed {
		t.Fatalf("unexpected status: %s", result.Status)
	}
	if !strings.Contains(result.Error, "pipeline panic") {
		t.Fatalf("unexpected error text: %s", result.Error)
	}
	if len(result.Insights.RiskFlags) == 0 {
		t.Fatal("failed result must flag the failure")
	}
}

// brokenCompleteStore refuses to record completed results.
type brokenCompleteStore struct {
	store.MeetingStore
}

func (b *brokenCompleteStore) Complete(domain.AnalysisResult) error {
	return errors.New("disk full")
}

func TestProcessMessageCompleteFailureStillReachesTerminalState(t *testing.T) {
	fileStore, err := store.NewFileStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	broken := &brokenCompleteStore{MeetingStore: fileStore}
	processor := NewProcessor(ProcessorDependencies{
		Store:       broken,
		Transcriber: &stubTranscriber{transcript: domain.Transcript{Text: "We planned the sprint."}},
		Analyzer:    &stubAnalyzer{outcome: cleanOutcome()},
		UploadsDir:  t.TempDir(),
	})
	message := testMessage()

	if err := processor.ProcessMessage(context.Background(), message); err == nil {
		t.Fatal("expected error when the result cannot be recorded")
	}

	result, loadErr := broken.Result(message.MeetingID)
	if loadErr != nil {
		t.Fatalf("meeting must still reach a terminal result: %v", loadErr)
	}
	if result.Status != domain.StatusFailed {
		t.Fatalf("unexpected status: %s", result.Status)
	}
	if !strings.Contains(result.Error, "failed to record result") {
		t.Fatalf("unexpected error text: %s", result.Error)
	}
	if _, err := broken.Get(message.MeetingID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("meeting should leave the in-flight map, got err=%v", err)
	}
}

func TestProcessMessageArchiveFailureIsBestEffort(t *testing.T) {
	archive := &stubArchiver{err: errors.New("postgres is down")}
	processor, recording, _ := newTestProcessor(t, &stubAnalyzer{outcome: cleanOutcome()}, archive)

	if err := processor.ProcessMessage(context.Background(), testMessage()); err != nil {
		t.Fatalf("archive failure must not fail the meeting: %v", err)
	}
	if len(archive.saved) != 1 {
		t.Fatalf("expected one archive attempt, got %d", len(archive.saved))
	}
	if result, err := recording.Result("meeting-1"); err != nil || result.Status != domain.StatusCompleted {
		t.Fatalf("expected completed result, got %+v err=%v", result, err)
	}
}

func TestProcessMessageCleansUpUploadedFile(t *testing.T) {
	processor, _, uploadsDir := newTestProcessor(t, &stubAnalyzer{outcome: cleanOutcome()}, nil)

	audioPath := filepath.Join(uploadsDir, "meeting-1_standup.wav")
	if err := os.WriteFile(audioPath, []byte("audio"), 0o644); err != nil {
		t.Fatalf("write temp upload: %v", err)
	}
	message := testMessage()
	message.AudioPath = audioPath

	if err := processor.ProcessMessage(context.Background(), message); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(audioPath); !os.IsNotExist(err) {
		t.Fatalf("temp upload should be removed, stat err=%v", err)
	}
}

func TestProcessMessageNeverDeletesOutsideUploadsDir(t *testing.T) {
	processor, _, _ := newTestProcessor(t, &stubAnalyzer{outcome: cleanOutcome()}, nil)

	outside := filepath.Join(t.TempDir(), "keep.wav")
	if err := os.WriteFile(outside, []byte("audio"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	message := testMessage()
	message.AudioPath = outside

	if err := processor.ProcessMessage(context.Background(), message); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(outside); err != nil {
		t.Fatalf("file outside uploads dir must survive: %v", err)
	}
}

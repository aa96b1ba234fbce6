package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/audioinsight/audioinsight-back/internal/analysis"
	"github.com/audioinsight/audioinsight-back/internal/domain"
	"github.com/audioinsight/audioinsight-back/internal/policy"
	"github.com/audioinsight/audioinsight-back/internal/queue"
	"github.com/audioinsight/audioinsight-back/internal/store"
)

// Transcriber is the speech-to-text stage as seen by the processor.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, filename string) domain.Transcript
}

// Analyzer is the fan-out analysis stage as seen by the processor.
type Analyzer interface {
	Analyze(ctx context.Context, transcript domain.Transcript, onStage func(analysis.Stage)) analysis.Outcome
}

// Archiver mirrors terminal results into durable storage. Best effort.
type Archiver interface {
	Save(ctx context.Context, result domain.AnalysisResult) error
}

// Processor consumes meeting jobs and drives each one through the pipeline:
// transcription, three-way analysis fan-out, merge, terminal persistence.
// Any failure path ends in a terminal result; a consumed meeting id always
// resolves to something a poll can return.
type Processor struct {
	consumer    queue.Consumer
	store       store.MeetingStore
	transcriber Transcriber
	analyzer    Analyzer
	archive     Archiver
	uploadsDir  string
	concurrency int
	logger      *log.Logger
}

type ProcessorDependencies struct {
	Consumer    queue.Consumer
	Store       store.MeetingStore
	Transcriber Transcriber
	Analyzer    Analyzer
	Archive     Archiver
	UploadsDir  string
	Concurrency int
	Logger      *log.Logger
}

func NewProcessor(deps ProcessorDependencies) *Processor {
	if deps.Concurrency <= 0 {
		deps.Concurrency = 4
	}
	return &Processor{
		consumer:    deps.Consumer,
		store:       deps.Store,
		transcriber: deps.Transcriber,
		analyzer:    deps.Analyzer,
		archive:     deps.Archive,
		uploadsDir:  deps.UploadsDir,
		concurrency: deps.Concurrency,
		logger:      deps.Logger,
	}
}

// Start runs the worker pool until ctx is cancelled.
func (p *Processor) Start(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.runLoop(ctx)
		}()
	}
	wg.Wait()
}

func (p *Processor) runLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		err := p.consumer.Consume(ctx, p.ProcessMessage)
		if err == nil || ctx.Err() != nil {
			return
		}
		p.logf("worker consume loop error: %v", err)

		timer := time.NewTimer(2 * time.Second)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// ProcessMessage runs the full pipeline for one meeting. Returned errors are
// catastrophic only: stage-level failures degrade inside the result and the
// meeting still completes.
func (p *Processor) ProcessMessage(ctx context.Context, message domain.QueueMessage) (err error) {
	uploadedAt := message.RequestedAt
	if uploadedAt.IsZero() {
		uploadedAt = time.Now().UTC()
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			reason := fmt.Sprintf("pipeline panic: %v", recovered)
			p.logf("pipeline panic meeting_id=%s: %v", message.MeetingID, recovered)
			if failErr := p.store.Fail(domain.ErrorResult(message.MeetingID, message.Filename, reason, uploadedAt)); failErr != nil {
				p.logf("record panic failure meeting_id=%s: %v", message.MeetingID, failErr)
			}
			err = fmt.Errorf("process meeting %s: %s", message.MeetingID, reason)
		}
	}()

	startedAt := time.Now().UTC()
	progress := domain.MeetingProgress{
		ID:          message.MeetingID,
		Filename:    message.Filename,
		Status:      domain.StatusProcessing,
		Progress:    0,
		CurrentStep: "Starting processing",
		StartedAt:   startedAt,
		UploadedAt:  uploadedAt,
	}
	if err := p.store.Put(progress); err != nil {
		return fmt.Errorf("register meeting %s: %w", message.MeetingID, err)
	}

	snapshot := domain.AnalysisResult{
		ID:          message.MeetingID,
		Filename:    message.Filename,
		Status:      domain.StatusProcessing,
		UploadedAt:  uploadedAt,
		Content:     domain.DegradedContent(),
		ActionItems: []domain.ActionItem{},
	}
	p.saveSnapshot(snapshot)

	transcript := p.transcriber.Transcribe(ctx, message.AudioPath, message.Filename)
	transcript.Text = policy.MaskTranscript(transcript.Text)
	p.advance(message.MeetingID, 25, "Transcribing audio")
	snapshot.Transcript = transcript
	p.saveSnapshot(snapshot)

	outcome := p.analyzer.Analyze(ctx, transcript, func(stage analysis.Stage) {
		switch stage {
		case analysis.StageContent:
			p.advance(message.MeetingID, 50, "Analyzing content")
		case analysis.StageActionItems:
			p.advance(message.MeetingID, 75, "Extracting action items")
		case analysis.StageInsights:
			p.advance(message.MeetingID, 90, "Generating insights")
		}
	})
	if outcome.Degraded() {
		p.logf("analysis degraded meeting_id=%s stages=%s", message.MeetingID, formatStageErrors(outcome.StageErrors))
	}

	result := domain.AnalysisResult{
		ID:          message.MeetingID,
		Filename:    message.Filename,
		Status:      domain.StatusCompleted,
		UploadedAt:  uploadedAt,
		ProcessedAt: time.Now().UTC(),
		Transcript:  transcript,
		Content:     outcome.Content,
		ActionItems: outcome.ActionItems,
		Insights:    outcome.Insights,
	}
	if err := p.store.Complete(result); err != nil {
		// The meeting must still reach a terminal state, even if the
		// completed result cannot be recorded.
		failed := domain.ErrorResult(message.MeetingID, message.Filename,
			"failed to record result: "+err.Error(), uploadedAt)
		if failErr := p.store.Fail(failed); failErr != nil {
			p.logf("record failure meeting_id=%s: %v", message.MeetingID, failErr)
		}
		return fmt.Errorf("complete meeting %s: %w", message.MeetingID, err)
	}

	if p.archive != nil {
		if archiveErr := p.archive.Save(ctx, result); archiveErr != nil {
			p.logf("archive save failed meeting_id=%s: %v", message.MeetingID, archiveErr)
		}
	}

	p.cleanupUpload(message)
	p.logf("meeting processed meeting_id=%s duration=%s degraded=%t",
		message.MeetingID, time.Since(startedAt).Round(time.Millisecond), outcome.Degraded())
	return nil
}

func (p *Processor) advance(meetingID string, progress int, step string) {
	if err := p.store.Advance(meetingID, progress, step); err != nil {
		p.logf("advance progress meeting_id=%s step=%q: %v", meetingID, step, err)
	}
}

func (p *Processor) saveSnapshot(result domain.AnalysisResult) {
	if err := p.store.SaveSnapshot(result); err != nil {
		p.logf("save snapshot meeting_id=%s: %v", result.ID, err)
	}
}

// cleanupUpload removes the temp audio file once processing is done. Only
// paths under the uploads dir are touched; demo jobs reference shared assets.
func (p *Processor) cleanupUpload(message domain.QueueMessage) {
	if message.Demo || message.AudioPath == "" || p.uploadsDir == "" {
		return
	}

	uploadsDir, err := filepath.Abs(p.uploadsDir)
	if err != nil {
		return
	}
	audioPath, err := filepath.Abs(message.AudioPath)
	if err != nil {
		return
	}
	relative, err := filepath.Rel(uploadsDir, audioPath)
	if err != nil || strings.HasPrefix(relative, "..") {
		p.logf("skipping cleanup outside uploads dir meeting_id=%s path=%s", message.MeetingID, message.AudioPath)
		return
	}

	if err := os.Remove(audioPath); err != nil && !os.IsNotExist(err) {
		p.logf("cleanup upload meeting_id=%s: %v", message.MeetingID, err)
	}
}

func formatStageErrors(stageErrors map[analysis.Stage]string) string {
	parts := make([]string, 0, len(stageErrors))
	for stage := range stageErrors {
		parts = append(parts, string(stage))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func (p *Processor) logf(format string, args ...any) {
	if p.logger == nil {
		return
	}
	p.logger.Printf(format, args...)
}

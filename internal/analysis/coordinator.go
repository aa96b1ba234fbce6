package analysis

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/audioinsight/audioinsight-back/internal/domain"
)

type Stage string

const (
	StageContent     Stage = "content"
	StageActionItems Stage = "action_items"
	StageInsights    Stage = "insights"
)

// Outcome is the merged result of the three-stage fan-out. StageErrors maps
// each failed stage to its reason; an empty map means a clean run.
type Outcome struct {
	Content     domain.Content
	ActionItems []domain.ActionItem
	Insights    domain.InsightReport
	StageErrors map[Stage]string
}

// Degraded reports whether any stage fell back to its default.
func (o Outcome) Degraded() bool {
	return len(o.StageErrors) > 0
}

// Coordinator fans a transcript out to the three analysis stages in
// parallel. A failed or panicking stage degrades to its default value and
// never takes the other stages down with it.
type Coordinator struct {
	engine *Engine
	logger *log.Logger
}

func NewCoordinator(engine *Engine, logger *log.Logger) *Coordinator {
	return &Coordinator{engine: engine, logger: logger}
}

// Analyze runs all stages concurrently and blocks until every stage has
// produced either a real result or its degraded default. onStage, when set,
// fires once per completed stage, in completion order.
func (c *Coordinator) Analyze(ctx context.Context, transcript domain.Transcript, onStage func(Stage)) Outcome {
	prepared := PrepareTranscript(transcript)

	outcome := Outcome{
		Content:     domain.DegradedContent(),
		ActionItems: []domain.ActionItem{},
		StageErrors: make(map[Stage]string),
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	record := func(stage Stage, err error, apply func()) {
		mu.Lock()
		defer mu.Unlock()
		apply()
		if err != nil {
			outcome.StageErrors[stage] = err.Error()
		}
	}

	runStage := func(stage Stage, run func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if recovered := recover(); recovered != nil {
					err := fmt.Errorf("stage %s panicked: %v", stage, recovered)
					c.logf("analysis stage panic stage=%s err=%v", stage, recovered)
					record(stage, err, func() {
						switch stage {
						case StageContent:
							outcome.Content = domain.DegradedContent()
						case StageActionItems:
							outcome.ActionItems = []domain.ActionItem{}
						case StageInsights:
							outcome.Insights = domain.DegradedInsights(err.Error())
						}
					})
				}
				if onStage != nil {
					onStage(stage)
				}
			}()
			run()
		}()
	}

	runStage(StageContent, func() {
		content, err := c.engine.AnalyzeContent(ctx, prepared)
		record(StageContent, err, func() { outcome.Content = content })
	})
	runStage(StageActionItems, func() {
		items, err := c.engine.ExtractActionItems(ctx, prepared)
		record(StageActionItems, err, func() { outcome.ActionItems = items })
	})
	runStage(StageInsights, func() {
		insights, err := c.engine.GenerateInsights(ctx, prepared)
		record(StageInsights, err, func() { outcome.Insights = insights })
	})

	wg.Wait()
	return outcome
}

func (c *Coordinator) logf(format string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Printf(format, args...)
}

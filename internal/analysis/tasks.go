package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/audioinsight/audioinsight-back/internal/ai"
	"github.com/audioinsight/audioinsight-back/internal/domain"
)

const tasksPromptTemplate = `Extract every action item from this meeting transcript and respond with JSON only:

{
  "actionItems": [
    {"task": "what needs to happen", "assignee": "person or Unassigned", "deadline": "date or empty", "priority": "low|medium|high", "context": "one sentence of context"}
  ]
}

Transcript:
%s`

// ExtractActionItems pulls owner/deadline tasks out of the transcript.
// On failure it returns an empty list alongside the error.
func (e *Engine) ExtractActionItems(ctx context.Context, transcript string) ([]domain.ActionItem, error) {
	prompt := fmt.Sprintf(tasksPromptTemplate, transcript)
	payload, err := e.generateJSON(ctx, ai.TaskActionItems, prompt, transcript)
	if err != nil {
		e.logf("action item extraction failed err=%v", err)
		return []domain.ActionItem{}, err
	}

	items, err := parseActionItemsPayload(payload)
	if err != nil {
		e.logf("action items payload rejected err=%v", err)
		return []domain.ActionItem{}, err
	}
	return items, nil
}

type actionItemPayload struct {
	Task        string `json:"task"`
	Description string `json:"description"`
	Title       string `json:"title"`
	Assignee    string `json:"assignee"`
	Owner       string `json:"owner"`
	Deadline    string `json:"deadline"`
	DueDate     string `json:"due_date"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
	Context     string `json:"context"`
}

// Models answer with {"actionItems": [...]}, the legacy {"tasks": [...]}
// shape, or a bare array. All three decode to the same list.
func parseActionItemsPayload(payload []byte) ([]domain.ActionItem, error) {
	var envelope struct {
		ActionItems []actionItemPayload `json:"actionItems"`
		Snake       []actionItemPayload `json:"action_items"`
		Tasks       []actionItemPayload `json:"tasks"`
	}

	var raw []actionItemPayload
	if err := json.Unmarshal(payload, &envelope); err != nil {
		if arrayErr := json.Unmarshal(payload, &raw); arrayErr != nil {
			return nil, fmt.Errorf("decode action items json: %w", err)
		}
	}
	if raw == nil {
		switch {
		case len(envelope.ActionItems) > 0:
			raw = envelope.ActionItems
		case len(envelope.Snake) > 0:
			raw = envelope.Snake
		default:
			raw = envelope.Tasks
		}
	}

	items := make([]domain.ActionItem, 0, len(raw))
	for _, item := range raw {
		task := strings.TrimSpace(firstNonEmpty(item.Task, item.Description, item.Title))
		if task == "" {
			continue
		}
		items = append(items, domain.ActionItem{
			ID:       fmt.Sprintf("task_%d", len(items)+1),
			Task:     task,
			Assignee: firstNonEmpty(strings.TrimSpace(item.Assignee), strings.TrimSpace(item.Owner), "Unassigned"),
			Deadline: strings.TrimSpace(firstNonEmpty(item.Deadline, item.DueDate)),
			Priority: normalizePriority(item.Priority),
			Status:   firstNonEmpty(strings.TrimSpace(item.Status), "pending"),
			Context:  strings.TrimSpace(item.Context),
		})
	}
	return items, nil
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

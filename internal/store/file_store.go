package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/audioinsight/audioinsight-back/internal/domain"
)

// FileStore keeps in-flight progress and completed results in memory and
// mirrors completed results as one JSON document per meeting id on disk.
type FileStore struct {
	resultsDir string
	logger     *log.Logger

	mu        sync.RWMutex
	inflight  map[string]domain.MeetingProgress
	completed map[string]domain.AnalysisResult
}

func NewFileStore(resultsDir string, logger *log.Logger) (*FileStore, error) {
	trimmed := strings.TrimSpace(resultsDir)
	if trimmed == "" {
		trimmed = "results"
	}
	if err := os.MkdirAll(trimmed, 0o755); err != nil {
		return nil, fmt.Errorf("create results dir: %w", err)
	}
	return &FileStore{
		resultsDir: trimmed,
		logger:     logger,
		inflight:   make(map[string]domain.MeetingProgress),
		completed:  make(map[string]domain.AnalysisResult),
	}, nil
}

func (s *FileStore) Put(progress domain.MeetingProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight[progress.ID] = progress
	return nil
}

func (s *FileStore) Get(meetingID string) (domain.MeetingProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	progress, ok := s.inflight[meetingID]
	if !ok {
		return domain.MeetingProgress{}, ErrNotFound
	}
	return progress, nil
}

func (s *FileStore) Advance(meetingID string, progress int, step string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.inflight[meetingID]
	if !ok {
		return ErrNotFound
	}
	if progress < current.Progress {
		return nil
	}
	current.Progress = progress
	current.CurrentStep = step
	s.inflight[meetingID] = current
	return nil
}

func (s *FileStore) SaveSnapshot(result domain.AnalysisResult) error {
	return s.writeResultFile(result)
}

func (s *FileStore) Complete(result domain.AnalysisResult) error {
	if err := s.writeResultFile(result); err != nil {
		return err
	}
	s.mu.Lock()
	s.completed[result.ID] = result
	delete(s.inflight, result.ID)
	s.mu.Unlock()
	return nil
}

func (s *FileStore) Fail(result domain.AnalysisResult) error {
	if err := s.writeResultFile(result); err != nil && s.logger != nil {
		s.logger.Printf("store: persist failed result meeting_id=%s err=%v", result.ID, err)
	}
	s.mu.Lock()
	s.completed[result.ID] = result
	delete(s.inflight, result.ID)
	s.mu.Unlock()
	return nil
}

func (s *FileStore) Result(meetingID string) (domain.AnalysisResult, error) {
	s.mu.RLock()
	result, ok := s.completed[meetingID]
	s.mu.RUnlock()
	if ok {
		return result, nil
	}

	loaded, err := s.readResultFile(meetingID)
	if err != nil {
		return domain.AnalysisResult{}, ErrNotFound
	}

	// Cache the disk hit back into memory for subsequent polls.
	s.mu.Lock()
	s.completed[meetingID] = loaded
	s.mu.Unlock()
	return loaded, nil
}

func (s *FileStore) Counts() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.inflight), len(s.completed)
}

// InflightIDs returns the ids currently processing, for debug endpoints.
func (s *FileStore) InflightIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.inflight))
	for id := range s.inflight {
		ids = append(ids, id)
	}
	return ids
}

// CompletedIDs returns the completed ids held in memory.
func (s *FileStore) CompletedIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.completed))
	for id := range s.completed {
		ids = append(ids, id)
	}
	return ids
}

func (s *FileStore) writeResultFile(result domain.AnalysisResult) error {
	buffer := bytes.NewBuffer(nil)
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("encode result %s: %w", result.ID, err)
	}

	path := s.resultPath(result.ID)
	if err := os.WriteFile(path, buffer.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write result file %s: %w", path, err)
	}
	return nil
}

func (s *FileStore) readResultFile(meetingID string) (domain.AnalysisResult, error) {
	content, err := os.ReadFile(s.resultPath(meetingID))
	if err != nil {
		return domain.AnalysisResult{}, err
	}
	var result domain.AnalysisResult
	if err := json.Unmarshal(content, &result); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("decode result file for %s: %w", meetingID, err)
	}
	return result, nil
}

func (s *FileStore) resultPath(meetingID string) string {
	// Meeting ids are generated server-side, but keep path traversal out
	// of reach for ids read back from requests.
	safe := filepath.Base(meetingID)
	return filepath.Join(s.resultsDir, safe+".json")
}

package store

import (
	"errors"

	"github.com/audioinsight/audioinsight-back/internal/domain"
)

var ErrNotFound = errors.New("meeting not found")

// MeetingStore owns the two per-process maps: in-flight progress and
// completed results. Workers are the only writers for a given meeting id;
// poll handlers are concurrent readers.
type MeetingStore interface {
	// Put registers or replaces the in-flight progress record.
	Put(progress domain.MeetingProgress) error
	// Get returns the in-flight progress, or ErrNotFound once terminal.
	Get(meetingID string) (domain.MeetingProgress, error)
	// Advance raises progress for an in-flight meeting. Lower values are
	// ignored so concurrent stage completions never move progress backwards.
	Advance(meetingID string, progress int, step string) error
	// SaveSnapshot persists a partial result to disk without changing the
	// in-flight state. Used at pipeline checkpoints.
	SaveSnapshot(result domain.AnalysisResult) error
	// Complete moves the meeting from in-flight to completed and persists
	// the result to disk.
	Complete(result domain.AnalysisResult) error
	// Fail records a terminal failed result and removes the in-flight entry.
	Fail(result domain.AnalysisResult) error
	// Result returns a terminal result, checking memory first and falling
	// back to the on-disk mirror (process restart recovery).
	Result(meetingID string) (domain.AnalysisResult, error)
	// Counts reports in-flight and completed sizes for debug inspection.
	Counts() (inflight int, completed int)
}

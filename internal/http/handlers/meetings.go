package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/audioinsight/audioinsight-back/internal/domain"
	"github.com/audioinsight/audioinsight-back/internal/store"
)

// maxUploadBytes caps a single audio upload at 200 MB.
const maxUploadBytes = 200 << 20

var allowedAudioExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".m4a":  true,
	".mp4":  true,
	".ogg":  true,
	".webm": true,
	".flac": true,
}

// Upload accepts a multipart audio file, registers the meeting as
// processing, and schedules it for the background pipeline. The response
// returns immediately; clients poll Meeting for progress.
func (api *API) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "expected multipart form with an audio file")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "file field is required")
		return
	}
	defer file.Close()

	filename := filepath.Base(strings.TrimSpace(header.Filename))
	if filename == "" || filename == "." {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "filename is required")
		return
	}
	if !allowedAudioExtensions[strings.ToLower(filepath.Ext(filename))] {
		writeError(w, r, http.StatusBadRequest, "unsupported_media_type", "unsupported audio format")
		return
	}

	meetingID := uuid.NewString()
	audioPath, err := api.saveUpload(meetingID, filename, file)
	if err != nil {
		api.logf("save upload failed meeting_id=%s: %v", meetingID, err)
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to store upload")
		return
	}

	if err := api.registerAndEnqueue(r, meetingID, filename, audioPath, false); err != nil {
		if removeErr := os.Remove(audioPath); removeErr != nil {
			api.logf("cleanup rejected upload meeting_id=%s: %v", meetingID, removeErr)
		}
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to schedule processing")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":       meetingID,
		"filename": filename,
		"status":   string(domain.StatusProcessing),
	})
}

// Meeting answers the poll: a completed or failed meeting returns its
// normalized result, an in-flight one returns progress, anything else 404s.
func (api *API) Meeting(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	meetingID := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/v1/meetings/"))
	if meetingID == "" || strings.Contains(meetingID, "/") {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "meeting id is required")
		return
	}

	result, err := api.store.Result(meetingID)
	if err == nil {
		api.writeNormalized(w, r, result)
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		api.logf("load result failed meeting_id=%s: %v", meetingID, err)
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to load meeting")
		return
	}

	progress, err := api.store.Get(meetingID)
	if err == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"id":           progress.ID,
			"status":       string(progress.Status),
			"filename":     progress.Filename,
			"progress":     progress.Progress,
			"current_step": progress.CurrentStep,
			"message":      "Processing in progress. Please check back shortly.",
		})
		return
	}

	writeError(w, r, http.StatusNotFound, "not_found", "meeting not found")
}

// writeNormalized shields the poll endpoint from a malformed stored result.
func (api *API) writeNormalized(w http.ResponseWriter, r *http.Request, result domain.AnalysisResult) {
	defer func() {
		if recovered := recover(); recovered != nil {
			api.logf("normalization panic meeting_id=%s: %v", result.ID, recovered)
			writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to prepare result")
		}
	}()

	writeJSON(w, http.StatusOK, api.normalizer.Normalize(result))
}

func (api *API) saveUpload(meetingID, filename string, file io.Reader) (string, error) {
	if err := os.MkdirAll(api.uploadsDir, 0o755); err != nil {
		return "", fmt.Errorf("create uploads dir: %w", err)
	}

	audioPath := filepath.Join(api.uploadsDir, meetingID+"_"+filename)
	target, err := os.Create(audioPath)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer target.Close()

	if _, err := io.Copy(target, file); err != nil {
		os.Remove(audioPath)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	return audioPath, nil
}

func (api *API) registerAndEnqueue(r *http.Request, meetingID, filename, audioPath string, demo bool) error {
	now := time.Now().UTC()
	if err := api.store.Put(domain.MeetingProgress{
		ID:          meetingID,
		Filename:    filename,
		Status:      domain.StatusProcessing,
		Progress:    0,
		CurrentStep: "Queued for processing",
		StartedAt:   now,
		UploadedAt:  now,
	}); err != nil {
		return fmt.Errorf("register meeting: %w", err)
	}

	message := domain.QueueMessage{
		MeetingID:   meetingID,
		Filename:    filename,
		AudioPath:   audioPath,
		Demo:        demo,
		RequestedAt: now,
	}
	if err := api.producer.Enqueue(r.Context(), message); err != nil {
		api.logf("enqueue failed meeting_id=%s: %v", meetingID, err)
		return fmt.Errorf("enqueue meeting: %w", err)
	}

	api.logf("meeting scheduled meeting_id=%s filename=%s demo=%t", meetingID, filename, demo)
	return nil
}

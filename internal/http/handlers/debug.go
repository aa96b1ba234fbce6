package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/audioinsight/audioinsight-back/internal/store"
)

// DebugStatus reports raw store counters. Unnormalized, for operators.
func (api *API) DebugStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	inflight, completed := api.store.Counts()
	response := map[string]any{
		"inflight":  inflight,
		"completed": completed,
	}
	if api.inspector != nil {
		response["inflight_ids"] = api.inspector.InflightIDs()
		response["completed_ids"] = api.inspector.CompletedIDs()
	}
	writeJSON(w, http.StatusOK, response)
}

// DebugMeeting returns the raw stored state for one meeting id, skipping
// normalization so operators see exactly what the pipeline wrote.
func (api *API) DebugMeeting(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	meetingID := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/v1/debug/meetings/"))
	if meetingID == "" || strings.Contains(meetingID, "/") {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "meeting id is required")
		return
	}

	if result, err := api.store.Result(meetingID); err == nil {
		writeJSON(w, http.StatusOK, map[string]any{"state": "terminal", "result": result})
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to load meeting")
		return
	}

	if progress, err := api.store.Get(meetingID); err == nil {
		writeJSON(w, http.StatusOK, map[string]any{"state": "inflight", "progress": progress})
		return
	}

	writeError(w, r, http.StatusNotFound, "not_found", "meeting not found")
}

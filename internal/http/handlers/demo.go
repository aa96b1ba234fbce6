package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type demoFile struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Filename    string  `json:"filename"`
	Duration    float64 `json:"duration"`
	Description string  `json:"description"`
}

var demoCatalog = []demoFile{
	{
		ID:          "standup",
		Name:        "Team Standup",
		Filename:    "demo_standup_meeting.wav",
		Duration:    272,
		Description: "Sprint standup with three participants covering progress, blockers, and next steps.",
	},
}

// DemoFiles lists the built-in sample meetings available without an upload.
func (api *API) DemoFiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": demoCatalog})
}

// DemoAnalyze schedules a demo meeting through the same pipeline as an
// upload. Demo jobs carry no audio path and resolve through the
// deterministic transcript fallback.
func (api *API) DemoAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/v1/demo/")
	demoID := strings.TrimSuffix(path, "/analyze")
	if demoID == path || strings.TrimSpace(demoID) == "" || strings.Contains(demoID, "/") {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "expected /v1/demo/{id}/analyze")
		return
	}
	// Some clients send ids already carrying the demo_ prefix.
	demoID = strings.TrimPrefix(demoID, "demo_")

	entry, found := lookupDemo(demoID)
	if !found {
		writeError(w, r, http.StatusNotFound, "not_found", "unknown demo file")
		return
	}

	meetingID := fmt.Sprintf("demo_%s_%s", entry.ID, uuid.NewString()[:8])
	if err := api.registerAndEnqueue(r, meetingID, entry.Filename, "", true); err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to schedule demo analysis")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":       meetingID,
		"filename": entry.Filename,
		"status":   "processing",
	})
}

func lookupDemo(demoID string) (demoFile, bool) {
	for _, entry := range demoCatalog {
		if entry.ID == demoID {
			return entry, true
		}
	}
	return demoFile{}, false
}

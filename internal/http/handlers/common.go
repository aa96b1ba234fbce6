package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/audioinsight/audioinsight-back/internal/http/middleware"
	"github.com/audioinsight/audioinsight-back/internal/normalize"
	"github.com/audioinsight/audioinsight-back/internal/queue"
	"github.com/audioinsight/audioinsight-back/internal/store"
)

// StateInspector exposes raw store state for the debug endpoints.
type StateInspector interface {
	InflightIDs() []string
	CompletedIDs() []string
}

type API struct {
	store      store.MeetingStore
	producer   queue.Producer
	normalizer *normalize.Normalizer
	inspector  StateInspector
	uploadsDir string
	logger     *log.Logger
}

type APIDependencies struct {
	Store      store.MeetingStore
	Producer   queue.Producer
	Normalizer *normalize.Normalizer
	Inspector  StateInspector
	UploadsDir string
	Logger     *log.Logger
}

func NewAPI(deps APIDependencies) *API {
	if deps.Normalizer == nil {
		deps.Normalizer = normalize.New(deps.Logger)
	}
	return &API{
		store:      deps.Store,
		producer:   deps.Producer,
		normalizer: deps.Normalizer,
		inspector:  deps.Inspector,
		uploadsDir: deps.UploadsDir,
		logger:     deps.Logger,
	}
}

type errorPayload struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

func writeJSON(w http.ResponseWriter, statusCode int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	payload := errorPayload{RequestID: middleware.GetRequestID(r.Context())}
	payload.Error.Code = code
	payload.Error.Message = message
	writeJSON(w, statusCode, payload)
}

func (api *API) logf(format string, args ...any) {
	if api.logger == nil {
		return
	}
	api.logger.Printf(format, args...)
}

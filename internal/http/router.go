package httpserver

import (
	"log"
	"net/http"

	"github.com/audioinsight/audioinsight-back/internal/http/handlers"
	"github.com/audioinsight/audioinsight-back/internal/http/middleware"
)

type RouterDependencies struct {
	API            *handlers.API
	Logger         *log.Logger
	AuthToken      string
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewRouter(deps RouterDependencies) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", deps.API.Health)
	mux.HandleFunc("/v1/meetings", deps.API.Upload)
	mux.HandleFunc("/v1/meetings/", deps.API.Meeting)
	mux.HandleFunc("/v1/demo-files", deps.API.DemoFiles)
	mux.HandleFunc("/v1/demo/", deps.API.DemoAnalyze)
	mux.HandleFunc("/v1/debug/status", deps.API.DebugStatus)
	mux.HandleFunc("/v1/debug/meetings/", deps.API.DebugMeeting)

	handler := http.Handler(mux)
	handler = middleware.Auth(deps.AuthToken)(handler)
	handler = middleware.RateLimit(deps.RateLimitRPS, deps.RateLimitBurst)(handler)
	handler = middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: deps.CORSOrigins,
	})(handler)
	handler = middleware.Trace(deps.Logger)(handler)
	handler = middleware.RequestID(handler)

	return handler
}

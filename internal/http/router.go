package httpserver

import (
	"log"
	"net/http"

	"github.com/iago/content-orchestrator-back/internal/http/handlers"
	"github.com/iago/content-orchestrator-back/internal/http/middleware"
	"github.com/iago/content-orchestrator-back/internal/metrics"
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
	mux.Handle("/metrics", metrics.Handler())

	mux.HandleFunc("/v1/topics", deps.API.Topics)
	mux.HandleFunc("/v1/topics/research", deps.API.TopicResearch)
	mux.HandleFunc("/v1/topics/", deps.API.TopicByID)
	mux.HandleFunc("/v1/instructions", deps.API.Instructions)
	mux.HandleFunc("/v1/instructions/", deps.API.InstructionByID)
	mux.HandleFunc("/v1/articles", deps.API.Articles)

	mux.HandleFunc("/v1/generation/selection", deps.API.GenerationSelection)
	mux.HandleFunc("/v1/generation/config", deps.API.GenerationConfig)
	mux.HandleFunc("/v1/generation/start", deps.API.GenerationStart)
	mux.HandleFunc("/v1/generation/session", deps.API.GenerationSession)
	mux.HandleFunc("/v1/notifications", deps.API.Notifications)

	mux.HandleFunc("/v1/integrations/wordpress", deps.API.WordPressIntegration)
	mux.HandleFunc("/v1/proxy/wordpress/post", deps.API.WordPressPost)

	handler := http.Handler(mux)
	handler = middleware.Workspace(handler)
	handler = middleware.Auth(deps.AuthToken)(handler)
	handler = middleware.RateLimit(deps.RateLimitRPS, deps.RateLimitBurst)(handler)
	handler = middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: deps.CORSOrigins,
	})(handler)
	handler = middleware.Trace(deps.Logger)(handler)
	handler = middleware.RequestID(handler)

	return handler
}

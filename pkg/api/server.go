// Package api exposes the search pipeline over HTTP: the search endpoint
// itself, the expansion debug endpoint, cache administration and the
// metrics read surface (snapshot and live firehose).
package api

import (
	"encoding/json"
	"net/http"

	"github.com/uniseek/uniseek/pkg/cache"
	"github.com/uniseek/uniseek/pkg/compress"
	"github.com/uniseek/uniseek/pkg/log"
	"github.com/uniseek/uniseek/pkg/metrics"
	"github.com/uniseek/uniseek/pkg/realtime"
	"github.com/uniseek/uniseek/pkg/search"
)

// Server holds the HTTP layer's collaborators. Everything is injected at
// construction so tests can build a server around fakes and a fresh cache
// and collector per test case.
type Server struct {
	service    *search.Service
	cache      cache.Cache
	collector  *metrics.Collector
	negotiator *compress.Negotiator
	hub        *realtime.Hub
	logger     *log.Logger
}

// NewServer creates the HTTP layer around its collaborators.
func NewServer(service *search.Service, c cache.Cache, collector *metrics.Collector, negotiator *compress.Negotiator, hub *realtime.Hub) *Server {
	return &Server{
		service:    service,
		cache:      c,
		collector:  collector,
		negotiator: negotiator,
		hub:        hub,
		logger:     log.ForComponent("api"),
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Errorf("encoding JSON response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, error, message string) {
	response := ErrorResponse{
		Error:   error,
		Message: message,
	}
	s.writeJSON(w, status, response)
}

// CorsMiddleware allows browser dashboards on other origins to call the API.
func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

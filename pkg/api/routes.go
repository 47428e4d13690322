package api

import (
	"net/http"
)

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// API routes with method-specific routing
	mux.HandleFunc("GET /api/search", s.HandleSearch)
	mux.HandleFunc("GET /api/expand", s.HandleExpand)
	mux.HandleFunc("GET /api/metrics", s.HandleMetrics)
	mux.HandleFunc("GET /api/metrics/firehose", s.HandleMetricsFirehose)
	mux.HandleFunc("GET /api/cache/stats", s.HandleCacheStats)
	mux.HandleFunc("DELETE /api/cache", s.HandleCacheClear)
	mux.HandleFunc("DELETE /api/cache/{prefix}", s.HandleCacheInvalidate)
	mux.HandleFunc("GET /health", s.HandleHealth)
}

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/uniseek/uniseek/pkg/cache"
	"github.com/uniseek/uniseek/pkg/metrics"
	"github.com/uniseek/uniseek/pkg/search"
	"github.com/uniseek/uniseek/pkg/version"
)

// HandleSearch runs the full pipeline for one request: parameter parsing,
// expression building, cache lookup, fetch+filter on miss, compression
// negotiation and exactly one recorded metric. The metric is recorded after
// the response bytes are written, so clients never wait on it.
func (s *Server) HandleSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	metric := metrics.Metric{
		RequestID: uuid.NewString(),
		Endpoint:  r.URL.Path,
		Method:    r.Method,
	}
	defer func() {
		metric.Duration = time.Since(start)
		s.collector.Record(metric)
	}()

	params, err := search.ParseParams(r.URL.Query())
	if err != nil {
		metric.StatusCode = http.StatusBadRequest
		s.writeError(w, http.StatusBadRequest, "Invalid date format", err.Error())
		return
	}

	payload, cached, err := s.service.Search(r.Context(), params)
	if err != nil {
		metric.StatusCode = http.StatusInternalServerError
		metric.ErrorMessage = err.Error()
		s.writeError(w, http.StatusInternalServerError, "Search failed", err.Error())
		return
	}

	result := s.negotiator.Negotiate(r.Header.Get("Accept-Encoding"), payload)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Vary", "Accept-Encoding")
	if result.Encoding != "" {
		w.Header().Set("Content-Encoding", result.Encoding)
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Bytes)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Bytes); err != nil {
		s.logger.Warnf("writing search response: %v", err)
	}

	metric.StatusCode = http.StatusOK
	metric.Cached = cached
	metric.Compressed = result.Encoding != ""
	if result.Encoding != "" {
		metric.CompressionRatio = result.Ratio
	}
}

// HandleExpand is the debug endpoint showing how a query expands.
func (s *Server) HandleExpand(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		s.writeError(w, http.StatusBadRequest, "Missing query parameter", "Query parameter 'q' is required")
		return
	}

	s.writeJSON(w, http.StatusOK, ExpandResponse{
		Query:      q,
		Terms:      s.service.Expand(q),
		Expression: s.service.Expression(q),
	})
}

// HandleMetrics returns the trailing-window performance summary, current
// cache stats and the retained metric count. The window is given in minutes
// and defaults to 60.
func (s *Server) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	window := 60
	if windowStr := r.URL.Query().Get("window"); windowStr != "" {
		if parsed, err := strconv.Atoi(windowStr); err == nil && parsed > 0 {
			window = parsed
		}
	}

	s.writeJSON(w, http.StatusOK, MetricsResponse{
		Summary:    s.collector.Summary(time.Duration(window) * time.Minute),
		CacheStats: s.cache.Stats(r.Context()),
		Count:      s.collector.Count(),
	})
}

// HandleCacheStats returns cache counters on their own.
func (s *Server) HandleCacheStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.cache.Stats(r.Context()))
}

// HandleCacheClear drops every cached response.
func (s *Server) HandleCacheClear(w http.ResponseWriter, r *http.Request) {
	s.cache.Clear(r.Context())
	s.logger.Infof("cache cleared")
	s.writeJSON(w, http.StatusOK, CacheClearResponse{Cleared: true})
}

// HandleCacheInvalidate removes cached responses whose key starts with the
// given prefix (trailing-wildcard pattern invalidation).
func (s *Server) HandleCacheInvalidate(w http.ResponseWriter, r *http.Request) {
	prefix := r.PathValue("prefix")
	if prefix == "" {
		s.writeError(w, http.StatusBadRequest, "Invalid path", "Key prefix is required")
		return
	}

	pattern := cache.Key(prefix) + "*"
	s.cache.DeletePattern(r.Context(), pattern)
	s.logger.Infof("cache invalidated for pattern %s", pattern)
	s.writeJSON(w, http.StatusOK, CacheClearResponse{Cleared: true, Pattern: pattern})
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   version.APIVersion(),
	})
}

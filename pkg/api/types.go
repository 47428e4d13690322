package api

import (
	"time"

	"github.com/uniseek/uniseek/pkg/cache"
	"github.com/uniseek/uniseek/pkg/metrics"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type ExpandResponse struct {
	Query      string   `json:"query"`
	Terms      []string `json:"terms"`
	Expression string   `json:"expression"`
}

type MetricsResponse struct {
	Summary    metrics.Summary `json:"summary"`
	CacheStats cache.Stats     `json:"cache_stats"`
	Count      int             `json:"count"`
}

type CacheClearResponse struct {
	Cleared bool   `json:"cleared"`
	Pattern string `json:"pattern,omitempty"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

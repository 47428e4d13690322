// Package search wires the query expander, response cache, data source and
// filter engine into the one pipeline a search request flows through. It
// handles cache key derivation, hit/miss bookkeeping and pagination
// metadata, and hands a serialized payload back for encoding.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/uniseek/uniseek/pkg/cache"
	"github.com/uniseek/uniseek/pkg/core"
	"github.com/uniseek/uniseek/pkg/filter"
	"github.com/uniseek/uniseek/pkg/log"
	"github.com/uniseek/uniseek/pkg/query"
	"github.com/uniseek/uniseek/pkg/source"
)

// Response is the search result envelope. It is what gets cached, so all of
// it must be derivable from the request parameters alone.
type Response struct {
	Query      string `json:"query"`
	Expression string `json:"expression"`

	Results []core.Record `json:"results"`

	// TotalCount is the data source's total for the expression, before
	// range refinement.
	TotalCount int `json:"total_count"`

	// FilteredCount, AppliedFilters and MatchPercentage describe the
	// refinement pass over this page.
	FilteredCount   int      `json:"filtered_count"`
	AppliedFilters  []string `json:"applied_filters"`
	MatchPercentage float64  `json:"match_percentage"`

	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalPages int  `json:"total_pages"`
	HasMore    bool `json:"has_more"`
}

// Service executes searches. All collaborators are injected so tests can
// substitute fakes; nothing here is process-global.
type Service struct {
	mu       sync.RWMutex
	expander *query.Expander
	engine   *filter.Engine
	cache    cache.Cache
	source   source.DataSource
	ttl      time.Duration
	logger   *log.Logger
}

// NewService creates a search service. ttl controls how long responses stay
// cached.
func NewService(expander *query.Expander, engine *filter.Engine, c cache.Cache, src source.DataSource, ttl time.Duration) *Service {
	return &Service{
		expander: expander,
		engine:   engine,
		cache:    c,
		source:   src,
		ttl:      ttl,
		logger:   log.ForComponent("search"),
	}
}

// Search runs one request through the pipeline and returns the serialized
// response payload plus whether it came from the cache.
//
// The flow: build the boolean expression, derive the cache key from
// (expression, filter state, page, limit), try the cache, and on a miss
// fetch candidates, refine them through the filter engine and store the
// result. Only data-source failures propagate; cache trouble silently
// behaves like a miss.
func (s *Service) Search(ctx context.Context, params Params) ([]byte, bool, error) {
	expression := s.getExpander().BuildBooleanExpression(params.Query)
	key := cache.Key(
		expression,
		params.Filters.Key(),
		strconv.Itoa(params.Page),
		strconv.Itoa(params.Limit),
	)

	if payload, ok := s.cache.Get(ctx, key); ok {
		s.logger.Debugf("cache hit for %s", key)
		return payload, true, nil
	}

	candidates, total, err := s.source.Fetch(ctx, source.FetchRequest{
		Expression: expression,
		Filters:    params.Filters,
		Page:       params.Page,
		PageSize:   params.Limit,
	})
	if err != nil {
		return nil, false, fmt.Errorf("fetching candidates: %w", err)
	}

	refined := s.engine.Apply(candidates, params.Filters)

	totalPages := 0
	if total > 0 {
		totalPages = (total + params.Limit - 1) / params.Limit
	}

	response := Response{
		Query:           params.Query,
		Expression:      expression,
		Results:         refined.Items,
		TotalCount:      total,
		FilteredCount:   refined.TotalCount,
		AppliedFilters:  refined.AppliedFilters,
		MatchPercentage: refined.MatchPercentage,
		Page:            params.Page,
		Limit:           params.Limit,
		TotalPages:      totalPages,
		HasMore:         params.Page*params.Limit < total,
	}

	payload, err := json.Marshal(response)
	if err != nil {
		return nil, false, fmt.Errorf("encoding response: %w", err)
	}

	// Populate the cache even when the caller has gone away; cache writes
	// are expected to be fast and are idempotently derivable from the
	// request, so an abandoned request can still save the next one work.
	s.cache.Set(context.WithoutCancel(ctx), key, payload, s.ttl)

	return payload, false, nil
}

// Expand exposes the expander's broad-matching term set for the debug
// endpoint and CLI.
func (s *Service) Expand(q string) []string {
	return s.getExpander().Expand(q)
}

// SetExpander swaps the query expander in place. Configuration reload uses
// this so synonym table changes take effect without dropping the cache or
// restarting the listener.
func (s *Service) SetExpander(expander *query.Expander) {
	s.mu.Lock()
	s.expander = expander
	s.mu.Unlock()
}

func (s *Service) getExpander() *query.Expander {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expander
}

// Expression exposes the rendered boolean expression for the debug endpoint
// and CLI.
func (s *Service) Expression(q string) string {
	return s.getExpander().BuildBooleanExpression(q)
}

// DecodeResponse unmarshals a payload produced by Search.
func DecodeResponse(payload []byte) (*Response, error) {
	var response Response
	if err := json.Unmarshal(payload, &response); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &response, nil
}

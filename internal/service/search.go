package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"leadbot/internal/metrics"
	"leadbot/internal/model"
)

// SearchExecutor fetches candidate properties for the given parameters
type SearchExecutor interface {
	Search(ctx context.Context, params model.SearchParams) ([]model.Property, error)
}

// ListingQuerier is the storage query behind ListingSearchExecutor
type ListingQuerier interface {
	SearchListings(ctx context.Context, params model.SearchParams, limit int) ([]model.Property, error)
}

const (
	defaultCandidateLimit = 50
	searchCacheTTL        = 15 * time.Minute
)

// ListingSearchExecutor searches the local listings table
type ListingSearchExecutor struct {
	repo  ListingQuerier
	limit int
}

// NewListingSearchExecutor creates a new executor over repo
func NewListingSearchExecutor(repo ListingQuerier, limit int) *ListingSearchExecutor {
	if limit <= 0 {
		limit = defaultCandidateLimit
	}
	return &ListingSearchExecutor{repo: repo, limit: limit}
}

// Search implements SearchExecutor
func (e *ListingSearchExecutor) Search(ctx context.Context, params model.SearchParams) ([]model.Property, error) {
	return e.repo.SearchListings(ctx, params, e.limit)
}

// CachedSearchExecutor memoizes candidate lists per search shape and collapses
// concurrent identical lookups into one backend call
type CachedSearchExecutor struct {
	next    SearchExecutor
	backend string
	cache   Cache
	ttl     time.Duration
	metrics *metrics.Exporter
	group   singleflight.Group
}

// NewCachedSearchExecutor wraps next. A non-positive ttl uses 15 minutes.
func NewCachedSearchExecutor(next SearchExecutor, backend string, cache Cache, ttl time.Duration, exporter *metrics.Exporter) *CachedSearchExecutor {
	if ttl <= 0 {
		ttl = searchCacheTTL
	}
	return &CachedSearchExecutor{next: next, backend: backend, cache: cache, ttl: ttl, metrics: exporter}
}

// SearchCacheKey identifies a candidate list. Features are left out because
// they only influence ranking.
func SearchCacheKey(backend string, params model.SearchParams) string {
	propertyType := model.PropertyTypeAny
	if params.HasPropertyType() {
		propertyType = *params.PropertyType
	}
	baths := "any"
	if params.MinBathrooms != nil {
		baths = strconv.Itoa(*params.MinBathrooms)
	}
	return fmt.Sprintf("leadbot:search:%s:%s:%s:%d:%s:%s",
		backend,
		strings.ToLower(strings.TrimSpace(params.Location)),
		strconv.FormatFloat(params.MaxPrice, 'f', -1, 64),
		params.MinBedrooms,
		baths,
		propertyType,
	)
}

// Search implements SearchExecutor
func (e *CachedSearchExecutor) Search(ctx context.Context, params model.SearchParams) ([]model.Property, error) {
	key := SearchCacheKey(e.backend, params)

	var cached []model.Property
	hit, err := e.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		log.Warn().Err(err).Str("cache", "search").Msg("cache read failed")
	}
	e.metrics.RecordCache("search", hit)
	if hit {
		log.Debug().Str("key", key).Int("count", len(cached)).Msg("search cache hit")
		return cached, nil
	}

	v, err, shared := e.group.Do(key, func() (interface{}, error) {
		properties, err := e.next.Search(ctx, params)
		if err != nil {
			return nil, err
		}
		if err := e.cache.SetJSON(ctx, key, properties, e.ttl); err != nil {
			log.Warn().Err(err).Str("cache", "search").Msg("cache write failed")
		}
		return properties, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Debug().Str("key", key).Msg("search shared with concurrent caller")
	}
	return v.([]model.Property), nil
}

// SearchService runs a search backend and ranks its candidates
type SearchService struct {
	executor SearchExecutor
	ranker   *Ranker
	backend  string
	metrics  *metrics.Exporter
}

// NewSearchService creates a new search service
func NewSearchService(executor SearchExecutor, ranker *Ranker, backend string, exporter *metrics.Exporter) *SearchService {
	return &SearchService{
		executor: executor,
		ranker:   ranker,
		backend:  backend,
		metrics:  exporter,
	}
}

// Search executes the backend query and returns the ranked matches
func (s *SearchService) Search(ctx context.Context, params model.SearchParams) ([]model.MatchResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	startTime := time.Now()

	properties, err := s.executor.Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%s search: %w", s.backend, err)
	}

	matches := s.ranker.Match(properties, params)
	s.metrics.RecordSearchResults(s.backend, len(matches))

	log.Info().
		Str("backend", s.backend).
		Str("location", params.Location).
		Float64("max_price", params.MaxPrice).
		Int("candidates", len(properties)).
		Int("matches", len(matches)).
		Dur("took", time.Since(startTime)).
		Msg("property search completed")

	return matches, nil
}

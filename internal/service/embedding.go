package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"leadbot/internal/metrics"
)

// Cache stores JSON values with a TTL
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

const embeddingCacheTTL = 24 * time.Hour

var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizedTextKey hashes text after case and whitespace folding, for cache keys
func NormalizedTextKey(text string) string {
	normalized := whitespaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(text)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:16])
}

// CachedEmbedder memoizes embeddings of identical (normalized) texts
type CachedEmbedder struct {
	embedder Embedder
	cache    Cache
	metrics  *metrics.Exporter
}

// NewCachedEmbedder wraps embedder. A nil cache disables caching.
func NewCachedEmbedder(embedder Embedder, cache Cache, exporter *metrics.Exporter) *CachedEmbedder {
	return &CachedEmbedder{embedder: embedder, cache: cache, metrics: exporter}
}

// Embed implements Embedder
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := "leadbot:embedding:" + NormalizedTextKey(text)

	if e.cache != nil {
		var cached []float32
		hit, err := e.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			log.Warn().Err(err).Str("cache", "embedding").Msg("cache read failed")
		}
		e.metrics.RecordCache("embedding", hit && len(cached) > 0)
		if hit && len(cached) > 0 {
			return cached, nil
		}
	}

	vector, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.SetJSON(ctx, key, vector, embeddingCacheTTL); err != nil {
			log.Warn().Err(err).Str("cache", "embedding").Msg("cache write failed")
		}
	}
	return vector, nil
}

package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"leadbot/internal/model"
)

type memCache struct {
	mu    sync.Mutex
	items map[string][]byte
	sets  int
}

func newMemCache() *memCache {
	return &memCache{items: map[string][]byte{}}
}

func (c *memCache) GetJSON(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.items[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = raw
	c.sets++
	return nil
}

type fakeEmbedder struct {
	calls  int
	vector []float32
	err    error
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

type fakeSearcher struct {
	results   []model.SimilarConversation
	err       error
	threshold float64
	limit     int
	industry  string
}

func (f *fakeSearcher) FindSimilarConversations(_ context.Context, _ []float32, industry string, threshold float64, limit int) ([]model.SimilarConversation, error) {
	f.industry, f.threshold, f.limit = industry, threshold, limit
	return f.results, f.err
}

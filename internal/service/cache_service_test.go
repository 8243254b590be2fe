package service

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type memoryCacheRepo struct {
	mu     sync.Mutex
	items  map[string][]byte
	ttls   map[string]time.Duration
	getErr error
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = raw
	m.ttls[key] = ttl
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.items {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.items, key)
		}
	}
	return nil
}

func (m *memoryCacheRepo) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.items))
	for key := range m.items {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

func TestCacheServiceDisabledIsNoop(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, 0, nil, false)

	svc.Set(context.Background(), "k", "v", 0)
	var out string
	assert.False(t, svc.Get(context.Background(), "k", &out))
	assert.Empty(t, repo.keys())

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
	assert.False(t, nilSvc.Get(context.Background(), "k", &out))
	nilSvc.Set(context.Background(), "k", "v", 0)
	assert.NoError(t, nilSvc.InvalidateCatalog(context.Background()))
}

func TestCacheServiceRoundTripAndMetrics(t *testing.T) {
	repo := newMemoryCacheRepo()
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, 0, nil, true)
	ctx := context.Background()

	var out []int
	assert.False(t, svc.Get(ctx, cacheKeyCategories, &out))

	svc.Set(ctx, cacheKeyCategories, []int{1, 2}, 0)
	assert.Equal(t, 5*time.Minute, repo.ttls[cacheKeyCategories])
	require.True(t, svc.Get(ctx, cacheKeyCategories, &out))
	assert.Equal(t, []int{1, 2}, out)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.cacheLookups.WithLabelValues("miss")))
}

func TestCacheServiceBackendErrorIsMiss(t *testing.T) {
	repo := newMemoryCacheRepo()
	repo.getErr = errors.New("redis down")
	svc := NewCacheService(repo, nil, time.Minute, nil, true)

	var out string
	assert.False(t, svc.Get(context.Background(), "k", &out))
}

func TestCacheServiceInvalidateCatalog(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, time.Minute, nil, true)
	ctx := context.Background()

	svc.Set(ctx, cacheKeyCategories, []int{1}, 0)
	svc.Set(ctx, cacheKeyCategory(3), map[string]int{"id": 3}, 0)
	svc.Set(ctx, "other:key", 1, 0)

	require.NoError(t, svc.InvalidateCatalog(ctx))
	assert.Equal(t, []string{"other:key"}, repo.keys())
}

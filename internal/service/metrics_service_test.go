package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceDomainCounters(t *testing.T) {
	metrics := NewMetricsService()

	metrics.RecordReplacement(true)
	metrics.RecordReplacement(false)
	metrics.RecordReplacement(false)
	metrics.ObservePayrollBatch(12, true)
	metrics.RecordExportJob("payroll_register", "FINISHED")

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.replacements.WithLabelValues("committed")))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.replacements.WithLabelValues("rolled_back")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.exportJobs.WithLabelValues("payroll_register", "FINISHED")))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.payrollBatch))
}

func TestMetricsServiceHandlerExposesRegistry(t *testing.T) {
	metrics := NewMetricsService()
	metrics.ObserveHTTPRequest(http.MethodGet, "/api/v1/employees", http.StatusOK, 15*time.Millisecond)
	metrics.ObserveDBQuery("employee_list", time.Millisecond)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",path="/api/v1/employees",status="200"} 1`)
	assert.Contains(t, rec.Body.String(), "db_query_duration_seconds")
}

func TestMetricsServiceNilIsSafe(t *testing.T) {
	var metrics *MetricsService
	metrics.RecordReplacement(true)
	metrics.ObservePayrollBatch(1, false)
	metrics.ObserveDBQuery("x", time.Millisecond)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type failingCache struct{}

func (failingCache) Get(ctx context.Context, key string, dest interface{}) error {
	return errors.New("redis down")
}

func (failingCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return errors.New("redis down")
}

func (failingCache) DeleteByPattern(ctx context.Context, pattern string) error {
	return errors.New("redis down")
}

func TestCacheServiceRecordsHitRatio(t *testing.T) {
	metrics := NewMetricsService()
	cacheRepo := newMemoryCache()
	cache := NewCacheService(cacheRepo, metrics, time.Minute, nil, true)

	var out []int
	hit, err := cache.Get(context.Background(), "kharcha:periods", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.Set(context.Background(), "kharcha:periods", []int{1, 2}, 0))
	hit, err = cache.Get(context.Background(), "kharcha:periods", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []int{1, 2}, out)
	assert.Equal(t, 0.5, testutil.ToFloat64(metrics.cacheHitRatio))
}

func TestCacheServiceDisabledAndFailing(t *testing.T) {
	disabled := NewCacheService(newMemoryCache(), nil, 0, nil, false)
	assert.False(t, disabled.Enabled())
	hit, err := disabled.Get(context.Background(), "k", &struct{}{})
	assert.NoError(t, err)
	assert.False(t, hit)

	failing := NewCacheService(failingCache{}, nil, 0, nil, true)
	_, err = failing.Get(context.Background(), "k", &struct{}{})
	assert.Error(t, err)
	assert.Error(t, failing.Invalidate(context.Background(), "kharcha:*"))
}

func TestReplacementChainSurvivesCacheOutage(t *testing.T) {
	repo := newReplacementRepoStub()
	repo.ancestors = append(repo.ancestors, edge(1, 1, 2))
	svc := newReplacementServiceForTest(repo, NewCacheService(failingCache{}, nil, 0, nil, true))

	chain, hit, err := svc.GetReplacementChain(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, chain, 1)
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-tools/internal/models"
	"github.com/noah-isme/campus-tools/pkg/config"
	appErrors "github.com/noah-isme/campus-tools/pkg/errors"
)

type memoryCacheRepo struct {
	items  map[string][]byte
	getErr error
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	return nil
}


func TestCacheServiceDisabled(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, 0, zap.NewNop(), false)

	svc.Set(context.Background(), "k", "v", 0)
	var out string
	assert.False(t, svc.Get(context.Background(), "k", &out))
	assert.Empty(t, repo.items)
}

func TestCacheServiceRepoErrorIsMiss(t *testing.T) {
	repo := newMemoryCacheRepo()
	repo.getErr = errors.New("redis down")
	svc := NewCacheService(repo, NewMetricsService(), time.Minute, nil, true)

	var out string
	assert.False(t, svc.Get(context.Background(), "k", &out))
}

func TestCourseServiceServesCachedDetails(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"isError":false,"message":null,"statusCode":200,"data":{"Classes":[{"ClassNumber":7}],"Count":1}}`))
	}))
	t.Cleanup(server.Close)

	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, NewMetricsService(), time.Minute, nil, true)
	svc := NewCourseService(config.CourseConfig{BaseURL: server.URL}, server.Client(), cache, nil, nil, nil)

	req := models.CourseDetailRequest{Term: "2252", ClassNumber: "7"}
	first, err := svc.GetDetails(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.GetDetails(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.Text, second.Text)
	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	assert.Contains(t, repo.items, "course:detail:2252:7")

}

func TestCourseServiceDoesNotCacheErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, time.Minute, nil, true)
	svc := NewCourseService(config.CourseConfig{BaseURL: server.URL}, server.Client(), cache, nil, nil, nil)

	_, err := svc.Search(context.Background(), models.CourseSearchRequest{Term: "2252", Subjects: []string{"CS"}})
	require.Error(t, err)
	assert.Empty(t, repo.items)
}

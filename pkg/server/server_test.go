package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/grokpulse/grokpulse/internal/store"
	"github.com/grokpulse/grokpulse/pkg/trend"
)

func newTestServer(t *testing.T) (*Server, *store.SQLiteStore) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	srv := New(s, trend.NewInterestIndex(s), nil, 0, zap.NewNop())
	return srv, s
}

func doGet(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doGet(t, srv, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])
}

func TestTrends(t *testing.T) {
	srv, s := newTestServer(t)
	day := time.Now().UTC().Format("2006-01-02")
	require.NoError(t, s.UpsertDaily(context.Background(), []store.DailyBucket{
		{TopicName: "python", Category: "tech", Day: day, MentionCount: 10},
		{TopicName: "bitcoin", Category: "crypto", Day: day, MentionCount: 30},
	}))

	rec := doGet(t, srv, "/api/v1/trends?days=7")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	trending := body["trending_topics"].([]any)
	require.Len(t, trending, 2)

	first := trending[0].(map[string]any)
	assert.Equal(t, "bitcoin", first["topic"])
	assert.Equal(t, float64(1), first["rank"])

	assert.NotEmpty(t, body["chart_data"])
	assert.Contains(t, body, "stats")
}

func TestTrendsEmpty(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doGet(t, srv, "/api/v1/trends")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Empty(t, body["trending_topics"])
}

func TestInterestSeriesShape(t *testing.T) {
	srv, s := newTestServer(t)
	nowHr := time.Now().UTC().Truncate(time.Hour)
	require.NoError(t, s.UpsertHourly(context.Background(), []store.HourlyBucket{
		{TopicName: "python", Category: "tech", BucketTS: nowHr, Mentions: 2, Weighted: 6},
	}))

	rec := doGet(t, srv, "/api/v1/interest?topics=python&hours=4")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "weighted", body["metric"])
	assert.Equal(t, "per_topic", body["normalize"])

	series := body["series"].([]any)
	// Inclusive window bounds: 4 hours is 5 records.
	require.Len(t, series, 5)
	last := series[len(series)-1].(map[string]any)
	assert.Contains(t, last, "time")
	assert.Equal(t, float64(100), last["python"])
}

func TestInterestRejectsBadInput(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doGet(t, srv, "/api/v1/interest")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doGet(t, srv, "/api/v1/interest?topics=python&metric=likes")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doGet(t, srv, "/api/v1/interest?topics=python&normalize=percentile")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearch(t *testing.T) {
	srv, s := newTestServer(t)
	require.NoError(t, s.InsertMentions(context.Background(), []store.TopicMention{{
		TopicName: "python", Category: "tech", MentionedAt: time.Now().UTC(),
		PostID: "1", Confidence: 0.6, Source: "twitter",
	}}))

	rec := doGet(t, srv, "/api/v1/topics/search?q=pyth")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["results"], 1)

	rec = doGet(t, srv, "/api/v1/topics/search?q=p")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doGet(t, srv, "/api/v1/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decode(t, rec)["total_posts"])
}

func TestCategoriesEndpoint(t *testing.T) {
	srv, s := newTestServer(t)
	day := time.Now().UTC().Format("2006-01-02")
	require.NoError(t, s.UpsertDaily(context.Background(), []store.DailyBucket{
		{TopicName: "python", Category: "tech", Day: day, MentionCount: 3},
	}))

	rec := doGet(t, srv, "/api/v1/categories")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["categories"], 1)
}

func TestCollectTrigger(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doGet(t, srv, "/api/v1/collect")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/collect", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	// No pipeline wired in: trigger is disabled.
	assert.Equal(t, http.StatusNotImplemented, w.Code)

	ticked := false
	srv.tick = func(context.Context) { ticked = true }
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/collect", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, ticked)
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/grokpulse/grokpulse/internal/store"
	"github.com/grokpulse/grokpulse/pkg/trend"
)

// TickFunc runs one pipeline pass; used by the manual trigger endpoint.
type TickFunc func(ctx context.Context)

// Server exposes the pipeline's read contracts over HTTP.
type Server struct {
	store    store.Store
	interest *trend.InterestIndex
	tick     TickFunc
	port     int
	log      *zap.Logger
}

// New creates a new HTTP server. tick may be nil to disable the manual
// collection trigger.
func New(s store.Store, interest *trend.InterestIndex, tick TickFunc, port int, log *zap.Logger) *Server {
	if port == 0 {
		port = 8080
	}
	return &Server{store: s, interest: interest, tick: tick, port: port, log: log}
}

// Handler returns the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/v1/trends", s.handleTrends)
	mux.HandleFunc("/api/v1/interest", s.handleInterest)
	mux.HandleFunc("/api/v1/topics/search", s.handleSearch)
	mux.HandleFunc("/api/v1/stats", s.handleStats)
	mux.HandleFunc("/api/v1/categories", s.handleCategories)
	mux.HandleFunc("/api/v1/collect", s.handleCollect)
	return mux
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.log.Info("http server listening", zap.String("addr", addr))
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy", "error": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "database": "connected"})
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	days := intParam(r, "days", 7, 1, 90)
	limit := intParam(r, "limit", 20, 1, 100)
	category := r.URL.Query().Get("category")

	rows, err := s.store.TopTrends(r.Context(), days, category, limit)
	if err != nil {
		s.storeError(w, err)
		return
	}

	type rankedTrend struct {
		store.TrendRow
		Rank int `json:"rank"`
	}
	ranked := make([]rankedTrend, len(rows))
	for i, row := range rows {
		ranked[i] = rankedTrend{TrendRow: row, Rank: i + 1}
	}

	// Small daily series for the top 3 topics.
	var chart []map[string]any
	if len(rows) > 0 {
		top := make([]string, 0, 3)
		for _, row := range rows[:min(3, len(rows))] {
			top = append(top, row.TopicName)
		}
		points, err := s.store.DailySeries(r.Context(), top, days)
		if err != nil {
			s.storeError(w, err)
			return
		}
		byDay := make(map[string]map[string]any)
		var order []string
		for _, p := range points {
			row, ok := byDay[p.Day]
			if !ok {
				row = map[string]any{"time": p.Day}
				byDay[p.Day] = row
				order = append(order, p.Day)
			}
			row[p.TopicName] = p.MentionCount
		}
		sort.Strings(order)
		for _, day := range order {
			chart = append(chart, byDay[day])
		}
	}

	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"trending_topics": ranked,
		"chart_data":      chart,
		"stats":           stats,
		"metadata": map[string]any{
			"days":         days,
			"category":     orAll(category),
			"generated_at": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func (s *Server) handleInterest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	topics := q["topics"]
	if len(topics) == 1 && strings.Contains(topics[0], ",") {
		topics = strings.Split(topics[0], ",")
	}
	for i := range topics {
		topics[i] = strings.TrimSpace(topics[i])
	}

	opts := trend.InterestOpts{
		Topics:    topics,
		Hours:     intParam(r, "hours", 48, 1, 720),
		Metric:    trend.Metric(q.Get("metric")),
		Normalize: trend.Normalization(q.Get("normalize")),
	}

	points, err := s.interest.Series(r.Context(), opts)
	if err != nil {
		if errors.Is(err, trend.ErrBadQuery) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.storeError(w, err)
		return
	}

	// One record per timestamp with one field per topic.
	var series []map[string]any
	var current map[string]any
	var currentTS time.Time
	for _, p := range points {
		if current == nil || !p.BucketTS.Equal(currentTS) {
			current = map[string]any{"time": p.BucketTS.Format(time.RFC3339)}
			currentTS = p.BucketTS
			series = append(series, current)
		}
		current[p.TopicName] = p.Value
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"metric":    orDefault(q.Get("metric"), string(trend.MetricWeighted)),
		"normalize": orDefault(q.Get("normalize"), string(trend.NormalizePerTopic)),
		"hours":     opts.Hours,
		"topics":    topics,
		"series":    series,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query().Get("q")
	if len(q) < 2 {
		writeError(w, http.StatusBadRequest, "q must be at least 2 characters")
		return
	}
	limit := intParam(r, "limit", 10, 1, 50)

	rows, err := s.store.SearchTopics(r.Context(), q, limit)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": rows})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rollups, err := s.store.CategoryRollups(r.Context(), intParam(r, "days", 7, 1, 90))
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": rollups})
}

func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.tick == nil {
		writeError(w, http.StatusNotImplemented, "pipeline trigger not configured")
		return
	}

	s.tick(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	s.log.Error("store error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "pipeline store unreachable")
}

func intParam(r *http.Request, name string, def, lo, hi int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func orAll(category string) string {
	if category == "" {
		return "all"
	}
	return category
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

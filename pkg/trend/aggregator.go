package trend

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/grokpulse/grokpulse/internal/metrics"
	"github.com/grokpulse/grokpulse/internal/store"
)

const (
	dailyWindowDays  = 7
	hourlyWindowDays = 30

	// Growth when yesterday's count is zero or absent. Kept at the
	// literal value existing consumers expect; it means "no usable
	// baseline", not 100% growth.
	growthSentinel = 100.0
)

// Aggregator rolls topic mentions into daily and hourly buckets and
// computes day-over-day growth. All writes are idempotent upserts:
// re-running over unchanged mentions reproduces identical rows.
type Aggregator struct {
	store store.Store
	log   *zap.Logger
	now   func() time.Time
}

// NewAggregator creates an aggregator.
func NewAggregator(s store.Store, log *zap.Logger) *Aggregator {
	return &Aggregator{
		store: s,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

type bucketKey struct {
	topic    string
	category string
	slot     string
}

// RollupDaily groups the trailing 7 days of mentions by (topic, category,
// date) and overwrites the daily bucket counts. The window cuts at a
// calendar-day boundary so the edge day is always counted in full; a
// mid-day cutoff would overwrite the edge bucket with a partial count.
func (a *Aggregator) RollupDaily(ctx context.Context) error {
	edge := a.now().AddDate(0, 0, -dailyWindowDays)
	since := time.Date(edge.Year(), edge.Month(), edge.Day(), 0, 0, 0, 0, time.UTC)
	events, err := a.store.MentionEvents(ctx, since)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		a.log.Info("no mentions in daily window")
		return nil
	}

	counts := make(map[bucketKey]int)
	for _, ev := range events {
		key := bucketKey{ev.TopicName, ev.Category, ev.MentionedAt.UTC().Format("2006-01-02")}
		counts[key]++
	}

	buckets := make([]store.DailyBucket, 0, len(counts))
	for key, n := range counts {
		buckets = append(buckets, store.DailyBucket{
			TopicName:    key.topic,
			Category:     key.category,
			Day:          key.slot,
			MentionCount: n,
		})
	}
	sortDaily(buckets)

	if err := a.store.UpsertDaily(ctx, buckets); err != nil {
		return err
	}

	metrics.BucketsUpserted.WithLabelValues("daily").Add(float64(len(buckets)))
	a.log.Info("daily rollup done", zap.Int("buckets", len(buckets)))
	return nil
}

// ComputeGrowth sets today's growth rate per (topic, category) relative to
// yesterday's count for the same key.
func (a *Aggregator) ComputeGrowth(ctx context.Context) error {
	today := a.now().Format("2006-01-02")
	yesterday := a.now().AddDate(0, 0, -1).Format("2006-01-02")

	todayRows, err := a.store.DailyCountsOn(ctx, today)
	if err != nil {
		return err
	}
	if len(todayRows) == 0 {
		return nil
	}

	yesterdayRows, err := a.store.DailyCountsOn(ctx, yesterday)
	if err != nil {
		return err
	}
	baseline := make(map[bucketKey]int, len(yesterdayRows))
	for _, row := range yesterdayRows {
		baseline[bucketKey{row.TopicName, row.Category, ""}] = row.MentionCount
	}

	for _, row := range todayRows {
		growth := growthSentinel
		if prev := baseline[bucketKey{row.TopicName, row.Category, ""}]; prev > 0 {
			growth = float64(row.MentionCount-prev) * 100.0 / float64(prev)
		}
		if err := a.store.UpdateGrowth(ctx, row.TopicName, row.Category, today, growth); err != nil {
			return err
		}
	}

	a.log.Info("growth computed", zap.Int("topics", len(todayRows)))
	return nil
}

// RollupHourly groups the trailing 30 days of mentions by (topic,
// category, hour) using the linear engagement weight.
func (a *Aggregator) RollupHourly(ctx context.Context) error {
	since := a.now().AddDate(0, 0, -hourlyWindowDays)
	return a.rollupHourly(ctx, since, LinearWeight)
}

// Backfill rebuilds the trailing hours of hourly buckets using the
// log-clamped engagement weight, the finer-grained incremental path.
func (a *Aggregator) Backfill(ctx context.Context, hours int) error {
	if hours <= 0 {
		hours = 48
	}
	since := a.now().Add(-time.Duration(hours) * time.Hour)
	return a.rollupHourly(ctx, since, LogClampedWeight)
}

func (a *Aggregator) rollupHourly(ctx context.Context, since time.Time, weight WeightFunc) error {
	events, err := a.store.MentionEvents(ctx, since)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		a.log.Info("no mentions in hourly window")
		return nil
	}

	type hourAgg struct {
		mentions int
		weighted float64
	}
	agg := make(map[bucketKey]*hourAgg)
	for _, ev := range events {
		slot := ev.MentionedAt.UTC().Truncate(time.Hour).Format(time.RFC3339)
		key := bucketKey{ev.TopicName, ev.Category, slot}
		h := agg[key]
		if h == nil {
			h = &hourAgg{}
			agg[key] = h
		}
		h.mentions++
		h.weighted += weight(ev)
	}

	buckets := make([]store.HourlyBucket, 0, len(agg))
	for key, h := range agg {
		ts, err := time.Parse(time.RFC3339, key.slot)
		if err != nil {
			return err
		}
		buckets = append(buckets, store.HourlyBucket{
			TopicName: key.topic,
			Category:  key.category,
			BucketTS:  ts,
			Mentions:  h.mentions,
			Weighted:  int(h.weighted),
		})
	}
	sortHourly(buckets)

	if err := a.store.UpsertHourly(ctx, buckets); err != nil {
		return err
	}

	metrics.BucketsUpserted.WithLabelValues("hourly").Add(float64(len(buckets)))
	a.log.Info("hourly rollup done", zap.Int("buckets", len(buckets)))
	return nil
}

func sortDaily(buckets []store.DailyBucket) {
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Day != buckets[j].Day {
			return buckets[i].Day < buckets[j].Day
		}
		if buckets[i].TopicName != buckets[j].TopicName {
			return buckets[i].TopicName < buckets[j].TopicName
		}
		return buckets[i].Category < buckets[j].Category
	})
}

func sortHourly(buckets []store.HourlyBucket) {
	sort.Slice(buckets, func(i, j int) bool {
		if !buckets[i].BucketTS.Equal(buckets[j].BucketTS) {
			return buckets[i].BucketTS.Before(buckets[j].BucketTS)
		}
		if buckets[i].TopicName != buckets[j].TopicName {
			return buckets[i].TopicName < buckets[j].TopicName
		}
		return buckets[i].Category < buckets[j].Category
	})
}

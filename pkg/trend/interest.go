package trend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/grokpulse/grokpulse/internal/store"
)

// Metric selects which bucket value feeds the interest index.
type Metric string

const (
	MetricWeighted Metric = "weighted"
	MetricMentions Metric = "mentions"
)

// Normalization selects how raw values are rescaled.
type Normalization string

const (
	// NormalizePerTopic rescales each (topic, category) series by its own
	// window maximum.
	NormalizePerTopic Normalization = "per_topic"
	// NormalizeGlobal rescales every series by the single maximum across
	// all requested topics.
	NormalizeGlobal Normalization = "global"
	// NormalizeNone passes raw values through unscaled.
	NormalizeNone Normalization = "none"
)

// ErrBadQuery marks caller-input errors, as opposed to store failures.
var ErrBadQuery = errors.New("bad interest query")

// IndexPoint is one value of the interest series.
type IndexPoint struct {
	BucketTS  time.Time `json:"bucket_ts"`
	TopicName string    `json:"topic"`
	Category  string    `json:"category"`
	Value     int       `json:"value"`
}

// InterestOpts parameterizes an interest-index query.
type InterestOpts struct {
	Topics    []string
	Hours     int
	Metric    Metric
	Normalize Normalization
}

// InterestIndex builds dense, gap-filled, rescaled 0-100 series from
// hourly buckets. It is read-only and safe for concurrent callers.
type InterestIndex struct {
	store store.Store
	now   func() time.Time
}

// NewInterestIndex creates an interest-index reader.
func NewInterestIndex(s store.Store) *InterestIndex {
	return &InterestIndex{
		store: s,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

type seriesKey struct {
	topic    string
	category string
}

// Series returns one point per (hour, topic) over the window, ordered by
// timestamp ascending then topic ascending. Hours without a bucket are
// zero-filled; all-zero series stay all-zero under every normalization.
func (ii *InterestIndex) Series(ctx context.Context, opts InterestOpts) ([]IndexPoint, error) {
	if len(opts.Topics) == 0 {
		return nil, fmt.Errorf("%w: no topics", ErrBadQuery)
	}
	if opts.Hours <= 0 {
		opts.Hours = 48
	}
	if opts.Metric == "" {
		opts.Metric = MetricWeighted
	}
	if opts.Metric != MetricWeighted && opts.Metric != MetricMentions {
		return nil, fmt.Errorf("%w: unknown metric %q", ErrBadQuery, opts.Metric)
	}
	if opts.Normalize == "" {
		opts.Normalize = NormalizePerTopic
	}
	switch opts.Normalize {
	case NormalizePerTopic, NormalizeGlobal, NormalizeNone:
	default:
		return nil, fmt.Errorf("%w: unknown normalization %q", ErrBadQuery, opts.Normalize)
	}

	nowHr := ii.now().Truncate(time.Hour)
	start := nowHr.Add(-time.Duration(opts.Hours) * time.Hour)

	// Inclusive bounds: hours+1 timestamps.
	timestamps := make([]time.Time, 0, opts.Hours+1)
	for ts := start; !ts.After(nowHr); ts = ts.Add(time.Hour) {
		timestamps = append(timestamps, ts)
	}

	buckets, err := ii.store.HourlyBuckets(ctx, opts.Topics, start)
	if err != nil {
		return nil, err
	}

	// Left-join bucket values onto the series; missing hours are zero.
	values := make(map[seriesKey]map[time.Time]int)
	for _, b := range buckets {
		key := seriesKey{b.TopicName, b.Category}
		if values[key] == nil {
			values[key] = make(map[time.Time]int)
		}
		v := b.Mentions
		if opts.Metric == MetricWeighted {
			v = b.Weighted
		}
		values[key][b.BucketTS.UTC().Truncate(time.Hour)] = v
	}

	// Requested topics with no buckets at all still yield a series.
	seen := make(map[string]bool)
	for key := range values {
		seen[key.topic] = true
	}
	for _, topic := range opts.Topics {
		if !seen[topic] {
			values[seriesKey{topic, "general"}] = make(map[time.Time]int)
		}
	}

	keys := make([]seriesKey, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].topic != keys[j].topic {
			return keys[i].topic < keys[j].topic
		}
		return keys[i].category < keys[j].category
	})

	maxes := make(map[seriesKey]int, len(keys))
	globalMax := 0
	for key, series := range values {
		m := 0
		for _, v := range series {
			if v > m {
				m = v
			}
		}
		maxes[key] = m
		if m > globalMax {
			globalMax = m
		}
	}

	out := make([]IndexPoint, 0, len(timestamps)*len(keys))
	for _, ts := range timestamps {
		for _, key := range keys {
			raw := values[key][ts]
			out = append(out, IndexPoint{
				BucketTS:  ts,
				TopicName: key.topic,
				Category:  key.category,
				Value:     rescale(raw, opts.Normalize, maxes[key], globalMax),
			})
		}
	}
	return out, nil
}

// rescale maps a raw value to 0-100 rounding half away from zero. A zero
// maximum yields zero rather than a division fault.
func rescale(raw int, mode Normalization, topicMax, globalMax int) int {
	switch mode {
	case NormalizeNone:
		return raw
	case NormalizeGlobal:
		if globalMax <= 0 {
			return 0
		}
		return int(math.Round(100.0 * float64(raw) / float64(globalMax)))
	default: // per topic
		if topicMax <= 0 {
			return 0
		}
		return int(math.Round(100.0 * float64(raw) / float64(topicMax)))
	}
}

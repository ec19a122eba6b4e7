package trend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grokpulse/grokpulse/internal/store"
)

func newTestIndex(s store.Store) *InterestIndex {
	ii := NewInterestIndex(s)
	ii.now = func() time.Time { return testNow }
	return ii
}

func seedHourly(t *testing.T, s store.Store, topic, category string, ts time.Time, mentions, weighted int) {
	t.Helper()
	require.NoError(t, s.UpsertHourly(context.Background(), []store.HourlyBucket{{
		TopicName: topic,
		Category:  category,
		BucketTS:  ts,
		Mentions:  mentions,
		Weighted:  weighted,
	}}))
}

func TestSeriesZeroFillsWindow(t *testing.T) {
	s := newTestStore(t)
	ii := newTestIndex(s)

	seedHourly(t, s, "python", "tech", testNow.Add(-2*time.Hour), 2, 5)
	seedHourly(t, s, "python", "tech", testNow, 4, 10)

	points, err := ii.Series(context.Background(), InterestOpts{Topics: []string{"python"}, Hours: 4})
	require.NoError(t, err)

	// Inclusive bounds: a 4-hour window is 5 timestamps.
	require.Len(t, points, 5)
	for i, p := range points {
		assert.True(t, p.BucketTS.Equal(testNow.Add(time.Duration(i-4)*time.Hour)))
		assert.Equal(t, "python", p.TopicName)
		assert.Equal(t, "tech", p.Category)
	}

	values := make([]int, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	assert.Equal(t, []int{0, 0, 50, 0, 100}, values)
}

func TestSeriesPerTopicRange(t *testing.T) {
	s := newTestStore(t)
	ii := newTestIndex(s)

	seedHourly(t, s, "python", "tech", testNow.Add(-time.Hour), 1, 3)
	seedHourly(t, s, "python", "tech", testNow, 1, 9)

	points, err := ii.Series(context.Background(), InterestOpts{Topics: []string{"python"}, Hours: 2})
	require.NoError(t, err)

	sawMax := false
	for _, p := range points {
		assert.GreaterOrEqual(t, p.Value, 0)
		assert.LessOrEqual(t, p.Value, 100)
		if p.Value == 100 {
			sawMax = true
		}
	}
	assert.True(t, sawMax)
}

func TestSeriesGlobalNormalization(t *testing.T) {
	s := newTestStore(t)
	ii := newTestIndex(s)

	seedHourly(t, s, "python", "tech", testNow, 1, 10)
	seedHourly(t, s, "bitcoin", "crypto", testNow, 1, 5)

	points, err := ii.Series(context.Background(), InterestOpts{
		Topics:    []string{"python", "bitcoin"},
		Hours:     1,
		Normalize: NormalizeGlobal,
	})
	require.NoError(t, err)

	peak := make(map[string]int)
	for _, p := range points {
		if p.Value > peak[p.TopicName] {
			peak[p.TopicName] = p.Value
		}
	}
	assert.Equal(t, 100, peak["python"])
	// Under global scaling bitcoin peaks at half of python.
	assert.Equal(t, 50, peak["bitcoin"])
}

func TestSeriesNoNormalization(t *testing.T) {
	s := newTestStore(t)
	ii := newTestIndex(s)

	seedHourly(t, s, "python", "tech", testNow, 3, 7)

	points, err := ii.Series(context.Background(), InterestOpts{
		Topics:    []string{"python"},
		Hours:     1,
		Normalize: NormalizeNone,
	})
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 0, points[0].Value)
	assert.Equal(t, 7, points[1].Value)
}

func TestSeriesMentionsMetric(t *testing.T) {
	s := newTestStore(t)
	ii := newTestIndex(s)

	seedHourly(t, s, "python", "tech", testNow, 3, 90)

	points, err := ii.Series(context.Background(), InterestOpts{
		Topics:    []string{"python"},
		Hours:     1,
		Metric:    MetricMentions,
		Normalize: NormalizeNone,
	})
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 3, points[1].Value)
}

func TestSeriesUnknownTopicAllZero(t *testing.T) {
	s := newTestStore(t)
	ii := newTestIndex(s)

	for _, mode := range []Normalization{NormalizePerTopic, NormalizeGlobal, NormalizeNone} {
		points, err := ii.Series(context.Background(), InterestOpts{
			Topics:    []string{"never-mentioned"},
			Hours:     3,
			Normalize: mode,
		})
		require.NoError(t, err)
		require.Len(t, points, 4)
		for _, p := range points {
			assert.Equal(t, 0, p.Value)
			assert.Equal(t, "general", p.Category)
		}
	}
}

func TestSeriesOrdering(t *testing.T) {
	s := newTestStore(t)
	ii := newTestIndex(s)

	seedHourly(t, s, "python", "tech", testNow, 1, 1)
	seedHourly(t, s, "bitcoin", "crypto", testNow, 1, 1)

	points, err := ii.Series(context.Background(), InterestOpts{
		Topics: []string{"python", "bitcoin"},
		Hours:  1,
	})
	require.NoError(t, err)
	require.Len(t, points, 4)

	// Timestamp ascending, then topic ascending within each timestamp.
	assert.Equal(t, "bitcoin", points[0].TopicName)
	assert.Equal(t, "python", points[1].TopicName)
	assert.True(t, points[0].BucketTS.Before(points[2].BucketTS))
	assert.Equal(t, "bitcoin", points[2].TopicName)
	assert.Equal(t, "python", points[3].TopicName)
}

func TestSeriesRejectsBadInput(t *testing.T) {
	s := newTestStore(t)
	ii := newTestIndex(s)
	ctx := context.Background()

	_, err := ii.Series(ctx, InterestOpts{})
	assert.ErrorIs(t, err, ErrBadQuery)

	_, err = ii.Series(ctx, InterestOpts{Topics: []string{"python"}, Metric: "likes"})
	assert.ErrorIs(t, err, ErrBadQuery)

	_, err = ii.Series(ctx, InterestOpts{Topics: []string{"python"}, Normalize: "percentile"})
	assert.ErrorIs(t, err, ErrBadQuery)
}

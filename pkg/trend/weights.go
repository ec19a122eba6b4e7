package trend

import (
	"math"

	"github.com/grokpulse/grokpulse/internal/store"
)

// WeightFunc scores one mention event by its engagement.
type WeightFunc func(ev store.MentionEvent) float64

// LinearWeight is the rollup weighting: 1 plus a linear blend of likes and
// retweets, or a flat 1.0 when the source post's metrics are unavailable.
func LinearWeight(ev store.MentionEvent) float64 {
	if !ev.HasMetrics {
		return 1.0
	}
	return 1.0 + float64(ev.LikeCount)*0.1 + float64(ev.RetweetCount)*0.5
}

// LogClampedWeight is the backfill weighting: 1 plus log-scaled, clamped
// contributions from interaction volume and author reach. It deliberately
// differs from LinearWeight; the two stay selectable by call site.
func LogClampedWeight(ev store.MentionEvent) float64 {
	interactions := ev.LikeCount + 2*ev.RetweetCount + ev.ReplyCount + ev.QuoteCount
	followers := ev.AuthorFollowers
	if followers < 0 {
		followers = 0
	}
	return 1.0 +
		clamp(math.Log2(1+float64(interactions)), 0, 3) +
		clamp(math.Log10(1+float64(followers)), 0, 3)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

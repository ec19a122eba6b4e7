package trend

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/grokpulse/grokpulse/internal/store"
)

func TestLinearWeight(t *testing.T) {
	assert.InDelta(t, 1.0, LinearWeight(store.MentionEvent{HasMetrics: false}), 1e-9)
	assert.InDelta(t, 1.0, LinearWeight(store.MentionEvent{HasMetrics: true}), 1e-9)

	ev := store.MentionEvent{HasMetrics: true, LikeCount: 10, RetweetCount: 2}
	assert.InDelta(t, 3.0, LinearWeight(ev), 1e-9)
}

func TestLogClampedWeight(t *testing.T) {
	assert.InDelta(t, 1.0, LogClampedWeight(store.MentionEvent{}), 1e-9)

	// likes 3 + 2*retweets 2 = 7 interactions, log2(8) = 3 exactly;
	// 999 followers, log10(1000) = 3 exactly.
	ev := store.MentionEvent{HasMetrics: true, LikeCount: 3, RetweetCount: 2, AuthorFollowers: 999}
	assert.InDelta(t, 7.0, LogClampedWeight(ev), 1e-9)

	// Both terms clamp at 3, so the weight never exceeds 7.
	viral := store.MentionEvent{HasMetrics: true, LikeCount: 1_000_000, RetweetCount: 500_000, AuthorFollowers: 90_000_000}
	assert.InDelta(t, 7.0, LogClampedWeight(viral), 1e-9)

	negative := store.MentionEvent{HasMetrics: true, AuthorFollowers: -5}
	assert.InDelta(t, 1.0, LogClampedWeight(negative), 1e-9)
}

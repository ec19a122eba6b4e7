package topics

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/grokpulse/grokpulse/internal/metrics"
	"github.com/grokpulse/grokpulse/internal/store"
)

// Candidate is one extracted (topic, category, confidence) tuple.
type Candidate struct {
	Topic      string
	Category   string
	Confidence float64
}

// Strategy derives topic candidates from post text. Stronger extraction
// (entity resolution, stemming) can be swapped in without touching the
// aggregation contracts.
type Strategy interface {
	Extract(text string) []Candidate
}

const (
	patternConfidence = 0.8
	keywordConfidence = 0.6
)

// Anchored span patterns: a fixed phrase followed by a 3-50 character
// capture running to the next sentence boundary.
var anchorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`about ([^.!?\n]{3,50})`),
	regexp.MustCompile(`for ([^.!?\n]{3,50})`),
	regexp.MustCompile(`explained ([^.!?\n]{3,50})`),
	regexp.MustCompile(`help with ([^.!?\n]{3,50})`),
}

// HeuristicStrategy extracts topics with anchored span patterns plus a
// category keyword scan. Both passes run over every text; duplicate topic
// names across passes are intentional signal, not deduplicated.
type HeuristicStrategy struct {
	table *CategoryTable
}

// NewHeuristicStrategy creates the default extraction strategy.
func NewHeuristicStrategy(table *CategoryTable) *HeuristicStrategy {
	if table == nil {
		table = NewCategoryTable(nil)
	}
	return &HeuristicStrategy{table: table}
}

func (h *HeuristicStrategy) Extract(text string) []Candidate {
	lower := strings.ToLower(text)
	var found []Candidate

	for _, pattern := range anchorPatterns {
		for _, match := range pattern.FindAllStringSubmatch(lower, -1) {
			topic := strings.TrimSpace(match[1])
			if len(topic) <= 3 || startsWithMarker(topic) {
				continue
			}
			found = append(found, Candidate{
				Topic:      topic,
				Category:   h.table.Categorize(topic),
				Confidence: patternConfidence,
			})
		}
	}

	for _, e := range h.table.entries {
		for _, kw := range e.keywords {
			if strings.Contains(lower, kw) {
				found = append(found, Candidate{
					Topic:      kw,
					Category:   e.name,
					Confidence: keywordConfidence,
				})
			}
		}
	}

	return found
}

func startsWithMarker(topic string) bool {
	return strings.HasPrefix(topic, "http") ||
		strings.HasPrefix(topic, "@") ||
		strings.HasPrefix(topic, "#")
}

// Extractor turns unprocessed posts into topic mentions.
type Extractor struct {
	store     store.Store
	strategy  Strategy
	sourceTag string
	log       *zap.Logger
}

// NewExtractor creates an extractor writing mentions tagged with sourceTag.
func NewExtractor(s store.Store, strategy Strategy, sourceTag string, log *zap.Logger) *Extractor {
	if sourceTag == "" {
		sourceTag = "twitter"
	}
	return &Extractor{store: s, strategy: strategy, sourceTag: sourceTag, log: log}
}

// Run extracts topics from every post that has no mentions yet and writes
// them in one batch. The unprocessed scan is the at-least-once guard:
// callers must not run overlapping extractions over the same posts.
func (e *Extractor) Run(ctx context.Context) (int, error) {
	posts, err := e.store.UnprocessedPosts(ctx)
	if err != nil {
		return 0, err
	}
	if len(posts) == 0 {
		e.log.Info("no unprocessed posts")
		return 0, nil
	}

	var batch []store.TopicMention
	for i := range posts {
		p := &posts[i]
		for _, cand := range e.strategy.Extract(p.Text) {
			batch = append(batch, store.TopicMention{
				TopicName:   cand.Topic,
				Category:    cand.Category,
				MentionedAt: p.CreatedAt,
				PostID:      p.PostID,
				Confidence:  cand.Confidence,
				Source:      e.sourceTag,
			})
		}
	}

	if err := e.store.InsertMentions(ctx, batch); err != nil {
		return 0, err
	}

	metrics.MentionsExtracted.Add(float64(len(batch)))
	e.log.Info("extracted topics", zap.Int("posts", len(posts)), zap.Int("mentions", len(batch)))
	return len(batch), nil
}

package collect

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/grokpulse/grokpulse/internal/metrics"
	"github.com/grokpulse/grokpulse/internal/store"
	"github.com/grokpulse/grokpulse/pkg/source"
)

// Collector pulls bounded batches of mentions from the search API,
// deduplicates them into the raw store, and maintains the usage ledger.
type Collector struct {
	store      store.Store
	client     source.SearchClient
	gate       *RateGate
	queries    []string
	maxResults int
	monthlyCap int
	log        *zap.Logger
	now        func() time.Time
}

// Result describes one collection call.
type Result struct {
	Query   string        `json:"query"`
	Fetched int           `json:"fetched"`
	Added   int           `json:"added"`
	Wait    time.Duration `json:"wait,omitempty"`
}

// New creates a collector. queries must be non-empty; the collector
// round-robins through them as monthly volume grows.
func New(s store.Store, client source.SearchClient, gate *RateGate, queries []string, maxResults, monthlyCap int, log *zap.Logger) *Collector {
	if maxResults <= 0 || maxResults > 100 {
		maxResults = 100
	}
	return &Collector{
		store:      s,
		client:     client,
		gate:       gate,
		queries:    queries,
		maxResults: maxResults,
		monthlyCap: monthlyCap,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Collect runs one collection pass. When the rate gate is closed it either
// reports the remaining wait (block=false) or suspends until the gate
// opens (block=true). Transport failures are logged and yield an empty
// result; only store failures are returned as errors.
func (c *Collector) Collect(ctx context.Context, block bool) (*Result, error) {
	wait := c.gate.NextAllowed(ctx).Sub(c.now())
	if wait > 0 {
		if !block {
			c.log.Info("rate limited, skipping collection", zap.Duration("wait", wait.Round(time.Second)))
			return &Result{Wait: wait}, nil
		}
		if err := c.gate.Wait(ctx); err != nil {
			return nil, err
		}
	}

	monthly, err := c.store.MonthlyUsage(ctx)
	if err != nil {
		c.log.Warn("monthly usage read failed, assuming zero", zap.Error(err))
		monthly = 0
	}
	if c.monthlyCap > 0 && monthly >= c.monthlyCap {
		c.log.Warn("monthly cap reached, skipping collection",
			zap.Int("monthly", monthly), zap.Int("cap", c.monthlyCap))
		return &Result{}, nil
	}

	query := c.queries[(monthly/100)%len(c.queries)]
	c.log.Info("collecting",
		zap.String("query", query),
		zap.Int("max_results", c.maxResults),
		zap.Int("monthly", monthly))

	res, err := c.client.Search(ctx, query, c.maxResults)
	if err != nil {
		c.log.Error("search failed", zap.String("source", c.client.Name()), zap.Error(err))
		return &Result{Query: query}, nil
	}
	if len(res.Posts) == 0 {
		c.log.Info("no posts found", zap.String("query", query))
		return &Result{Query: query}, nil
	}

	collectedAt := c.now()
	posts := make([]source.Post, 0, len(res.Posts))
	for _, raw := range res.Posts {
		p := source.Post{
			PostID:          raw.ID,
			Text:            raw.Text,
			AuthorID:        raw.AuthorID,
			AuthorFollowers: res.Authors[raw.AuthorID],
			CreatedAt:       raw.CreatedAt.UTC(),
			CollectedAt:     collectedAt,
			SearchQuery:     query,
			Lang:            raw.Lang,
			ConversationID:  raw.ConversationID,
			LikeCount:       raw.LikeCount,
			RetweetCount:    raw.RetweetCount,
			ReplyCount:      raw.ReplyCount,
			QuoteCount:      raw.QuoteCount,
		}
		for _, ref := range raw.References {
			switch ref.Type {
			case "replied_to":
				p.IsReply = true
			case "quoted":
				p.IsQuote = true
			}
		}
		posts = append(posts, p)
	}

	added, err := c.store.InsertPosts(ctx, posts)
	if err != nil {
		return nil, err
	}

	// Only newly inserted rows count toward the ledger.
	if err := c.store.AddUsage(ctx, collectedAt.Format("2006-01-02"), added, query); err != nil {
		return nil, err
	}

	metrics.PostsCollected.Add(float64(added))
	c.log.Info("collected",
		zap.Int("fetched", len(posts)),
		zap.Int("added", added),
		zap.Time("next_allowed", c.gate.NextAllowed(ctx)))

	return &Result{Query: query, Fetched: len(posts), Added: added}, nil
}

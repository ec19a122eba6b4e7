package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/grokpulse/grokpulse/pkg/source"
)

// TopicMention is one extracted (topic, category) signal from a post.
type TopicMention struct {
	ID          int64     `db:"id" json:"id"`
	TopicName   string    `db:"topic_name" json:"topic"`
	Category    string    `db:"category" json:"category"`
	MentionedAt time.Time `db:"mentioned_at" json:"mentioned_at"`
	PostID      string    `db:"post_id" json:"post_id"`
	Confidence  float64   `db:"confidence" json:"confidence"`
	Source      string    `db:"source" json:"source"`
}

// DailyBucket is a per-day rollup for one (topic, category).
type DailyBucket struct {
	TopicName    string  `db:"topic_name" json:"topic"`
	Category     string  `db:"category" json:"category"`
	Day          string  `db:"day" json:"day"`
	MentionCount int     `db:"mention_count" json:"mention_count"`
	GrowthRate   float64 `db:"growth_rate" json:"growth_rate"`
}

// HourlyBucket is a per-hour rollup for one (topic, category).
type HourlyBucket struct {
	TopicName string    `db:"topic_name" json:"topic"`
	Category  string    `db:"category" json:"category"`
	BucketTS  time.Time `db:"bucket_ts" json:"bucket_ts"`
	Mentions  int       `db:"mentions" json:"mentions"`
	Weighted  int       `db:"weighted" json:"weighted"`
}

// MentionEvent is a mention joined to its source post's engagement metrics.
// HasMetrics is false when the post row is missing.
type MentionEvent struct {
	TopicName       string    `db:"topic_name"`
	Category        string    `db:"category"`
	MentionedAt     time.Time `db:"mentioned_at"`
	LikeCount       int       `db:"like_count"`
	RetweetCount    int       `db:"retweet_count"`
	ReplyCount      int       `db:"reply_count"`
	QuoteCount      int       `db:"quote_count"`
	AuthorFollowers int       `db:"author_followers"`
	HasMetrics      bool      `db:"has_metrics"`
}

// TrendRow is a ranked trending topic over a day window.
type TrendRow struct {
	TopicName     string  `db:"topic_name" json:"topic"`
	Category      string  `db:"category" json:"category"`
	TotalMentions int     `db:"total_mentions" json:"mentions"`
	AvgGrowth     float64 `db:"avg_growth" json:"growth"`
}

// DailyPoint is one point of a per-topic daily time series.
type DailyPoint struct {
	Day          string `db:"day" json:"day"`
	TopicName    string `db:"topic_name" json:"topic"`
	MentionCount int    `db:"mention_count" json:"mention_count"`
}

// TopicCount is a topic search hit ranked by mention count.
type TopicCount struct {
	TopicName string `db:"topic_name" json:"topic"`
	Category  string `db:"category" json:"category"`
	Mentions  int    `db:"mentions" json:"mentions"`
}

// CategoryRollup aggregates one category over a day window.
type CategoryRollup struct {
	Category   string `db:"category" json:"category"`
	TopicCount int    `db:"topic_count" json:"topic_count"`
	Mentions   int    `db:"mentions" json:"mentions"`
}

// Stats summarizes the whole pipeline state.
type Stats struct {
	TotalPosts        int        `json:"total_posts"`
	TotalTopics       int        `json:"total_topics"`
	MonthCollected    int        `json:"month_collected"`
	CollectionStarted *time.Time `json:"collection_started"`
}

// Store is the persistence interface. Write methods are partitioned by
// owner: the collector writes posts and api_usage, the extractor writes
// topic_mentions, the aggregator writes the bucket tables.
type Store interface {
	// Collector.
	InsertPosts(ctx context.Context, posts []source.Post) (int, error)
	AddUsage(ctx context.Context, day string, added int, query string) error
	MonthlyUsage(ctx context.Context) (int, error)
	LastCollectedAt(ctx context.Context) (*time.Time, error)

	// Extractor.
	UnprocessedPosts(ctx context.Context) ([]source.Post, error)
	InsertMentions(ctx context.Context, mentions []TopicMention) error

	// Aggregator.
	MentionEvents(ctx context.Context, since time.Time) ([]MentionEvent, error)
	UpsertDaily(ctx context.Context, buckets []DailyBucket) error
	DailyCountsOn(ctx context.Context, day string) ([]DailyBucket, error)
	UpdateGrowth(ctx context.Context, topic, category, day string, growth float64) error
	UpsertHourly(ctx context.Context, buckets []HourlyBucket) error

	// Read side.
	HourlyBuckets(ctx context.Context, topics []string, since time.Time) ([]HourlyBucket, error)
	TopTrends(ctx context.Context, days int, category string, limit int) ([]TrendRow, error)
	DailySeries(ctx context.Context, topics []string, days int) ([]DailyPoint, error)
	SearchTopics(ctx context.Context, q string, limit int) ([]TopicCount, error)
	CategoryRollups(ctx context.Context, days int) ([]CategoryRollup, error)
	Stats(ctx context.Context) (*Stats, error)

	Ping(ctx context.Context) error
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// New opens a SQLite database and runs migrations.
func New(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InsertPosts stores a batch in one transaction, skipping posts whose
// external id already exists. Returns the number of newly inserted rows.
func (s *SQLiteStore) InsertPosts(ctx context.Context, posts []source.Post) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert posts: %w", err)
	}
	defer tx.Rollback()

	added := 0
	for i := range posts {
		p := &posts[i]
		res, err := tx.ExecContext(ctx, `
			INSERT INTO posts (
				post_id, text, author_id, author_followers, created_at, collected_at,
				search_query, lang, conversation_id,
				like_count, retweet_count, reply_count, quote_count,
				is_reply, is_quote
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(post_id) DO NOTHING
		`, p.PostID, p.Text, p.AuthorID, p.AuthorFollowers, p.CreatedAt, p.CollectedAt,
			p.SearchQuery, p.Lang, p.ConversationID,
			p.LikeCount, p.RetweetCount, p.ReplyCount, p.QuoteCount,
			p.IsReply, p.IsQuote)
		if err != nil {
			return 0, fmt.Errorf("insert post %s: %w", p.PostID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert posts: %w", err)
	}
	return added, nil
}

// AddUsage increments the ledger for one calendar date (insert-or-add).
func (s *SQLiteStore) AddUsage(ctx context.Context, day string, added int, query string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO api_usage (query_date, posts_pulled, query_used)
		VALUES (?, ?, ?)
		ON CONFLICT(query_date) DO UPDATE SET
			posts_pulled = posts_pulled + excluded.posts_pulled,
			query_used = excluded.query_used
	`, day, added, query)
	if err != nil {
		return fmt.Errorf("add usage %s: %w", day, err)
	}
	return nil
}

// MonthlyUsage sums posts pulled since the first of the current month.
func (s *SQLiteStore) MonthlyUsage(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).Format("2006-01-02")

	var total int
	err := s.db.GetContext(ctx, &total,
		"SELECT COALESCE(SUM(posts_pulled), 0) FROM api_usage WHERE query_date >= ?", monthStart)
	if err != nil {
		return 0, fmt.Errorf("monthly usage: %w", err)
	}
	return total, nil
}

// LastCollectedAt returns the newest collection timestamp, or nil when the
// store holds no posts yet.
func (s *SQLiteStore) LastCollectedAt(ctx context.Context) (*time.Time, error) {
	var ts time.Time
	err := s.db.GetContext(ctx, &ts,
		"SELECT collected_at FROM posts ORDER BY collected_at DESC LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last collected at: %w", err)
	}
	return &ts, nil
}

// UnprocessedPosts returns posts that have no topic mentions yet.
func (s *SQLiteStore) UnprocessedPosts(ctx context.Context) ([]source.Post, error) {
	var posts []source.Post
	err := s.db.SelectContext(ctx, &posts, `
		SELECT p.*
		FROM posts p
		LEFT JOIN topic_mentions m ON p.post_id = m.post_id
		WHERE m.id IS NULL
		ORDER BY p.created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("unprocessed posts: %w", err)
	}
	return posts, nil
}

// InsertMentions appends a batch of mentions in one transaction.
func (s *SQLiteStore) InsertMentions(ctx context.Context, mentions []TopicMention) error {
	if len(mentions) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert mentions: %w", err)
	}
	defer tx.Rollback()

	for i := range mentions {
		m := &mentions[i]
		_, err := tx.ExecContext(ctx, `
			INSERT INTO topic_mentions (topic_name, category, mentioned_at, post_id, confidence, source)
			VALUES (?, ?, ?, ?, ?, ?)
		`, m.TopicName, m.Category, m.MentionedAt, m.PostID, m.Confidence, m.Source)
		if err != nil {
			return fmt.Errorf("insert mention %q: %w", m.TopicName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert mentions: %w", err)
	}
	return nil
}

// MentionEvents returns mentions in the window joined to their post's
// engagement metrics. Posts missing from the raw store yield zeroed
// counters with HasMetrics false.
func (s *SQLiteStore) MentionEvents(ctx context.Context, since time.Time) ([]MentionEvent, error) {
	var events []MentionEvent
	err := s.db.SelectContext(ctx, &events, `
		SELECT
			m.topic_name,
			m.category,
			m.mentioned_at,
			COALESCE(p.like_count, 0)       AS like_count,
			COALESCE(p.retweet_count, 0)    AS retweet_count,
			COALESCE(p.reply_count, 0)      AS reply_count,
			COALESCE(p.quote_count, 0)      AS quote_count,
			COALESCE(p.author_followers, 0) AS author_followers,
			p.post_id IS NOT NULL           AS has_metrics
		FROM topic_mentions m
		LEFT JOIN posts p ON p.post_id = m.post_id
		WHERE m.mentioned_at >= ?
	`, since)
	if err != nil {
		return nil, fmt.Errorf("mention events: %w", err)
	}
	return events, nil
}

// UpsertDaily overwrites daily bucket counts. Growth is left untouched so
// the rollup and the growth pass stay independent.
func (s *SQLiteStore) UpsertDaily(ctx context.Context, buckets []DailyBucket) error {
	if len(buckets) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert daily: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for i := range buckets {
		b := &buckets[i]
		_, err := tx.ExecContext(ctx, `
			INSERT INTO trend_daily (topic_name, category, day, mention_count, growth_rate, computed_at)
			VALUES (?, ?, ?, ?, 0.0, ?)
			ON CONFLICT(topic_name, category, day) DO UPDATE SET
				mention_count = excluded.mention_count,
				computed_at = excluded.computed_at
		`, b.TopicName, b.Category, b.Day, b.MentionCount, now)
		if err != nil {
			return fmt.Errorf("upsert daily %q/%s: %w", b.TopicName, b.Day, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert daily: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DailyCountsOn(ctx context.Context, day string) ([]DailyBucket, error) {
	var buckets []DailyBucket
	err := s.db.SelectContext(ctx, &buckets, `
		SELECT topic_name, category, day, mention_count, growth_rate
		FROM trend_daily
		WHERE day = ?
	`, day)
	if err != nil {
		return nil, fmt.Errorf("daily counts on %s: %w", day, err)
	}
	return buckets, nil
}

func (s *SQLiteStore) UpdateGrowth(ctx context.Context, topic, category, day string, growth float64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE trend_daily SET growth_rate = ?
		WHERE topic_name = ? AND category = ? AND day = ?
	`, growth, topic, category, day)
	if err != nil {
		return fmt.Errorf("update growth %q/%s: %w", topic, day, err)
	}
	return nil
}

// UpsertHourly overwrites hourly bucket values.
func (s *SQLiteStore) UpsertHourly(ctx context.Context, buckets []HourlyBucket) error {
	if len(buckets) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert hourly: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for i := range buckets {
		b := &buckets[i]
		_, err := tx.ExecContext(ctx, `
			INSERT INTO trend_hourly (topic_name, category, bucket_ts, mentions, weighted, computed_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(topic_name, category, bucket_ts) DO UPDATE SET
				mentions = excluded.mentions,
				weighted = excluded.weighted,
				computed_at = excluded.computed_at
		`, b.TopicName, b.Category, b.BucketTS, b.Mentions, b.Weighted, now)
		if err != nil {
			return fmt.Errorf("upsert hourly %q: %w", b.TopicName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert hourly: %w", err)
	}
	return nil
}

func (s *SQLiteStore) HourlyBuckets(ctx context.Context, topics []string, since time.Time) ([]HourlyBucket, error) {
	if len(topics) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT topic_name, category, bucket_ts, mentions, weighted
		FROM trend_hourly
		WHERE bucket_ts >= ? AND topic_name IN (?)
	`, since, topics)
	if err != nil {
		return nil, fmt.Errorf("build hourly query: %w", err)
	}

	var buckets []HourlyBucket
	if err := s.db.SelectContext(ctx, &buckets, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("hourly buckets: %w", err)
	}
	return buckets, nil
}

func (s *SQLiteStore) TopTrends(ctx context.Context, days int, category string, limit int) ([]TrendRow, error) {
	if days <= 0 {
		days = 7
	}
	if limit <= 0 {
		limit = 20
	}
	sinceDay := time.Now().UTC().AddDate(0, 0, -days).Format("2006-01-02")

	query := `
		SELECT topic_name, category,
		       SUM(mention_count) AS total_mentions,
		       AVG(growth_rate)   AS avg_growth
		FROM trend_daily
		WHERE day >= ?
	`
	args := []any{sinceDay}
	if category != "" && category != "all" {
		query += " AND category = ?"
		args = append(args, category)
	}
	query += `
		GROUP BY topic_name, category
		ORDER BY total_mentions DESC, avg_growth DESC
		LIMIT ?
	`
	args = append(args, limit)

	var rows []TrendRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("top trends: %w", err)
	}
	return rows, nil
}

func (s *SQLiteStore) DailySeries(ctx context.Context, topics []string, days int) ([]DailyPoint, error) {
	if len(topics) == 0 {
		return nil, nil
	}
	if days <= 0 {
		days = 7
	}
	sinceDay := time.Now().UTC().AddDate(0, 0, -days).Format("2006-01-02")

	query, args, err := sqlx.In(`
		SELECT day, topic_name, mention_count
		FROM trend_daily
		WHERE day >= ? AND topic_name IN (?)
		ORDER BY day ASC
	`, sinceDay, topics)
	if err != nil {
		return nil, fmt.Errorf("build daily series query: %w", err)
	}

	var points []DailyPoint
	if err := s.db.SelectContext(ctx, &points, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("daily series: %w", err)
	}
	return points, nil
}

func (s *SQLiteStore) SearchTopics(ctx context.Context, q string, limit int) ([]TopicCount, error) {
	if limit <= 0 {
		limit = 10
	}

	var rows []TopicCount
	err := s.db.SelectContext(ctx, &rows, `
		SELECT topic_name, category, COUNT(*) AS mentions
		FROM topic_mentions
		WHERE topic_name LIKE ?
		GROUP BY topic_name, category
		ORDER BY mentions DESC
		LIMIT ?
	`, "%"+q+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("search topics %q: %w", q, err)
	}
	return rows, nil
}

func (s *SQLiteStore) CategoryRollups(ctx context.Context, days int) ([]CategoryRollup, error) {
	if days <= 0 {
		days = 7
	}
	sinceDay := time.Now().UTC().AddDate(0, 0, -days).Format("2006-01-02")

	var rows []CategoryRollup
	err := s.db.SelectContext(ctx, &rows, `
		SELECT category,
		       COUNT(DISTINCT topic_name) AS topic_count,
		       COALESCE(SUM(mention_count), 0) AS mentions
		FROM trend_daily
		WHERE day >= ?
		GROUP BY category
		ORDER BY mentions DESC
	`, sinceDay)
	if err != nil {
		return nil, fmt.Errorf("category rollups: %w", err)
	}
	return rows, nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{}

	if err := s.db.GetContext(ctx, &st.TotalPosts, "SELECT COUNT(*) FROM posts"); err != nil {
		return nil, fmt.Errorf("stats posts: %w", err)
	}
	if err := s.db.GetContext(ctx, &st.TotalTopics, "SELECT COUNT(DISTINCT topic_name) FROM topic_mentions"); err != nil {
		return nil, fmt.Errorf("stats topics: %w", err)
	}

	month, err := s.MonthlyUsage(ctx)
	if err != nil {
		return nil, err
	}
	st.MonthCollected = month

	var started time.Time
	err = s.db.GetContext(ctx, &started, "SELECT created_at FROM posts ORDER BY created_at ASC LIMIT 1")
	if err == nil {
		st.CollectionStarted = &started
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("stats started: %w", err)
	}

	return st, nil
}

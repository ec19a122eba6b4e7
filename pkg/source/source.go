package source

import (
	"context"
	"time"
)

// Post is a stored social post with its engagement metrics.
type Post struct {
	PostID          string    `json:"post_id" db:"post_id"`
	Text            string    `json:"text" db:"text"`
	AuthorID        string    `json:"author_id" db:"author_id"`
	AuthorFollowers int       `json:"author_followers" db:"author_followers"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	CollectedAt     time.Time `json:"collected_at" db:"collected_at"`
	SearchQuery     string    `json:"search_query" db:"search_query"`
	Lang            string    `json:"lang" db:"lang"`
	ConversationID  string    `json:"conversation_id" db:"conversation_id"`
	LikeCount       int       `json:"like_count" db:"like_count"`
	RetweetCount    int       `json:"retweet_count" db:"retweet_count"`
	ReplyCount      int       `json:"reply_count" db:"reply_count"`
	QuoteCount      int       `json:"quote_count" db:"quote_count"`
	IsReply         bool      `json:"is_reply" db:"is_reply"`
	IsQuote         bool      `json:"is_quote" db:"is_quote"`
}

// Reference marks a relationship between a post and another post,
// e.g. "replied_to" or "quoted".
type Reference struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// RawPost is an item as returned by the search API, before the collector
// resolves author followers and reference flags.
type RawPost struct {
	ID             string
	Text           string
	AuthorID       string
	Lang           string
	ConversationID string
	CreatedAt      time.Time
	LikeCount      int
	RetweetCount   int
	ReplyCount     int
	QuoteCount     int
	References     []Reference
}

// SearchResult is one bounded batch from the search API. Authors maps
// author id to follower count from the expansion payload.
type SearchResult struct {
	Posts   []RawPost
	Authors map[string]int
}

// SearchClient is the interface every mention source must implement.
type SearchClient interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int) (*SearchResult, error)
}

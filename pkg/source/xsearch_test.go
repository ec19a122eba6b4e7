package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const xSearchPayload = `{
	"data": [
		{
			"id": "1001",
			"text": "asked grok about python debugging",
			"author_id": "42",
			"lang": "en",
			"conversation_id": "1001",
			"created_at": "2026-08-31T11:00:00Z",
			"public_metrics": {"like_count": 10, "retweet_count": 2, "reply_count": 1, "quote_count": 0},
			"referenced_tweets": [{"type": "replied_to", "id": "999"}]
		},
		{
			"id": "1002",
			"text": "grok is down again",
			"author_id": "7",
			"lang": "en",
			"created_at": "2026-08-31T11:05:00Z",
			"public_metrics": {"like_count": 0, "retweet_count": 0, "reply_count": 0, "quote_count": 0}
		}
	],
	"includes": {
		"users": [
			{"id": "42", "public_metrics": {"followers_count": 1234}},
			{"id": "7", "public_metrics": {"followers_count": 9}}
		]
	}
}`

func TestXSearchParsesResponse(t *testing.T) {
	var gotPath, gotAuth, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query().Get("query")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(xSearchPayload))
	}))
	defer srv.Close()

	x := NewXSearch("token-123")
	x.baseURL = srv.URL

	res, err := x.Search(context.Background(), "@Grok -is:retweet", 50)
	require.NoError(t, err)

	assert.Equal(t, "/tweets/search/recent", gotPath)
	assert.Equal(t, "Bearer token-123", gotAuth)
	assert.Equal(t, "@Grok -is:retweet", gotQuery)

	require.Len(t, res.Posts, 2)
	first := res.Posts[0]
	assert.Equal(t, "1001", first.ID)
	assert.Equal(t, "42", first.AuthorID)
	assert.Equal(t, 10, first.LikeCount)
	assert.Equal(t, 2, first.RetweetCount)
	require.Len(t, first.References, 1)
	assert.Equal(t, "replied_to", first.References[0].Type)
	assert.True(t, first.CreatedAt.Equal(time.Date(2026, 8, 31, 11, 0, 0, 0, time.UTC)))

	assert.Equal(t, 1234, res.Authors["42"])
	assert.Equal(t, 9, res.Authors["7"])
}

func TestXSearchNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	x := NewXSearch("token-123")
	x.baseURL = srv.URL

	_, err := x.Search(context.Background(), "@Grok", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestNitterParsesFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/rss", r.URL.Path)
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
	<title>search</title>
	<item>
		<title>grok helped me with bitcoin taxes</title>
		<guid>https://nitter.net/u/status/2001</guid>
		<author>@someone</author>
		<pubDate>Mon, 31 Aug 2026 11:00:00 GMT</pubDate>
	</item>
</channel>
</rss>`))
	}))
	defer srv.Close()

	n := NewNitter(srv.URL)
	res, err := n.Search(context.Background(), "@Grok", 10)
	require.NoError(t, err)

	require.Len(t, res.Posts, 1)
	assert.Equal(t, "https://nitter.net/u/status/2001", res.Posts[0].ID)
	assert.Equal(t, "grok helped me with bitcoin taxes", res.Posts[0].Text)
	// RSS carries no engagement payload.
	assert.Equal(t, 0, res.Posts[0].LikeCount)
	assert.Empty(t, res.Authors)
}

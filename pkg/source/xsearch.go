package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const xBaseURL = "https://api.x.com/2"

// XSearch queries the X recent-search API for product mentions.
type XSearch struct {
	client  *http.Client
	token   string
	baseURL string
}

// NewXSearch creates a search client authenticated with a bearer token.
func NewXSearch(token string) *XSearch {
	return &XSearch{
		client:  &http.Client{Timeout: 30 * time.Second},
		token:   token,
		baseURL: xBaseURL,
	}
}

func (x *XSearch) Name() string { return "x-search" }

type xSearchResponse struct {
	Data []struct {
		ID             string    `json:"id"`
		Text           string    `json:"text"`
		AuthorID       string    `json:"author_id"`
		Lang           string    `json:"lang"`
		ConversationID string    `json:"conversation_id"`
		CreatedAt      time.Time `json:"created_at"`
		PublicMetrics  struct {
			LikeCount    int `json:"like_count"`
			RetweetCount int `json:"retweet_count"`
			ReplyCount   int `json:"reply_count"`
			QuoteCount   int `json:"quote_count"`
		} `json:"public_metrics"`
		ReferencedTweets []struct {
			Type string `json:"type"`
			ID   string `json:"id"`
		} `json:"referenced_tweets"`
	} `json:"data"`
	Includes struct {
		Users []struct {
			ID            string `json:"id"`
			PublicMetrics struct {
				FollowersCount int `json:"followers_count"`
			} `json:"public_metrics"`
		} `json:"users"`
	} `json:"includes"`
}

// Search issues one bounded recent-search request, asking for engagement
// metrics and author follower counts as side payloads.
func (x *XSearch) Search(ctx context.Context, query string, maxResults int) (*SearchResult, error) {
	if maxResults <= 0 || maxResults > 100 {
		maxResults = 100
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("max_results", fmt.Sprintf("%d", maxResults))
	params.Set("tweet.fields", "created_at,author_id,lang,public_metrics,conversation_id,referenced_tweets")
	params.Set("user.fields", "public_metrics")
	params.Set("expansions", "author_id,referenced_tweets.id.author_id")

	reqURL := x.baseURL + "/tweets/search/recent?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+x.token)
	req.Header.Set("User-Agent", "grokpulse/1.0")

	resp, err := x.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch recent search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("recent search status %d", resp.StatusCode)
	}

	var body xSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode recent search: %w", err)
	}

	result := &SearchResult{Authors: make(map[string]int)}
	for _, u := range body.Includes.Users {
		result.Authors[u.ID] = u.PublicMetrics.FollowersCount
	}

	for _, t := range body.Data {
		p := RawPost{
			ID:             t.ID,
			Text:           t.Text,
			AuthorID:       t.AuthorID,
			Lang:           t.Lang,
			ConversationID: t.ConversationID,
			CreatedAt:      t.CreatedAt.UTC(),
			LikeCount:      t.PublicMetrics.LikeCount,
			RetweetCount:   t.PublicMetrics.RetweetCount,
			ReplyCount:     t.PublicMetrics.ReplyCount,
			QuoteCount:     t.PublicMetrics.QuoteCount,
		}
		for _, ref := range t.ReferencedTweets {
			p.References = append(p.References, Reference{Type: ref.Type, ID: ref.ID})
		}
		result.Posts = append(result.Posts, p)
	}

	return result, nil
}

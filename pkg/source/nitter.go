package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Nitter collects mentions via a Nitter search RSS feed. It is a fallback
// for running without API credentials: no engagement metrics or follower
// counts are available, so those default to zero.
type Nitter struct {
	client    *http.Client
	parser    *gofeed.Parser
	nitterURL string
}

// NewNitter creates a Nitter RSS search client.
func NewNitter(nitterURL string) *Nitter {
	if nitterURL == "" {
		nitterURL = "https://nitter.net"
	}
	return &Nitter{
		client:    &http.Client{Timeout: 30 * time.Second},
		parser:    gofeed.NewParser(),
		nitterURL: strings.TrimRight(nitterURL, "/"),
	}
}

func (n *Nitter) Name() string { return "nitter" }

func (n *Nitter) Search(ctx context.Context, query string, maxResults int) (*SearchResult, error) {
	feedURL := fmt.Sprintf("%s/search/rss?f=tweets&q=%s", n.nitterURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create nitter request: %w", err)
	}
	req.Header.Set("User-Agent", "grokpulse/1.0")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch nitter search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nitter search status %d", resp.StatusCode)
	}

	feed, err := n.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse nitter feed: %w", err)
	}

	result := &SearchResult{Authors: make(map[string]int)}
	for _, entry := range feed.Items {
		if maxResults > 0 && len(result.Posts) >= maxResults {
			break
		}

		created := time.Now().UTC()
		if entry.PublishedParsed != nil {
			created = entry.PublishedParsed.UTC()
		}

		author := ""
		if len(entry.Authors) > 0 {
			author = strings.TrimPrefix(entry.Authors[0].Name, "@")
		}

		result.Posts = append(result.Posts, RawPost{
			ID:        nitterGUID(entry),
			Text:      entry.Title,
			AuthorID:  author,
			CreatedAt: created,
		})
	}

	return result, nil
}

func nitterGUID(entry *gofeed.Item) string {
	if entry.GUID != "" {
		return entry.GUID
	}
	return entry.Link
}

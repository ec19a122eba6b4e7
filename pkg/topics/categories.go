package topics

import (
	"sort"
	"strings"
)

// CategoryGeneral is the fallback when no keyword matches a topic.
const CategoryGeneral = "general"

// categoryKeywords binds one category to its keyword list. The table is
// ordered so extraction output is deterministic.
type categoryKeywords struct {
	name     string
	keywords []string
}

var defaultCategories = []categoryKeywords{
	{"tech", []string{"code", "programming", "debug", "software", "algorithm", "api", "github", "developer", "bug", "python", "javascript", "react"}},
	{"crypto", []string{"bitcoin", "crypto", "ethereum", "blockchain", "nft", "defi", "token", "btc", "eth", "solana", "web3"}},
	{"finance", []string{"stock", "market", "invest", "trading", "finance", "portfolio", "earnings", "sp500", "nasdaq", "dow"}},
	{"news", []string{"news", "breaking", "update", "headline", "report", "announcement", "happening"}},
	{"culture", []string{"meme", "trend", "viral", "tiktok", "instagram", "culture", "pop", "celebrity", "movie", "music"}},
	{"politics", []string{"politics", "election", "government", "policy", "congress", "senate", "president", "vote", "law"}},
	{"business", []string{"startup", "business", "entrepreneur", "company", "revenue", "growth", "venture", "funding", "ipo"}},
	{"science", []string{"research", "study", "science", "biology", "physics", "climate", "space", "nasa", "health"}},
}

// CategoryTable maps categories to keyword lists for matching.
type CategoryTable struct {
	entries []categoryKeywords
}

// NewCategoryTable returns the built-in table extended with extra
// keywords per category. Extras for unknown categories append new entries.
func NewCategoryTable(extra map[string][]string) *CategoryTable {
	entries := make([]categoryKeywords, len(defaultCategories))
	for i, e := range defaultCategories {
		kws := make([]string, len(e.keywords))
		copy(kws, e.keywords)
		entries[i] = categoryKeywords{name: e.name, keywords: kws}
	}

	// Fixed iteration order keeps category precedence stable across runs.
	cats := make([]string, 0, len(extra))
	for cat := range extra {
		cats = append(cats, cat)
	}
	sort.Strings(cats)

	for _, cat := range cats {
		kws := extra[cat]
		lowered := make([]string, len(kws))
		for i, kw := range kws {
			lowered[i] = strings.ToLower(kw)
		}
		found := false
		for i := range entries {
			if entries[i].name == cat {
				entries[i].keywords = append(entries[i].keywords, lowered...)
				found = true
				break
			}
		}
		if !found {
			entries = append(entries, categoryKeywords{name: cat, keywords: lowered})
		}
	}

	return &CategoryTable{entries: entries}
}

// Categorize resolves a topic to the first category with a keyword
// contained in it, falling back to "general".
func (t *CategoryTable) Categorize(topic string) string {
	lower := strings.ToLower(topic)
	for _, e := range t.entries {
		for _, kw := range e.keywords {
			if strings.Contains(lower, kw) {
				return e.name
			}
		}
	}
	return CategoryGeneral
}

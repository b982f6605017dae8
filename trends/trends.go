package trends

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Source returns trending search topics in ranked order.
type Source interface {
	Fetch(ctx context.Context, n int) ([]string, error)
}

var fallbackTopics = []string{
	"Artificial Intelligence",
	"Space Exploration",
	"Global Markets",
	"Climate Change",
	"Public Health",
}

// Fallback returns exactly n fixed topics. Beyond the built-in list the topics repeat
// with a numeric suffix, so the result depends only on n.
func Fallback(n int) []string {
	if n < 1 {
		n = 1
	}
	out := make([]string, n)
	for i := range out {
		base := fallbackTopics[i%len(fallbackTopics)]
		if round := i / len(fallbackTopics); round > 0 {
			base = fmt.Sprintf("%s #%d", base, round+1)
		}
		out[i] = base
	}
	return out
}

// TopTopics asks src for n distinct topics and never fails: errors fall back to the fixed
// list, short results are padded from it. Topics differing only in case count once.
func TopTopics(ctx context.Context, src Source, n int, logger *slog.Logger) []string {
	if n < 1 {
		n = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	topics, err := src.Fetch(ctx, n)
	if err != nil {
		logger.Warn("trend fetch failed, using fallback topics", "err", err)
		return Fallback(n)
	}
	topics = dedupe(topics)
	if len(topics) > n {
		topics = topics[:n]
	}
	if len(topics) < n {
		logger.Warn("trend source returned too few topics, padding", "got", len(topics), "want", n)
		topics = pad(topics, n)
	}
	return topics
}

func dedupe(topics []string) []string {
	seen := make(map[string]bool, len(topics))
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		key := strings.ToLower(t)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

func pad(topics []string, n int) []string {
	seen := make(map[string]bool, len(topics))
	out := make([]string, 0, n)
	for _, t := range topics {
		seen[strings.ToLower(t)] = true
		out = append(out, t)
	}
	for _, t := range Fallback(n + len(topics)) {
		if len(out) == n {
			break
		}
		if seen[strings.ToLower(t)] {
			continue
		}
		out = append(out, t)
	}
	return out
}

// GoogleTrends reads the Google Trends "trending now" RSS feed.
type GoogleTrends struct {
	FeedURL string
	Geo     string
	parser  *gofeed.Parser
}

const defaultFeedURL = "https://trends.google.com/trending/rss"

// NewGoogleTrends creates a feed reader for geo (e.g. "US"). A nil client gets a 30s timeout.
func NewGoogleTrends(feedURL, geo string, client *http.Client) *GoogleTrends {
	if feedURL == "" {
		feedURL = defaultFeedURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	parser := gofeed.NewParser()
	parser.Client = client
	return &GoogleTrends{FeedURL: feedURL, Geo: geo, parser: parser}
}

func (g *GoogleTrends) Fetch(ctx context.Context, n int) ([]string, error) {
	u, err := url.Parse(g.FeedURL)
	if err != nil {
		return nil, fmt.Errorf("trends feed url: %w", err)
	}
	if g.Geo != "" {
		q := u.Query()
		q.Set("geo", g.Geo)
		u.RawQuery = q.Encode()
	}

	feed, err := g.parser.ParseURLWithContext(u.String(), ctx)
	if err != nil {
		return nil, fmt.Errorf("trends feed: %w", err)
	}

	var topics []string
	seen := make(map[string]bool)
	for _, item := range feed.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" || seen[strings.ToLower(title)] {
			continue
		}
		seen[strings.ToLower(title)] = true
		topics = append(topics, title)
		if len(topics) == n {
			break
		}
	}
	if len(topics) == 0 {
		return nil, errors.New("trends feed: no items")
	}
	return topics, nil
}

package news

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const defaultBaseURL = "https://newsapi.org"

// ErrNoArticle means the search matched nothing for the topic.
var ErrNoArticle = errors.New("no article found")

// Article is the single most relevant search hit for a topic.
type Article struct {
	Title string
	URL   string
	// Body is the content field, or the description when content is empty. May be "".
	Body string
}

// Client searches NewsAPI's /v2/everything endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
}

// NewClient creates a NewsAPI client. Empty baseURL and language default to
// https://newsapi.org and "en".
func NewClient(apiKey, baseURL, language string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if language == "" {
		language = "en"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   language,
		httpClient: httpClient,
	}
}

// FindTopArticle returns the most relevant article for topic, or ErrNoArticle.
func (c *Client) FindTopArticle(ctx context.Context, topic string) (Article, error) {
	q := url.Values{}
	q.Set("q", topic)
	q.Set("sortBy", "relevancy")
	q.Set("language", c.language)
	q.Set("pageSize", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/everything?"+q.Encode(), nil)
	if err != nil {
		return Article{}, err
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Article{}, fmt.Errorf("newsapi request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Article{}, fmt.Errorf("newsapi read: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return Article{}, fmt.Errorf("newsapi: status %d, non-JSON body", resp.StatusCode)
	}

	res := gjson.ParseBytes(body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || res.Get("status").String() == "error" {
		return Article{}, fmt.Errorf("newsapi: status %d %s: %s",
			resp.StatusCode, res.Get("code").String(), res.Get("message").String())
	}

	first := res.Get("articles.0")
	if !first.Exists() {
		return Article{}, ErrNoArticle
	}
	return Article{
		Title: strings.TrimSpace(first.Get("title").String()),
		URL:   first.Get("url").String(),
		Body:  pickBody(first.Get("content").String(), first.Get("description").String()),
	}, nil
}

// NewsAPI cuts content at 200 chars and appends e.g. "… [+2310 chars]".
var truncationTail = regexp.MustCompile(`\s*…?\s*\[\+\d+ chars\]\s*$`)

func pickBody(content, description string) string {
	content = strings.TrimSpace(truncationTail.ReplaceAllString(content, ""))
	if content != "" {
		return content
	}
	return strings.TrimSpace(description)
}

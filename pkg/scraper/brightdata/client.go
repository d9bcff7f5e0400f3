package brightdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"startup-hunter-be/internal/pkg/logger"
	"startup-hunter-be/pkg/result"
	"startup-hunter-be/pkg/store"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultEndpoint = "https://api.brightdata.com/request"
	DefaultZone     = "serp_api1"

	maxPerSource = 10
	module       = "BrightData"
)

// Source is one SERP query feeding the trend collector.
type Source struct {
	Name  string
	Query func(domain string) string
}

// DefaultSources mirrors the four feeds used for trend discovery.
var DefaultSources = []Source{
	{Name: "Product Hunt", Query: func(d string) string { return fmt.Sprintf("site:producthunt.com %s trending", d) }},
	{Name: "GitHub", Query: func(string) string { return "site:github.com trending repositories stars" }},
	{Name: "Reddit", Query: func(string) string { return "site:reddit.com/r/startups top upvoted" }},
	{Name: "Hacker News", Query: func(string) string { return "site:news.ycombinator.com points comments" }},
}

type Config struct {
	Token    string
	Zone     string
	Endpoint string
	Timeout  time.Duration
}

type Client struct {
	token    string
	zone     string
	endpoint string
	http     *http.Client
	sources  []Source
	logger   logger.ILogger
}

func NewClient(cfg Config, log logger.ILogger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Zone == "" {
		cfg.Zone = DefaultZone
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		token:    cfg.Token,
		zone:     cfg.Zone,
		endpoint: cfg.Endpoint,
		http:     &http.Client{Timeout: cfg.Timeout},
		sources:  DefaultSources,
		logger:   log,
	}
}

func (c *Client) Configured() bool {
	return c.token != ""
}

type serpRequest struct {
	Zone   string `json:"zone"`
	URL    string `json:"url"`
	Format string `json:"format"`
}

type serpResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

// Collect queries every source in parallel. A failing source is logged
// and contributes nothing. When all sources come back empty, sample items
// derived from the domain are returned as a fallback. Only a cancelled
// context yields an error result.
func (c *Client) Collect(ctx context.Context, domain string) result.Result[[]store.RawItem] {
	query := domain
	if query == "" {
		query = "startup trends"
	}

	var items []store.RawItem
	if c.Configured() {
		perSource := make([][]store.RawItem, len(c.sources))
		g, gctx := errgroup.WithContext(ctx)
		for i, src := range c.sources {
			g.Go(func() error {
				got, err := c.search(gctx, src.Name, src.Query(query))
				if err != nil {
					c.logger.Warn(module, "Source scrape failed", map[string]interface{}{"source": src.Name, "error": err.Error()})
					return nil
				}
				perSource[i] = got
				return nil
			})
		}
		_ = g.Wait()

		for _, got := range perSource {
			items = append(items, got...)
		}
	}

	if err := ctx.Err(); err != nil {
		return result.Err[[]store.RawItem](err)
	}
	if len(items) == 0 {
		reason := "bright data not configured"
		if c.Configured() {
			reason = "no results from any source"
		}
		c.logger.Warn(module, "Using sample trend data", map[string]interface{}{"domain": domain, "reason": reason})
		return result.Fallback(SampleItems(domain), reason)
	}

	c.logger.Info(module, "Collected raw trend items", map[string]interface{}{"domain": domain, "count": len(items)})
	return result.Ok(items)
}

func (c *Client) search(ctx context.Context, source, query string) ([]store.RawItem, error) {
	payload, err := json.Marshal(serpRequest{
		Zone:   c.zone,
		URL:    "https://www.google.com/search?q=" + url.QueryEscape(query),
		Format: "raw",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bright data request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bright data error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var serp serpResponse
	if err := json.Unmarshal(body, &serp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	organic := serp.Organic
	if len(organic) > maxPerSource {
		organic = organic[:maxPerSource]
	}
	items := make([]store.RawItem, 0, len(organic))
	for _, o := range organic {
		items = append(items, store.RawItem{
			"title":   o.Title,
			"url":     o.Link,
			"snippet": o.Snippet,
			"source":  source,
		})
	}
	return items, nil
}

// SampleItems is the domain-derived stand-in used when scraping yields nothing.
func SampleItems(domain string) []store.RawItem {
	d := domain
	if d == "" {
		d = "startups"
	}
	return []store.RawItem{
		{"title": fmt.Sprintf("AI-powered tools for %s professionals gaining traction", d), "url": "https://producthunt.com/sample", "snippet": "New AI tool for automating workflows in the industry, 500+ upvotes", "source": "Product Hunt"},
		{"title": fmt.Sprintf("Open source %s platform reaches 10k stars", d), "url": "https://github.com/trending", "snippet": "Community-driven platform for solving common problems", "source": "GitHub"},
		{"title": fmt.Sprintf("r/%s: Top post about major pain point", d), "url": fmt.Sprintf("https://reddit.com/r/%s", url.PathEscape(d)), "snippet": "Users discussing frustrations with current solutions, 2k upvotes", "source": "Reddit"},
		{"title": fmt.Sprintf("Show HN: New approach to %s challenges", d), "url": "https://news.ycombinator.com", "snippet": "Innovative solution addressing industry gaps, 300 points", "source": "Hacker News"},
		{"title": fmt.Sprintf("AI meeting assistant for %s teams trending", d), "url": "https://producthunt.com/sample2", "snippet": "Voice-to-text solution saving 10 hours per week, 800 upvotes", "source": "Product Hunt"},
	}
}

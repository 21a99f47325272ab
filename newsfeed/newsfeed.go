// Package newsfeed keeps a time boxed cache of AI news headlines pulled from a
// fixed set of RSS feeds.
package newsfeed

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	DefaultRefresh = time.Hour
	itemsPerSource = 4
	maxItems       = 18
	maxTitleLength = 120
	userAgent      = "Mozilla/5.0 (compatible; vibecoder-news)"
)

type Source struct {
	Name string
	URL  string
}

var DefaultSources = []Source{
	{"TechCrunch AI", "https://techcrunch.com/category/artificial-intelligence/feed/"},
	{"The Verge AI", "https://www.theverge.com/ai-artificial-intelligence/rss/index.xml"},
	{"VentureBeat AI", "https://venturebeat.com/category/ai/feed/"},
	{"MIT Tech Review", "https://www.technologyreview.com/feed/"},
	{"AI News", "https://www.artificialintelligence-news.com/feed/"},
}

type Item struct {
	Source    string     `json:"source"`
	Title     string     `json:"title"`
	URL       string     `json:"url"`
	Published *time.Time `json:"published,omitempty"`
}

var refreshes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "newsfeed_refresh_total",
	Help: "Number of news cache refreshes by status",
}, []string{"status"})

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// Cache serves the last good set of headlines and refreshes it at most once per
// refresh interval. A failed refresh keeps the previous data.
type Cache struct {
	mu      sync.Mutex
	items   []Item
	updated time.Time

	refresh time.Duration
	sources []Source
	client  *http.Client
	log     *slog.Logger
	now     func() time.Time
}

func New(refresh time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("system", "newsfeed")
	return &Cache{
		refresh: refresh,
		sources: DefaultSources,
		client:  newClient(logger),
		log:     logger,
		now:     time.Now,
	}
}

// WithSources replaces the feeds and the HTTP client used to fetch them.
func (c *Cache) WithSources(sources []Source, client *http.Client) *Cache {
	c.sources = sources
	if client != nil {
		c.client = client
	}
	return c
}

func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Get returns the cached headlines, refreshing them first when they are stale.
func (c *Cache) Get(ctx context.Context) []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if now.Sub(c.updated) > c.refresh {
		if items := c.fetch(ctx); len(items) > 0 {
			c.items = items
			c.updated = now
			refreshes.WithLabelValues("ok").Inc()
		} else {
			refreshes.WithLabelValues("empty").Inc()
		}
	}
	return append([]Item(nil), c.items...)
}

// Updated returns the time of the last successful refresh.
func (c *Cache) Updated() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updated
}

func (c *Cache) fetch(ctx context.Context) []Item {
	var items []Item
	for _, src := range c.sources {
		got, err := c.fetchSource(ctx, src)
		if err != nil {
			c.log.Warn("fetching feed failed", "source", src.Name, "err", err)
			continue
		}
		items = append(items, got...)
	}
	if len(items) > maxItems {
		items = items[:maxItems]
	}
	return items
}

type rss struct {
	Items []rssItem `xml:"channel>item"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	GUID    string `xml:"guid"`
	PubDate string `xml:"pubDate"`
}

func (c *Cache) fetchSource(ctx context.Context, src Source) ([]Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var feed rss
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}

	var items []Item
	for _, ri := range feed.Items {
		if len(items) == itemsPerSource {
			break
		}
		title := truncate(strings.TrimSpace(tagPattern.ReplaceAllString(ri.Title, "")), maxTitleLength)
		link := strings.TrimSpace(ri.Link)
		if link == "" {
			link = strings.TrimSpace(ri.GUID)
		}
		if title == "" || link == "" {
			continue
		}
		items = append(items, Item{
			Source:    src.Name,
			Title:     title,
			URL:       link,
			Published: parseDate(ri.PubDate),
		})
	}
	return items, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

type leveledSlog struct {
	inner *slog.Logger
}

// retries make individual failures warnings
func (l leveledSlog) Error(msg string, keysAndValues ...any) {
	l.inner.Warn(msg, keysAndValues...)
}

func (l leveledSlog) Warn(msg string, keysAndValues ...any) {
	l.inner.Warn(msg, keysAndValues...)
}

func (l leveledSlog) Info(msg string, keysAndValues ...any) {
	l.inner.Info(msg, keysAndValues...)
}

func (l leveledSlog) Debug(msg string, keysAndValues ...any) {
	l.inner.Debug(msg, keysAndValues...)
}

func newClient(logger *slog.Logger) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = retryablehttp.LeveledLogger(leveledSlog{inner: logger})
	client := retryClient.StandardClient()
	client.Timeout = 8 * time.Second
	return client
}

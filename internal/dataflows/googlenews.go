package dataflows

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/equityscribe/equityscribe/internal/models"
)

type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title string    `xml:"title"`
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	PubDate     string    `xml:"pubDate"`
	Source      rssSource `xml:"source"`
}

type rssSource struct {
	URL  string `xml:"url,attr"`
	Text string `xml:",chardata"`
}

// GoogleNewsClient searches the Google News RSS feed for general web
// queries the ticker-bound news source cannot answer.
type GoogleNewsClient struct {
	client *resty.Client
	cache  *CacheManager
}

func NewGoogleNewsClient(cacheDir string, ttl time.Duration, cacheEnabled bool) *GoogleNewsClient {
	cache := NewCacheManager(filepath.Join(cacheDir, "google_news"), ttl, cacheEnabled)

	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")

	return &GoogleNewsClient{
		client: client,
		cache:  cache,
	}
}

// Search runs a query against the Google News RSS endpoint and returns
// up to maxResults normalized articles, newest entries first as served.
func (gnc *GoogleNewsClient) Search(query string, maxResults int) ([]*models.NewsArticle, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("search query cannot be empty")
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	cacheKey := map[string]interface{}{"query": query, "max": maxResults}
	var cached []*models.NewsArticle
	if gnc.cache.Get("google_news", "search", cacheKey, &cached) {
		return cached, nil
	}

	searchURL := fmt.Sprintf("https://news.google.com/rss/search?q=%s&hl=en-US&gl=US&ceid=US:en",
		url.QueryEscape(query))

	var result []*models.NewsArticle
	err := WithRetry(DefaultRetryConfig(), func() error {
		resp, err := gnc.client.R().Get(searchURL)
		if err != nil {
			return fmt.Errorf("failed to fetch Google News: %w", err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("HTTP error %d when fetching Google News", resp.StatusCode())
		}

		var feed rssFeed
		if err := xml.Unmarshal(resp.Body(), &feed); err != nil {
			return fmt.Errorf("failed to parse RSS feed: %w", err)
		}

		result = make([]*models.NewsArticle, 0, maxResults)
		for _, item := range feed.Channel.Items {
			if len(result) >= maxResults {
				break
			}

			published, _ := time.Parse(time.RFC1123, item.PubDate)

			result = append(result, &models.NewsArticle{
				Title:       strings.TrimSpace(item.Title),
				Summary:     stripHTML(item.Description),
				URL:         item.Link,
				Source:      item.Source.Text,
				PublishedAt: published,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	gnc.cache.Set("google_news", "search", cacheKey, result)
	return result, nil
}

// stripHTML reduces an RSS description fragment to its visible text.
func stripHTML(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return strings.TrimSpace(doc.Text())
}

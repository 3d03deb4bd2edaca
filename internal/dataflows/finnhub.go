package dataflows

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/equityscribe/equityscribe/internal/models"
)

// FinnhubClient wraps the Finnhub REST API for company news, fundamental
// metrics and analyst recommendations.
type FinnhubClient struct {
	client *resty.Client
	cache  *CacheManager
	apiKey string
}

func NewFinnhubClient(apiKey, cacheDir string, ttl time.Duration, cacheEnabled bool) *FinnhubClient {
	cache := NewCacheManager(filepath.Join(cacheDir, "finnhub"), ttl, cacheEnabled)

	client := resty.New()
	client.SetBaseURL("https://finnhub.io/api/v1")
	client.SetTimeout(30 * time.Second)

	return &FinnhubClient{
		client: client,
		cache:  cache,
		apiKey: apiKey,
	}
}

type finnhubNews struct {
	Category string `json:"category"`
	DateTime int64  `json:"datetime"`
	Headline string `json:"headline"`
	ID       int64  `json:"id"`
	Related  string `json:"related"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

// GetCompanyNews gets news articles for a company within a date range.
func (fc *FinnhubClient) GetCompanyNews(symbol string, from, to time.Time) ([]*models.NewsArticle, error) {
	if fc.apiKey == "" {
		return nil, fmt.Errorf("finnhub API key not configured")
	}
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	cacheKey := map[string]interface{}{
		"symbol": symbol,
		"from":   from.Format("2006-01-02"),
		"to":     to.Format("2006-01-02"),
	}

	var cached []*models.NewsArticle
	if fc.cache.Get("finnhub", "company_news", cacheKey, &cached) {
		return cached, nil
	}

	var result []*models.NewsArticle
	err := WithRetry(DefaultRetryConfig(), func() error {
		resp, err := fc.client.R().
			SetQueryParams(map[string]string{
				"symbol": symbol,
				"from":   from.Format("2006-01-02"),
				"to":     to.Format("2006-01-02"),
				"token":  fc.apiKey,
			}).
			Get("/company-news")
		if err != nil {
			return fmt.Errorf("failed to fetch news for %s: %w", symbol, err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("API error %d: %s", resp.StatusCode(), resp.String())
		}

		var items []finnhubNews
		if err := json.Unmarshal(resp.Body(), &items); err != nil {
			return fmt.Errorf("failed to parse news response: %w", err)
		}

		result = make([]*models.NewsArticle, 0, len(items))
		for _, item := range items {
			result = append(result, &models.NewsArticle{
				Title:       item.Headline,
				Summary:     item.Summary,
				URL:         item.URL,
				Source:      item.Source,
				PublishedAt: time.Unix(item.DateTime, 0),
				Metadata: map[string]string{
					"category": item.Category,
					"related":  item.Related,
					"id":       strconv.FormatInt(item.ID, 10),
				},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fc.cache.Set("finnhub", "company_news", cacheKey, result)
	return result, nil
}

// GetBasicFinancials returns the subset of Finnhub metrics the data
// analyst reasons over: margins, growth rates, leverage and returns.
func (fc *FinnhubClient) GetBasicFinancials(symbol string) (map[string]float64, error) {
	if fc.apiKey == "" {
		return nil, fmt.Errorf("finnhub API key not configured")
	}
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	var cached map[string]float64
	if fc.cache.Get("finnhub", "basic_financials", symbol, &cached) {
		return cached, nil
	}

	wanted := []string{
		"grossMarginTTM",
		"operatingMarginTTM",
		"netProfitMarginTTM",
		"revenueGrowthTTMYoy",
		"epsGrowthTTMYoy",
		"roeTTM",
		"currentRatioQuarterly",
		"totalDebt/totalEquityQuarterly",
		"peTTM",
		"psTTM",
	}

	var result map[string]float64
	err := WithRetry(DefaultRetryConfig(), func() error {
		resp, err := fc.client.R().
			SetQueryParams(map[string]string{
				"symbol": symbol,
				"metric": "all",
				"token":  fc.apiKey,
			}).
			Get("/stock/metric")
		if err != nil {
			return fmt.Errorf("failed to fetch financials for %s: %w", symbol, err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("API error %d: %s", resp.StatusCode(), resp.String())
		}

		var payload struct {
			Metric map[string]interface{} `json:"metric"`
		}
		if err := json.Unmarshal(resp.Body(), &payload); err != nil {
			return fmt.Errorf("failed to parse financials response: %w", err)
		}

		result = make(map[string]float64, len(wanted))
		for _, key := range wanted {
			if v, ok := payload.Metric[key].(float64); ok {
				result[key] = v
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fc.cache.Set("finnhub", "basic_financials", symbol, result)
	return result, nil
}

// GetRecommendations returns the most recent analyst recommendation
// trends for a symbol, newest first.
func (fc *FinnhubClient) GetRecommendations(symbol string) ([]*models.RecommendationTrend, error) {
	if fc.apiKey == "" {
		return nil, fmt.Errorf("finnhub API key not configured")
	}
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	var cached []*models.RecommendationTrend
	if fc.cache.Get("finnhub", "recommendations", symbol, &cached) {
		return cached, nil
	}

	var result []*models.RecommendationTrend
	err := WithRetry(DefaultRetryConfig(), func() error {
		resp, err := fc.client.R().
			SetQueryParams(map[string]string{
				"symbol": symbol,
				"token":  fc.apiKey,
			}).
			Get("/stock/recommendation")
		if err != nil {
			return fmt.Errorf("failed to fetch recommendations for %s: %w", symbol, err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("API error %d: %s", resp.StatusCode(), resp.String())
		}

		if err := json.Unmarshal(resp.Body(), &result); err != nil {
			return fmt.Errorf("failed to parse recommendations response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fc.cache.Set("finnhub", "recommendations", symbol, result)
	return result, nil
}

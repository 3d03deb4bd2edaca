package dataflows

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/equity"

	"github.com/equityscribe/equityscribe/internal/models"
)

// YahooClient fetches quotes, valuation snapshots and historical bars
// from Yahoo Finance.
type YahooClient struct {
	cache *CacheManager
}

func NewYahooClient(cacheDir string, ttl time.Duration, cacheEnabled bool) *YahooClient {
	cache := NewCacheManager(filepath.Join(cacheDir, "yahoo"), ttl, cacheEnabled)
	return &YahooClient{cache: cache}
}

// GetValuation returns the point-in-time valuation metrics for a symbol.
func (yc *YahooClient) GetValuation(symbol string) (*models.ValuationSnapshot, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	var cached models.ValuationSnapshot
	if yc.cache.Get("yahoo", "valuation", symbol, &cached) {
		return &cached, nil
	}

	var result *models.ValuationSnapshot
	err := WithRetry(DefaultRetryConfig(), func() error {
		eq, err := equity.Get(symbol)
		if err != nil {
			return fmt.Errorf("failed to get equity data for %s: %w", symbol, err)
		}

		result = &models.ValuationSnapshot{
			Symbol:               symbol,
			Price:                eq.RegularMarketPrice,
			MarketCap:            eq.MarketCap,
			TrailingPE:           eq.TrailingPE,
			ForwardPE:            eq.ForwardPE,
			PriceToBook:          eq.PriceToBook,
			EPSTrailing:          eq.EpsTrailingTwelveMonths,
			DividendYield:        eq.TrailingAnnualDividendYield,
			FiftyTwoWeekHigh:     eq.FiftyTwoWeekHigh,
			FiftyTwoWeekLow:      eq.FiftyTwoWeekLow,
			FiftyDayAverage:      eq.FiftyDayAverage,
			TwoHundredDayAverage: eq.TwoHundredDayAverage,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	yc.cache.Set("yahoo", "valuation", symbol, result)
	return result, nil
}

// GetHistory returns OHLCV bars between start and end at the given
// interval, oldest first.
func (yc *YahooClient) GetHistory(symbol string, start, end time.Time, interval datetime.Interval) ([]*models.MarketData, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	cacheKey := map[string]interface{}{
		"symbol":   symbol,
		"start":    start.Format("2006-01-02"),
		"end":      end.Format("2006-01-02"),
		"interval": string(interval),
	}

	var cached []*models.MarketData
	if yc.cache.Get("yahoo", "history", cacheKey, &cached) {
		return cached, nil
	}

	var result []*models.MarketData
	err := WithRetry(DefaultRetryConfig(), func() error {
		params := &chart.Params{
			Symbol:   symbol,
			Start:    datetime.New(&start),
			End:      datetime.New(&end),
			Interval: interval,
		}

		iter := chart.Get(params)

		result = make([]*models.MarketData, 0)
		for iter.Next() {
			bar := iter.Bar()
			result = append(result, &models.MarketData{
				Symbol:   symbol,
				Date:     time.Unix(int64(bar.Timestamp), 0),
				Open:     bar.Open,
				High:     bar.High,
				Low:      bar.Low,
				Close:    bar.Close,
				AdjClose: bar.AdjClose,
				Volume:   int64(bar.Volume),
			})
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("failed to get history for %s: %w", symbol, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	yc.cache.Set("yahoo", "history", cacheKey, result)
	return result, nil
}

// GetDailyWindow returns daily bars for a trailing window of calendar days.
func (yc *YahooClient) GetDailyWindow(symbol string, days int) ([]*models.MarketData, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -days)
	return yc.GetHistory(symbol, start, end, datetime.OneDay)
}

// GetMonthlyWindow returns monthly bars for a trailing window of years.
func (yc *YahooClient) GetMonthlyWindow(symbol string, years int) ([]*models.MarketData, error) {
	end := time.Now()
	start := end.AddDate(-years, 0, 0)
	return yc.GetHistory(symbol, start, end, datetime.OneMonth)
}

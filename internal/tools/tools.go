// Package tools defines the eino tool surface the research agents call.
// Every tool returns its findings as formatted text; failures come back
// as "Error ..." text in the result rather than a Go error, so a broken
// data source degrades the report instead of aborting the run.
package tools

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/equityscribe/equityscribe/internal/config"
	"github.com/equityscribe/equityscribe/internal/dataflows"
	"github.com/equityscribe/equityscribe/internal/logger"
	"github.com/equityscribe/equityscribe/internal/models"
)

// Provider owns the data source clients shared by all tools.
type Provider struct {
	yahoo    *dataflows.YahooClient
	finnhub  *dataflows.FinnhubClient
	news     *dataflows.GoogleNewsClient
	longport dataflows.LongportCredentials
	log      *zap.SugaredLogger
}

func NewProvider(cfg *config.Config) *Provider {
	ttl := cfg.CacheTTL()
	return &Provider{
		yahoo:   dataflows.NewYahooClient(cfg.DataCacheDir, ttl, cfg.CacheEnabled),
		finnhub: dataflows.NewFinnhubClient(cfg.FinnhubAPIKey, cfg.DataCacheDir, ttl, cfg.CacheEnabled),
		news:    dataflows.NewGoogleNewsClient(cfg.DataCacheDir, ttl, cfg.CacheEnabled),
		longport: dataflows.LongportCredentials{
			AppKey:      cfg.LongportAppKey,
			AppSecret:   cfg.LongportAppSecret,
			AccessToken: cfg.LongportAccessToken,
		},
		log: logger.Named("tools"),
	}
}

// dailyBars fetches roughly six months of daily bars, preferring Longport
// when credentials are configured and falling back to Yahoo.
func (p *Provider) dailyBars(ctx context.Context, symbol string, days int) ([]*models.MarketData, error) {
	if p.longport.Configured() {
		client, err := dataflows.NewLongportClient(p.longport)
		if err == nil {
			bars, err := client.GetDailySticks(ctx, symbol, days)
			if err == nil && len(bars) > 0 {
				return bars, nil
			}
			p.log.Warnw("longport fetch failed, falling back to yahoo",
				"symbol", symbol, "error", err)
		} else {
			p.log.Warnw("longport client unavailable", "error", err)
		}
	}
	return p.yahoo.GetDailyWindow(symbol, days)
}

func lastCloses(bars []*models.MarketData, n int) []*models.MarketData {
	if len(bars) <= n {
		return bars
	}
	return bars[len(bars)-n:]
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

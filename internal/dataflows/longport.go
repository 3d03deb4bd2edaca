package dataflows

import (
	"context"
	"errors"
	"time"

	lpconfig "github.com/longportapp/openapi-go/config"
	"github.com/longportapp/openapi-go/quote"
	"github.com/shopspring/decimal"

	"github.com/equityscribe/equityscribe/internal/models"
)

// LongportClient is an alternate candlestick source used when Longport
// API credentials are configured, mainly for HK/CN listed symbols that
// Yahoo covers poorly.
type LongportClient struct {
	quoteCtx *quote.QuoteContext
}

// LongportCredentials holds the three Longport OpenAPI secrets.
type LongportCredentials struct {
	AppKey      string
	AppSecret   string
	AccessToken string
}

func (c LongportCredentials) Configured() bool {
	return c.AppKey != "" && c.AppSecret != "" && c.AccessToken != ""
}

func NewLongportClient(creds LongportCredentials) (*LongportClient, error) {
	if !creds.Configured() {
		return nil, errors.New("longport API credentials not configured")
	}

	conf, err := lpconfig.New(lpconfig.WithConfigKey(creds.AppKey, creds.AppSecret, creds.AccessToken))
	if err != nil {
		return nil, err
	}

	quoteCtx, err := quote.NewFromCfg(conf)
	if err != nil {
		return nil, err
	}

	return &LongportClient{quoteCtx: quoteCtx}, nil
}

// GetDailySticks returns the last count daily candlesticks for a symbol,
// converted to the shared MarketData shape.
func (lpc *LongportClient) GetDailySticks(ctx context.Context, symbol string, count int) ([]*models.MarketData, error) {
	if lpc.quoteCtx == nil {
		return nil, errors.New("quote context is nil")
	}

	sticks, err := lpc.quoteCtx.Candlesticks(ctx, symbol, quote.PeriodDay, int32(count), quote.AdjustTypeNo)
	if err != nil {
		return nil, err
	}

	bars := make([]*models.MarketData, 0, len(sticks))
	for _, stick := range sticks {
		open, _ := stick.Open.Float64()
		high, _ := stick.High.Float64()
		low, _ := stick.Low.Float64()
		closePrice, _ := stick.Close.Float64()
		bars = append(bars, &models.MarketData{
			Symbol: symbol,
			Date:   time.Unix(stick.Timestamp, 0),
			Open:   decimal.NewFromFloat(open),
			High:   decimal.NewFromFloat(high),
			Low:    decimal.NewFromFloat(low),
			Close:  decimal.NewFromFloat(closePrice),
			Volume: stick.Volume,
		})
	}
	return bars, nil
}

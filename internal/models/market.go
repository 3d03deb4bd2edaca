package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketData is a single OHLCV bar. Prices stay decimal end to end; they
// are only converted to float64 at the indicator boundary.
type MarketData struct {
	Symbol   string          `json:"symbol"`
	Date     time.Time       `json:"date"`
	Open     decimal.Decimal `json:"open"`
	High     decimal.Decimal `json:"high"`
	Low      decimal.Decimal `json:"low"`
	Close    decimal.Decimal `json:"close"`
	AdjClose decimal.Decimal `json:"adj_close"`
	Volume   int64           `json:"volume"`
}

// IndicatorValue is one dated point of a computed technical indicator.
type IndicatorValue struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// NewsArticle is a normalized news item from any news source.
type NewsArticle struct {
	Title       string            `json:"title"`
	Summary     string            `json:"summary"`
	URL         string            `json:"url"`
	Source      string            `json:"source"`
	PublishedAt time.Time         `json:"published_at"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// ValuationSnapshot holds the point-in-time valuation metrics the data
// analyst reasons over.
type ValuationSnapshot struct {
	Symbol               string  `json:"symbol"`
	Price                float64 `json:"price"`
	MarketCap            int64   `json:"market_cap"`
	TrailingPE           float64 `json:"trailing_pe"`
	ForwardPE            float64 `json:"forward_pe"`
	PriceToBook          float64 `json:"price_to_book"`
	EPSTrailing          float64 `json:"eps_trailing"`
	DividendYield        float64 `json:"dividend_yield"`
	FiftyTwoWeekHigh     float64 `json:"fifty_two_week_high"`
	FiftyTwoWeekLow      float64 `json:"fifty_two_week_low"`
	FiftyDayAverage      float64 `json:"fifty_day_average"`
	TwoHundredDayAverage float64 `json:"two_hundred_day_average"`
}

// RecommendationTrend is one month of analyst recommendation counts.
type RecommendationTrend struct {
	Period     string `json:"period"`
	StrongBuy  int    `json:"strongBuy"`
	Buy        int    `json:"buy"`
	Hold       int    `json:"hold"`
	Sell       int    `json:"sell"`
	StrongSell int    `json:"strongSell"`
}

package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	t_utils "github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/equityscribe/equityscribe/internal/dataflows"
	"github.com/equityscribe/equityscribe/internal/models"
)

// NewStockAnalysisTool builds the fundamental data tool used by the data
// analyst: valuation snapshot, analyst recommendations, key financial
// metrics and the long-term price trend.
func (p *Provider) NewStockAnalysisTool() tool.BaseTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name: "get_stock_analysis_data",
			Desc: "Get comprehensive fundamental data for a stock: valuation metrics, analyst recommendations, financial health metrics and 5-year price trend",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"ticker": {
					Type:     "string",
					Desc:     "The stock ticker symbol, e.g. AAPL",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, input models.StockAnalysisInput) (*models.StockAnalysisOutput, error) {
			ticker := dataflows.NormalizeSymbol(input.Ticker)
			if err := dataflows.ValidateSymbol(ticker); err != nil {
				return &models.StockAnalysisOutput{
					Result: fmt.Sprintf("Error: invalid ticker %q: %v", input.Ticker, err),
				}, nil
			}

			var report strings.Builder
			fmt.Fprintf(&report, "## Fundamental data for %s\n\n", ticker)

			p.writeValuation(&report, ticker)
			p.writeRecommendations(&report, ticker)
			p.writeFinancialMetrics(&report, ticker)
			p.writeLongTermTrend(&report, ticker)
			p.writeRecentCloses(ctx, &report, ticker)

			return &models.StockAnalysisOutput{Result: report.String()}, nil
		},
	)
}

func (p *Provider) writeValuation(report *strings.Builder, ticker string) {
	val, err := p.yahoo.GetValuation(ticker)
	if err != nil {
		fmt.Fprintf(report, "### Valuation\nError retrieving valuation data: %v\n\n", err)
		return
	}

	report.WriteString("### Valuation\n")
	fmt.Fprintf(report, "Price: %.2f\n", val.Price)
	fmt.Fprintf(report, "Market cap: %d\n", val.MarketCap)
	fmt.Fprintf(report, "Trailing P/E: %.2f\n", val.TrailingPE)
	fmt.Fprintf(report, "Forward P/E: %.2f\n", val.ForwardPE)
	fmt.Fprintf(report, "Price/Book: %.2f\n", val.PriceToBook)
	fmt.Fprintf(report, "EPS (TTM): %.2f\n", val.EPSTrailing)
	fmt.Fprintf(report, "Dividend yield: %.4f\n", val.DividendYield)
	fmt.Fprintf(report, "52-week range: %.2f - %.2f\n", val.FiftyTwoWeekLow, val.FiftyTwoWeekHigh)
	fmt.Fprintf(report, "50-day average: %.2f, 200-day average: %.2f\n\n",
		val.FiftyDayAverage, val.TwoHundredDayAverage)
}

func (p *Provider) writeRecommendations(report *strings.Builder, ticker string) {
	recs, err := p.finnhub.GetRecommendations(ticker)
	if err != nil {
		fmt.Fprintf(report, "### Analyst recommendations\nError retrieving recommendations: %v\n\n", err)
		return
	}
	if len(recs) == 0 {
		report.WriteString("### Analyst recommendations\nNo recommendation data available.\n\n")
		return
	}

	report.WriteString("### Analyst recommendations\n")
	limit := len(recs)
	if limit > 3 {
		limit = 3
	}
	for _, rec := range recs[:limit] {
		fmt.Fprintf(report, "%s: strong buy %d, buy %d, hold %d, sell %d, strong sell %d\n",
			rec.Period, rec.StrongBuy, rec.Buy, rec.Hold, rec.Sell, rec.StrongSell)
	}
	report.WriteString("\n")
}

var financialMetricLabels = []struct {
	key   string
	label string
}{
	{"grossMarginTTM", "Gross margin (TTM)"},
	{"operatingMarginTTM", "Operating margin (TTM)"},
	{"netProfitMarginTTM", "Net profit margin (TTM)"},
	{"revenueGrowthTTMYoy", "Revenue growth YoY (TTM)"},
	{"epsGrowthTTMYoy", "EPS growth YoY (TTM)"},
	{"roeTTM", "Return on equity (TTM)"},
	{"currentRatioQuarterly", "Current ratio"},
	{"totalDebt/totalEquityQuarterly", "Debt/Equity"},
	{"peTTM", "P/E (TTM)"},
	{"psTTM", "P/S (TTM)"},
}

func (p *Provider) writeFinancialMetrics(report *strings.Builder, ticker string) {
	metrics, err := p.finnhub.GetBasicFinancials(ticker)
	if err != nil {
		fmt.Fprintf(report, "### Financial metrics\nError retrieving financial metrics: %v\n\n", err)
		return
	}

	report.WriteString("### Financial metrics\n")
	for _, m := range financialMetricLabels {
		if v, ok := metrics[m.key]; ok {
			fmt.Fprintf(report, "%s: %.2f\n", m.label, v)
		}
	}
	report.WriteString("\n")
}

func (p *Provider) writeLongTermTrend(report *strings.Builder, ticker string) {
	bars, err := p.yahoo.GetMonthlyWindow(ticker, 5)
	if err != nil {
		fmt.Fprintf(report, "### 5-year price trend\nError retrieving price history: %v\n\n", err)
		return
	}
	if len(bars) < 2 {
		report.WriteString("### 5-year price trend\nInsufficient price history.\n\n")
		return
	}

	first, _ := bars[0].Close.Float64()
	last, _ := bars[len(bars)-1].Close.Float64()
	high, low := first, first
	for _, bar := range bars {
		c, _ := bar.Close.Float64()
		if c > high {
			high = c
		}
		if c < low {
			low = c
		}
	}

	totalReturn := 0.0
	if first != 0 {
		totalReturn = (last - first) / first * 100
	}

	report.WriteString("### 5-year price trend\n")
	fmt.Fprintf(report, "Start (%s): %.2f, latest (%s): %.2f\n",
		formatDate(bars[0].Date), first, formatDate(bars[len(bars)-1].Date), last)
	fmt.Fprintf(report, "Total return: %.1f%%\n", totalReturn)
	fmt.Fprintf(report, "Period high: %.2f, period low: %.2f\n\n", high, low)
}

func (p *Provider) writeRecentCloses(ctx context.Context, report *strings.Builder, ticker string) {
	bars, err := p.dailyBars(ctx, ticker, 10)
	if err != nil {
		fmt.Fprintf(report, "### Recent closes\nError retrieving recent prices: %v\n", err)
		return
	}

	report.WriteString("### Recent closes\n")
	for _, bar := range lastCloses(bars, 5) {
		c, _ := bar.Close.Float64()
		fmt.Fprintf(report, "%s: %.2f\n", formatDate(bar.Date), c)
	}
}

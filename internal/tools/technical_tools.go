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

const (
	technicalWindowDays = 180
	keyLevelLookback    = 90
)

// NewTechnicalDataTool builds the price/indicator tool shared by the
// trend, pattern and indicator analysts: six months of daily bars with
// SMA20/SMA50, RSI14, 10-day momentum and 90-day support/resistance.
func (p *Provider) NewTechnicalDataTool() tool.BaseTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name: "get_technical_data",
			Desc: "Get technical analysis data for a stock: moving averages, RSI, momentum, support/resistance levels and recent closing prices",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"ticker": {
					Type:     "string",
					Desc:     "The stock ticker symbol, e.g. AAPL",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, input models.TechnicalDataInput) (*models.TechnicalDataOutput, error) {
			ticker := dataflows.NormalizeSymbol(input.Ticker)
			if err := dataflows.ValidateSymbol(ticker); err != nil {
				return &models.TechnicalDataOutput{
					Result: fmt.Sprintf("Error: invalid ticker %q: %v", input.Ticker, err),
				}, nil
			}

			bars, err := p.dailyBars(ctx, ticker, technicalWindowDays)
			if err != nil {
				return &models.TechnicalDataOutput{
					Result: fmt.Sprintf("Error retrieving price data for %s: %v", ticker, err),
				}, nil
			}
			if len(bars) == 0 {
				return &models.TechnicalDataOutput{
					Result: fmt.Sprintf("Error: no price data available for %s", ticker),
				}, nil
			}

			var report strings.Builder
			fmt.Fprintf(&report, "## Technical data for %s (%d daily bars)\n\n", ticker, len(bars))

			writeIndicator(&report, "SMA20", bars, func(d []*models.MarketData) ([]models.IndicatorValue, error) {
				return dataflows.CalculateSMA(d, 20)
			})
			writeIndicator(&report, "SMA50", bars, func(d []*models.MarketData) ([]models.IndicatorValue, error) {
				return dataflows.CalculateSMA(d, 50)
			})
			writeIndicator(&report, "RSI14", bars, func(d []*models.MarketData) ([]models.IndicatorValue, error) {
				return dataflows.CalculateRSI(d, 14)
			})
			writeIndicator(&report, "MTM10", bars, func(d []*models.MarketData) ([]models.IndicatorValue, error) {
				return dataflows.CalculateMomentum(d, 10)
			})

			resistance, support, err := dataflows.KeyLevels(bars, keyLevelLookback)
			if err != nil {
				fmt.Fprintf(&report, "### Key levels\nError computing key levels: %v\n\n", err)
			} else {
				report.WriteString("### Key levels (90-day)\n")
				fmt.Fprintf(&report, "Resistance: %.2f\nSupport: %.2f\n\n", resistance, support)
			}

			report.WriteString("### Recent closes\n")
			for _, bar := range lastCloses(bars, 5) {
				c, _ := bar.Close.Float64()
				fmt.Fprintf(&report, "%s: %.2f\n", formatDate(bar.Date), c)
			}

			return &models.TechnicalDataOutput{Result: report.String()}, nil
		},
	)
}

// writeIndicator appends the last few values of one indicator series, or
// the computation error as text.
func writeIndicator(report *strings.Builder, name string, bars []*models.MarketData,
	calc func([]*models.MarketData) ([]models.IndicatorValue, error)) {

	values, err := calc(bars)
	if err != nil {
		fmt.Fprintf(report, "### %s\nError: %v\n\n", name, err)
		return
	}

	const tail = 10
	if len(values) > tail {
		values = values[len(values)-tail:]
	}

	fmt.Fprintf(report, "### %s\n", name)
	for _, v := range values {
		fmt.Fprintf(report, "%s: %.4f\n", v.Date, v.Value)
	}
	report.WriteString("\n")
}

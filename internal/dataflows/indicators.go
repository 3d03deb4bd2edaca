package dataflows

import (
	"fmt"
	"sort"

	"github.com/equityscribe/equityscribe/internal/models"
)

// closes extracts float64 closing prices from bars, oldest first.
func closes(data []*models.MarketData) []float64 {
	sort.Slice(data, func(i, j int) bool {
		return data[i].Date.Before(data[j].Date)
	})
	out := make([]float64, len(data))
	for i, bar := range data {
		v, _ := bar.Close.Float64()
		out[i] = v
	}
	return out
}

// CalculateSMA returns the simple moving average series over the given
// window, one value per bar starting at index period-1.
func CalculateSMA(data []*models.MarketData, period int) ([]models.IndicatorValue, error) {
	if len(data) < period {
		return nil, fmt.Errorf("insufficient data for SMA(%d): have %d bars", period, len(data))
	}
	prices := closes(data)

	result := make([]models.IndicatorValue, 0, len(prices)-period+1)
	for i := period - 1; i < len(prices); i++ {
		sum := 0.0
		for j := i - period + 1; j <= i; j++ {
			sum += prices[j]
		}
		result = append(result, models.IndicatorValue{
			Date:  data[i].Date.Format("2006-01-02"),
			Value: sum / float64(period),
		})
	}
	return result, nil
}

// CalculateRSI returns the relative strength index series: 100 - 100/(1+RS)
// where RS is the ratio of average gains to average losses over the
// window. A window with zero losses yields 100.
func CalculateRSI(data []*models.MarketData, period int) ([]models.IndicatorValue, error) {
	if len(data) < period+1 {
		return nil, fmt.Errorf("insufficient data for RSI(%d): have %d bars", period, len(data))
	}
	prices := closes(data)

	gains := make([]float64, len(prices))
	losses := make([]float64, len(prices))
	for i := 1; i < len(prices); i++ {
		delta := prices[i] - prices[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}

	result := make([]models.IndicatorValue, 0, len(prices)-period)
	for i := period; i < len(prices); i++ {
		var avgGain, avgLoss float64
		for j := i - period + 1; j <= i; j++ {
			avgGain += gains[j]
			avgLoss += losses[j]
		}
		avgGain /= float64(period)
		avgLoss /= float64(period)

		rsi := 100.0
		if avgLoss > 0 {
			rs := avgGain / avgLoss
			rsi = 100.0 - (100.0 / (1.0 + rs))
		}

		result = append(result, models.IndicatorValue{
			Date:  data[i].Date.Format("2006-01-02"),
			Value: rsi,
		})
	}
	return result, nil
}

// CalculateMomentum returns the momentum series Close(t) - Close(t-period).
func CalculateMomentum(data []*models.MarketData, period int) ([]models.IndicatorValue, error) {
	if len(data) < period+1 {
		return nil, fmt.Errorf("insufficient data for MTM(%d): have %d bars", period, len(data))
	}
	prices := closes(data)

	result := make([]models.IndicatorValue, 0, len(prices)-period)
	for i := period; i < len(prices); i++ {
		result = append(result, models.IndicatorValue{
			Date:  data[i].Date.Format("2006-01-02"),
			Value: prices[i] - prices[i-period],
		})
	}
	return result, nil
}

// KeyLevels returns the highest and lowest close over the trailing
// lookback bars, used as resistance and support.
func KeyLevels(data []*models.MarketData, lookback int) (resistance, support float64, err error) {
	if len(data) == 0 {
		return 0, 0, fmt.Errorf("no data for key levels")
	}
	prices := closes(data)
	if len(prices) > lookback {
		prices = prices[len(prices)-lookback:]
	}

	resistance, support = prices[0], prices[0]
	for _, p := range prices[1:] {
		if p > resistance {
			resistance = p
		}
		if p < support {
			support = p
		}
	}
	return resistance, support, nil
}

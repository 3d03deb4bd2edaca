package dataflows

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/equityscribe/equityscribe/internal/models"
)

func barsFromCloses(closes []float64) []*models.MarketData {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]*models.MarketData, len(closes))
	for i, c := range closes {
		bars[i] = &models.MarketData{
			Symbol: "TEST",
			Date:   base.AddDate(0, 0, i),
			Close:  decimal.NewFromFloat(c),
		}
	}
	return bars
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCalculateSMA(t *testing.T) {
	bars := barsFromCloses([]float64{1, 2, 3, 4, 5})

	sma, err := CalculateSMA(bars, 3)
	if err != nil {
		t.Fatalf("sma: %v", err)
	}
	want := []float64{2, 3, 4}
	if len(sma) != len(want) {
		t.Fatalf("expected %d values, got %d", len(want), len(sma))
	}
	for i, w := range want {
		if !almostEqual(sma[i].Value, w) {
			t.Fatalf("sma[%d] = %f, want %f", i, sma[i].Value, w)
		}
	}
	if sma[0].Date != "2026-01-03" {
		t.Fatalf("first sma date: %s", sma[0].Date)
	}
}

func TestCalculateSMAInsufficientData(t *testing.T) {
	if _, err := CalculateSMA(barsFromCloses([]float64{1, 2}), 3); err == nil {
		t.Fatal("expected error for short series")
	}
}

func TestCalculateSMASortsUnorderedBars(t *testing.T) {
	bars := barsFromCloses([]float64{1, 2, 3, 4, 5})
	// shuffle
	bars[0], bars[4] = bars[4], bars[0]
	bars[1], bars[3] = bars[3], bars[1]

	sma, err := CalculateSMA(bars, 3)
	if err != nil {
		t.Fatalf("sma: %v", err)
	}
	if !almostEqual(sma[0].Value, 2) || !almostEqual(sma[2].Value, 4) {
		t.Fatalf("unordered input must be sorted by date first: %+v", sma)
	}
}

func TestCalculateRSIAllGains(t *testing.T) {
	bars := barsFromCloses([]float64{10, 11, 12, 13, 14, 15})

	rsi, err := CalculateRSI(bars, 3)
	if err != nil {
		t.Fatalf("rsi: %v", err)
	}
	for _, v := range rsi {
		if !almostEqual(v.Value, 100) {
			t.Fatalf("monotonic gains must pin RSI at 100, got %f", v.Value)
		}
	}
}

func TestCalculateRSIMixed(t *testing.T) {
	// deltas: +2, -1, +2, -1 over a period of 4:
	// avgGain = 4/4 = 1, avgLoss = 2/4 = 0.5, RS = 2, RSI = 100 - 100/3
	bars := barsFromCloses([]float64{10, 12, 11, 13, 12})

	rsi, err := CalculateRSI(bars, 4)
	if err != nil {
		t.Fatalf("rsi: %v", err)
	}
	if len(rsi) != 1 {
		t.Fatalf("expected 1 value, got %d", len(rsi))
	}
	want := 100.0 - 100.0/3.0
	if !almostEqual(rsi[0].Value, want) {
		t.Fatalf("rsi = %f, want %f", rsi[0].Value, want)
	}
}

func TestCalculateRSIBounds(t *testing.T) {
	bars := barsFromCloses([]float64{50, 48, 53, 47, 52, 46, 51, 45, 50, 44})

	rsi, err := CalculateRSI(bars, 5)
	if err != nil {
		t.Fatalf("rsi: %v", err)
	}
	for _, v := range rsi {
		if v.Value < 0 || v.Value > 100 {
			t.Fatalf("rsi out of bounds: %f", v.Value)
		}
	}
}

func TestCalculateMomentum(t *testing.T) {
	bars := barsFromCloses([]float64{10, 12, 9, 15, 8})

	mtm, err := CalculateMomentum(bars, 2)
	if err != nil {
		t.Fatalf("momentum: %v", err)
	}
	want := []float64{-1, 3, -1}
	if len(mtm) != len(want) {
		t.Fatalf("expected %d values, got %d", len(want), len(mtm))
	}
	for i, w := range want {
		if !almostEqual(mtm[i].Value, w) {
			t.Fatalf("mtm[%d] = %f, want %f", i, mtm[i].Value, w)
		}
	}
}

func TestKeyLevels(t *testing.T) {
	bars := barsFromCloses([]float64{100, 90, 120, 80, 110})

	resistance, support, err := KeyLevels(bars, 3)
	if err != nil {
		t.Fatalf("key levels: %v", err)
	}
	// only the trailing 3 closes count: 120, 80, 110
	if !almostEqual(resistance, 120) {
		t.Fatalf("resistance = %f", resistance)
	}
	if !almostEqual(support, 80) {
		t.Fatalf("support = %f", support)
	}

	if _, _, err := KeyLevels(nil, 3); err == nil {
		t.Fatal("expected error for empty series")
	}
}

func TestNormalizeSymbol(t *testing.T) {
	cases := map[string]string{
		" aapl ":  "AAPL",
		"brk.b":   "BRK.B",
		"0700.HK": "0700.HK",
	}
	for in, want := range cases {
		if got := NormalizeSymbol(in); got != want {
			t.Fatalf("NormalizeSymbol(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidateSymbol(t *testing.T) {
	for _, ok := range []string{"AAPL", "brk.b", "0700.HK", "BF-B"} {
		if err := ValidateSymbol(ok); err != nil {
			t.Fatalf("ValidateSymbol(%q): %v", ok, err)
		}
	}
	for _, bad := range []string{"", "   ", "WAYTOOLONGTICKER", "AA PL", "aapl!"} {
		if err := ValidateSymbol(bad); err == nil {
			t.Fatalf("ValidateSymbol(%q) should fail", bad)
		}
	}
}

func TestCacheRoundTrip(t *testing.T) {
	cm := NewCacheManager(t.TempDir(), time.Hour, true)

	type payload struct {
		Symbol string  `json:"symbol"`
		Price  float64 `json:"price"`
	}
	in := payload{Symbol: "AAPL", Price: 123.45}
	params := map[string]string{"symbol": "AAPL"}

	var miss payload
	if cm.Get("yahoo", "quote", params, &miss) {
		t.Fatal("unexpected cache hit before Set")
	}

	if err := cm.Set("yahoo", "quote", params, in); err != nil {
		t.Fatalf("set: %v", err)
	}

	var out payload
	if !cm.Get("yahoo", "quote", params, &out) {
		t.Fatal("expected cache hit after Set")
	}
	if out != in {
		t.Fatalf("round trip mismatch: %+v vs %+v", out, in)
	}

	var other payload
	if cm.Get("yahoo", "quote", map[string]string{"symbol": "MSFT"}, &other) {
		t.Fatal("different params must not hit the same entry")
	}
}

func TestCacheExpiry(t *testing.T) {
	cm := NewCacheManager(t.TempDir(), time.Nanosecond, true)
	params := map[string]string{"symbol": "AAPL"}

	if err := cm.Set("yahoo", "quote", params, "data"); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	var out string
	if cm.Get("yahoo", "quote", params, &out) {
		t.Fatal("expired entry must miss")
	}
}

func TestCacheDisabled(t *testing.T) {
	cm := NewCacheManager(t.TempDir(), time.Hour, false)
	params := map[string]string{"symbol": "AAPL"}

	if err := cm.Set("yahoo", "quote", params, "data"); err != nil {
		t.Fatalf("set on disabled cache must be a no-op: %v", err)
	}
	var out string
	if cm.Get("yahoo", "quote", params, &out) {
		t.Fatal("disabled cache must always miss")
	}
}

func TestClientsHonorConfiguredCacheTTL(t *testing.T) {
	dir := t.TempDir()
	ttl := 2 * time.Hour

	if got := NewYahooClient(dir, ttl, true).cache.ttl; got != ttl {
		t.Fatalf("yahoo cache ttl = %v, want %v", got, ttl)
	}
	if got := NewFinnhubClient("key", dir, ttl, true).cache.ttl; got != ttl {
		t.Fatalf("finnhub cache ttl = %v, want %v", got, ttl)
	}
	if got := NewGoogleNewsClient(dir, ttl, true).cache.ttl; got != ttl {
		t.Fatalf("google news cache ttl = %v, want %v", got, ttl)
	}
}

func TestWithRetrySucceedsAfterFailures(t *testing.T) {
	cfg := &RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}

	attempts := 0
	err := WithRetry(cfg, func() error {
		attempts++
		if attempts < 3 {
			return fmt.Errorf("transient %d", attempts)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestWithRetryExhaustsBudget(t *testing.T) {
	cfg := &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}

	attempts := 0
	err := WithRetry(cfg, func() error {
		attempts++
		return fmt.Errorf("permanent")
	})
	if err == nil || err.Error() != "permanent" {
		t.Fatalf("expected the last error, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected initial attempt plus 2 retries, got %d", attempts)
	}
}

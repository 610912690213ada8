package engine

import (
	"math"
	"testing"

	"backtest/go-services/services/exchange"
)

// synthPrices builds a simple oscillating price series and alternating
// entry/exit signals, enough to exercise both long and short legs across
// many bars for the property checks below.
func synthPrices(n int) (prices []float64, entries, exits []int, dates []int64) {
	prices = make([]float64, n)
	entries = make([]int, n)
	exits = make([]int, n)
	dates = make([]int64, n)
	price := 100.0
	for i := 0; i < n; i++ {
		if i%7 == 0 {
			price *= 1.02
		} else if i%5 == 0 {
			price *= 0.97
		} else {
			price *= 1.001
		}
		prices[i] = price
		dates[i] = int64(i) * 3600
		switch i % 4 {
		case 0:
			entries[i] = 1
		case 2:
			entries[i] = -1
		}
		if i%6 == 3 {
			exits[i] = -1
		}
		if i%6 == 5 {
			exits[i] = 1
		}
	}
	return
}

func TestProperty_TotalCapitalIsFreeCapitalPlusPositionValue(t *testing.T) {
	cfg, _ := NewConfig(Config{TradeType: TradeTypeLongShort, InitialCapital: 10000, PositionSizePct: 0.2, MaxPositions: 5})
	prices, entries, exits, dates := synthPrices(200)
	res, err := Simulate(cfg, prices, entries, exits, dates)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	for i := 1; i < len(res.Equity.TotalCapital); i++ {
		want := res.Equity.FreeCapital[i] + res.Equity.PositionValue[i]
		if !almostEqual(res.Equity.TotalCapital[i], want, 1e-6) {
			t.Fatalf("bar %d: total_capital = %v, want %v", i, res.Equity.TotalCapital[i], want)
		}
	}
}

func TestProperty_ForceCloseEmptiesOpenSet(t *testing.T) {
	cfg, _ := NewConfig(Config{TradeType: TradeTypeLongShort, InitialCapital: 10000, PositionSizePct: 0.2, ForceCloseAtEnd: true, MaxPositions: 5})
	prices, entries, exits, dates := synthPrices(200)
	res, err := Simulate(cfg, prices, entries, exits, dates)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	last := len(res.Equity.PositionValue) - 1
	if !almostEqual(res.Equity.PositionValue[last], 0, 1e-6) {
		t.Fatalf("position_value[last] = %v, want 0", res.Equity.PositionValue[last])
	}
}

func TestProperty_ProfitMatchesExitValueMinusEntryInvestment(t *testing.T) {
	cfg, _ := NewConfig(Config{TradeType: TradeTypeLongShort, InitialCapital: 10000, PositionSizePct: 0.2, CommissionPct: 0.001, SlippagePct: 0.0005, MaxPositions: 5})
	prices, entries, exits, dates := synthPrices(300)
	res, err := Simulate(cfg, prices, entries, exits, dates)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	for _, tr := range res.Trades {
		tol := 1e-9 * tr.EntryInvestment
		switch tr.Direction {
		case DirectionLong:
			want := tr.ExitValue - tr.EntryInvestment
			if !almostEqual(tr.Profit, want, tol+1e-9) {
				t.Fatalf("long trade profit = %v, want %v", tr.Profit, want)
			}
		case DirectionShort:
			buyback := tr.Quantity * tr.ExitPrice
			want := tr.EntryInvestment - buyback - tr.ExitFee
			if !almostEqual(tr.Profit, want, tol+1e-9) {
				t.Fatalf("short trade profit = %v, want %v", tr.Profit, want)
			}
		}
	}
}

func TestProperty_LedgerOrderedByExitIndex(t *testing.T) {
	cfg, _ := NewConfig(Config{TradeType: TradeTypeLongShort, InitialCapital: 10000, PositionSizePct: 0.2, MaxPositions: 5})
	prices, entries, exits, dates := synthPrices(300)
	res, err := Simulate(cfg, prices, entries, exits, dates)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	for i := 1; i < len(res.Trades); i++ {
		if res.Trades[i].ExitIndex < res.Trades[i-1].ExitIndex {
			t.Fatalf("ledger not ordered: trade %d exit_index %d < trade %d exit_index %d",
				i, res.Trades[i].ExitIndex, i-1, res.Trades[i-1].ExitIndex)
		}
	}
}

func TestProperty_Idempotent(t *testing.T) {
	cfg, _ := NewConfig(Config{TradeType: TradeTypeLongShort, InitialCapital: 10000, PositionSizePct: 0.2, CommissionPct: 0.001, SlippagePct: 0.0005, MaxPositions: 5})
	prices, entries, exits, dates := synthPrices(150)

	res1, err := Simulate(cfg, prices, entries, exits, dates)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	res2, err := Simulate(cfg, prices, entries, exits, dates)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if len(res1.Trades) != len(res2.Trades) {
		t.Fatalf("trade count differs: %d vs %d", len(res1.Trades), len(res2.Trades))
	}
	for i := range res1.Trades {
		if res1.Trades[i] != res2.Trades[i] {
			t.Fatalf("trade %d differs: %+v vs %+v", i, res1.Trades[i], res2.Trades[i])
		}
	}
	for i := range res1.Equity.TotalCapital {
		if res1.Equity.TotalCapital[i] != res2.Equity.TotalCapital[i] {
			t.Fatalf("bar %d total_capital differs: %v vs %v", i, res1.Equity.TotalCapital[i], res2.Equity.TotalCapital[i])
		}
	}
}

func TestProperty_ZeroCostRoundTripAtSamePriceHasZeroProfit(t *testing.T) {
	cfg, _ := NewConfig(Config{InitialCapital: 1000, PositionSizePct: 1, MinHoldingPeriod: 1})
	prices := []float64{100, 100}
	entries := []int{1, 0}
	exits := []int{0, -1}
	res, err := Simulate(cfg, prices, entries, exits, datesFor(2))
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if len(res.Trades) != 1 {
		t.Fatalf("want 1 trade, got %d", len(res.Trades))
	}
	if res.Trades[0].Profit != 0 {
		t.Fatalf("profit = %v, want exactly 0", res.Trades[0].Profit)
	}
}

func TestProperty_MaxPositionsCapRespected(t *testing.T) {
	for _, k := range []int{0, 1, 3} {
		k := k
		t.Run("", func(t *testing.T) {
			cfg, _ := NewConfig(Config{TradeType: TradeTypeLongShort, InitialCapital: 100000, PositionSizePct: 0.05, MaxPositions: k})
			n := 500
			prices := make([]float64, n)
			entries := make([]int, n)
			exits := make([]int, n)
			dates := datesFor(n)
			price := 100.0
			for i := 0; i < n; i++ {
				price *= 1.0001
				prices[i] = price
				if i%2 == 0 {
					entries[i] = 1
				} else {
					entries[i] = -1
				}
				// no exit signals, and max_holding below is out of reach, so
				// no position closes during the run
			}
			cfg.MaxHoldingPeriod = 10000 // effectively disabled relative to n

			maxOpen := 0
			s := &openSet{}
			fees := exchange.PercentageFeeModel{RatePct: cfg.CommissionPct}
			slip := exchange.PercentageSlippageModel{RatePct: cfg.SlippagePct}
			freeCapital := cfg.InitialCapital
			ledger := make([]Trade, 0)
			for i := 0; i < n; i++ {
				s.markToMarket(prices[i])
				runExits(s, i, prices[i], exits[i], dates[i], cfg, fees, slip, &freeCapital, &ledger)
				runEntry(s, i, prices[i], entries[i], dates[i], cfg, fees, slip, &freeCapital)
				if s.len() > maxOpen {
					maxOpen = s.len()
				}
			}
			if k == 0 {
				if maxOpen > n {
					t.Fatalf("unlimited cap: open positions %d exceeded n %d", maxOpen, n)
				}
				return
			}
			if maxOpen > k {
				t.Fatalf("max_positions = %d, but saw %d open simultaneously", k, maxOpen)
			}
		})
	}
}

func TestProperty_NoSignalExitBeforeMinHoldingPeriod(t *testing.T) {
	cfg, _ := NewConfig(Config{InitialCapital: 1000, PositionSizePct: 1, MinHoldingPeriod: 5})
	prices := []float64{100, 101, 102, 103, 104, 105, 106}
	entries := []int{1, 0, 0, 0, 0, 0, 0}
	exits := []int{0, -1, -1, -1, -1, 0, -1}
	res, err := Simulate(cfg, prices, entries, exits, datesFor(7))
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if len(res.Trades) != 1 {
		t.Fatalf("want 1 trade, got %d", len(res.Trades))
	}
	if res.Trades[0].holdingPeriodWant() < 5 {
		t.Fatalf("exit_signal fired before min_holding_period elapsed")
	}
}

// holdingPeriodWant is a tiny test-local helper; it is not exported by the
// package and only exists to keep the assertion above readable.
func (t Trade) holdingPeriodWant() int {
	return t.ExitIndex - t.EntryIndex
}

func TestProperty_MaxDrawdownNeverExceedsHundredPercent(t *testing.T) {
	cfg, _ := NewConfig(Config{TradeType: TradeTypeLongShort, InitialCapital: 10000, PositionSizePct: 0.3, MaxPositions: 5})
	prices, entries, exits, dates := synthPrices(400)
	res, err := Simulate(cfg, prices, entries, exits, dates)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if res.Metrics.MaxDrawdownPct < 0 || res.Metrics.MaxDrawdownPct > 100+1e-6 {
		t.Fatalf("max_drawdown_pct = %v, out of [0, 100]", res.Metrics.MaxDrawdownPct)
	}
	if math.IsNaN(res.Metrics.Sharpe) || math.IsInf(res.Metrics.Sharpe, 0) {
		t.Fatalf("sharpe = %v, must be finite", res.Metrics.Sharpe)
	}
}

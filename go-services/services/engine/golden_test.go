package engine

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func datesFor(n int) []int64 {
	d := make([]int64, n)
	for i := range d {
		d[i] = int64(i) * 86400
	}
	return d
}

func TestGolden_SingleLongRoundTripNoCosts(t *testing.T) {
	cfg, err := NewConfig(Config{
		InitialCapital:   1000,
		PositionSizePct:  1,
		MinHoldingPeriod: 1,
	})
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	prices := []float64{100, 110}
	entries := []int{1, 0}
	exits := []int{0, -1}

	res, err := Simulate(cfg, prices, entries, exits, datesFor(2))
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if len(res.Trades) != 1 {
		t.Fatalf("want 1 trade, got %d", len(res.Trades))
	}
	tr := res.Trades[0]
	if !almostEqual(tr.EntryPrice, 100, 1e-9) || !almostEqual(tr.ExitPrice, 110, 1e-9) {
		t.Errorf("entry/exit price = %v/%v", tr.EntryPrice, tr.ExitPrice)
	}
	if !almostEqual(tr.Quantity, 10, 1e-9) {
		t.Errorf("quantity = %v, want 10", tr.Quantity)
	}
	if !almostEqual(tr.Profit, 100, 1e-9) {
		t.Errorf("profit = %v, want 100", tr.Profit)
	}
	if !almostEqual(tr.ProfitPct, 10, 1e-9) {
		t.Errorf("profit_pct = %v, want 10", tr.ProfitPct)
	}
	if tr.ExitReason != ExitReasonExitSignal {
		t.Errorf("exit_reason = %v, want exit_signal", tr.ExitReason)
	}
	endValue := res.Equity.TotalCapital[len(res.Equity.TotalCapital)-1]
	if !almostEqual(endValue, 1100, 1e-9) {
		t.Errorf("end_value = %v, want 1100", endValue)
	}
}

func TestGolden_TakeProfitBeforeExitSignal(t *testing.T) {
	cfg, err := NewConfig(Config{
		InitialCapital:   1000,
		PositionSizePct:  1,
		TakeProfitPct:    0.10,
		MinHoldingPeriod: 0,
	})
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	prices := []float64{100, 105, 120}
	entries := []int{1, 0, 0}
	exits := []int{0, 0, -1}

	res, err := Simulate(cfg, prices, entries, exits, datesFor(3))
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if len(res.Trades) != 1 {
		t.Fatalf("want 1 trade, got %d", len(res.Trades))
	}
	tr := res.Trades[0]
	if tr.ExitIndex != 2 {
		t.Errorf("exit_index = %d, want 2", tr.ExitIndex)
	}
	if tr.ExitReason != ExitReasonTakeProfit {
		t.Errorf("exit_reason = %v, want take_profit", tr.ExitReason)
	}
	if !almostEqual(tr.ExitPrice, 120, 1e-9) {
		t.Errorf("exit_price = %v, want 120", tr.ExitPrice)
	}
	if !almostEqual(tr.ProfitPct, 20, 1e-6) {
		t.Errorf("profit_pct = %v, want ~20", tr.ProfitPct)
	}
}

func TestGolden_StopLossPrecedenceOverMaxHold(t *testing.T) {
	cfg, err := NewConfig(Config{
		InitialCapital:   1000,
		PositionSizePct:  1,
		StopLossPct:      0.10,
		MaxHoldingPeriod: 1,
		MinHoldingPeriod: 0,
	})
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	prices := []float64{100, 80}
	entries := []int{1, 0}
	exits := []int{0, 0}

	res, err := Simulate(cfg, prices, entries, exits, datesFor(2))
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if len(res.Trades) != 1 {
		t.Fatalf("want 1 trade, got %d", len(res.Trades))
	}
	tr := res.Trades[0]
	if tr.ExitIndex != 1 {
		t.Errorf("exit_index = %d, want 1", tr.ExitIndex)
	}
	if tr.ExitReason != ExitReasonStopLoss {
		t.Errorf("exit_reason = %v, want stop_loss", tr.ExitReason)
	}
}

func TestGolden_ShortRoundTripWithFees(t *testing.T) {
	cfg, err := NewConfig(Config{
		TradeType:        TradeTypeShort,
		InitialCapital:   1000,
		PositionSizePct:  1,
		CommissionPct:    0.001,
		MinHoldingPeriod: 1,
	})
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	prices := []float64{100, 90}
	entries := []int{-1, 0}
	exits := []int{0, 1}

	res, err := Simulate(cfg, prices, entries, exits, datesFor(2))
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if len(res.Trades) != 1 {
		t.Fatalf("want 1 trade, got %d", len(res.Trades))
	}
	tr := res.Trades[0]
	if !almostEqual(tr.EntryFee, 1.0, 1e-9) {
		t.Errorf("entry_fee = %v, want 1.0", tr.EntryFee)
	}
	if !almostEqual(tr.Quantity, 9.99, 1e-9) {
		t.Errorf("quantity = %v, want 9.99", tr.Quantity)
	}
	if !almostEqual(tr.Profit, 100.00090, 1e-6) {
		t.Errorf("profit = %v, want 100.00090", tr.Profit)
	}
	endValue := res.Equity.TotalCapital[len(res.Equity.TotalCapital)-1]
	if !almostEqual(endValue, 1100.00090, 1e-6) {
		t.Errorf("end_value = %v, want 1100.00090", endValue)
	}
}

func TestGolden_SameBarTrade(t *testing.T) {
	cfg, err := NewConfig(Config{
		InitialCapital:   1000,
		PositionSizePct:  1,
		SignalPriority:   SignalPrioritySameBarTrade,
		MinHoldingPeriod: 0,
	})
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	prices := []float64{100, 110, 110}
	entries := []int{0, 1, 0}
	exits := []int{0, -1, 0}

	res, err := Simulate(cfg, prices, entries, exits, datesFor(3))
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if len(res.Trades) != 1 {
		t.Fatalf("want 1 trade, got %d", len(res.Trades))
	}
	tr := res.Trades[0]
	if tr.EntryIndex != 1 || tr.ExitIndex != 1 {
		t.Errorf("entry/exit index = %d/%d, want 1/1", tr.EntryIndex, tr.ExitIndex)
	}
	if !almostEqual(tr.Profit, 0, 1e-9) {
		t.Errorf("profit = %v, want 0", tr.Profit)
	}
}

func TestGolden_ForceCloseAtEnd(t *testing.T) {
	cfg, err := NewConfig(Config{
		InitialCapital:  1000,
		PositionSizePct: 1,
		ForceCloseAtEnd: true,
	})
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	prices := []float64{100, 120}
	entries := []int{1, 0}
	exits := []int{0, 0}

	res, err := Simulate(cfg, prices, entries, exits, datesFor(2))
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if len(res.Trades) != 1 {
		t.Fatalf("want 1 trade, got %d", len(res.Trades))
	}
	tr := res.Trades[0]
	if tr.ExitReason != ExitReasonEndOfBacktest {
		t.Errorf("exit_reason = %v, want end_of_backtest", tr.ExitReason)
	}
	if !almostEqual(tr.Profit, 20*tr.Quantity, 1e-9) {
		t.Errorf("profit = %v, want %v", tr.Profit, 20*tr.Quantity)
	}
}

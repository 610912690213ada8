// Package accountdetails renders a completed run into the bar-by-bar
// account ledger CSV external tooling consumes: one row per input bar,
// replaying trade entry/exit events against the original price series,
// followed by a summary block.
package accountdetails

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"backtest/go-services/services/engine"
)

var header = []string{
	"Date", "Price", "Balance", "Position Value", "Total Value",
	"Profit/Loss", "Cumulative Return (%)", "Drawdown (%)", "Active Trades",
}

type tradeEvent struct {
	time    time.Time
	isEntry bool
	amount  float64
	tradeID int
}

// Write replays trades against prices/dates and emits the account-details
// CSV to w. dates and prices must share trades' time base and be the same
// length; logger receives a warning for every date sanitised to the
// current year.
func Write(w io.Writer, trades []engine.Trade, prices []float64, dates []time.Time, initialCapital float64, logger *zap.Logger) error {
	if len(trades) == 0 {
		return fmt.Errorf("accountdetails: no trades provided")
	}
	if len(prices) == 0 || len(dates) == 0 || len(prices) != len(dates) {
		return fmt.Errorf("accountdetails: invalid price/date data")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	events := make([]tradeEvent, 0, len(trades)*2)
	for i, t := range trades {
		events = append(events, tradeEvent{time: time.Unix(t.EntryTime, 0).UTC(), isEntry: true, amount: t.EntryInvestment, tradeID: i})
		events = append(events, tradeEvent{time: time.Unix(t.ExitTime, 0).UTC(), isEntry: false, amount: t.ExitValue, tradeID: i})
	}
	sort.SliceStable(events, func(a, b int) bool { return events[a].time.Before(events[b].time) })

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("accountdetails: write header: %w", err)
	}

	balance := initialCapital
	maxValue := initialCapital
	activePositions := make(map[int]struct{})
	activeSizes := make(map[int]float64)
	eventIdx := 0

	var finalTotalValue float64
	var maxDrawdown float64

	for i, date := range dates {
		price := prices[i]

		for eventIdx < len(events) && !events[eventIdx].time.After(date) {
			ev := events[eventIdx]
			if ev.isEntry {
				balance -= ev.amount
				activePositions[ev.tradeID] = struct{}{}
				activeSizes[ev.tradeID] = trades[ev.tradeID].Quantity
			} else {
				balance += ev.amount
				delete(activePositions, ev.tradeID)
				delete(activeSizes, ev.tradeID)
			}
			eventIdx++
		}

		var positionValue float64
		for _, size := range activeSizes {
			positionValue += size * price
		}

		totalValue := balance + positionValue
		profitLoss := totalValue - initialCapital
		cumulativeReturn := (totalValue/initialCapital - 1) * 100

		if totalValue > maxValue {
			maxValue = totalValue
		}
		var drawdown float64
		if maxValue > 0 {
			drawdown = (maxValue - totalValue) / maxValue * 100
		}
		if drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
		finalTotalValue = totalValue

		row := []string{
			formatDateTime(date, logger),
			money(price),
			money(balance),
			money(positionValue),
			money(totalValue),
			money(profitLoss),
			money(cumulativeReturn),
			money(drawdown),
			fmt.Sprintf("%d", len(activePositions)),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("accountdetails: write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}

	totalReturn := (finalTotalValue/initialCapital - 1) * 100

	if _, err := io.WriteString(w, "\nSummary Statistics\n"); err != nil {
		return err
	}
	summary := csv.NewWriter(w)
	rows := [][]string{
		{"Initial Capital", money(initialCapital)},
		{"Final Value", money(finalTotalValue)},
		{"Total Return (%)", money(totalReturn)},
		{"Max Drawdown (%)", money(maxDrawdown)},
		{"Total Trades", fmt.Sprintf("%d", len(trades))},
		{"Total Data Points", fmt.Sprintf("%d", len(dates))},
	}
	for _, r := range rows {
		if err := summary.Write(r); err != nil {
			return err
		}
	}
	summary.Flush()
	return summary.Error()
}

// money formats a float with two decimal places via shopspring/decimal so
// rounding matches money semantics rather than binary float truncation.
func money(v float64) string {
	return decimal.NewFromFloat(v).Round(2).StringFixed(2)
}

// formatDateTime renders a date as "YYYY-MM-DD HH:MM:SS". A date after the
// current time is replaced by the current time; a date whose year is before
// 1970 keeps its month, day and time but takes the current year. Each
// replacement logs a warning. A date past 2100 is in the future, so it is
// handled by the first rule.
func formatDateTime(t time.Time, logger *zap.Logger) string {
	now := time.Now().UTC()
	valid := t
	if t.After(now) {
		logger.Warn("account details: future date replaced with current time", zap.Time("original", t))
		valid = now
	}
	if valid.Year() > 2100 || valid.Year() < 1970 {
		logger.Warn("account details: date year out of [1970, 2100], sanitised to current year",
			zap.Time("original", valid))
		valid = time.Date(now.Year(), valid.Month(), valid.Day(), valid.Hour(), valid.Minute(), valid.Second(), 0, time.UTC)
	}
	return valid.Format("2006-01-02 15:04:05")
}

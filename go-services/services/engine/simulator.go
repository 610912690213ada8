package engine

import "backtest/go-services/services/exchange"

// Result is the outcome of one simulation run: the closed-trade ledger in
// exit order, the per-bar equity series, and the derived summary metrics.
type Result struct {
	Trades  []Trade
	Equity  EquitySeries
	Metrics Metrics
}

// Simulate runs the bar-by-bar loop over equal-length price/signal/date
// vectors and returns the completed trade ledger, equity series, and
// summary metrics. It fails fast with an *InvalidInputError if the vectors
// disagree in length; no simulation is attempted in that case.
func Simulate(cfg Config, prices []float64, entries, exits []int, dates []int64) (Result, error) {
	n := len(prices)
	if len(entries) != n {
		return Result{}, invalidInput("entries", "length must match prices")
	}
	if len(exits) != n {
		return Result{}, invalidInput("exits", "length must match prices")
	}
	if len(dates) != n {
		return Result{}, invalidInput("dates", "length must match prices")
	}
	if n == 0 {
		return Result{Metrics: Metrics{}}, nil
	}

	fees := exchange.PercentageFeeModel{RatePct: cfg.CommissionPct}
	slip := exchange.PercentageSlippageModel{RatePct: cfg.SlippagePct}

	s := &openSet{}
	ledger := make([]Trade, 0)
	equity := newEquitySeries(n)
	freeCapital := cfg.InitialCapital

	for i := 0; i < n; i++ {
		price := prices[i]
		s.markToMarket(price)

		switch cfg.SignalPriority {
		case SignalPriorityEntryFirst:
			runEntry(s, i, price, entries[i], dates[i], cfg, fees, slip, &freeCapital)
			runExits(s, i, price, exits[i], dates[i], cfg, fees, slip, &freeCapital, &ledger)
		case SignalPrioritySameBarTrade:
			runExits(s, i, price, exits[i], dates[i], cfg, fees, slip, &freeCapital, &ledger)
			runEntry(s, i, price, entries[i], dates[i], cfg, fees, slip, &freeCapital)
			runExits(s, i, price, exits[i], dates[i], cfg, fees, slip, &freeCapital, &ledger)
		default: // SignalPriorityExitFirst
			runExits(s, i, price, exits[i], dates[i], cfg, fees, slip, &freeCapital, &ledger)
			runEntry(s, i, price, entries[i], dates[i], cfg, fees, slip, &freeCapital)
		}

		s.markToMarket(price)
		equity.record(i, freeCapital, s.totalValue())
	}

	if cfg.ForceCloseAtEnd && s.len() > 0 {
		flushOpenPositions(s, n-1, prices[n-1], dates[n-1], cfg, fees, slip, &freeCapital, &ledger)
		equity.record(n-1, freeCapital, s.totalValue())
	}

	metrics := computeMetrics(cfg, equity, dates, ledger)
	return Result{Trades: ledger, Equity: equity, Metrics: metrics}, nil
}

// flushOpenPositions force-closes every remaining open position at the
// final bar, using the same adverse slippage direction a normal exit
// would apply.
func flushOpenPositions(s *openSet, i int, price float64, date int64, cfg Config, fees exchange.FeeModel, slip exchange.SlippageModel, freeCapital *float64, ledger *[]Trade) {
	for s.len() > 0 {
		idx := s.len() - 1
		closePosition(s, idx, s.positions[idx], i, price, date, ExitReasonEndOfBacktest, cfg, fees, slip, freeCapital, ledger)
	}
}

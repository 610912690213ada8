package engine

import "backtest/go-services/services/exchange"

// runExits scans the open set once and closes every position whose exit
// condition fires at bar i. Positions are visited back-to-front so that
// openSet.removeAt's swap-with-last erase never skips an unvisited element.
func runExits(s *openSet, i int, price float64, exitSignal int, date int64, cfg Config, fees exchange.FeeModel, slip exchange.SlippageModel, freeCapital *float64, ledger *[]Trade) {
	for idx := s.len() - 1; idx >= 0; idx-- {
		p := &s.positions[idx]
		priceReturn := p.priceReturn(price)
		holding := p.holdingPeriod(i)

		reason := ExitReasonNone
		switch {
		case cfg.TakeProfitPct > 0 && priceReturn >= cfg.TakeProfitPct:
			reason = ExitReasonTakeProfit
		case cfg.StopLossPct > 0 && priceReturn <= -cfg.StopLossPct:
			reason = ExitReasonStopLoss
		case cfg.MaxHoldingPeriod > 0 && holding >= cfg.MaxHoldingPeriod:
			reason = ExitReasonMaxHoldingPeriod
		case signalCloses(p.Direction, exitSignal) && holding >= cfg.MinHoldingPeriod:
			reason = ExitReasonExitSignal
		}
		if reason == ExitReasonNone {
			continue
		}

		closePosition(s, idx, *p, i, price, date, reason, cfg, fees, slip, freeCapital, ledger)
	}
}

// signalCloses reports whether the per-bar exit signal instructs closing a
// position of the given direction: -1 closes a long, +1 closes a short.
func signalCloses(dir Direction, exitSignal int) bool {
	switch dir {
	case DirectionLong:
		return exitSignal == -1
	case DirectionShort:
		return exitSignal == 1
	default:
		return false
	}
}

// closePosition computes the closing fill, appends the resulting Trade to
// the ledger, and erases the slot from the open set. If crediting the fill
// would drive free capital negative, the trade is instead recorded as a
// force_exit and free capital is floored at zero rather than allowed to go
// negative.
func closePosition(s *openSet, idx int, p Position, i int, price float64, date int64, reason ExitReason, cfg Config, fees exchange.FeeModel, slip exchange.SlippageModel, freeCapital *float64, ledger *[]Trade) {
	t := tradeFromPosition(p)
	t.ExitIndex = i
	t.ExitTime = date
	t.ExitReason = reason

	var creditedToFreeCapital float64

	switch p.Direction {
	case DirectionLong:
		exitPrice := slip.ExitPrice(price, exchange.SideLong)
		gross := p.Quantity * exitPrice
		exitFee := fees.Fee(gross)
		exitValue := gross - exitFee
		t.ExitPrice = exitPrice
		t.ExitFee = exitFee
		t.ExitValue = exitValue
		t.Profit = exitValue - p.EntryInvestment
		creditedToFreeCapital = exitValue
	case DirectionShort:
		exitPrice := slip.ExitPrice(price, exchange.SideShort)
		buyback := p.Quantity * exitPrice
		exitFee := fees.Fee(buyback)
		profit := p.EntryInvestment - (buyback + exitFee)
		exitValue := p.EntryInvestment + profit
		t.ExitPrice = exitPrice
		t.ExitFee = exitFee
		t.ExitValue = exitValue
		t.Profit = profit
		creditedToFreeCapital = exitValue
	}

	if p.EntryInvestment != 0 {
		t.ProfitPct = t.Profit / p.EntryInvestment * 100
	}

	if reason != ExitReasonForceExit && *freeCapital+creditedToFreeCapital < 0 {
		t.ExitReason = ExitReasonForceExit
		*freeCapital = 0
	} else {
		*freeCapital += creditedToFreeCapital
	}

	*ledger = append(*ledger, t)
	s.removeAt(idx)
}

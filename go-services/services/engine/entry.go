package engine

import "backtest/go-services/services/exchange"

// runEntry opens at most one position at bar i, even when both an entry
// signal and spare capacity exist: the per-bar signal is a single scalar,
// so there is nothing to open a second position from.
func runEntry(s *openSet, i int, price float64, entrySignal int, date int64, cfg Config, fees exchange.FeeModel, slip exchange.SlippageModel, freeCapital *float64) bool {
	dir, ok := entryDirection(entrySignal, cfg.TradeType)
	if !ok {
		return false
	}
	if !cfg.maxPositionsUnbounded() && s.len() >= cfg.MaxPositions {
		return false
	}

	tradeAmount := *freeCapital * cfg.PositionSizePct
	if tradeAmount <= 0 {
		return false
	}

	side := exchange.SideLong
	if dir == DirectionShort {
		side = exchange.SideShort
	}
	entryPrice := slip.EntryPrice(price, side)
	entryFee := fees.Fee(tradeAmount)
	actualInvestment := tradeAmount - entryFee
	quantity := actualInvestment / entryPrice

	s.add(Position{
		Direction:       dir,
		EntryIndex:      i,
		EntryTime:       date,
		EntryPrice:      entryPrice,
		Quantity:        quantity,
		EntryFee:        entryFee,
		EntryInvestment: tradeAmount,
		CurrentValue:    actualInvestment,
	})
	*freeCapital -= tradeAmount
	return true
}

// entryDirection maps a raw entry signal to a Direction, filtered by which
// directions trade_type permits. ok is false when the signal is not a
// recognised intent (not ±1) or trade_type forbids that side.
func entryDirection(entrySignal int, tradeType TradeType) (Direction, bool) {
	switch entrySignal {
	case 1:
		if tradeType == TradeTypeLong || tradeType == TradeTypeLongShort {
			return DirectionLong, true
		}
	case -1:
		if tradeType == TradeTypeShort || tradeType == TradeTypeLongShort {
			return DirectionShort, true
		}
	}
	return "", false
}

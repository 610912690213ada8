package strategies

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// EMAATRStrategy generates entry/exit signal vectors from an EMA26/EMA100
// trend filter gated by candle body size, matching the teacher's EMA/ATR
// entry rule. It never opens, sizes, or closes a position — engine.Simulate
// owns all of that; this type only computes indicators and emits the
// +1/-1/0 signal vectors the simulator core consumes.
type EMAATRStrategy struct {
	EmaFastPeriod   int
	EmaSlowPeriod   int
	AtrPeriod       int
	BodyPctMinLong  decimal.Decimal
	BodyPctMaxLong  decimal.Decimal
	BodyPctMinShort decimal.Decimal
	BodyPctMaxShort decimal.Decimal
	WarmupBars      int

	Bars    []Bar
	EmaFast []float64
	EmaSlow []float64
	Atr     []float64
}

// NewEMAATRStrategy returns a strategy configured with the teacher's
// default EMA26/EMA100/ATR14 parameters and body-size gate.
func NewEMAATRStrategy() *EMAATRStrategy {
	return &EMAATRStrategy{
		EmaFastPeriod:   26,
		EmaSlowPeriod:   100,
		AtrPeriod:       14,
		BodyPctMinLong:  decimal.NewFromFloat(0.002),
		BodyPctMaxLong:  decimal.NewFromFloat(0.008),
		BodyPctMinShort: decimal.NewFromFloat(-0.008),
		BodyPctMaxShort: decimal.NewFromFloat(-0.002),
		WarmupBars:      100,
	}
}

// LoadCSV populates Bars from a timestamp,O,H,L,C,V CSV file.
func (s *EMAATRStrategy) LoadCSV(filename string) error {
	bars, err := LoadOHLCVCSV(filename)
	if err != nil {
		return err
	}
	s.Bars = bars
	return nil
}

// CalculateIndicators computes EmaFast, EmaSlow, and Atr over Bars.
func (s *EMAATRStrategy) CalculateIndicators() error {
	if len(s.Bars) < s.WarmupBars {
		return fmt.Errorf("emaatr: insufficient data: need at least %d bars", s.WarmupBars)
	}
	s.EmaFast = make([]float64, len(s.Bars))
	s.EmaSlow = make([]float64, len(s.Bars))
	s.Atr = make([]float64, len(s.Bars))
	s.calculateEMA(s.EmaFastPeriod, s.EmaFast)
	s.calculateEMA(s.EmaSlowPeriod, s.EmaSlow)
	s.calculateATR(s.AtrPeriod, s.Atr)
	return nil
}

// calculateEMA seeds with an SMA of the first `period` closes, then applies
// the standard TradingView-style alpha = 2/(period+1) smoothing.
func (s *EMAATRStrategy) calculateEMA(period int, result []float64) {
	if len(s.Bars) < period {
		return
	}
	var sma float64
	for i := 0; i < period; i++ {
		c, _ := s.Bars[i].Close.Float64()
		sma += c
	}
	sma /= float64(period)
	result[period-1] = sma

	alpha := 2.0 / float64(period+1)
	oneMinus := 1.0 - alpha
	for i := period; i < len(s.Bars); i++ {
		c, _ := s.Bars[i].Close.Float64()
		result[i] = c*alpha + result[i-1]*oneMinus
	}
}

// calculateATR uses Wilder's RMA smoothing, seeded with the SMA of the
// first `period` true-range values.
func (s *EMAATRStrategy) calculateATR(period int, result []float64) {
	if len(s.Bars) < period+1 {
		return
	}
	tr := make([]float64, len(s.Bars))
	for i := 1; i < len(s.Bars); i++ {
		h, _ := s.Bars[i].High.Float64()
		l, _ := s.Bars[i].Low.Float64()
		pc, _ := s.Bars[i-1].Close.Float64()
		tr[i] = math.Max(h-l, math.Max(math.Abs(h-pc), math.Abs(l-pc)))
	}

	var atr float64
	for i := 1; i <= period; i++ {
		atr += tr[i]
	}
	atr /= float64(period)
	result[period] = atr

	pm1 := float64(period - 1)
	pf := float64(period)
	for i := period + 1; i < len(s.Bars); i++ {
		atr = (atr*pm1 + tr[i]) / pf
		result[i] = atr
	}
}

func (s *EMAATRStrategy) bodyPct(bar Bar) decimal.Decimal {
	if bar.Open.IsZero() {
		return decimal.Zero
	}
	return bar.Close.Sub(bar.Open).Div(bar.Open)
}

// GenerateSignals walks the computed indicators and emits one entries/exits
// pair aligned 1:1 with Bars: +1/-1 on a candle that closes beyond the fast
// EMA while the fast EMA is above/below the slow one and whose body size is
// in range, and the opposite exit code once the fast EMA crosses back over
// the slow one — independent of whatever TP/SL/holding-period rules the
// consuming engine.Config layers on top.
func (s *EMAATRStrategy) GenerateSignals() (entries, exits []int, prices []float64, dates []int64) {
	n := len(s.Bars)
	entries = make([]int, n)
	exits = make([]int, n)
	prices = make([]float64, n)
	dates = make([]int64, n)

	var open int // 0 flat, 1 long intent, -1 short intent
	for i := 0; i < n; i++ {
		bar := s.Bars[i]
		prices[i], _ = bar.Close.Float64()
		dates[i] = bar.Timestamp / 1000

		if i < s.WarmupBars || i < 1 {
			continue
		}

		fast := decimal.NewFromFloat(s.EmaFast[i])
		slow := decimal.NewFromFloat(s.EmaSlow[i])
		body := s.bodyPct(bar)

		longCond := fast.GreaterThan(slow) && bar.Close.GreaterThan(fast) &&
			body.GreaterThanOrEqual(s.BodyPctMinLong) && body.LessThanOrEqual(s.BodyPctMaxLong)
		shortCond := fast.LessThan(slow) && bar.Close.LessThan(fast) &&
			body.GreaterThanOrEqual(s.BodyPctMinShort) && body.LessThanOrEqual(s.BodyPctMaxShort)

		switch {
		case open == 0 && longCond:
			entries[i] = 1
			open = 1
		case open == 0 && shortCond:
			entries[i] = -1
			open = -1
		case open == 1 && fast.LessThanOrEqual(slow):
			exits[i] = -1
			open = 0
		case open == -1 && fast.GreaterThanOrEqual(slow):
			exits[i] = 1
			open = 0
		}
	}
	return entries, exits, prices, dates
}

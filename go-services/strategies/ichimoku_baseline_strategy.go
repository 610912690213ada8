package strategies

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// IchimokuBaselineStrategy emits signal vectors from price crossing the
// Ichimoku Kijun-sen baseline (the rolling high/low midpoint) used alone as
// a trend baseline, independent of the other four Ichimoku lines.
type IchimokuBaselineStrategy struct {
	KijunLen   int
	WarmupBars int

	Bars  []Bar
	Kijun []float64
}

// NewIchimokuBaselineStrategy returns a strategy with the teacher's default
// 26-bar Kijun window and a 3x warmup gate.
func NewIchimokuBaselineStrategy() *IchimokuBaselineStrategy {
	return &IchimokuBaselineStrategy{KijunLen: 26, WarmupBars: 78}
}

// LoadCSV populates Bars from a timestamp,O,H,L,C,V CSV file.
func (s *IchimokuBaselineStrategy) LoadCSV(filename string) error {
	bars, err := LoadOHLCVCSV(filename)
	if err != nil {
		return err
	}
	s.Bars = bars
	return nil
}

// CalculateIndicators computes the Kijun-sen baseline over Bars.
func (s *IchimokuBaselineStrategy) CalculateIndicators() error {
	if s.KijunLen <= 0 {
		s.KijunLen = 26
	}
	n := s.KijunLen
	total := len(s.Bars)
	if total < n {
		return fmt.Errorf("ichimoku: insufficient bars for kijun: need >= %d", n)
	}
	s.Kijun = make([]float64, total)
	for i := 0; i < total; i++ {
		start := i - n + 1
		if start < 0 {
			start = 0
		}
		hhv := -1.0e300
		llv := 1.0e300
		for j := start; j <= i; j++ {
			h, _ := s.Bars[j].High.Float64()
			l, _ := s.Bars[j].Low.Float64()
			if h > hhv {
				hhv = h
			}
			if l < llv {
				llv = l
			}
		}
		s.Kijun[i] = (hhv + llv) / 2.0
	}
	return nil
}

// GenerateSignals emits +1/-1 when a bar's open/close straddle the Kijun
// baseline in one direction, and the opposite exit once price crosses back.
func (s *IchimokuBaselineStrategy) GenerateSignals() (entries, exits []int, prices []float64, dates []int64) {
	n := len(s.Bars)
	entries = make([]int, n)
	exits = make([]int, n)
	prices = make([]float64, n)
	dates = make([]int64, n)

	warmup := s.WarmupBars
	if warmup < s.KijunLen*3 {
		warmup = s.KijunLen * 3
	}

	var open int
	for i := 0; i < n; i++ {
		bar := s.Bars[i]
		prices[i], _ = bar.Close.Float64()
		dates[i] = bar.Timestamp / 1000

		if i < warmup {
			continue
		}

		kij := decimal.NewFromFloat(s.Kijun[i])
		long := bar.Open.LessThan(kij) && bar.Close.GreaterThan(kij)
		short := bar.Open.GreaterThan(kij) && bar.Close.LessThan(kij)

		switch {
		case open == 0 && long:
			entries[i] = 1
			open = 1
		case open == 0 && short:
			entries[i] = -1
			open = -1
		case open == 1 && bar.Close.LessThan(kij):
			exits[i] = -1
			open = 0
		case open == -1 && bar.Close.GreaterThan(kij):
			exits[i] = 1
			open = 0
		}
	}
	return entries, exits, prices, dates
}

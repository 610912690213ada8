package strategies

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// DonchianBasisStrategy emits signal vectors from a Donchian-channel basis
// (the midpoint of the rolling high/low window) set against a long-period
// EMA trend filter — a TradingView-style "basis vs trend" breakout rule.
type DonchianBasisStrategy struct {
	DonchianLen int
	EmaLen      int

	Bars  []Bar
	Basis []float64
	EMA   []float64
}

// NewDonchianBasisStrategy returns a strategy with the teacher's default
// 20-bar Donchian window against a 200-bar EMA.
func NewDonchianBasisStrategy() *DonchianBasisStrategy {
	return &DonchianBasisStrategy{DonchianLen: 20, EmaLen: 200}
}

// LoadCSV populates Bars from a timestamp,O,H,L,C,V CSV file.
func (s *DonchianBasisStrategy) LoadCSV(filename string) error {
	bars, err := LoadOHLCVCSV(filename)
	if err != nil {
		return err
	}
	s.Bars = bars
	return nil
}

// CalculateIndicators computes the Donchian basis and trend EMA over Bars.
func (s *DonchianBasisStrategy) CalculateIndicators() error {
	n := s.DonchianLen
	if n <= 0 {
		n = 20
	}
	total := len(s.Bars)
	if total == 0 {
		return fmt.Errorf("donchian: no bars")
	}
	s.Basis = make([]float64, total)
	s.EMA = make([]float64, total)

	for i := 0; i < total; i++ {
		start := i - n + 1
		if start < 0 {
			start = 0
		}
		hhv := -math.MaxFloat64
		llv := math.MaxFloat64
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
		s.Basis[i] = (hhv + llv) / 2.0
	}

	p := s.EmaLen
	if p < 1 {
		p = 200
	}
	if total >= p {
		var sma float64
		for i := 0; i < p; i++ {
			c, _ := s.Bars[i].Close.Float64()
			sma += c
		}
		sma /= float64(p)
		s.EMA[p-1] = sma
		alpha := 2.0 / float64(p+1)
		oneMinus := 1.0 - alpha
		for i := p; i < total; i++ {
			c, _ := s.Bars[i].Close.Float64()
			s.EMA[i] = c*alpha + s.EMA[i-1]*oneMinus
		}
	}
	return nil
}

// GenerateSignals emits a +1 entry when the basis is above the trend EMA and
// the bar opens below and closes above the basis (-1 for the mirror case),
// and the opposite exit once price closes back through the basis.
func (s *DonchianBasisStrategy) GenerateSignals() (entries, exits []int, prices []float64, dates []int64) {
	n := len(s.Bars)
	entries = make([]int, n)
	exits = make([]int, n)
	prices = make([]float64, n)
	dates = make([]int64, n)

	warmup := s.EmaLen
	if s.DonchianLen > warmup {
		warmup = s.DonchianLen
	}

	var open int
	for i := 0; i < n; i++ {
		bar := s.Bars[i]
		prices[i], _ = bar.Close.Float64()
		dates[i] = bar.Timestamp / 1000

		if i < warmup || s.EMA[i] == 0 {
			continue
		}

		b := decimal.NewFromFloat(s.Basis[i])
		ema := decimal.NewFromFloat(s.EMA[i])
		long := b.GreaterThan(ema) && bar.Open.LessThan(b) && bar.Close.GreaterThan(b)
		short := b.LessThan(ema) && bar.Open.GreaterThan(b) && bar.Close.LessThan(b)

		switch {
		case open == 0 && long:
			entries[i] = 1
			open = 1
		case open == 0 && short:
			entries[i] = -1
			open = -1
		case open == 1 && bar.Close.LessThan(b):
			exits[i] = -1
			open = 0
		case open == -1 && bar.Close.GreaterThan(b):
			exits[i] = 1
			open = 0
		}
	}
	return entries, exits, prices, dates
}

package engine

import "math"

const epsilon = 1e-9

// Metrics summarises a completed run. Every ratio-style field has an
// explicit fallback for degenerate inputs (single bar, zero variance, zero
// trades) rather than surfacing NaN or Inf.
type Metrics struct {
	StartValue          float64
	EndValue            float64
	TotalReturnPct      float64
	MaxDrawdownPct      float64
	AnnualisedReturnPct float64
	WinRatePct          float64
	ProfitFactor        float64
	Sharpe              float64
	Sortino             float64
	Calmar              float64
	EquityCurve         []EquityPoint
	TotalTrades         int
}

// EquityPoint is one down-sampled (date, total_capital) pair for charting.
type EquityPoint struct {
	Date         int64
	TotalCapital float64
}

// computeMetrics derives summary statistics from a finished run's equity
// series and closed-trade ledger. An empty series (N == 0) returns a
// zero-initialised Metrics rather than dividing by zero anywhere.
func computeMetrics(cfg Config, series EquitySeries, dates []int64, trades []Trade) Metrics {
	n := len(series.TotalCapital)
	if n == 0 {
		return Metrics{}
	}

	m := Metrics{
		StartValue:  cfg.InitialCapital,
		EndValue:    series.TotalCapital[n-1],
		TotalTrades: len(trades),
	}
	m.TotalReturnPct = (m.EndValue/m.StartValue - 1) * 100
	m.MaxDrawdownPct = maxDrawdownPct(series.TotalCapital)
	m.AnnualisedReturnPct = annualisedReturnPct(m.TotalReturnPct, n, cfg.Timeframe.periodsPerYear())
	m.WinRatePct, m.ProfitFactor = tradeStats(trades)
	m.Sharpe, m.Sortino = sharpeSortino(series.BarReturn, cfg.RiskFreeRate, cfg.Timeframe.periodsPerYear())
	m.Calmar = calmar(m.AnnualisedReturnPct, m.MaxDrawdownPct)
	m.EquityCurve = downsample(series.TotalCapital, dates)
	return m
}

func maxDrawdownPct(totalCapital []float64) float64 {
	if len(totalCapital) == 0 {
		return 0
	}
	peak := totalCapital[0]
	var maxDD float64
	for _, v := range totalCapital {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - v) / peak * 100
		if dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

func annualisedReturnPct(totalReturnPct float64, n, periodsPerYear int) float64 {
	years := float64(n) / float64(periodsPerYear)
	if years <= 0 || totalReturnPct == 0 {
		return 0
	}
	base := 1 + totalReturnPct/100
	if base <= 0 {
		return 0
	}
	return (math.Pow(base, 1/years) - 1) * 100
}

func tradeStats(trades []Trade) (winRatePct, profitFactor float64) {
	if len(trades) == 0 {
		return 0, 0
	}
	var wins int
	var grossProfit, grossLoss float64
	for _, t := range trades {
		if t.Profit > 0 {
			wins++
			grossProfit += t.Profit
		} else {
			grossLoss += -t.Profit
		}
	}
	winRatePct = float64(wins) / float64(len(trades)) * 100
	if grossLoss <= epsilon {
		profitFactor = 0
	} else {
		profitFactor = grossProfit / grossLoss
	}
	return winRatePct, profitFactor
}

// sharpeSortino computes both ratios off the same excess-return series
// since they share every step except the denominator.
func sharpeSortino(barReturn []float64, riskFreeRate float64, periodsPerYear int) (sharpe, sortino float64) {
	if len(barReturn) == 0 || periodsPerYear <= 0 {
		return 0, 0
	}
	perPeriodRf := math.Pow(1+riskFreeRate, 1.0/float64(periodsPerYear)) - 1

	excess := make([]float64, 0, len(barReturn))
	for _, r := range barReturn {
		if math.IsNaN(r) {
			continue
		}
		excess = append(excess, r-perPeriodRf)
	}
	if len(excess) == 0 {
		return 0, 0
	}

	mean := meanOf(excess)
	std := stdDevOf(excess, mean)
	if std > epsilon {
		sharpe = mean / std * math.Sqrt(float64(periodsPerYear))
	}

	var sumSqNeg float64
	var countNeg int
	for _, e := range excess {
		if e < 0 {
			sumSqNeg += e * e
			countNeg++
		}
	}
	if countNeg == 0 {
		if mean > 0 {
			sortino = 100
		}
		return sharpe, sortino
	}
	downside := math.Sqrt(sumSqNeg / float64(countNeg))
	if downside > epsilon {
		sortino = mean / downside * math.Sqrt(float64(periodsPerYear))
	}
	return sharpe, sortino
}

func calmar(annualisedReturnPct, maxDrawdownPct float64) float64 {
	if maxDrawdownPct < 0.01 {
		if annualisedReturnPct > 0 {
			return 100
		}
		return 0
	}
	return annualisedReturnPct / maxDrawdownPct
}

func meanOf(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stdDevOf(xs []float64, mean float64) float64 {
	var sumSq float64
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)))
}

// downsample keeps every stride-th point so chart payloads stay bounded
// regardless of run length, at stride max(1, N/1000).
func downsample(totalCapital []float64, dates []int64) []EquityPoint {
	n := len(totalCapital)
	if n == 0 {
		return nil
	}
	stride := n / 1000
	if stride < 1 {
		stride = 1
	}
	points := make([]EquityPoint, 0, n/stride+1)
	for i := 0; i < n; i += stride {
		points = append(points, EquityPoint{Date: dates[i], TotalCapital: totalCapital[i]})
	}
	return points
}

package engine

// EquitySeries holds the four parallel per-bar vectors the simulator
// writes in place. All four share length N with the input price series.
type EquitySeries struct {
	FreeCapital   []float64
	PositionValue []float64
	TotalCapital  []float64
	BarReturn     []float64
}

func newEquitySeries(n int) EquitySeries {
	return EquitySeries{
		FreeCapital:   make([]float64, n),
		PositionValue: make([]float64, n),
		TotalCapital:  make([]float64, n),
		BarReturn:     make([]float64, n),
	}
}

// record writes bar i's free/position/total capital and, for i > 0,
// derives bar_return from the previous bar's total capital.
func (s EquitySeries) record(i int, freeCapital, positionValue float64) {
	s.FreeCapital[i] = freeCapital
	s.PositionValue[i] = positionValue
	total := freeCapital + positionValue
	s.TotalCapital[i] = total
	if i == 0 {
		s.BarReturn[i] = 0
		return
	}
	prev := s.TotalCapital[i-1]
	if prev > 0 {
		s.BarReturn[i] = total/prev - 1
	} else {
		s.BarReturn[i] = 0
	}
}

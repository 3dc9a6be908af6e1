package backtest

import (
	"WindowOpt/internal/domain/models"
)

// Outcome is the aggregate of one long-only replay.
type Outcome struct {
	Multiple float64 // product of (1 + profit) over closed trades, 1 when none closed
	Trades   int
	Open     bool // a position was still held at the end and discarded
}

// Percentage returns (multiple - 1) * 100.
func (o Outcome) Percentage() float64 { return (o.Multiple - 1) * 100 }

// Report returns the outcome in the requested mode.
func (o Outcome) Report(mode models.ReportMode) float64 {
	if mode == models.ReportPercentage {
		return o.Percentage()
	}
	return o.Multiple
}

// Simulate replays signal over every bar that has an execution price. Every run starts FLAT.
// Entry needs a strictly positive comparison, exit a strictly negative one; equality holds
// the current position. A bar whose execution price is not positive never opens a position.
// A position still open at the end contributes nothing.
func Simulate(s models.Series, signal Comparator) Outcome {
	return run(s, signal, nil)
}

// Trace returns the position held after each bar. The last bar has no execution price and
// carries the previous bar's position.
func Trace(s models.Series, signal Comparator) []models.Position {
	out := make([]models.Position, s.Len())
	run(s, signal, func(i int, p models.Position) { out[i] = p })
	if n := s.Len(); n >= 2 {
		out[n-1] = out[n-2]
	}
	return out
}

func run(s models.Series, signal Comparator, visit func(int, models.Position)) Outcome {
	out := Outcome{Multiple: 1}
	pos := models.Flat
	var entry float64

	for i := 0; i < s.Evaluable(); i++ {
		if cmp, ok := signal(i); ok {
			price, _ := s.ExecutionPrice(i)
			switch {
			case pos == models.Flat && cmp > 0 && price > 0:
				pos = models.Long
				entry = price
			case pos == models.Long && cmp < 0:
				out.Multiple *= 1 + (price-entry)/entry
				out.Trades++
				pos = models.Flat
			}
		}
		if visit != nil {
			visit(i, pos)
		}
	}
	out.Open = pos == models.Long
	return out
}

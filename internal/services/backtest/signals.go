package backtest

// Comparator reports, for bar i, the sign of (fast - slow): 1 in favor, -1 against, 0 on equality.
// ok is false while either side is undefined, and the bar is skipped.
type Comparator func(i int) (cmp int, ok bool)

// PriceAboveSMA is the single-window rule: close above its SMA is in favor.
func PriceAboveSMA(closes, sma []float64) Comparator { return compare(closes, sma) }

// FastAboveSlow is the dual-window crossover rule.
func FastAboveSlow(fast, slow []float64) Comparator { return compare(fast, slow) }

// EMAAbovePrice is the exponential rule. Unlike the SMA rules the indicator is the
// leading side: EMA above close enters, EMA below close exits.
func EMAAbovePrice(ema, closes []float64) Comparator { return compare(ema, closes) }

func compare(a, b []float64) Comparator {
	return func(i int) (int, bool) {
		if i < 0 || i >= len(a) || i >= len(b) {
			return 0, false
		}
		x, y := a[i], b[i]
		if !defined(x) || !defined(y) {
			return 0, false
		}
		switch {
		case x > y:
			return 1, true
		case x < y:
			return -1, true
		default:
			return 0, true
		}
	}
}

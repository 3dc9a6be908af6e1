package backtest

import "math"

// SMA over the last n points; the result is aligned to the input with NaN for warmup (i < n-1).
// A window longer than the input yields an all-NaN slice.
func SMA(x []float64, n int) []float64 {
	out := make([]float64, len(x))
	if n <= 0 {
		fillNaN(out)
		return out
	}
	var sum float64
	for i := range x {
		sum += x[i]
		if i >= n {
			sum -= x[i-n]
		}
		if i < n-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(n)
	}
	return out
}

// EMA with span n (alpha = 2/(n+1)), seeded with the first value so it is defined from index 0.
func EMA(x []float64, n int) []float64 {
	out := make([]float64, len(x))
	if n <= 0 {
		fillNaN(out)
		return out
	}
	if len(x) == 0 {
		return out
	}
	alpha := 2.0 / float64(n+1)
	out[0] = x[0]
	for i := 1; i < len(x); i++ {
		out[i] = x[i]*alpha + out[i-1]*(1-alpha)
	}
	return out
}

func fillNaN(x []float64) {
	for i := range x {
		x[i] = math.NaN()
	}
}

// defined reports whether v holds a usable indicator value.
func defined(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

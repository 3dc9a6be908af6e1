package models

import (
	"fmt"
	"sort"
	"time"
)

// Bar represents one daily OHLCV record.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// NormalizeBars sorts bars ascending by date and drops duplicate dates (last one wins).
// The input slice is not modified.
func NormalizeBars(bars []Bar) []Bar {
	if len(bars) == 0 {
		return nil
	}
	out := make([]Bar, len(bars))
	copy(out, bars)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	dedup := out[:0]
	for _, b := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Date.Equal(b.Date) {
			dedup[n-1] = b
			continue
		}
		dedup = append(dedup, b)
	}
	return dedup
}

// Series is an immutable, strictly date-ordered price history for one symbol.
// Bar i fills at the next bar's open, so the last bar has no execution price.
type Series struct {
	symbol string
	bars   []Bar
}

// NewSeries validates ordering and copies bars into a Series.
func NewSeries(symbol string, bars []Bar) (Series, error) {
	for i := 1; i < len(bars); i++ {
		if !bars[i].Date.After(bars[i-1].Date) {
			return Series{}, fmt.Errorf("%w: bar %d (%s) not after %s", ErrUnorderedSeries,
				i, bars[i].Date.Format(time.DateOnly), bars[i-1].Date.Format(time.DateOnly))
		}
	}
	cp := make([]Bar, len(bars))
	copy(cp, bars)
	return Series{symbol: symbol, bars: cp}, nil
}

func (s Series) Symbol() string { return s.symbol }

// Len returns the number of bars.
func (s Series) Len() int { return len(s.bars) }

// Bar returns bar i.
func (s Series) Bar(i int) Bar { return s.bars[i] }

// Bars returns a copy of the bars.
func (s Series) Bars() []Bar {
	out := make([]Bar, len(s.bars))
	copy(out, s.bars)
	return out
}

// Closes returns a fresh slice of closing prices.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s.bars))
	for i, b := range s.bars {
		out[i] = b.Close
	}
	return out
}

// ExecutionPrice returns open[i+1]; ok is false for the last bar.
func (s Series) ExecutionPrice(i int) (float64, bool) {
	if i < 0 || i+1 >= len(s.bars) {
		return 0, false
	}
	return s.bars[i+1].Open, true
}

// Evaluable returns how many leading bars carry an execution price.
func (s Series) Evaluable() int {
	if len(s.bars) < 2 {
		return 0
	}
	return len(s.bars) - 1
}

// OrganicGrowth is the buy-and-hold multiple: the product of (1 + daily close change).
func (s Series) OrganicGrowth() float64 {
	growth := 1.0
	for i := 1; i < len(s.bars); i++ {
		prev := s.bars[i-1].Close
		if prev == 0 {
			continue
		}
		growth *= 1 + (s.bars[i].Close-prev)/prev
	}
	return growth
}

package models

import (
	"strings"
	"time"
)

// DefaultPeriod is the lookback used when a caller does not name one.
const DefaultPeriod = "12mo"

// OptimizationResult is the best parameterization found for one strategy kind.
type OptimizationResult struct {
	Kind          StrategyKind `json:"kind"`
	Windows       []int        `json:"windows"`
	Multiple      float64      `json:"multiple"`
	OrganicGrowth float64      `json:"organic_growth"`
	Period        string       `json:"period"`
	CalculatedAt  time.Time    `json:"calculated_at"`
}

// Window returns the i-th window or 0 when absent.
func (r OptimizationResult) Window(i int) int {
	if i < 0 || i >= len(r.Windows) {
		return 0
	}
	return r.Windows[i]
}

// SymbolOptimization is the current record for a symbol: one result per strategy kind.
// It maps 1:1 onto a row of optimum_symbol_parameters.
type SymbolOptimization struct {
	Symbol        string             `json:"symbol"`
	Period        string             `json:"period"`
	LastUpdated   time.Time          `json:"last_updated"`
	OrganicGrowth float64            `json:"organic_growth"`
	Single        OptimizationResult `json:"single"`
	Dual          OptimizationResult `json:"dual"`
	Exponential   OptimizationResult `json:"exponential"`
	RunID         string             `json:"run_id,omitempty"`
}

// Result returns the result stored for kind.
func (o SymbolOptimization) Result(kind StrategyKind) (OptimizationResult, bool) {
	switch kind {
	case StrategySingleSMA:
		return o.Single, true
	case StrategyDualSMA:
		return o.Dual, true
	case StrategyEMA:
		return o.Exponential, true
	default:
		return OptimizationResult{}, false
	}
}

// Results returns the three results in optimization order.
func (o SymbolOptimization) Results() []OptimizationResult {
	return []OptimizationResult{o.Single, o.Dual, o.Exponential}
}

// PreferredForPosition picks the strategy driving the daily position: the EMA result
// only when its multiple is strictly greater than the single-SMA one.
func (o SymbolOptimization) PreferredForPosition() OptimizationResult {
	if o.Exponential.Multiple > o.Single.Multiple {
		return o.Exponential
	}
	return o.Single
}

// NewSymbolOptimization stamps the three results with the shared period, growth and timestamp.
func NewSymbolOptimization(symbol, period string, organic float64, at time.Time, single, dual, exp OptimizationResult) SymbolOptimization {
	stamp := func(r OptimizationResult) OptimizationResult {
		r.Period = period
		r.OrganicGrowth = organic
		r.CalculatedAt = at
		return r
	}
	return SymbolOptimization{
		Symbol:        symbol,
		Period:        period,
		LastUpdated:   at,
		OrganicGrowth: organic,
		Single:        stamp(single),
		Dual:          stamp(dual),
		Exponential:   stamp(exp),
	}
}

func (o SymbolOptimization) WithRunID(id string) SymbolOptimization {
	o.RunID = id
	return o
}

// NormalizeSymbol upper-cases and trims a ticker. It returns ErrInvalidSymbol for
// empty or oversized tickers and any character outside [A-Z0-9.^=-].
func NormalizeSymbol(s string) (string, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" || len(s) > 16 {
		return "", ErrInvalidSymbol
	}
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '-', r == '^', r == '=':
		default:
			return "", ErrInvalidSymbol
		}
	}
	return s, nil
}

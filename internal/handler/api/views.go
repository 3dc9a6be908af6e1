package api

import (
	"time"

	"github.com/shopspring/decimal"

	"WindowOpt/internal/domain/models"
)

const places = 4

// StrategyView is one strategy result as presented to API clients.
type StrategyView struct {
	Kind         models.StrategyKind `json:"kind"`
	Windows      []int               `json:"windows"`
	Multiple     decimal.Decimal     `json:"multiple"`
	ReturnPct    decimal.Decimal     `json:"return_pct"`
	BeatsOrganic bool                `json:"beats_organic"`
}

// OptimizationView is the API shape of a SymbolOptimization.
type OptimizationView struct {
	Symbol           string              `json:"symbol"`
	Period           string              `json:"period"`
	LastUpdated      time.Time           `json:"last_updated"`
	OrganicGrowth    decimal.Decimal     `json:"organic_growth"`
	OrganicReturnPct decimal.Decimal     `json:"organic_return_pct"`
	RunID            string              `json:"run_id,omitempty"`
	Strategies       []StrategyView      `json:"strategies"`
	Preferred        models.StrategyKind `json:"preferred"`
}

func NewOptimizationView(rec models.SymbolOptimization) OptimizationView {
	v := OptimizationView{
		Symbol:           rec.Symbol,
		Period:           rec.Period,
		LastUpdated:      rec.LastUpdated,
		OrganicGrowth:    round(rec.OrganicGrowth),
		OrganicReturnPct: pct(rec.OrganicGrowth),
		RunID:            rec.RunID,
		Preferred:        rec.PreferredForPosition().Kind,
	}
	for _, r := range rec.Results() {
		v.Strategies = append(v.Strategies, StrategyView{
			Kind:         r.Kind,
			Windows:      r.Windows,
			Multiple:     round(r.Multiple),
			ReturnPct:    pct(r.Multiple),
			BeatsOrganic: r.Multiple > rec.OrganicGrowth,
		})
	}
	return v
}

// PositionView is the API shape of a PositionSignal.
type PositionView struct {
	Symbol              string              `json:"symbol"`
	Date                time.Time           `json:"date"`
	Strategy            models.StrategyKind `json:"strategy"`
	Windows             []int               `json:"windows"`
	Position            models.Position     `json:"position"`
	ExecutionPrice      decimal.Decimal     `json:"execution_price"`
	ReturnPct           decimal.Decimal     `json:"return_pct"`
	ChangedFromPrevious bool                `json:"changed_from_previous"`
}

func NewPositionView(s models.PositionSignal) PositionView {
	return PositionView{
		Symbol:              s.Symbol,
		Date:                s.Date,
		Strategy:            s.Strategy,
		Windows:             s.Windows,
		Position:            s.Position,
		ExecutionPrice:      round(s.ExecutionPrice),
		ReturnPct:           pct(s.Multiple),
		ChangedFromPrevious: s.ChangedFromPrevious,
	}
}

func round(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Round(places)
}

// pct converts a return multiple to a percentage: 1.25 -> 25.
func pct(multiple float64) decimal.Decimal {
	return decimal.NewFromFloat(multiple).Sub(decimal.NewFromInt(1)).Shift(2).Round(places)
}

// RefreshQueuedView acknowledges an asynchronous refresh.
type RefreshQueuedView struct {
	Symbol string `json:"symbol"`
	Period string `json:"period"`
	JobID  string `json:"job_id"`
}

package models

import "time"

// AnnotatedBar is one row of the derived series exposed for charting.
// Nil indicator fields are undefined (warmup), never zero.
type AnnotatedBar struct {
	Date           time.Time `json:"date"`
	Open           float64   `json:"open"`
	High           float64   `json:"high"`
	Low            float64   `json:"low"`
	Close          float64   `json:"close"`
	Volume         float64   `json:"volume"`
	ExecutionPrice *float64  `json:"execution_price"`

	SingleSMA *float64 `json:"single_sma"`
	DualFast  *float64 `json:"dual_sma_1"`
	DualSlow  *float64 `json:"dual_sma_2"`
	EMA       *float64 `json:"ema"`

	SinglePosition Position `json:"single_position"`
	DualPosition   Position `json:"dual_position"`
	EMAPosition    Position `json:"ema_position"`
}

// AnnotatedSeries couples the derived rows with the optimization that parameterized them.
type AnnotatedSeries struct {
	Symbol       string             `json:"symbol"`
	Period       string             `json:"period"`
	Optimization SymbolOptimization `json:"optimization"`
	Bars         []AnnotatedBar     `json:"bars"`
}

// PositionSignal is the current stance of the preferred strategy at the last evaluable bar.
type PositionSignal struct {
	Symbol              string       `json:"symbol"`
	Date                time.Time    `json:"date"`
	Strategy            StrategyKind `json:"strategy"`
	Windows             []int        `json:"windows"`
	Multiple            float64      `json:"multiple"`
	Position            Position     `json:"position"`
	ExecutionPrice      float64      `json:"execution_price"`
	ChangedFromPrevious bool         `json:"changed_from_previous"`
}

// PositionRecord is one row of the daily positions log: the signal as computed on RecordedOn.
type PositionRecord struct {
	PositionSignal
	RecordedOn time.Time `json:"recorded_on"`
}

// RefreshMessage is a refresh request read from the bus.
type RefreshMessage struct {
	Symbol string `json:"symbol"`
	Period string `json:"period,omitempty"`
}

// OptimizationEvent is published after every successful refresh.
type OptimizationEvent struct {
	RunID        string             `json:"run_id"`
	Optimization SymbolOptimization `json:"optimization"`
	Trigger      string             `json:"trigger"`
}

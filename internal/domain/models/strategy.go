package models

import (
	"fmt"
	"strings"
)

// StrategyKind tags the moving-average rule a result belongs to.
type StrategyKind string

const (
	StrategySingleSMA StrategyKind = "single_sma"
	StrategyDualSMA   StrategyKind = "dual_sma"
	StrategyEMA       StrategyKind = "ema"
)

// StrategyKinds lists kinds in optimization order.
func StrategyKinds() []StrategyKind {
	return []StrategyKind{StrategySingleSMA, StrategyDualSMA, StrategyEMA}
}

// WindowCount returns how many window parameters the kind takes.
func (k StrategyKind) WindowCount() int {
	if k == StrategyDualSMA {
		return 2
	}
	return 1
}

func (k StrategyKind) Valid() bool {
	switch k {
	case StrategySingleSMA, StrategyDualSMA, StrategyEMA:
		return true
	default:
		return false
	}
}

// Position is the long-only state held while replaying one backtest.
type Position int

const (
	Flat Position = iota
	Long
)

func (p Position) String() string {
	if p == Long {
		return "LONG"
	}
	return "FLAT"
}

func (p Position) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Position) UnmarshalText(b []byte) error {
	switch strings.ToUpper(string(b)) {
	case "LONG":
		*p = Long
	case "FLAT":
		*p = Flat
	default:
		return fmt.Errorf("unknown position %q", string(b))
	}
	return nil
}

// ReportMode selects how a backtest outcome is reported.
type ReportMode string

const (
	ReportMultiple   ReportMode = "multiple"
	ReportPercentage ReportMode = "percentage"
)

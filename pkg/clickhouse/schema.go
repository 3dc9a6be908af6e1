package clickhouse

import "fmt"

const (
	ResultsTable   = "optimum_symbol_parameters"
	BarsTable      = "daily_bars"
	PositionsTable = "positions"
)

// Schema returns the DDL for the optimizer tables in database.
// Every table is a ReplacingMergeTree so a re-insert for the same key supersedes the old row.
func Schema(database string) []string {
	return []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
    symbol              LowCardinality(String),
    last_updated        DateTime64(6, 'UTC'),
    calc_period         LowCardinality(String),
    single_opt_window   UInt16,
    single_opt_multiple Float64,
    dual_opt_window_1   UInt16,
    dual_opt_window_2   UInt16,
    dual_opt_multiple   Float64,
    organic_growth      Float64,
    exp_opt_window      UInt16,
    exp_opt_multiple    Float64,
    run_id              String
) ENGINE = ReplacingMergeTree(last_updated)
ORDER BY symbol`, database, ResultsTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
    symbol      LowCardinality(String),
    date        Date32,
    open        Float64,
    high        Float64,
    low         Float64,
    close       Float64,
    volume      Float64,
    inserted_at DateTime64(3, 'UTC') DEFAULT now64(3)
) ENGINE = ReplacingMergeTree(inserted_at)
PARTITION BY toYear(date)
ORDER BY (symbol, date)`, database, BarsTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
    symbol                LowCardinality(String),
    date                  Date32,
    bar_date              Date32,
    strategy              LowCardinality(String),
    windows               Array(UInt16),
    multiple              Float64,
    position              LowCardinality(String),
    at_price              Float64,
    changed_from_previous Bool,
    recorded_at           DateTime64(3, 'UTC') DEFAULT now64(3)
) ENGINE = ReplacingMergeTree(recorded_at)
PARTITION BY toYear(date)
ORDER BY (symbol, date)`, database, PositionsTable),
	}
}

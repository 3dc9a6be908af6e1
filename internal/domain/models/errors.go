package models

import "errors"

var (
	// ErrUpstreamUnavailable marks a failed price-history retrieval. It aborts the run for that symbol.
	ErrUpstreamUnavailable = errors.New("upstream price history unavailable")
	// ErrInsufficientHistory means a window does not fit in the available history.
	ErrInsufficientHistory = errors.New("insufficient price history")
	ErrUnorderedSeries     = errors.New("price series not strictly ordered by date")
	ErrNotFound            = errors.New("optimization not found")
	ErrInvalidSymbol       = errors.New("invalid symbol")
	ErrInvalidPeriod       = errors.New("invalid period")
	ErrRefreshInProgress   = errors.New("refresh already in progress")
)

// Package domain defines the market vocabulary shared by every feature:
// the error taxonomy, exchange and symbol parsing, and civil trade dates.
package domain

import "errors"

// Domain errors for the storage core.
// Callers match them with errors.Is; the core wraps them with context but never replaces them.
var (
	// ErrUnknownSymbol indicates that no instrument is registered under the symbol.
	ErrUnknownSymbol = errors.New("unknown symbol")

	// ErrUnknownBoard indicates that no board exists with the given code.
	ErrUnknownBoard = errors.New("unknown board")

	// ErrDuplicateSymbol is returned by Register when the symbol already exists.
	// Symbols are never reused, so this also covers delisted instruments.
	ErrDuplicateSymbol = errors.New("symbol already registered")

	// ErrNotATradingDay indicates a date-bearing record on a date the exchange calendar
	// does not mark as open. Records are rejected, never snapped to a neighbouring day.
	ErrNotATradingDay = errors.New("not a trading day")

	// ErrInvalidRange is returned when a range starts after it ends.
	ErrInvalidRange = errors.New("invalid range: start after end")

	// ErrInvalidFactor is returned for non-positive or non-finite adjustment factors.
	ErrInvalidFactor = errors.New("invalid adjustment factor")

	// ErrNoFactorForDate is returned when an adjusted price is requested for a date
	// without a factor row of that exact date.
	ErrNoFactorForDate = errors.New("no adjustment factor for date")

	// ErrCalendarExhausted is returned when a next/previous scan runs past the loaded calendar.
	ErrCalendarExhausted = errors.New("calendar exhausted")

	// ErrInvalidSymbol indicates a symbol that is not of the form NNNNNN.XX.
	ErrInvalidSymbol = errors.New("invalid symbol")

	// ErrInvalidExchange indicates an exchange code outside SH/SZ/BJ.
	ErrInvalidExchange = errors.New("invalid exchange")

	// ErrInvalidAdjType indicates an adjustment type that cannot be used for the operation.
	ErrInvalidAdjType = errors.New("invalid adjustment type")

	// ErrInvalidBar indicates a bar with impossible field values.
	ErrInvalidBar = errors.New("invalid bar")

	// ErrCalendarImmutable is returned when a write would change a past trading day.
	ErrCalendarImmutable = errors.New("past trading day is immutable")
)

// Package entity defines the domain models for the calendar feature.
package entity

import (
	"time"

	"ashare_store/internal/domain"
)

// TradingDay is one row of an exchange calendar.
// A date without a row is not a trading day.
type TradingDay struct {
	Exchange domain.Exchange
	Date     time.Time // civil date, midnight UTC
	IsOpen   bool
}

// Weekday returns the day of week of the row's date.
func (d TradingDay) Weekday() time.Weekday {
	return d.Date.Weekday()
}

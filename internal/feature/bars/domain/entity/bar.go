// Package entity defines the domain models for the bars feature.
package entity

import (
	"fmt"
	"time"

	"ashare_store/internal/domain"
)

// Granularity is the bar interval.
type Granularity string

const (
	Day    Granularity = "day"
	Minute Granularity = "minute"
)

// ParseGranularity accepts "day" or "minute"; the empty string means day.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case "", Day:
		return Day, nil
	case Minute:
		return Minute, nil
	}
	return "", fmt.Errorf("unknown granularity %q", s)
}

// Bar is one OHLCV record. Daily bars leave TradeTime zero; minute bars carry both
// TradeTime and the TradeDate derived from it.
type Bar struct {
	Symbol    string    // e.g. "600000.SH"
	TradeDate time.Time // civil date, midnight UTC
	TradeTime time.Time // exchange-local wall clock, minute bars only
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64   // shares
	Amount    float64 // turnover in CNY
}

// Timestamp is TradeTime for minute bars and TradeDate for daily bars.
func (b Bar) Timestamp() time.Time {
	if b.TradeTime.IsZero() {
		return b.TradeDate
	}
	return b.TradeTime
}

// SessionWindow is an inclusive intraday interval, as offsets from midnight.
type SessionWindow struct {
	From time.Duration
	To   time.Duration
}

// Contains reports whether the wall clock of t falls inside the window.
func (w SessionWindow) Contains(t time.Time) bool {
	tod := domain.TimeOfDay(t)
	return tod >= w.From && tod <= w.To
}

// ContinuousSession covers the morning and afternoon continuous auctions and leaves out
// the 09:15-09:25 opening call auction.
var ContinuousSession = []SessionWindow{
	{From: 9*time.Hour + 30*time.Minute, To: 11*time.Hour + 30*time.Minute},
	{From: 13 * time.Hour, To: 15 * time.Hour},
}

// InWindows reports whether t falls in any of windows. No windows means the whole day.
func InWindows(t time.Time, windows []SessionWindow) bool {
	if len(windows) == 0 {
		return true
	}
	for _, w := range windows {
		if w.Contains(t) {
			return true
		}
	}
	return false
}

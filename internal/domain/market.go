package domain

import (
	"fmt"
	"regexp"
	"time"
)

// Exchange is the 2-letter exchange code used as a symbol suffix.
type Exchange string

const (
	ExchangeShanghai Exchange = "SH"
	ExchangeShenzhen Exchange = "SZ"
	ExchangeBeijing  Exchange = "BJ"
)

// Valid reports whether e is one of the supported A-share exchanges.
func (e Exchange) Valid() bool {
	switch e {
	case ExchangeShanghai, ExchangeShenzhen, ExchangeBeijing:
		return true
	}
	return false
}

// ParseExchange validates an exchange code.
func ParseExchange(s string) (Exchange, error) {
	e := Exchange(s)
	if !e.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidExchange, s)
	}
	return e, nil
}

var symbolPattern = regexp.MustCompile(`^\d{6}\.(SH|SZ|BJ)$`)

// ExchangeOf returns the exchange a symbol such as "600000.SH" is listed on.
func ExchangeOf(symbol string) (Exchange, error) {
	if !symbolPattern.MatchString(symbol) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	return Exchange(symbol[len(symbol)-2:]), nil
}

// MarketLocation is the timezone all A-share exchanges trade in.
var MarketLocation = mustLoadLocation("Asia/Shanghai")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		// tzdata missing on the host; China has had no DST since 1991.
		return time.FixedZone("CST", 8*60*60)
	}
	return loc
}

// DateOf returns the civil date of t as midnight UTC.
// The wall-clock fields of t are used as-is, in t's own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WallClock relabels the wall-clock reading of t as UTC, truncated to the second.
// Minute bar timestamps are stored this way so that every backend compares them alike.
func WallClock(t time.Time) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()
	return time.Date(y, m, d, hh, mm, ss, 0, time.UTC)
}

// TimeOfDay returns the offset of t's wall clock from its midnight.
func TimeOfDay(t time.Time) time.Duration {
	hh, mm, ss := t.Clock()
	return time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute + time.Duration(ss)*time.Second
}

// Today returns the current exchange-local civil date.
func Today(now time.Time) time.Time {
	return DateOf(now.In(MarketLocation))
}

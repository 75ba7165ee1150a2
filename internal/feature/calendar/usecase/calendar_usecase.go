// Package usecase implements the trading-calendar rules every other feature validates against.
package usecase

import (
	"context"
	"fmt"
	"time"

	"ashare_store/internal/domain"
	"ashare_store/internal/feature/calendar/domain/entity"
)

// DayCheck inspects an existing calendar row against its replacement inside the write transaction.
type DayCheck func(existing, incoming entity.TradingDay) error

// CalendarRepository abstracts the persistence layer for exchange calendars.
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type CalendarRepository interface {
	// IsOpen reports whether an open row exists for exchange/date.
	IsOpen(ctx context.Context, exchange domain.Exchange, date time.Time) (bool, error)
	// NextOpen returns the first open date strictly after date; ok is false when none is loaded.
	NextOpen(ctx context.Context, exchange domain.Exchange, date time.Time) (next time.Time, ok bool, err error)
	// PrevOpen returns the last open date strictly before date; ok is false when none is loaded.
	PrevOpen(ctx context.Context, exchange domain.Exchange, date time.Time) (prev time.Time, ok bool, err error)
	// OpenDays returns the open dates within [start, end] in ascending order.
	OpenDays(ctx context.Context, exchange domain.Exchange, start, end time.Time) ([]time.Time, error)
	// Bounds returns the first and last loaded dates of the exchange calendar.
	Bounds(ctx context.Context, exchange domain.Exchange) (first, last time.Time, ok bool, err error)
	// UpsertDays writes rows in one transaction, calling check for every row that already exists.
	UpsertDays(ctx context.Context, days []entity.TradingDay, check DayCheck) error
}

// CalendarUsecase answers trading-day questions for all exchanges.
type CalendarUsecase struct {
	repo CalendarRepository
	now  func() time.Time
}

// NewCalendarUsecase creates a CalendarUsecase over the given repository.
func NewCalendarUsecase(repo CalendarRepository) *CalendarUsecase {
	return &CalendarUsecase{repo: repo, now: time.Now}
}

// WithClock replaces the clock used to decide which dates are in the past.
func (u *CalendarUsecase) WithClock(now func() time.Time) *CalendarUsecase {
	u.now = now
	return u
}

// IsTradingDay reports whether the exchange is open on date. Absent rows are closed.
func (u *CalendarUsecase) IsTradingDay(ctx context.Context, exchange domain.Exchange, date time.Time) (bool, error) {
	return u.repo.IsOpen(ctx, exchange, domain.DateOf(date))
}

// NextTradingDay returns the first trading day after date.
func (u *CalendarUsecase) NextTradingDay(ctx context.Context, exchange domain.Exchange, date time.Time) (time.Time, error) {
	next, ok, err := u.repo.NextOpen(ctx, exchange, domain.DateOf(date))
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Time{}, fmt.Errorf("%w: no trading day after %s on %s", domain.ErrCalendarExhausted, date.Format(time.DateOnly), exchange)
	}
	return next, nil
}

// PreviousTradingDay returns the last trading day before date.
func (u *CalendarUsecase) PreviousTradingDay(ctx context.Context, exchange domain.Exchange, date time.Time) (time.Time, error) {
	prev, ok, err := u.repo.PrevOpen(ctx, exchange, domain.DateOf(date))
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Time{}, fmt.Errorf("%w: no trading day before %s on %s", domain.ErrCalendarExhausted, date.Format(time.DateOnly), exchange)
	}
	return prev, nil
}

// ValidateRange returns the trading days within [start, end].
// An empty result is not an error.
func (u *CalendarUsecase) ValidateRange(ctx context.Context, exchange domain.Exchange, start, end time.Time) ([]time.Time, error) {
	start, end = domain.DateOf(start), domain.DateOf(end)
	if start.After(end) {
		return nil, fmt.Errorf("%w: %s > %s", domain.ErrInvalidRange, start.Format(time.DateOnly), end.Format(time.DateOnly))
	}
	days, err := u.repo.OpenDays(ctx, exchange, start, end)
	if err != nil {
		return nil, err
	}
	if days == nil {
		days = []time.Time{}
	}
	return days, nil
}

// Horizon returns the first and last loaded dates for the exchange.
func (u *CalendarUsecase) Horizon(ctx context.Context, exchange domain.Exchange) (time.Time, time.Time, error) {
	first, last, ok, err := u.repo.Bounds(ctx, exchange)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: no calendar loaded for %s", domain.ErrCalendarExhausted, exchange)
	}
	return first, last, nil
}

// UpsertDays writes calendar rows. Rows dated before today may be added but an existing
// past row cannot change its open flag; future rows may be amended freely.
func (u *CalendarUsecase) UpsertDays(ctx context.Context, days []entity.TradingDay) error {
	if len(days) == 0 {
		return nil
	}
	type key struct {
		exchange domain.Exchange
		date     time.Time
	}
	// the last row for a key wins, as it would with sequential writes
	index := make(map[key]int, len(days))
	rows := make([]entity.TradingDay, 0, len(days))
	for _, d := range days {
		if !d.Exchange.Valid() {
			return fmt.Errorf("%w: %q", domain.ErrInvalidExchange, d.Exchange)
		}
		d.Date = domain.DateOf(d.Date)
		k := key{d.Exchange, d.Date}
		if i, ok := index[k]; ok {
			rows[i] = d
			continue
		}
		index[k] = len(rows)
		rows = append(rows, d)
	}

	today := domain.Today(u.now())
	return u.repo.UpsertDays(ctx, rows, func(existing, incoming entity.TradingDay) error {
		if existing.Date.Before(today) && existing.IsOpen != incoming.IsOpen {
			return fmt.Errorf("%w: %s %s", domain.ErrCalendarImmutable, existing.Exchange, existing.Date.Format(time.DateOnly))
		}
		return nil
	})
}

package cache

import (
	"context"
	"time"

	"ashare_store/internal/domain"
	"ashare_store/internal/feature/calendar/domain/entity"
	"ashare_store/internal/feature/calendar/usecase"
)

type dayKey struct {
	exchange domain.Exchange
	date     string
}

func newDayKey(exchange domain.Exchange, date time.Time) dayKey {
	return dayKey{exchange: exchange, date: date.Format(time.DateOnly)}
}

// CachingCalendarRepository decorates a CalendarRepository with a process-local
// cache of IsOpen answers. Range queries pass through.
type CachingCalendarRepository struct {
	inner usecase.CalendarRepository
	open  *Local[dayKey, bool]
}

var _ usecase.CalendarRepository = (*CachingCalendarRepository)(nil)

// NewCachingCalendarRepository wraps inner. capacity <= 0 selects a default.
func NewCachingCalendarRepository(inner usecase.CalendarRepository, capacity int) *CachingCalendarRepository {
	return &CachingCalendarRepository{inner: inner, open: NewLocal[dayKey, bool](capacity)}
}

// IsOpen serves from the cache and falls back to the inner repository.
func (c *CachingCalendarRepository) IsOpen(ctx context.Context, exchange domain.Exchange, date time.Time) (bool, error) {
	key := newDayKey(exchange, date)
	if v, ok := c.open.Get(key); ok {
		return v, nil
	}
	gen := c.open.Generation()
	v, err := c.inner.IsOpen(ctx, exchange, date)
	if err != nil {
		return false, err
	}
	c.open.Fill(gen, key, v)
	return v, nil
}

func (c *CachingCalendarRepository) NextOpen(ctx context.Context, exchange domain.Exchange, date time.Time) (time.Time, bool, error) {
	return c.inner.NextOpen(ctx, exchange, date)
}

func (c *CachingCalendarRepository) PrevOpen(ctx context.Context, exchange domain.Exchange, date time.Time) (time.Time, bool, error) {
	return c.inner.PrevOpen(ctx, exchange, date)
}

func (c *CachingCalendarRepository) OpenDays(ctx context.Context, exchange domain.Exchange, start, end time.Time) ([]time.Time, error) {
	return c.inner.OpenDays(ctx, exchange, start, end)
}

func (c *CachingCalendarRepository) Bounds(ctx context.Context, exchange domain.Exchange) (time.Time, time.Time, bool, error) {
	return c.inner.Bounds(ctx, exchange)
}

// UpsertDays writes through and then drops the written keys. Keys are dropped even
// when the write fails since a failed commit cannot be told apart from a failed reply.
func (c *CachingCalendarRepository) UpsertDays(ctx context.Context, days []entity.TradingDay, check usecase.DayCheck) error {
	err := c.inner.UpsertDays(ctx, days, check)
	keys := make([]dayKey, 0, len(days))
	for _, d := range days {
		keys = append(keys, newDayKey(d.Exchange, d.Date))
	}
	c.open.Invalidate(keys...)
	return err
}

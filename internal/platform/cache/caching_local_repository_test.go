package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ashare_store/internal/domain"
	adjentity "ashare_store/internal/feature/adjustment/domain/entity"
	calentity "ashare_store/internal/feature/calendar/domain/entity"
	calusecase "ashare_store/internal/feature/calendar/usecase"
)

type memCalendar struct {
	open     map[dayKey]bool
	isOpenN  int
	failNext bool
}

func (m *memCalendar) IsOpen(ctx context.Context, exchange domain.Exchange, date time.Time) (bool, error) {
	m.isOpenN++
	if m.failNext {
		m.failNext = false
		return false, errors.New("database error")
	}
	return m.open[newDayKey(exchange, date)], nil
}

func (m *memCalendar) NextOpen(ctx context.Context, exchange domain.Exchange, date time.Time) (time.Time, bool, error) {
	return date.AddDate(0, 0, 1), true, nil
}

func (m *memCalendar) PrevOpen(ctx context.Context, exchange domain.Exchange, date time.Time) (time.Time, bool, error) {
	return date.AddDate(0, 0, -1), true, nil
}

func (m *memCalendar) OpenDays(ctx context.Context, exchange domain.Exchange, start, end time.Time) ([]time.Time, error) {
	return []time.Time{start}, nil
}

func (m *memCalendar) Bounds(ctx context.Context, exchange domain.Exchange) (time.Time, time.Time, bool, error) {
	return jan2, jan3, true, nil
}

func (m *memCalendar) UpsertDays(ctx context.Context, days []calentity.TradingDay, check calusecase.DayCheck) error {
	for _, d := range days {
		m.open[newDayKey(d.Exchange, d.Date)] = d.IsOpen
	}
	return nil
}

func TestCachingCalendarRepository_IsOpen(t *testing.T) {
	t.Parallel()

	inner := &memCalendar{open: map[dayKey]bool{newDayKey(domain.ExchangeShanghai, jan2): true}}
	repo := NewCachingCalendarRepository(inner, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		open, err := repo.IsOpen(ctx, domain.ExchangeShanghai, jan2)
		require.NoError(t, err)
		assert.True(t, open)
	}
	assert.Equal(t, 1, inner.isOpenN)

	open, err := repo.IsOpen(ctx, domain.ExchangeShenzhen, jan2)
	require.NoError(t, err)
	assert.False(t, open, "exchanges are cached separately")
	assert.Equal(t, 2, inner.isOpenN)
}

func TestCachingCalendarRepository_ErrorsAreNotCached(t *testing.T) {
	t.Parallel()

	inner := &memCalendar{open: map[dayKey]bool{newDayKey(domain.ExchangeShanghai, jan2): true}, failNext: true}
	repo := NewCachingCalendarRepository(inner, 0)

	_, err := repo.IsOpen(context.Background(), domain.ExchangeShanghai, jan2)
	assert.Error(t, err)

	open, err := repo.IsOpen(context.Background(), domain.ExchangeShanghai, jan2)
	require.NoError(t, err)
	assert.True(t, open)
}

func TestCachingCalendarRepository_WriteIsVisibleToNextRead(t *testing.T) {
	t.Parallel()

	inner := &memCalendar{open: map[dayKey]bool{}}
	repo := NewCachingCalendarRepository(inner, 0)
	ctx := context.Background()

	open, err := repo.IsOpen(ctx, domain.ExchangeShanghai, jan3)
	require.NoError(t, err)
	assert.False(t, open)

	require.NoError(t, repo.UpsertDays(ctx, []calentity.TradingDay{
		{Exchange: domain.ExchangeShanghai, Date: jan3, IsOpen: true},
	}, nil))

	open, err = repo.IsOpen(ctx, domain.ExchangeShanghai, jan3)
	require.NoError(t, err)
	assert.True(t, open)
	assert.Equal(t, 2, inner.isOpenN)
}

func TestCachingCalendarRepository_PassThrough(t *testing.T) {
	t.Parallel()

	repo := NewCachingCalendarRepository(&memCalendar{open: map[dayKey]bool{}}, 0)
	ctx := context.Background()

	next, ok, err := repo.NextOpen(ctx, domain.ExchangeShanghai, jan2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, jan3, next)

	prev, ok, err := repo.PrevOpen(ctx, domain.ExchangeShanghai, jan3)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, jan2, prev)

	days, err := repo.OpenDays(ctx, domain.ExchangeShanghai, jan2, jan3)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{jan2}, days)

	first, last, ok, err := repo.Bounds(ctx, domain.ExchangeShanghai)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, jan2, first)
	assert.Equal(t, jan3, last)
}

type memFactors struct {
	rows  map[factorKey]float64
	finds int
}

func (m *memFactors) UpsertFactors(ctx context.Context, factors []adjentity.Factor) error {
	for _, f := range factors {
		m.rows[factorKey{symbol: f.Symbol, date: f.TradeDate.Format(time.DateOnly), adjType: f.AdjType}] = f.Value
	}
	return nil
}

func (m *memFactors) Find(ctx context.Context, symbol string, date time.Time, adjType adjentity.AdjType) (float64, bool, error) {
	m.finds++
	v, ok := m.rows[factorKey{symbol: symbol, date: date.Format(time.DateOnly), adjType: adjType}]
	return v, ok, nil
}

func (m *memFactors) Range(ctx context.Context, symbol string, adjType adjentity.AdjType, start, end time.Time) ([]adjentity.Factor, error) {
	return []adjentity.Factor{{Symbol: symbol, TradeDate: start, AdjType: adjType, Value: 1}}, nil
}

func TestCachingFactorRepository_Find(t *testing.T) {
	t.Parallel()

	inner := &memFactors{rows: map[factorKey]float64{}}
	repo := NewCachingFactorRepository(inner, 0)
	ctx := context.Background()

	// misses are cached too
	for i := 0; i < 2; i++ {
		_, ok, err := repo.Find(ctx, "600000.SH", jan3, adjentity.AdjForward)
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, 1, inner.finds)

	require.NoError(t, repo.UpsertFactors(ctx, []adjentity.Factor{
		{Symbol: "600000.SH", TradeDate: jan3, AdjType: adjentity.AdjForward, Value: 1.05},
	}))

	v, ok, err := repo.Find(ctx, "600000.SH", jan3, adjentity.AdjForward)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1.05, v)

	require.NoError(t, repo.UpsertFactors(ctx, []adjentity.Factor{
		{Symbol: "600000.SH", TradeDate: jan3, AdjType: adjentity.AdjForward, Value: 1.1},
	}))
	v, _, err = repo.Find(ctx, "600000.SH", jan3, adjentity.AdjForward)
	require.NoError(t, err)
	assert.Equal(t, 1.1, v, "correction replaces the cached factor")

	_, ok, err = repo.Find(ctx, "600000.SH", jan3, adjentity.AdjBackward)
	require.NoError(t, err)
	assert.False(t, ok, "adjustment types are cached separately")
}

func TestCachingFactorRepository_RangePassesThrough(t *testing.T) {
	t.Parallel()

	repo := NewCachingFactorRepository(&memFactors{rows: map[factorKey]float64{}}, 0)
	got, err := repo.Range(context.Background(), "600000.SH", adjentity.AdjForward, jan2, jan3)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

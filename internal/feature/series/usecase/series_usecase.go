// Package usecase composes the registry, calendar, bar store and adjustment engine
// into the read API used by query clients.
package usecase

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"ashare_store/internal/domain"
	adjentity "ashare_store/internal/feature/adjustment/domain/entity"
	adjusecase "ashare_store/internal/feature/adjustment/usecase"
	barentity "ashare_store/internal/feature/bars/domain/entity"
	instentity "ashare_store/internal/feature/instrument/domain/entity"
)

// InstrumentRegistry is the part of the registry the facade reads.
type InstrumentRegistry interface {
	Resolve(ctx context.Context, symbol string) (instentity.Instrument, error)
	MembersAsOf(ctx context.Context, boardCode string, asOf time.Time) ([]string, error)
	MembersOf(ctx context.Context, boardCode string) ([]string, error)
	BoardsOf(ctx context.Context, symbol string) ([]string, error)
}

// TradingCalendar clips requested ranges to trading days.
type TradingCalendar interface {
	ValidateRange(ctx context.Context, exchange domain.Exchange, start, end time.Time) ([]time.Time, error)
}

// BarReader reads raw bars.
type BarReader interface {
	RangeDaily(ctx context.Context, symbol string, start, end time.Time) ([]barentity.Bar, error)
	RangeMinute(ctx context.Context, symbol string, start, end time.Time, windows ...barentity.SessionWindow) ([]barentity.Bar, error)
}

// FactorReader reads adjustment factor series.
type FactorReader interface {
	FactorSeries(ctx context.Context, symbol string, adjType adjentity.AdjType, start, end time.Time) ([]adjentity.Factor, error)
}

// SeriesUsecase serves adjusted, calendar-checked bar series.
type SeriesUsecase struct {
	registry InstrumentRegistry
	calendar TradingCalendar
	bars     BarReader
	factors  FactorReader
}

// NewSeriesUsecase creates a SeriesUsecase.
func NewSeriesUsecase(registry InstrumentRegistry, calendar TradingCalendar, bars BarReader, factors FactorReader) *SeriesUsecase {
	return &SeriesUsecase{registry: registry, calendar: calendar, bars: bars, factors: factors}
}

// GetAdjustedSeries returns the bars of symbol between start and end, adjusted by adjType.
// The result is either complete and fully adjusted or an error; bars are never dropped.
func (u *SeriesUsecase) GetAdjustedSeries(
	ctx context.Context,
	symbol string,
	start, end time.Time,
	granularity barentity.Granularity,
	adjType adjentity.AdjType,
	windows ...barentity.SessionWindow,
) ([]barentity.Bar, error) {
	if !adjType.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAdjType, adjType)
	}
	if granularity != barentity.Day && granularity != barentity.Minute {
		return nil, fmt.Errorf("series: unknown granularity %q", granularity)
	}

	inst, err := u.registry.Resolve(ctx, symbol)
	if err != nil {
		return nil, err
	}
	days, err := u.calendar.ValidateRange(ctx, inst.Exchange, start, end)
	if err != nil {
		return nil, err
	}
	if len(days) == 0 {
		return []barentity.Bar{}, nil
	}
	first, last := days[0], days[len(days)-1]

	var (
		bars    []barentity.Bar
		factors []adjentity.Factor
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if granularity == barentity.Minute {
			bars, err = u.bars.RangeMinute(gctx, symbol, first, last, windows...)
		} else {
			bars, err = u.bars.RangeDaily(gctx, symbol, first, last)
		}
		return err
	})
	if adjType.Stored() {
		g.Go(func() error {
			var err error
			factors, err = u.factors.FactorSeries(gctx, symbol, adjType, first, last)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	open := make(map[time.Time]struct{}, len(days))
	for _, d := range days {
		open[d] = struct{}{}
	}
	for _, b := range bars {
		if _, ok := open[domain.DateOf(b.TradeDate)]; !ok {
			return nil, fmt.Errorf("%w: stored bar %s %s", domain.ErrNotATradingDay, symbol, b.TradeDate.Format(time.DateOnly))
		}
	}

	out, err := adjusecase.ApplyFactors(symbol, bars, factors, adjType)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []barentity.Bar{}
	}
	return out, nil
}

// GetBoardConstituents returns the members of boardCode at asOf. A zero asOf means now.
func (u *SeriesUsecase) GetBoardConstituents(ctx context.Context, boardCode string, asOf time.Time) ([]string, error) {
	return u.registry.MembersAsOf(ctx, boardCode, asOf)
}

// MembersOf returns the current members of boardCode.
func (u *SeriesUsecase) MembersOf(ctx context.Context, boardCode string) ([]string, error) {
	return u.registry.MembersOf(ctx, boardCode)
}

// BoardsOf returns the boards symbol currently belongs to.
func (u *SeriesUsecase) BoardsOf(ctx context.Context, symbol string) ([]string, error) {
	return u.registry.BoardsOf(ctx, symbol)
}

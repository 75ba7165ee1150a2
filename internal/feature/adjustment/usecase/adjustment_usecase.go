// Package usecase implements factor maintenance and price adjustment.
package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"ashare_store/internal/domain"
	"ashare_store/internal/feature/adjustment/domain/entity"
	barentity "ashare_store/internal/feature/bars/domain/entity"
	instentity "ashare_store/internal/feature/instrument/domain/entity"
)

// FactorRepository abstracts the persistence layer for adjustment factors.
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type FactorRepository interface {
	// UpsertFactors writes all rows in one transaction, overwriting existing keys.
	UpsertFactors(ctx context.Context, factors []entity.Factor) error
	// Find returns the factor of the exact key; ok is false when there is none.
	Find(ctx context.Context, symbol string, date time.Time, adjType entity.AdjType) (value float64, ok bool, err error)
	// Range returns the factors within [start, end] ascending by date.
	Range(ctx context.Context, symbol string, adjType entity.AdjType, start, end time.Time) ([]entity.Factor, error)
}

// InstrumentResolver resolves a symbol to its registered instrument.
type InstrumentResolver interface {
	Resolve(ctx context.Context, symbol string) (instentity.Instrument, error)
}

// TradingCalendar validates factor dates.
type TradingCalendar interface {
	IsTradingDay(ctx context.Context, exchange domain.Exchange, date time.Time) (bool, error)
}

// AdjustmentUsecase maintains factor series and derives adjusted bars from raw ones.
type AdjustmentUsecase struct {
	repo        FactorRepository
	instruments InstrumentResolver
	calendar    TradingCalendar
}

// NewAdjustmentUsecase creates an AdjustmentUsecase.
func NewAdjustmentUsecase(repo FactorRepository, instruments InstrumentResolver, calendar TradingCalendar) *AdjustmentUsecase {
	return &AdjustmentUsecase{repo: repo, instruments: instruments, calendar: calendar}
}

// UpsertFactor writes one factor, overwriting any previous value of the same key.
func (u *AdjustmentUsecase) UpsertFactor(ctx context.Context, symbol string, tradeDate time.Time, adjType entity.AdjType, factor float64) error {
	return u.UpsertFactors(ctx, []entity.Factor{{Symbol: symbol, TradeDate: tradeDate, AdjType: adjType, Value: factor}})
}

// UpsertFactors validates every row and then writes the batch atomically.
func (u *AdjustmentUsecase) UpsertFactors(ctx context.Context, factors []entity.Factor) error {
	if len(factors) == 0 {
		return nil
	}
	type key struct {
		symbol  string
		date    time.Time
		adjType entity.AdjType
	}
	exchanges := map[string]domain.Exchange{}
	index := make(map[key]int, len(factors))
	rows := make([]entity.Factor, 0, len(factors))

	for _, f := range factors {
		if math.IsNaN(f.Value) || math.IsInf(f.Value, 0) || f.Value <= 0 {
			return fmt.Errorf("%w: %v for %s", domain.ErrInvalidFactor, f.Value, f.Symbol)
		}
		if !f.AdjType.Valid() {
			return fmt.Errorf("%w: %q", domain.ErrInvalidAdjType, f.AdjType)
		}
		exchange, ok := exchanges[f.Symbol]
		if !ok {
			inst, err := u.instruments.Resolve(ctx, f.Symbol)
			if err != nil {
				return err
			}
			exchange = inst.Exchange
			exchanges[f.Symbol] = exchange
		}
		f.TradeDate = domain.DateOf(f.TradeDate)
		open, err := u.calendar.IsTradingDay(ctx, exchange, f.TradeDate)
		if err != nil {
			return err
		}
		if !open {
			return fmt.Errorf("%w: %s %s", domain.ErrNotATradingDay, exchange, f.TradeDate.Format(time.DateOnly))
		}

		k := key{f.Symbol, f.TradeDate, f.AdjType}
		if i, dup := index[k]; dup {
			rows[i] = f
			continue
		}
		index[k] = len(rows)
		rows = append(rows, f)
	}
	return u.repo.UpsertFactors(ctx, rows)
}

// Adjust multiplies the OHLC prices of bar by the factor of its trade date.
// Volume and amount are never rescaled. A missing factor is an error; neighbouring
// dates are never substituted.
func (u *AdjustmentUsecase) Adjust(ctx context.Context, symbol string, bar barentity.Bar, adjType entity.AdjType) (barentity.Bar, error) {
	if adjType == entity.AdjNone {
		return bar, nil
	}
	if !adjType.Stored() {
		return barentity.Bar{}, fmt.Errorf("%w: %q", domain.ErrInvalidAdjType, adjType)
	}
	date := domain.DateOf(bar.TradeDate)
	value, ok, err := u.repo.Find(ctx, symbol, date, adjType)
	if err != nil {
		return barentity.Bar{}, err
	}
	if !ok {
		return barentity.Bar{}, noFactor(symbol, date, adjType)
	}
	return scale(bar, decimal.NewFromFloat(value)), nil
}

// AdjustSeries adjusts bars of one symbol using a single range read of its factor series.
// Either every bar is adjusted or an error is returned.
func (u *AdjustmentUsecase) AdjustSeries(ctx context.Context, symbol string, bars []barentity.Bar, adjType entity.AdjType) ([]barentity.Bar, error) {
	if adjType == entity.AdjNone {
		return append([]barentity.Bar(nil), bars...), nil
	}
	if len(bars) == 0 {
		if !adjType.Stored() {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAdjType, adjType)
		}
		return []barentity.Bar{}, nil
	}
	start, end := domain.DateOf(bars[0].TradeDate), domain.DateOf(bars[0].TradeDate)
	for _, b := range bars[1:] {
		d := domain.DateOf(b.TradeDate)
		if d.Before(start) {
			start = d
		}
		if d.After(end) {
			end = d
		}
	}
	factors, err := u.FactorSeries(ctx, symbol, adjType, start, end)
	if err != nil {
		return nil, err
	}
	return ApplyFactors(symbol, bars, factors, adjType)
}

// FactorSeries returns the stored factors of symbol within [start, end].
func (u *AdjustmentUsecase) FactorSeries(ctx context.Context, symbol string, adjType entity.AdjType, start, end time.Time) ([]entity.Factor, error) {
	if !adjType.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAdjType, adjType)
	}
	start, end = domain.DateOf(start), domain.DateOf(end)
	if start.After(end) {
		return nil, fmt.Errorf("%w: %s > %s", domain.ErrInvalidRange, start.Format(time.DateOnly), end.Format(time.DateOnly))
	}
	return u.repo.Range(ctx, symbol, adjType, start, end)
}

// ApplyFactors adjusts every bar with the factor of its exact trade date.
func ApplyFactors(symbol string, bars []barentity.Bar, factors []entity.Factor, adjType entity.AdjType) ([]barentity.Bar, error) {
	if adjType == entity.AdjNone {
		return append([]barentity.Bar(nil), bars...), nil
	}
	byDate := make(map[time.Time]decimal.Decimal, len(factors))
	for _, f := range factors {
		byDate[domain.DateOf(f.TradeDate)] = decimal.NewFromFloat(f.Value)
	}
	out := make([]barentity.Bar, 0, len(bars))
	for _, b := range bars {
		date := domain.DateOf(b.TradeDate)
		f, ok := byDate[date]
		if !ok {
			return nil, noFactor(symbol, date, adjType)
		}
		out = append(out, scale(b, f))
	}
	return out, nil
}

func noFactor(symbol string, date time.Time, adjType entity.AdjType) error {
	return fmt.Errorf("%w: %s %s %s", domain.ErrNoFactorForDate, symbol, adjType, date.Format(time.DateOnly))
}

// scale multiplies in decimal so that published factors reproduce the exchange's
// adjusted prices digit for digit.
func scale(b barentity.Bar, f decimal.Decimal) barentity.Bar {
	mul := func(p float64) float64 {
		return decimal.NewFromFloat(p).Mul(f).InexactFloat64()
	}
	b.Open = mul(b.Open)
	b.High = mul(b.High)
	b.Low = mul(b.Low)
	b.Close = mul(b.Close)
	return b
}

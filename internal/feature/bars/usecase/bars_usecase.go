// Package usecase implements validated storage and range reads of daily and minute bars.
package usecase

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"ashare_store/internal/domain"
	"ashare_store/internal/feature/bars/domain/entity"
	instentity "ashare_store/internal/feature/instrument/domain/entity"
)

// BarRepository abstracts the persistence layer for bars.
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type BarRepository interface {
	// UpsertDaily writes daily bars in one transaction keyed by (symbol, trade date).
	UpsertDaily(ctx context.Context, bars []entity.Bar) error
	// UpsertMinute writes minute bars in one transaction keyed by (symbol, trade time).
	UpsertMinute(ctx context.Context, bars []entity.Bar) error
	// RangeDaily returns daily bars with start <= trade date <= end, ascending.
	RangeDaily(ctx context.Context, symbol string, start, end time.Time) ([]entity.Bar, error)
	// RangeMinute returns minute bars whose trade date lies in [start, end], ascending by time.
	RangeMinute(ctx context.Context, symbol string, start, end time.Time) ([]entity.Bar, error)
	// DailyOn returns every instrument's daily bar of date ordered by symbol.
	DailyOn(ctx context.Context, date time.Time) ([]entity.Bar, error)
	// MinuteOn returns every instrument's minute bars of date ordered by symbol and time.
	MinuteOn(ctx context.Context, date time.Time) ([]entity.Bar, error)
}

// InstrumentResolver resolves a symbol to its registered instrument.
type InstrumentResolver interface {
	Resolve(ctx context.Context, symbol string) (instentity.Instrument, error)
}

// TradingCalendar validates bar dates.
type TradingCalendar interface {
	IsTradingDay(ctx context.Context, exchange domain.Exchange, date time.Time) (bool, error)
}

// SnapshotWriter encodes a cross-section to w.
type SnapshotWriter interface {
	WriteBars(w io.Writer, granularity entity.Granularity, bars []entity.Bar) error
}

// BarsUsecase stores raw bars after calendar validation and serves range reads.
type BarsUsecase struct {
	repo        BarRepository
	instruments InstrumentResolver
	calendar    TradingCalendar
	snapshots   SnapshotWriter
}

// NewBarsUsecase creates a BarsUsecase. snapshots may be nil when exports are not served.
func NewBarsUsecase(repo BarRepository, instruments InstrumentResolver, calendar TradingCalendar, snapshots SnapshotWriter) *BarsUsecase {
	return &BarsUsecase{repo: repo, instruments: instruments, calendar: calendar, snapshots: snapshots}
}

// PutDaily stores one daily bar, overwriting a previous bar of the same day.
func (u *BarsUsecase) PutDaily(ctx context.Context, bar entity.Bar) error {
	return u.PutDailyBatch(ctx, []entity.Bar{bar})
}

// PutMinute stores one minute bar, overwriting a previous bar of the same minute.
func (u *BarsUsecase) PutMinute(ctx context.Context, bar entity.Bar) error {
	return u.PutMinuteBatch(ctx, []entity.Bar{bar})
}

// PutDailyBatch validates every bar and then writes all of them atomically.
func (u *BarsUsecase) PutDailyBatch(ctx context.Context, bars []entity.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	v := u.newValidator()
	type key struct {
		symbol string
		date   time.Time
	}
	index := make(map[key]int, len(bars))
	rows := make([]entity.Bar, 0, len(bars))
	for _, b := range bars {
		if err := checkFields(b); err != nil {
			return err
		}
		b.TradeDate = domain.DateOf(b.TradeDate)
		b.TradeTime = time.Time{}
		if err := v.check(ctx, b.Symbol, b.TradeDate); err != nil {
			return err
		}
		k := key{b.Symbol, b.TradeDate}
		if i, ok := index[k]; ok {
			rows[i] = b
			continue
		}
		index[k] = len(rows)
		rows = append(rows, b)
	}
	return u.repo.UpsertDaily(ctx, rows)
}

// PutMinuteBatch validates every bar and then writes all of them atomically.
// TradeDate is derived from TradeTime; an explicit TradeDate must agree with it.
func (u *BarsUsecase) PutMinuteBatch(ctx context.Context, bars []entity.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	v := u.newValidator()
	type key struct {
		symbol string
		at     time.Time
	}
	index := make(map[key]int, len(bars))
	rows := make([]entity.Bar, 0, len(bars))
	for _, b := range bars {
		if err := checkFields(b); err != nil {
			return err
		}
		if b.TradeTime.IsZero() {
			return fmt.Errorf("%w: minute bar of %s without trade time", domain.ErrInvalidBar, b.Symbol)
		}
		b.TradeTime = domain.WallClock(b.TradeTime)
		derived := domain.DateOf(b.TradeTime)
		if !b.TradeDate.IsZero() && !domain.DateOf(b.TradeDate).Equal(derived) {
			return fmt.Errorf("%w: trade date %s does not match trade time %s",
				domain.ErrInvalidBar, b.TradeDate.Format(time.DateOnly), b.TradeTime.Format(time.DateTime))
		}
		b.TradeDate = derived
		if err := v.check(ctx, b.Symbol, b.TradeDate); err != nil {
			return err
		}
		k := key{b.Symbol, b.TradeTime}
		if i, ok := index[k]; ok {
			rows[i] = b
			continue
		}
		index[k] = len(rows)
		rows = append(rows, b)
	}
	return u.repo.UpsertMinute(ctx, rows)
}

// RangeDaily returns the daily bars of symbol within [start, end], ascending.
func (u *BarsUsecase) RangeDaily(ctx context.Context, symbol string, start, end time.Time) ([]entity.Bar, error) {
	start, end, err := dateRange(start, end)
	if err != nil {
		return nil, err
	}
	return u.repo.RangeDaily(ctx, symbol, start, end)
}

// RangeMinute returns the minute bars of symbol on the days [start, end], ascending by time.
// When windows are given only bars inside one of them are kept.
func (u *BarsUsecase) RangeMinute(ctx context.Context, symbol string, start, end time.Time, windows ...entity.SessionWindow) ([]entity.Bar, error) {
	start, end, err := dateRange(start, end)
	if err != nil {
		return nil, err
	}
	bars, err := u.repo.RangeMinute(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	return FilterWindows(bars, windows), nil
}

// CrossSectionDaily returns all daily bars of one trade date.
func (u *BarsUsecase) CrossSectionDaily(ctx context.Context, date time.Time) ([]entity.Bar, error) {
	return u.repo.DailyOn(ctx, domain.DateOf(date))
}

// CrossSectionMinute returns all minute bars of one trade date.
func (u *BarsUsecase) CrossSectionMinute(ctx context.Context, date time.Time) ([]entity.Bar, error) {
	return u.repo.MinuteOn(ctx, domain.DateOf(date))
}

// ExportCrossSection writes the cross-section of date at the given granularity to w.
// It returns the number of bars written.
func (u *BarsUsecase) ExportCrossSection(ctx context.Context, date time.Time, granularity entity.Granularity, w io.Writer) (int, error) {
	if u.snapshots == nil {
		return 0, fmt.Errorf("bars: snapshot export not configured")
	}
	var (
		bars []entity.Bar
		err  error
	)
	switch granularity {
	case entity.Day:
		bars, err = u.CrossSectionDaily(ctx, date)
	case entity.Minute:
		bars, err = u.CrossSectionMinute(ctx, date)
	default:
		return 0, fmt.Errorf("bars: unknown granularity %q", granularity)
	}
	if err != nil {
		return 0, err
	}
	if err := u.snapshots.WriteBars(w, granularity, bars); err != nil {
		return 0, fmt.Errorf("bars: encode snapshot: %w", err)
	}
	return len(bars), nil
}

// FilterWindows keeps the bars whose trade time falls in one of windows.
func FilterWindows(bars []entity.Bar, windows []entity.SessionWindow) []entity.Bar {
	if len(windows) == 0 {
		return bars
	}
	out := make([]entity.Bar, 0, len(bars))
	for _, b := range bars {
		if entity.InWindows(b.TradeTime, windows) {
			out = append(out, b)
		}
	}
	return out
}

func dateRange(start, end time.Time) (time.Time, time.Time, error) {
	start, end = domain.DateOf(start), domain.DateOf(end)
	if start.After(end) {
		return start, end, fmt.Errorf("%w: %s > %s", domain.ErrInvalidRange, start.Format(time.DateOnly), end.Format(time.DateOnly))
	}
	return start, end, nil
}

func checkFields(b entity.Bar) error {
	for _, p := range [...]float64{b.Open, b.High, b.Low, b.Close, b.Amount} {
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
			return fmt.Errorf("%w: %s has price or amount %v", domain.ErrInvalidBar, b.Symbol, p)
		}
	}
	if b.Volume < 0 {
		return fmt.Errorf("%w: %s has volume %d", domain.ErrInvalidBar, b.Symbol, b.Volume)
	}
	return nil
}

// validator memoizes instrument and calendar lookups within one batch.
type validator struct {
	u         *BarsUsecase
	exchanges map[string]domain.Exchange
	open      map[domain.Exchange]map[time.Time]bool
}

func (u *BarsUsecase) newValidator() *validator {
	return &validator{
		u:         u,
		exchanges: map[string]domain.Exchange{},
		open:      map[domain.Exchange]map[time.Time]bool{},
	}
}

func (v *validator) check(ctx context.Context, symbol string, date time.Time) error {
	exchange, ok := v.exchanges[symbol]
	if !ok {
		inst, err := v.u.instruments.Resolve(ctx, symbol)
		if err != nil {
			return err
		}
		exchange = inst.Exchange
		v.exchanges[symbol] = exchange
	}
	days, ok := v.open[exchange]
	if !ok {
		days = map[time.Time]bool{}
		v.open[exchange] = days
	}
	isOpen, ok := days[date]
	if !ok {
		var err error
		isOpen, err = v.u.calendar.IsTradingDay(ctx, exchange, date)
		if err != nil {
			return err
		}
		days[date] = isOpen
	}
	if !isOpen {
		return fmt.Errorf("%w: %s %s", domain.ErrNotATradingDay, exchange, date.Format(time.DateOnly))
	}
	return nil
}

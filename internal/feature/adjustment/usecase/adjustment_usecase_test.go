package usecase_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ashare_store/internal/domain"
	"ashare_store/internal/feature/adjustment/domain/entity"
	"ashare_store/internal/feature/adjustment/usecase"
	barentity "ashare_store/internal/feature/bars/domain/entity"
	instentity "ashare_store/internal/feature/instrument/domain/entity"
)

// mockFactorRepository is a function-field mock of FactorRepository.
type mockFactorRepository struct {
	UpsertFactorsFunc func(ctx context.Context, factors []entity.Factor) error
	FindFunc          func(ctx context.Context, symbol string, date time.Time, adjType entity.AdjType) (float64, bool, error)
	RangeFunc         func(ctx context.Context, symbol string, adjType entity.AdjType, start, end time.Time) ([]entity.Factor, error)
}

func (m *mockFactorRepository) UpsertFactors(ctx context.Context, factors []entity.Factor) error {
	return m.UpsertFactorsFunc(ctx, factors)
}

func (m *mockFactorRepository) Find(ctx context.Context, symbol string, date time.Time, adjType entity.AdjType) (float64, bool, error) {
	return m.FindFunc(ctx, symbol, date, adjType)
}

func (m *mockFactorRepository) Range(ctx context.Context, symbol string, adjType entity.AdjType, start, end time.Time) ([]entity.Factor, error) {
	return m.RangeFunc(ctx, symbol, adjType, start, end)
}

type mockResolver struct {
	calls int
}

func (m *mockResolver) Resolve(ctx context.Context, symbol string) (instentity.Instrument, error) {
	m.calls++
	if symbol != "600000.SH" {
		return instentity.Instrument{}, domain.ErrUnknownSymbol
	}
	return instentity.Instrument{Symbol: symbol, Exchange: domain.ExchangeShanghai}, nil
}

// openOn is a TradingCalendar open on the listed dates only.
type openOn []time.Time

func (o openOn) IsTradingDay(ctx context.Context, exchange domain.Exchange, date time.Time) (bool, error) {
	for _, d := range o {
		if d.Equal(date) {
			return true, nil
		}
	}
	return false, nil
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestAdjustmentUsecase_UpsertFactor_Validation(t *testing.T) {
	tests := []struct {
		name    string
		symbol  string
		date    time.Time
		adjType entity.AdjType
		factor  float64
		wantErr error
	}{
		{name: "success", symbol: "600000.SH", date: day(2), adjType: entity.AdjForward, factor: 1.05},
		{name: "error: zero factor", symbol: "600000.SH", date: day(2), adjType: entity.AdjForward, factor: 0, wantErr: domain.ErrInvalidFactor},
		{name: "error: negative factor", symbol: "600000.SH", date: day(2), adjType: entity.AdjForward, factor: -1, wantErr: domain.ErrInvalidFactor},
		{name: "error: NaN factor", symbol: "600000.SH", date: day(2), adjType: entity.AdjForward, factor: math.NaN(), wantErr: domain.ErrInvalidFactor},
		{name: "success: none row is accepted", symbol: "600000.SH", date: day(2), adjType: entity.AdjNone, factor: 1},
		{name: "error: unknown adj type", symbol: "600000.SH", date: day(2), adjType: entity.AdjType("hfq"), factor: 1, wantErr: domain.ErrInvalidAdjType},
		{name: "error: unknown symbol", symbol: "000002.SZ", date: day(2), adjType: entity.AdjForward, factor: 1, wantErr: domain.ErrUnknownSymbol},
		{name: "error: saturday", symbol: "600000.SH", date: day(6), adjType: entity.AdjForward, factor: 1, wantErr: domain.ErrNotATradingDay},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var written []entity.Factor
			repo := &mockFactorRepository{
				UpsertFactorsFunc: func(ctx context.Context, factors []entity.Factor) error {
					written = factors
					return nil
				},
			}
			uc := usecase.NewAdjustmentUsecase(repo, &mockResolver{}, openOn{day(2), day(3)})

			err := uc.UpsertFactor(context.Background(), tt.symbol, tt.date, tt.adjType, tt.factor)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, written, "nothing is written on validation failure")
				return
			}
			require.NoError(t, err)
			require.Len(t, written, 1)
			assert.Equal(t, tt.factor, written[0].Value)
		})
	}
}

func TestAdjustmentUsecase_UpsertFactors_BatchIsAllOrNothing(t *testing.T) {
	called := false
	repo := &mockFactorRepository{
		UpsertFactorsFunc: func(ctx context.Context, factors []entity.Factor) error {
			called = true
			return nil
		},
	}
	uc := usecase.NewAdjustmentUsecase(repo, &mockResolver{}, openOn{day(2), day(3)})

	err := uc.UpsertFactors(context.Background(), []entity.Factor{
		{Symbol: "600000.SH", TradeDate: day(2), AdjType: entity.AdjForward, Value: 1.0},
		{Symbol: "600000.SH", TradeDate: day(6), AdjType: entity.AdjForward, Value: 1.0},
	})
	assert.ErrorIs(t, err, domain.ErrNotATradingDay)
	assert.False(t, called)
}

func TestAdjustmentUsecase_UpsertFactors_DedupesAndResolvesOnce(t *testing.T) {
	var written []entity.Factor
	repo := &mockFactorRepository{
		UpsertFactorsFunc: func(ctx context.Context, factors []entity.Factor) error {
			written = factors
			return nil
		},
	}
	resolver := &mockResolver{}
	uc := usecase.NewAdjustmentUsecase(repo, resolver, openOn{day(2), day(3)})

	err := uc.UpsertFactors(context.Background(), []entity.Factor{
		{Symbol: "600000.SH", TradeDate: day(2), AdjType: entity.AdjForward, Value: 1.0},
		{Symbol: "600000.SH", TradeDate: time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC), AdjType: entity.AdjForward, Value: 0.98},
		{Symbol: "600000.SH", TradeDate: day(3), AdjType: entity.AdjForward, Value: 1.05},
	})
	require.NoError(t, err)
	require.Len(t, written, 2)
	assert.Equal(t, 0.98, written[0].Value, "later row for the same key wins")
	assert.Equal(t, day(2), written[0].TradeDate)
	assert.Equal(t, 1, resolver.calls)
}

func TestAdjustmentUsecase_Adjust(t *testing.T) {
	raw := barentity.Bar{Symbol: "600000.SH", TradeDate: day(3), Open: 10.2, High: 10.6, Low: 10.1, Close: 10.5, Volume: 123456, Amount: 1.3e6}

	tests := []struct {
		name    string
		adjType entity.AdjType
		find    func(ctx context.Context, symbol string, date time.Time, adjType entity.AdjType) (float64, bool, error)
		want    barentity.Bar
		wantErr error
	}{
		{
			name:    "none returns the raw bar",
			adjType: entity.AdjNone,
			want:    raw,
		},
		{
			name:    "forward multiplies prices only",
			adjType: entity.AdjForward,
			find: func(ctx context.Context, symbol string, date time.Time, adjType entity.AdjType) (float64, bool, error) {
				assert.Equal(t, day(3), date)
				return 1.05, true, nil
			},
			want: barentity.Bar{Symbol: "600000.SH", TradeDate: day(3), Open: 10.71, High: 11.13, Low: 10.605, Close: 11.025, Volume: 123456, Amount: 1.3e6},
		},
		{
			name:    "error: no factor on the exact date",
			adjType: entity.AdjBackward,
			find: func(ctx context.Context, symbol string, date time.Time, adjType entity.AdjType) (float64, bool, error) {
				return 0, false, nil
			},
			wantErr: domain.ErrNoFactorForDate,
		},
		{
			name:    "error: repository failure",
			adjType: entity.AdjForward,
			find: func(ctx context.Context, symbol string, date time.Time, adjType entity.AdjType) (float64, bool, error) {
				return 0, false, errors.New("database error")
			},
			wantErr: errors.New("database error"),
		},
		{
			name:    "error: unknown adj type",
			adjType: entity.AdjType("split"),
			wantErr: domain.ErrInvalidAdjType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := usecase.NewAdjustmentUsecase(&mockFactorRepository{FindFunc: tt.find}, &mockResolver{}, openOn{})

			got, err := uc.Adjust(context.Background(), "600000.SH", raw, tt.adjType)
			if tt.wantErr != nil {
				require.Error(t, err)
				if errors.Is(tt.wantErr, domain.ErrNoFactorForDate) || errors.Is(tt.wantErr, domain.ErrInvalidAdjType) {
					assert.ErrorIs(t, err, tt.wantErr)
				} else {
					assert.EqualError(t, err, tt.wantErr.Error())
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdjustmentUsecase_AdjustSeries(t *testing.T) {
	bars := []barentity.Bar{
		{Symbol: "600000.SH", TradeDate: day(2), Close: 10.0, Volume: 100},
		{Symbol: "600000.SH", TradeDate: day(3), Close: 10.5, Volume: 200},
	}
	repo := &mockFactorRepository{
		RangeFunc: func(ctx context.Context, symbol string, adjType entity.AdjType, start, end time.Time) ([]entity.Factor, error) {
			assert.Equal(t, day(2), start)
			assert.Equal(t, day(3), end)
			return []entity.Factor{
				{Symbol: symbol, TradeDate: day(2), AdjType: adjType, Value: 1.0},
				{Symbol: symbol, TradeDate: day(3), AdjType: adjType, Value: 1.05},
			}, nil
		},
	}
	uc := usecase.NewAdjustmentUsecase(repo, &mockResolver{}, openOn{})

	got, err := uc.AdjustSeries(context.Background(), "600000.SH", bars, entity.AdjForward)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 10.0, got[0].Close)
	assert.Equal(t, 11.025, got[1].Close)
	assert.Equal(t, int64(200), got[1].Volume)
	assert.Equal(t, 10.5, bars[1].Close, "input is not modified")
}

func TestAdjustmentUsecase_AdjustSeries_MissingFactorFailsWholeCall(t *testing.T) {
	bars := []barentity.Bar{
		{Symbol: "600000.SH", TradeDate: day(2), Close: 10.0},
		{Symbol: "600000.SH", TradeDate: day(3), Close: 10.5},
	}
	repo := &mockFactorRepository{
		RangeFunc: func(ctx context.Context, symbol string, adjType entity.AdjType, start, end time.Time) ([]entity.Factor, error) {
			return []entity.Factor{{Symbol: symbol, TradeDate: day(2), AdjType: adjType, Value: 1.0}}, nil
		},
	}
	uc := usecase.NewAdjustmentUsecase(repo, &mockResolver{}, openOn{})

	got, err := uc.AdjustSeries(context.Background(), "600000.SH", bars, entity.AdjForward)
	assert.ErrorIs(t, err, domain.ErrNoFactorForDate)
	assert.Nil(t, got)
}

func TestAdjustmentUsecase_FactorSeries_InvalidRange(t *testing.T) {
	uc := usecase.NewAdjustmentUsecase(&mockFactorRepository{}, &mockResolver{}, openOn{})

	_, err := uc.FactorSeries(context.Background(), "600000.SH", entity.AdjForward, day(3), day(2))
	assert.ErrorIs(t, err, domain.ErrInvalidRange)
}

func TestApplyFactors_ReproducesPublishedPrices(t *testing.T) {
	// raw close, cumulative factor, published adjusted close
	tests := []struct {
		raw, factor, want float64
	}{
		{10.5, 1.05, 11.025},
		{3.33, 3.0, 9.99},
		{12.34, 0.873, 10.77282},
		{7.1, 1.1, 7.81},
	}

	for _, tt := range tests {
		bars := []barentity.Bar{{TradeDate: day(2), Close: tt.raw}}
		factors := []entity.Factor{{TradeDate: day(2), Value: tt.factor}}
		got, err := usecase.ApplyFactors("600000.SH", bars, factors, entity.AdjBackward)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got[0].Close)
	}
}

// Package adapters provides the gorm implementation of the bar repository.
package adapters

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ashare_store/internal/feature/bars/domain/entity"
	"ashare_store/internal/feature/bars/usecase"
)

const batchSize = 500

type barGorm struct {
	db *gorm.DB
}

var _ usecase.BarRepository = (*barGorm)(nil)

// NewBarRepository returns a BarRepository backed by the daily_bar and minute_bar tables.
func NewBarRepository(db *gorm.DB) *barGorm {
	return &barGorm{db: db}
}

// DailyBarModel is the daily_bar row.
type DailyBarModel struct {
	ID        uint      `gorm:"primaryKey"`
	Symbol    string    `gorm:"size:9;not null;uniqueIndex:daily_sym_date,priority:1"`
	TradeDate time.Time `gorm:"not null;uniqueIndex:daily_sym_date,priority:2;index:daily_date"`

	Open   float64 `gorm:"not null"`
	High   float64 `gorm:"not null"`
	Low    float64 `gorm:"not null"`
	Close  float64 `gorm:"not null"`
	Volume int64   `gorm:"not null;default:0"`
	Amount float64 `gorm:"not null;default:0"`
}

func (DailyBarModel) TableName() string {
	return "daily_bar"
}

// MinuteBarModel is the minute_bar row. TradeDate duplicates the date of TradeTime
// so cross-sections can be read from its own index.
type MinuteBarModel struct {
	ID        uint      `gorm:"primaryKey"`
	Symbol    string    `gorm:"size:9;not null;uniqueIndex:minute_sym_time,priority:1"`
	TradeTime time.Time `gorm:"not null;uniqueIndex:minute_sym_time,priority:2"`
	TradeDate time.Time `gorm:"not null;index:minute_date"`

	Open   float64 `gorm:"not null"`
	High   float64 `gorm:"not null"`
	Low    float64 `gorm:"not null"`
	Close  float64 `gorm:"not null"`
	Volume int64   `gorm:"not null;default:0"`
	Amount float64 `gorm:"not null;default:0"`
}

func (MinuteBarModel) TableName() string {
	return "minute_bar"
}

var priceColumns = []string{"open", "high", "low", "close", "volume", "amount"}

func (r *barGorm) UpsertDaily(ctx context.Context, bars []entity.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	ms := make([]DailyBarModel, 0, len(bars))
	for _, b := range bars {
		ms = append(ms, DailyBarModel{
			Symbol:    b.Symbol,
			TradeDate: b.TradeDate,
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
			Amount:    b.Amount,
		})
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}, {Name: "trade_date"}},
			DoUpdates: clause.AssignmentColumns(priceColumns),
		}).CreateInBatches(&ms, batchSize).Error
	})
}

func (r *barGorm) UpsertMinute(ctx context.Context, bars []entity.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	ms := make([]MinuteBarModel, 0, len(bars))
	for _, b := range bars {
		ms = append(ms, MinuteBarModel{
			Symbol:    b.Symbol,
			TradeTime: b.TradeTime,
			TradeDate: b.TradeDate,
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
			Amount:    b.Amount,
		})
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}, {Name: "trade_time"}},
			DoUpdates: clause.AssignmentColumns(append([]string{"trade_date"}, priceColumns...)),
		}).CreateInBatches(&ms, batchSize).Error
	})
}

func (r *barGorm) RangeDaily(ctx context.Context, symbol string, start, end time.Time) ([]entity.Bar, error) {
	var rows []DailyBarModel
	if err := r.db.WithContext(ctx).
		Where("symbol = ? AND trade_date >= ? AND trade_date <= ?", symbol, start, end).
		Order("trade_date ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return dailyToEntities(rows), nil
}

func (r *barGorm) RangeMinute(ctx context.Context, symbol string, start, end time.Time) ([]entity.Bar, error) {
	var rows []MinuteBarModel
	// bounded on trade_time so the (symbol, trade_time) index serves the scan
	if err := r.db.WithContext(ctx).
		Where("symbol = ? AND trade_time >= ? AND trade_time < ?", symbol, start, end.AddDate(0, 0, 1)).
		Order("trade_time ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return minuteToEntities(rows), nil
}

func (r *barGorm) DailyOn(ctx context.Context, date time.Time) ([]entity.Bar, error) {
	var rows []DailyBarModel
	if err := r.db.WithContext(ctx).
		Where("trade_date = ?", date).
		Order("symbol ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return dailyToEntities(rows), nil
}

func (r *barGorm) MinuteOn(ctx context.Context, date time.Time) ([]entity.Bar, error) {
	var rows []MinuteBarModel
	if err := r.db.WithContext(ctx).
		Where("trade_date = ?", date).
		Order("symbol ASC").
		Order("trade_time ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return minuteToEntities(rows), nil
}

func dailyToEntities(rows []DailyBarModel) []entity.Bar {
	out := make([]entity.Bar, 0, len(rows))
	for _, m := range rows {
		out = append(out, entity.Bar{
			Symbol:    m.Symbol,
			TradeDate: m.TradeDate.UTC(),
			Open:      m.Open,
			High:      m.High,
			Low:       m.Low,
			Close:     m.Close,
			Volume:    m.Volume,
			Amount:    m.Amount,
		})
	}
	return out
}

func minuteToEntities(rows []MinuteBarModel) []entity.Bar {
	out := make([]entity.Bar, 0, len(rows))
	for _, m := range rows {
		out = append(out, entity.Bar{
			Symbol:    m.Symbol,
			TradeDate: m.TradeDate.UTC(),
			TradeTime: m.TradeTime.UTC(),
			Open:      m.Open,
			High:      m.High,
			Low:       m.Low,
			Close:     m.Close,
			Volume:    m.Volume,
			Amount:    m.Amount,
		})
	}
	return out
}

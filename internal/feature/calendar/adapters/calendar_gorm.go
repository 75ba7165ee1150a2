// Package adapters provides the gorm implementation of the calendar repository.
package adapters

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ashare_store/internal/domain"
	"ashare_store/internal/feature/calendar/domain/entity"
	"ashare_store/internal/feature/calendar/usecase"
)

type calendarGorm struct {
	db *gorm.DB
}

var _ usecase.CalendarRepository = (*calendarGorm)(nil)

// NewCalendarRepository returns a CalendarRepository backed by the trade_calendar table.
func NewCalendarRepository(db *gorm.DB) *calendarGorm {
	return &calendarGorm{db: db}
}

// TradingDayModel is the trade_calendar row.
type TradingDayModel struct {
	Exchange  string    `gorm:"size:2;primaryKey"`
	TradeDate time.Time `gorm:"primaryKey"`
	IsOpen    bool      `gorm:"not null"`
	Weekday   int       `gorm:"not null"`
}

func (TradingDayModel) TableName() string {
	return "trade_calendar"
}

func toModel(d entity.TradingDay) TradingDayModel {
	return TradingDayModel{
		Exchange:  string(d.Exchange),
		TradeDate: d.Date,
		IsOpen:    d.IsOpen,
		Weekday:   int(d.Weekday()),
	}
}

func (m TradingDayModel) toEntity() entity.TradingDay {
	return entity.TradingDay{
		Exchange: domain.Exchange(m.Exchange),
		Date:     m.TradeDate.UTC(),
		IsOpen:   m.IsOpen,
	}
}

func (r *calendarGorm) IsOpen(ctx context.Context, exchange domain.Exchange, date time.Time) (bool, error) {
	var rows []TradingDayModel
	if err := r.db.WithContext(ctx).
		Where("exchange = ? AND trade_date = ?", string(exchange), date).
		Limit(1).
		Find(&rows).Error; err != nil {
		return false, err
	}
	return len(rows) == 1 && rows[0].IsOpen, nil
}

func (r *calendarGorm) NextOpen(ctx context.Context, exchange domain.Exchange, date time.Time) (time.Time, bool, error) {
	return r.firstOpen(ctx, exchange, "trade_date > ?", date, "trade_date ASC")
}

func (r *calendarGorm) PrevOpen(ctx context.Context, exchange domain.Exchange, date time.Time) (time.Time, bool, error) {
	return r.firstOpen(ctx, exchange, "trade_date < ?", date, "trade_date DESC")
}

func (r *calendarGorm) firstOpen(ctx context.Context, exchange domain.Exchange, cond string, date time.Time, order string) (time.Time, bool, error) {
	var rows []TradingDayModel
	if err := r.db.WithContext(ctx).
		Where("exchange = ? AND is_open = ?", string(exchange), true).
		Where(cond, date).
		Order(order).
		Limit(1).
		Find(&rows).Error; err != nil {
		return time.Time{}, false, err
	}
	if len(rows) == 0 {
		return time.Time{}, false, nil
	}
	return rows[0].TradeDate.UTC(), true, nil
}

func (r *calendarGorm) OpenDays(ctx context.Context, exchange domain.Exchange, start, end time.Time) ([]time.Time, error) {
	var rows []TradingDayModel
	if err := r.db.WithContext(ctx).
		Where("exchange = ? AND is_open = ? AND trade_date >= ? AND trade_date <= ?", string(exchange), true, start, end).
		Order("trade_date ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]time.Time, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.TradeDate.UTC())
	}
	return out, nil
}

func (r *calendarGorm) Bounds(ctx context.Context, exchange domain.Exchange) (time.Time, time.Time, bool, error) {
	var first, last []TradingDayModel
	q := r.db.WithContext(ctx).Where("exchange = ?", string(exchange)).Limit(1)
	if err := q.Order("trade_date ASC").Find(&first).Error; err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	if len(first) == 0 {
		return time.Time{}, time.Time{}, false, nil
	}
	if err := r.db.WithContext(ctx).Where("exchange = ?", string(exchange)).Order("trade_date DESC").Limit(1).Find(&last).Error; err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	return first[0].TradeDate.UTC(), last[0].TradeDate.UTC(), true, nil
}

func (r *calendarGorm) UpsertDays(ctx context.Context, days []entity.TradingDay, check usecase.DayCheck) error {
	if len(days) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ms := make([]TradingDayModel, 0, len(days))
		for _, d := range days {
			var existing []TradingDayModel
			if err := tx.Where("exchange = ? AND trade_date = ?", string(d.Exchange), d.Date).
				Limit(1).
				Find(&existing).Error; err != nil {
				return err
			}
			if len(existing) == 1 && check != nil {
				if err := check(existing[0].toEntity(), d); err != nil {
					return err
				}
			}
			ms = append(ms, toModel(d))
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "exchange"}, {Name: "trade_date"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_open", "weekday"}),
		}).Create(&ms).Error
	})
}

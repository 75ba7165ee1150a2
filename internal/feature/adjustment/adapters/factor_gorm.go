// Package adapters provides the gorm implementation of the factor repository.
package adapters

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ashare_store/internal/feature/adjustment/domain/entity"
	"ashare_store/internal/feature/adjustment/usecase"
)

type factorGorm struct {
	db *gorm.DB
}

var _ usecase.FactorRepository = (*factorGorm)(nil)

// NewFactorRepository returns a FactorRepository backed by the adj_factor table.
func NewFactorRepository(db *gorm.DB) *factorGorm {
	return &factorGorm{db: db}
}

// FactorModel is the adj_factor row.
type FactorModel struct {
	ID        uint      `gorm:"primaryKey"`
	Symbol    string    `gorm:"size:9;not null;uniqueIndex:adj_sym_date_type,priority:1"`
	TradeDate time.Time `gorm:"not null;uniqueIndex:adj_sym_date_type,priority:2"`
	AdjType   string    `gorm:"size:8;not null;uniqueIndex:adj_sym_date_type,priority:3"`
	Factor    float64   `gorm:"not null"`
}

func (FactorModel) TableName() string {
	return "adj_factor"
}

func (r *factorGorm) UpsertFactors(ctx context.Context, factors []entity.Factor) error {
	if len(factors) == 0 {
		return nil
	}
	ms := make([]FactorModel, 0, len(factors))
	for _, f := range factors {
		ms = append(ms, FactorModel{
			Symbol:    f.Symbol,
			TradeDate: f.TradeDate,
			AdjType:   string(f.AdjType),
			Factor:    f.Value,
		})
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}, {Name: "trade_date"}, {Name: "adj_type"}},
			DoUpdates: clause.AssignmentColumns([]string{"factor"}),
		}).CreateInBatches(&ms, 500).Error
	})
}

func (r *factorGorm) Find(ctx context.Context, symbol string, date time.Time, adjType entity.AdjType) (float64, bool, error) {
	var rows []FactorModel
	if err := r.db.WithContext(ctx).
		Where("symbol = ? AND trade_date = ? AND adj_type = ?", symbol, date, string(adjType)).
		Limit(1).
		Find(&rows).Error; err != nil {
		return 0, false, err
	}
	if len(rows) == 0 {
		return 0, false, nil
	}
	return rows[0].Factor, true, nil
}

func (r *factorGorm) Range(ctx context.Context, symbol string, adjType entity.AdjType, start, end time.Time) ([]entity.Factor, error) {
	var rows []FactorModel
	if err := r.db.WithContext(ctx).
		Where("symbol = ? AND adj_type = ? AND trade_date >= ? AND trade_date <= ?", symbol, string(adjType), start, end).
		Order("trade_date ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.Factor, 0, len(rows))
	for _, m := range rows {
		out = append(out, entity.Factor{
			Symbol:    m.Symbol,
			TradeDate: m.TradeDate.UTC(),
			AdjType:   entity.AdjType(m.AdjType),
			Value:     m.Factor,
		})
	}
	return out, nil
}

// Package adapters provides the gorm repositories of the instrument feature.
package adapters

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ashare_store/internal/domain"
	"ashare_store/internal/feature/instrument/domain/entity"
	"ashare_store/internal/feature/instrument/usecase"
)

type instrumentGorm struct {
	db *gorm.DB
}

var _ usecase.InstrumentRepository = (*instrumentGorm)(nil)

// NewInstrumentRepository returns an InstrumentRepository backed by stock_basic.
func NewInstrumentRepository(db *gorm.DB) *instrumentGorm {
	return &instrumentGorm{db: db}
}

// InstrumentModel is the stock_basic row.
type InstrumentModel struct {
	Symbol     string    `gorm:"size:9;primaryKey"`
	Name       string    `gorm:"size:64;not null"`
	Exchange   string    `gorm:"size:2;not null;index"`
	ListDate   time.Time `gorm:"not null"`
	Industry   string    `gorm:"size:64;not null;default:''"`
	DelistDate *time.Time
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (InstrumentModel) TableName() string {
	return "stock_basic"
}

func (m InstrumentModel) toEntity() entity.Instrument {
	inst := entity.Instrument{
		Symbol:   m.Symbol,
		Name:     m.Name,
		Exchange: domain.Exchange(m.Exchange),
		ListDate: m.ListDate.UTC(),
		Industry: m.Industry,
	}
	if m.DelistDate != nil {
		d := m.DelistDate.UTC()
		inst.DelistDate = &d
	}
	return inst
}

func (r *instrumentGorm) Create(ctx context.Context, inst entity.Instrument) (bool, error) {
	m := InstrumentModel{
		Symbol:     inst.Symbol,
		Name:       inst.Name,
		Exchange:   string(inst.Exchange),
		ListDate:   inst.ListDate,
		Industry:   inst.Industry,
		DelistDate: inst.DelistDate,
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "symbol"}}, DoNothing: true}).
		Create(&m)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *instrumentGorm) FindBySymbol(ctx context.Context, symbol string) (entity.Instrument, bool, error) {
	var rows []InstrumentModel
	if err := r.db.WithContext(ctx).Where("symbol = ?", symbol).Limit(1).Find(&rows).Error; err != nil {
		return entity.Instrument{}, false, err
	}
	if len(rows) == 0 {
		return entity.Instrument{}, false, nil
	}
	return rows[0].toEntity(), true, nil
}

func (r *instrumentGorm) UpdateProfile(ctx context.Context, symbol, name, industry string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&InstrumentModel{}).
		Where("symbol = ?", symbol).
		Updates(map[string]any{"name": name, "industry": industry})
	return res.RowsAffected > 0, res.Error
}

func (r *instrumentGorm) SetDelistDate(ctx context.Context, symbol string, date time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&InstrumentModel{}).
		Where("symbol = ?", symbol).
		Update("delist_date", date)
	return res.RowsAffected > 0, res.Error
}

func (r *instrumentGorm) ListByExchange(ctx context.Context, exchange domain.Exchange, listedOnly bool) ([]entity.Instrument, error) {
	q := r.db.WithContext(ctx).Where("exchange = ?", string(exchange))
	if listedOnly {
		q = q.Where("delist_date IS NULL")
	}
	var rows []InstrumentModel
	if err := q.
		Order("symbol ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.Instrument, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toEntity())
	}
	return out, nil
}

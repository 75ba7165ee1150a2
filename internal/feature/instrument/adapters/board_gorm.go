package adapters

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ashare_store/internal/feature/instrument/domain/entity"
	"ashare_store/internal/feature/instrument/usecase"
)

type boardGorm struct {
	db *gorm.DB
}

var _ usecase.BoardRepository = (*boardGorm)(nil)

// NewBoardRepository returns a BoardRepository backed by stock_board and stock_board_member.
func NewBoardRepository(db *gorm.DB) *boardGorm {
	return &boardGorm{db: db}
}

// BoardModel is the stock_board row.
type BoardModel struct {
	Code      string    `gorm:"size:32;primaryKey"`
	Name      string    `gorm:"size:64;not null"`
	Type      string    `gorm:"size:16;not null;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (BoardModel) TableName() string {
	return "stock_board"
}

// MembershipModel is the stock_board_member row.
// ValidKey holds "symbol|board" while the row is valid and NULL afterwards; its unique
// index keeps at most one valid row per pair while ended rows accumulate freely.
type MembershipModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Symbol    string    `gorm:"size:9;not null;index:member_sym_board,priority:1"`
	BoardCode string    `gorm:"size:32;not null;index:member_sym_board,priority:2;index"`
	IsValid   bool      `gorm:"not null"`
	ValidKey  *string   `gorm:"size:48;uniqueIndex"`
	ValidFrom time.Time `gorm:"not null"`
	ValidTo   *time.Time
}

func (MembershipModel) TableName() string {
	return "stock_board_member"
}

func validKey(symbol, boardCode string) string {
	return symbol + "|" + boardCode
}

func (r *boardGorm) UpsertBoard(ctx context.Context, b entity.Board) error {
	m := BoardModel{Code: b.Code, Name: b.Name, Type: string(b.Type)}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "type", "updated_at"}),
	}).Create(&m).Error
}

func (r *boardGorm) FindBoard(ctx context.Context, code string) (entity.Board, bool, error) {
	var rows []BoardModel
	if err := r.db.WithContext(ctx).Where("code = ?", code).Limit(1).Find(&rows).Error; err != nil {
		return entity.Board{}, false, err
	}
	if len(rows) == 0 {
		return entity.Board{}, false, nil
	}
	return entity.Board{Code: rows[0].Code, Name: rows[0].Name, Type: entity.BoardType(rows[0].Type)}, true, nil
}

func (r *boardGorm) AddMembership(ctx context.Context, symbol, boardCode string, at time.Time) (bool, error) {
	key := validKey(symbol, boardCode)
	m := MembershipModel{
		Symbol:    symbol,
		BoardCode: boardCode,
		IsValid:   true,
		ValidKey:  &key,
		ValidFrom: at,
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "valid_key"}}, DoNothing: true}).
		Create(&m)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *boardGorm) EndMembership(ctx context.Context, symbol, boardCode string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&MembershipModel{}).
		Where("valid_key = ?", validKey(symbol, boardCode)).
		Updates(map[string]any{"is_valid": false, "valid_key": nil, "valid_to": at})
	return res.RowsAffected > 0, res.Error
}

func (r *boardGorm) ValidMembers(ctx context.Context, boardCode string) ([]string, error) {
	var symbols []string
	err := r.db.WithContext(ctx).
		Model(&MembershipModel{}).
		Where("board_code = ? AND is_valid = ?", boardCode, true).
		Order("symbol ASC").
		Pluck("symbol", &symbols).Error
	return symbols, err
}

func (r *boardGorm) ValidBoards(ctx context.Context, symbol string) ([]string, error) {
	var codes []string
	err := r.db.WithContext(ctx).
		Model(&MembershipModel{}).
		Where("symbol = ? AND is_valid = ?", symbol, true).
		Order("board_code ASC").
		Pluck("board_code", &codes).Error
	return codes, err
}

func (r *boardGorm) MembersAsOf(ctx context.Context, boardCode string, asOf time.Time) ([]string, error) {
	var symbols []string
	err := r.db.WithContext(ctx).
		Model(&MembershipModel{}).
		Distinct("symbol").
		Where("board_code = ? AND valid_from <= ? AND (valid_to IS NULL OR valid_to > ?)", boardCode, asOf, asOf).
		Order("symbol ASC").
		Pluck("symbol", &symbols).Error
	return symbols, err
}

func (r *boardGorm) History(ctx context.Context, symbol, boardCode string) ([]entity.Membership, error) {
	var rows []MembershipModel
	if err := r.db.WithContext(ctx).
		Where("symbol = ? AND board_code = ?", symbol, boardCode).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.Membership, 0, len(rows))
	for _, m := range rows {
		ms := entity.Membership{
			ID:        m.ID,
			Symbol:    m.Symbol,
			BoardCode: m.BoardCode,
			IsValid:   m.IsValid,
			ValidFrom: m.ValidFrom.UTC(),
		}
		if m.ValidTo != nil {
			to := m.ValidTo.UTC()
			ms.ValidTo = &to
		}
		out = append(out, ms)
	}
	return out, nil
}

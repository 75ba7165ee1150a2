// Package usecase implements the instrument registry and board taxonomy.
package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ashare_store/internal/domain"
	"ashare_store/internal/feature/instrument/domain/entity"
)

// InstrumentRepository abstracts the persistence layer for instruments.
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type InstrumentRepository interface {
	// Create inserts the instrument; created is false when the symbol already exists.
	Create(ctx context.Context, inst entity.Instrument) (created bool, err error)
	FindBySymbol(ctx context.Context, symbol string) (entity.Instrument, bool, error)
	UpdateProfile(ctx context.Context, symbol, name, industry string) (bool, error)
	SetDelistDate(ctx context.Context, symbol string, date time.Time) (bool, error)
	// ListByExchange returns the instruments of exchange ordered by symbol; listedOnly skips delisted rows.
	ListByExchange(ctx context.Context, exchange domain.Exchange, listedOnly bool) ([]entity.Instrument, error)
}

// BoardRepository abstracts the persistence layer for boards and memberships.
type BoardRepository interface {
	UpsertBoard(ctx context.Context, b entity.Board) error
	FindBoard(ctx context.Context, code string) (entity.Board, bool, error)
	// AddMembership inserts a valid row unless one already exists for the pair.
	AddMembership(ctx context.Context, symbol, boardCode string, at time.Time) (created bool, err error)
	// EndMembership invalidates the current valid row for the pair, if any.
	EndMembership(ctx context.Context, symbol, boardCode string, at time.Time) (ended bool, err error)
	ValidMembers(ctx context.Context, boardCode string) ([]string, error)
	ValidBoards(ctx context.Context, symbol string) ([]string, error)
	MembersAsOf(ctx context.Context, boardCode string, asOf time.Time) ([]string, error)
	History(ctx context.Context, symbol, boardCode string) ([]entity.Membership, error)
}

// RegistryUsecase owns instruments, boards and memberships.
type RegistryUsecase struct {
	instruments InstrumentRepository
	boards      BoardRepository
	now         func() time.Time
}

// NewRegistryUsecase creates a RegistryUsecase with the given repositories.
func NewRegistryUsecase(instruments InstrumentRepository, boards BoardRepository) *RegistryUsecase {
	return &RegistryUsecase{instruments: instruments, boards: boards, now: time.Now}
}

// WithClock replaces the clock used to stamp membership validity.
func (u *RegistryUsecase) WithClock(now func() time.Time) *RegistryUsecase {
	u.now = now
	return u
}

func (u *RegistryUsecase) stamp() time.Time {
	return u.now().UTC().Truncate(time.Microsecond)
}

// Register inserts a new instrument. The list date is not checked against the calendar.
func (u *RegistryUsecase) Register(ctx context.Context, inst entity.Instrument) error {
	exchange, err := domain.ExchangeOf(inst.Symbol)
	if err != nil {
		return err
	}
	inst.Exchange = exchange
	inst.ListDate = domain.DateOf(inst.ListDate)

	created, err := u.instruments.Create(ctx, inst)
	if err != nil {
		return err
	}
	if !created {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateSymbol, inst.Symbol)
	}
	return nil
}

// Resolve returns the instrument registered under symbol.
func (u *RegistryUsecase) Resolve(ctx context.Context, symbol string) (entity.Instrument, error) {
	inst, ok, err := u.instruments.FindBySymbol(ctx, symbol)
	if err != nil {
		return entity.Instrument{}, err
	}
	if !ok {
		return entity.Instrument{}, fmt.Errorf("%w: %s", domain.ErrUnknownSymbol, symbol)
	}
	return inst, nil
}

// Update changes the mutable profile fields of an instrument.
func (u *RegistryUsecase) Update(ctx context.Context, symbol, name, industry string) error {
	ok, err := u.instruments.UpdateProfile(ctx, symbol, name, industry)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownSymbol, symbol)
	}
	return nil
}

// Delist records the delisting date. The instrument row and its symbol stay reserved.
func (u *RegistryUsecase) Delist(ctx context.Context, symbol string, date time.Time) error {
	ok, err := u.instruments.SetDelistDate(ctx, symbol, domain.DateOf(date))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownSymbol, symbol)
	}
	return nil
}

// List returns the instruments of an exchange ordered by symbol. Delisted instruments
// are left out unless includeDelisted is set.
func (u *RegistryUsecase) List(ctx context.Context, exchange domain.Exchange, includeDelisted bool) ([]entity.Instrument, error) {
	if !exchange.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidExchange, exchange)
	}
	return u.instruments.ListByExchange(ctx, exchange, !includeDelisted)
}

// UpsertBoard creates or renames a board.
func (u *RegistryUsecase) UpsertBoard(ctx context.Context, b entity.Board) error {
	b.Code = strings.TrimSpace(b.Code)
	if b.Code == "" {
		return fmt.Errorf("%w: empty board code", domain.ErrUnknownBoard)
	}
	return u.boards.UpsertBoard(ctx, b)
}

// ResolveBoard returns the board with the given code.
func (u *RegistryUsecase) ResolveBoard(ctx context.Context, code string) (entity.Board, error) {
	b, ok, err := u.boards.FindBoard(ctx, code)
	if err != nil {
		return entity.Board{}, err
	}
	if !ok {
		return entity.Board{}, fmt.Errorf("%w: %s", domain.ErrUnknownBoard, code)
	}
	return b, nil
}

// AddMembership links symbol to boardCode. Adding an existing valid link is a no-op.
func (u *RegistryUsecase) AddMembership(ctx context.Context, symbol, boardCode string) error {
	if _, err := u.Resolve(ctx, symbol); err != nil {
		return err
	}
	if _, err := u.ResolveBoard(ctx, boardCode); err != nil {
		return err
	}
	_, err := u.boards.AddMembership(ctx, symbol, boardCode, u.stamp())
	return err
}

// RemoveMembership ends the current valid link, if there is one.
func (u *RegistryUsecase) RemoveMembership(ctx context.Context, symbol, boardCode string) error {
	_, err := u.boards.EndMembership(ctx, symbol, boardCode, u.stamp())
	return err
}

// MembersOf returns the symbols currently in the board.
func (u *RegistryUsecase) MembersOf(ctx context.Context, boardCode string) ([]string, error) {
	return u.boards.ValidMembers(ctx, boardCode)
}

// BoardsOf returns the boards the symbol currently belongs to.
func (u *RegistryUsecase) BoardsOf(ctx context.Context, symbol string) ([]string, error) {
	return u.boards.ValidBoards(ctx, symbol)
}

// MembersAsOf reconstructs the board's constituents at asOf from membership history.
func (u *RegistryUsecase) MembersAsOf(ctx context.Context, boardCode string, asOf time.Time) ([]string, error) {
	if _, err := u.ResolveBoard(ctx, boardCode); err != nil {
		return nil, err
	}
	if asOf.IsZero() {
		return u.boards.ValidMembers(ctx, boardCode)
	}
	return u.boards.MembersAsOf(ctx, boardCode, asOf.UTC())
}

// MembershipHistory returns every row ever written for the pair, oldest first.
func (u *RegistryUsecase) MembershipHistory(ctx context.Context, symbol, boardCode string) ([]entity.Membership, error) {
	return u.boards.History(ctx, symbol, boardCode)
}

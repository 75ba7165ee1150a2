package cache

import (
	"context"
	"time"

	"ashare_store/internal/feature/adjustment/domain/entity"
	"ashare_store/internal/feature/adjustment/usecase"
)

type factorKey struct {
	symbol  string
	date    string
	adjType entity.AdjType
}

type factorHit struct {
	value float64
	ok    bool
}

// CachingFactorRepository decorates a FactorRepository with a process-local cache of
// point lookups, including misses. Range reads pass through.
type CachingFactorRepository struct {
	inner usecase.FactorRepository
	found *Local[factorKey, factorHit]
}

var _ usecase.FactorRepository = (*CachingFactorRepository)(nil)

// NewCachingFactorRepository wraps inner. capacity <= 0 selects a default.
func NewCachingFactorRepository(inner usecase.FactorRepository, capacity int) *CachingFactorRepository {
	return &CachingFactorRepository{inner: inner, found: NewLocal[factorKey, factorHit](capacity)}
}

// Find serves from the cache and falls back to the inner repository.
func (c *CachingFactorRepository) Find(ctx context.Context, symbol string, date time.Time, adjType entity.AdjType) (float64, bool, error) {
	key := factorKey{symbol: symbol, date: date.Format(time.DateOnly), adjType: adjType}
	if hit, ok := c.found.Get(key); ok {
		return hit.value, hit.ok, nil
	}
	gen := c.found.Generation()
	value, ok, err := c.inner.Find(ctx, symbol, date, adjType)
	if err != nil {
		return 0, false, err
	}
	c.found.Fill(gen, key, factorHit{value: value, ok: ok})
	return value, ok, nil
}

func (c *CachingFactorRepository) Range(ctx context.Context, symbol string, adjType entity.AdjType, start, end time.Time) ([]entity.Factor, error) {
	return c.inner.Range(ctx, symbol, adjType, start, end)
}

// UpsertFactors writes through and then drops the written keys.
func (c *CachingFactorRepository) UpsertFactors(ctx context.Context, factors []entity.Factor) error {
	err := c.inner.UpsertFactors(ctx, factors)
	keys := make([]factorKey, 0, len(factors))
	for _, f := range factors {
		keys = append(keys, factorKey{symbol: f.Symbol, date: f.TradeDate.Format(time.DateOnly), adjType: f.AdjType})
	}
	c.found.Invalidate(keys...)
	return err
}

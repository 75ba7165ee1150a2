// Package di wires repositories, caches and usecases into a ready-to-use store.
package di

import (
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	adjadapters "ashare_store/internal/feature/adjustment/adapters"
	adjusecase "ashare_store/internal/feature/adjustment/usecase"
	baradapters "ashare_store/internal/feature/bars/adapters"
	barusecase "ashare_store/internal/feature/bars/usecase"
	caladapters "ashare_store/internal/feature/calendar/adapters"
	calusecase "ashare_store/internal/feature/calendar/usecase"
	instadapters "ashare_store/internal/feature/instrument/adapters"
	insthandler "ashare_store/internal/feature/instrument/transport/handler"
	instusecase "ashare_store/internal/feature/instrument/usecase"
	serieshandler "ashare_store/internal/feature/series/transport/handler"
	seriesusecase "ashare_store/internal/feature/series/usecase"
	"ashare_store/internal/platform/archive"
	"ashare_store/internal/platform/cache"
)

// StoreOptions tunes the caches in front of the database.
type StoreOptions struct {
	// Redis caches daily ranges when non-nil.
	Redis          *redis.Client
	// RedisTTL of zero expires each range at the next daily refresh.
	RedisTTL       time.Duration
	RedisNamespace string
	// LocalCapacity bounds each process-local cache; <= 0 selects a default.
	LocalCapacity int
	// Now overrides the clock of the calendar, the registry and range expirations.
	Now func() time.Time
}

// Store groups the five components sharing one database.
type Store struct {
	Calendar    *calusecase.CalendarUsecase
	Instruments *instusecase.RegistryUsecase
	Adjustment  *adjusecase.AdjustmentUsecase
	Bars        *barusecase.BarsUsecase
	Series      *seriesusecase.SeriesUsecase
}

// NewStore builds the store over db. Calendar and factor point lookups go through
// process-local caches; daily ranges go through Redis when configured.
func NewStore(db *gorm.DB, opts StoreOptions) *Store {
	calRepo := cache.NewCachingCalendarRepository(caladapters.NewCalendarRepository(db), opts.LocalCapacity)
	factorRepo := cache.NewCachingFactorRepository(adjadapters.NewFactorRepository(db), opts.LocalCapacity)
	barRepo := cache.NewCachingBarRepository(opts.Redis, opts.RedisTTL, baradapters.NewBarRepository(db), opts.RedisNamespace)

	calendar := calusecase.NewCalendarUsecase(calRepo)
	registry := instusecase.NewRegistryUsecase(instadapters.NewInstrumentRepository(db), instadapters.NewBoardRepository(db))
	if opts.Now != nil {
		calendar.WithClock(opts.Now)
		registry.WithClock(opts.Now)
		barRepo.WithClock(opts.Now)
	}
	adjustment := adjusecase.NewAdjustmentUsecase(factorRepo, registry, calendar)
	bars := barusecase.NewBarsUsecase(barRepo, registry, calendar, archive.NewParquetWriter())

	return &Store{
		Calendar:    calendar,
		Instruments: registry,
		Adjustment:  adjustment,
		Bars:        bars,
		Series:      seriesusecase.NewSeriesUsecase(registry, calendar, bars, adjustment),
	}
}

// Handlers groups the HTTP handlers of the query API.
type Handlers struct {
	Series      *serieshandler.SeriesHandler
	Instruments *insthandler.InstrumentHandler
}

// NewHandlers builds the HTTP handlers over s.
func NewHandlers(s *Store) *Handlers {
	return &Handlers{
		Series:      serieshandler.NewSeriesHandler(s.Series, s.Bars),
		Instruments: insthandler.NewInstrumentHandler(s.Instruments),
	}
}

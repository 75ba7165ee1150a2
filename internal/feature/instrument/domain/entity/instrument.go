// Package entity defines the domain models for the instrument feature.
package entity

import (
	"time"

	"ashare_store/internal/domain"
)

// Instrument is a listed A-share security.
// Symbol is stable and never reused, even after delisting.
type Instrument struct {
	Symbol     string          // e.g. "600000.SH"
	Name       string          // may change over the listing's life
	Exchange   domain.Exchange // derived from the symbol suffix
	ListDate   time.Time
	Industry   string
	DelistDate *time.Time
}

// BoardType classifies boards.
type BoardType string

const (
	BoardTypeIndex    BoardType = "index"
	BoardTypeIndustry BoardType = "industry"
	BoardTypeConcept  BoardType = "concept"
	BoardTypeRegion   BoardType = "region"
)

// Board is an index, sector, or concept grouping of instruments.
type Board struct {
	Code string
	Name string
	Type BoardType
}

// Membership is one edge between an instrument and a board.
// Ending a membership flips IsValid and stamps ValidTo; rows are never deleted,
// and re-adding inserts a new row.
type Membership struct {
	ID        int64
	Symbol    string
	BoardCode string
	IsValid   bool
	ValidFrom time.Time
	ValidTo   *time.Time
}

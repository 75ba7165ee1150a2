// Package entity defines the domain models for the adjustment feature.
package entity

import (
	"fmt"
	"time"

	"ashare_store/internal/domain"
)

// AdjType selects how prices are adjusted for corporate actions.
type AdjType string

const (
	AdjNone     AdjType = "none"
	AdjForward  AdjType = "forward"  // 前复权
	AdjBackward AdjType = "backward" // 后复权
)

// ParseAdjType accepts none, forward, or backward. The empty string means none.
func ParseAdjType(s string) (AdjType, error) {
	switch AdjType(s) {
	case "", AdjNone:
		return AdjNone, nil
	case AdjForward:
		return AdjForward, nil
	case AdjBackward:
		return AdjBackward, nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrInvalidAdjType, s)
}

// Valid reports whether t is one of the known adjustment types.
func (t AdjType) Valid() bool {
	return t == AdjNone || t.Stored()
}

// Stored reports whether prices are scaled by factor rows of type t.
// Rows of type none may be stored but never change a bar.
func (t AdjType) Stored() bool {
	return t == AdjForward || t == AdjBackward
}

// Factor is the cumulative adjustment factor of one symbol on one trading day.
// Multiplying that day's raw price by Value yields the published adjusted price.
type Factor struct {
	Symbol    string
	TradeDate time.Time
	AdjType   AdjType
	Value     float64
}

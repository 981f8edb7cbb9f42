package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Side is the balance-sheet side of a position leg.
type Side int

const (
	// SideCollateral is the supplied (collateral) side.
	SideCollateral Side = iota
	// SideBorrow is the debt side.
	SideBorrow
)

const (
	sideStringCollateral = "collateral"
	sideStringBorrow     = "borrow"
)

// ErrInvalidSide is returned when a side string cannot be parsed.
var ErrInvalidSide = errors.New("invalid side")

// String returns the string representation of the side.
func (s Side) String() string {
	switch s {
	case SideCollateral:
		return sideStringCollateral
	case SideBorrow:
		return sideStringBorrow
	default:
		return "unknown"
	}
}

// Opposite returns the other side of the balance sheet.
func (s Side) Opposite() Side {
	if s == SideCollateral {
		return SideBorrow
	}
	return SideCollateral
}

// IsValid checks if the Side value is valid.
func (s Side) IsValid() bool {
	return s == SideCollateral || s == SideBorrow
}

// ParseSide converts "collateral"/"borrow" (case-insensitive) into a Side.
func ParseSide(raw string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case sideStringCollateral:
		return SideCollateral, nil
	case sideStringBorrow, "debt":
		return SideBorrow, nil
	default:
		return SideCollateral, errors.Wrapf(ErrInvalidSide, "%q", raw)
	}
}

// MarshalJSON encodes the side as its string form.
func (s Side) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes the side from its string form.
func (s *Side) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseSide(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// PositionEntry identifies one leg of a candidate trade.
// The zero value (empty Asset) is an empty slot.
type PositionEntry struct {
	Asset AssetID `json:"asset"`
	Side  Side    `json:"side"`
}

// NewPositionEntry builds a populated entry.
func NewPositionEntry(asset AssetID, side Side) PositionEntry {
	return PositionEntry{Asset: asset, Side: side}
}

// IsZero reports whether the entry is an empty slot.
func (e PositionEntry) IsZero() bool {
	return e.Asset == ""
}

// Equal reports whether both entries reference the same asset and side.
// Two empty slots are never equal to a populated one.
func (e PositionEntry) Equal(other PositionEntry) bool {
	return e.Asset == other.Asset && e.Side == other.Side
}

// String returns a human-readable string representation.
func (e PositionEntry) String() string {
	if e.IsZero() {
		return "<empty>"
	}
	return fmt.Sprintf("%s:%s", e.Asset, e.Side)
}

// PositionState is the two-slot selection state of the dashboard.
// To always holds the most recently selected entry.
type PositionState struct {
	From         PositionEntry   `json:"from"`
	To           PositionEntry   `json:"to"`
	IsSingle     bool            `json:"is_single"`
	Interaction  InteractionKind `json:"interaction"`
	BaseCurrency AssetID         `json:"base_currency"`
}

// DefaultBaseCurrency is the settlement asset used when none is configured.
const DefaultBaseCurrency AssetID = "USDC"

// NewPositionState returns the empty selection state.
func NewPositionState(base AssetID) PositionState {
	if base == "" {
		base = DefaultBaseCurrency
	}
	return PositionState{BaseCurrency: base}
}

// Populated returns the number of non-empty slots.
func (s PositionState) Populated() int {
	n := 0
	if !s.From.IsZero() {
		n++
	}
	if !s.To.IsZero() {
		n++
	}
	return n
}

// IsEmpty reports whether no slot is populated.
func (s PositionState) IsEmpty() bool {
	return s.Populated() == 0
}

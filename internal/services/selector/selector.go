// Package selector implements the two-slot asset selection state machine
// behind the margin trade panel and derives the trade classification from it.
//
// All functions are pure: they take a PositionState by value and return the
// next one. Store wraps them for the single writer that owns the live state.
package selector

import (
	"fmt"

	"github.com/pkg/errors"
	entity "github.com/vadiminshakov/marginscope/internal/domain"
)

// SelectAsset toggles (asset, side).
//
// A pair that already occupies a slot is toggled off. Otherwise the new entry
// always lands in To: on an empty To it starts a fresh single selection, on
// the same asset with the opposite side it replaces To in place, and in every
// other case the previous To is demoted to From and the old From is evicted.
func SelectAsset(state entity.PositionState, asset entity.AssetID, side entity.Side) entity.PositionState {
	if asset == "" || !side.IsValid() {
		return state
	}
	entry := entity.NewPositionEntry(asset, side)
	w := windowOf(state)

	if slot := w.indexOf(entry); slot >= 0 {
		w.clear(slot)
		next := w.apply(state)
		next.IsSingle = true
		return withInteraction(next, state.Interaction)
	}

	newest := w.newest()
	var next entity.PositionState
	switch {
	case newest.IsZero():
		w = window{}
		w.replaceNewest(entry)
		next = w.apply(state)
		next.IsSingle = true
	case newest.Asset == asset && newest.Side != side:
		w.replaceNewest(entry)
		next = w.apply(state)
	default:
		w.push(entry)
		next = w.apply(state)
		next.IsSingle = false
	}

	return withInteraction(next, state.Interaction)
}

// DeselectAsset clears the slot holding (asset, side), if any.
// IsSingle is set unconditionally, including when the state becomes empty.
func DeselectAsset(state entity.PositionState, asset entity.AssetID, side entity.Side) entity.PositionState {
	w := windowOf(state)
	if slot := w.indexOf(entity.NewPositionEntry(asset, side)); slot >= 0 {
		w.clear(slot)
	}
	next := w.apply(state)
	next.IsSingle = true
	return withInteraction(next, state.Interaction)
}

// Reset restores the empty selection, keeping the base currency.
func Reset(state entity.PositionState) entity.PositionState {
	return entity.NewPositionState(state.BaseCurrency)
}

// SetBaseCurrency changes the settlement asset used by single-base markets.
func SetBaseCurrency(state entity.PositionState, base entity.AssetID) entity.PositionState {
	if base == "" {
		base = entity.DefaultBaseCurrency
	}
	state.BaseCurrency = base
	return state
}

// SetInteraction records kind when it fits the current classification and
// falls back to the default interaction otherwise.
func SetInteraction(state entity.PositionState, kind entity.InteractionKind) entity.PositionState {
	return withInteraction(state, kind)
}

// Classify derives the trade type of a state. It never panics.
func Classify(state entity.PositionState) entity.TradeType {
	hasFrom, hasTo := !state.From.IsZero(), !state.To.IsZero()
	switch {
	case hasFrom && hasTo && state.From.Side == state.To.Side:
		return entity.TradeTypeSingleSide
	case hasFrom && hasTo:
		return entity.TradeTypeMarginSwap
	case hasFrom || hasTo:
		return entity.TradeTypeSingle
	default:
		return entity.TradeTypeNone
	}
}

// DefaultInteraction is the interaction implied by the selection alone.
func DefaultInteraction(state entity.PositionState) entity.InteractionKind {
	switch Classify(state) {
	case entity.TradeTypeSingle:
		if leadSide(state) == entity.SideCollateral {
			return entity.InteractionSupply
		}
		return entity.InteractionBorrow
	case entity.TradeTypeSingleSide:
		if leadSide(state) == entity.SideCollateral {
			return entity.InteractionSwapCollateral
		}
		return entity.InteractionSwapDebt
	case entity.TradeTypeMarginSwap:
		return entity.InteractionOpen
	default:
		return entity.InteractionNone
	}
}

var interactionLabels = map[entity.InteractionKind]string{
	entity.InteractionSupply:         "Deposit Collateral",
	entity.InteractionWithdraw:       "Withdraw Collateral",
	entity.InteractionBorrow:         "Borrow Funds",
	entity.InteractionRepay:          "Repay Your Debt",
	entity.InteractionSwapCollateral: "Swap Your Collateral",
	entity.InteractionSwapDebt:       "Swap Your Debt",
	entity.InteractionOpen:           "Trade On Margin",
	entity.InteractionTrim:           "Trim Your Position",
}

// Describe returns the intent label shown above the trade panel.
func Describe(state entity.PositionState) string {
	trade := Classify(state)
	if trade == entity.TradeTypeNone {
		return "Select An Asset"
	}
	kind := state.Interaction
	if !kind.CompatibleWith(trade, leadSide(state)) {
		kind = DefaultInteraction(state)
	}
	return interactionLabels[kind]
}

// LookupSingle returns the only selected entry when the state is single.
func LookupSingle(state entity.PositionState) (entity.PositionEntry, bool) {
	if !state.IsSingle || state.Populated() != 1 {
		return entity.PositionEntry{}, false
	}
	if !state.To.IsZero() {
		return state.To, true
	}
	return state.From, true
}

// SinglePositionEntry returns the only selected entry.
// It panics with entity.InvariantError unless exactly one slot is selected
// and IsSingle is set; callers check IsSingle first.
func SinglePositionEntry(state entity.PositionState) entity.PositionEntry {
	entry, ok := LookupSingle(state)
	if !ok {
		panic(entity.InvariantError{
			Op:     "SinglePositionEntry",
			Reason: fmt.Sprintf("is_single=%t populated=%d", state.IsSingle, state.Populated()),
		})
	}
	return entry
}

// SingleAsset returns the asset of the only selected entry. Panics like SinglePositionEntry.
func SingleAsset(state entity.PositionState) entity.AssetID {
	return SinglePositionEntry(state).Asset
}

// CanSelect checks market-level restrictions for an entry: single-base
// markets only lend out their base currency.
func CanSelect(protocol entity.Protocol, base entity.AssetID, entry entity.PositionEntry) error {
	if protocol.SingleBaseAsset() && entry.Side == entity.SideBorrow && entry.Asset != base {
		return errors.Wrapf(entity.ErrBorrowNotAllowed, "%s on %s (base %s)", entry.Asset, protocol, base)
	}
	return nil
}

// leadSide is the side of the most recent populated slot.
func leadSide(state entity.PositionState) entity.Side {
	if !state.To.IsZero() {
		return state.To.Side
	}
	return state.From.Side
}

func withInteraction(state entity.PositionState, preferred entity.InteractionKind) entity.PositionState {
	if preferred.CompatibleWith(Classify(state), leadSide(state)) {
		state.Interaction = preferred
		return state
	}
	state.Interaction = DefaultInteraction(state)
	return state
}

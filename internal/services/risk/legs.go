package risk

import (
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/marginscope/internal/domain"
	"github.com/vadiminshakov/marginscope/internal/services/selector"
)

// Leg is a signed balance change of one asset on one side. A positive Delta
// increases collateral or decreases debt, a negative one does the opposite.
type Leg struct {
	Asset domain.AssetID
	Side  domain.Side
	// Delta in token units.
	Delta decimal.Decimal
}

// Amounts are the user-entered token amounts for the From and To slots.
// Single selections read To. Signs are ignored.
type Amounts struct {
	From decimal.Decimal
	To   decimal.Decimal
}

// LegsFor turns a selection and its amounts into balance changes.
func LegsFor(state domain.PositionState, amounts Amounts) []Leg {
	trade := selector.Classify(state)
	kind := state.Interaction
	lead := state.To
	if lead.IsZero() {
		lead = state.From
	}
	if !kind.CompatibleWith(trade, lead.Side) {
		kind = selector.DefaultInteraction(state)
	}

	from, to := amounts.From.Abs(), amounts.To.Abs()

	switch trade {
	case domain.TradeTypeSingle:
		switch kind {
		case domain.InteractionSupply, domain.InteractionRepay:
			return []Leg{{Asset: lead.Asset, Side: lead.Side, Delta: to}}
		case domain.InteractionWithdraw, domain.InteractionBorrow:
			return []Leg{{Asset: lead.Asset, Side: lead.Side, Delta: to.Neg()}}
		}
	case domain.TradeTypeSingleSide:
		if kind == domain.InteractionSwapCollateral {
			// sell From collateral into To collateral
			return []Leg{
				{Asset: state.From.Asset, Side: domain.SideCollateral, Delta: from.Neg()},
				{Asset: state.To.Asset, Side: domain.SideCollateral, Delta: to},
			}
		}
		// borrow To to repay From
		return []Leg{
			{Asset: state.From.Asset, Side: domain.SideBorrow, Delta: from},
			{Asset: state.To.Asset, Side: domain.SideBorrow, Delta: to.Neg()},
		}
	case domain.TradeTypeMarginSwap:
		sign := decimal.NewFromInt(1)
		if kind == domain.InteractionTrim {
			sign = sign.Neg()
		}
		// opening adds collateral and debt, trimming removes both
		legFor := func(e domain.PositionEntry, amount decimal.Decimal) Leg {
			if e.Side == domain.SideCollateral {
				return Leg{Asset: e.Asset, Side: e.Side, Delta: amount.Mul(sign)}
			}
			return Leg{Asset: e.Asset, Side: e.Side, Delta: amount.Mul(sign).Neg()}
		}
		return []Leg{legFor(state.From, from), legFor(state.To, to)}
	}

	return nil
}

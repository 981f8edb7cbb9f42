// Package lender adapts protocol-specific reserve and account data to the
// single accessor the risk projector works with.
package lender

import (
	"math/big"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/marginscope/internal/domain"
)

// wadDecimals is the scale of 1e18 mantissas used by Compound-style factors.
const wadDecimals = 18

// bpsDecimals is the scale of AAVE basis-point parameters.
const bpsDecimals = 4

// Lender exposes per-asset risk parameters and account balances of one market.
type Lender interface {
	// Protocol returns the protocol family of the market.
	Protocol() domain.Protocol
	// Assets lists every asset listed on the market in a stable order.
	Assets() []domain.AssetID
	// LiquidationFactor is the share of an asset's collateral value counted
	// toward the health factor (liquidation threshold or collateral factor).
	// ok is false when the market has no factor for the asset.
	LiquidationFactor(asset domain.AssetID) (factor decimal.Decimal, ok bool)
	// Holding returns the account's raw position in asset, in token units.
	Holding(asset domain.AssetID) Holding
	// Counted splits a holding into the collateral and debt that enter the
	// risk metrics under the market's accounting rules.
	Counted(asset domain.AssetID, h Holding) (collateral, debt decimal.Decimal)
}

// Holding is an account's raw position in one asset, before the market
// decides what counts as collateral. Projected holdings may go negative;
// Counted clamps them.
type Holding struct {
	Supplied decimal.Decimal
	Borrowed decimal.Decimal
}

// Apply returns h after a signed change on side. A positive delta supplies
// on the collateral side and repays on the borrow side.
func (h Holding) Apply(side domain.Side, delta decimal.Decimal) Holding {
	switch side {
	case domain.SideCollateral:
		h.Supplied = h.Supplied.Add(delta)
	case domain.SideBorrow:
		h.Borrowed = h.Borrowed.Sub(delta)
	}
	return h
}

func (h Holding) clamped() (decimal.Decimal, decimal.Decimal) {
	return positive(h.Supplied), positive(h.Borrowed)
}

// Balances returns the account's current collateral and debt of asset in
// token units.
func Balances(l Lender, asset domain.AssetID) (collateral, debt decimal.Decimal) {
	return l.Counted(asset, l.Holding(asset))
}

// Reserves carries the raw market data for any supported protocol.
// Only the field matching the protocol is read.
type Reserves struct {
	Aave       []AaveReserve
	Compound   []CompoundMarket
	CompoundV3 *CometMarket
}

// New builds the Lender for the protocol.
func New(p domain.Protocol, r Reserves) (Lender, error) {
	switch p {
	case domain.ProtocolAave:
		return NewAave(r.Aave), nil
	case domain.ProtocolCompound:
		return NewCompound(r.Compound), nil
	case domain.ProtocolCompoundV3:
		if r.CompoundV3 == nil {
			return nil, errors.New("compound v3 market data is missing")
		}
		return NewComet(*r.CompoundV3), nil
	default:
		return nil, errors.Wrapf(domain.ErrInvalidProtocol, "unsupported protocol: %s", p)
	}
}

// fromLedger converts a raw fixed-point ledger integer into an exact decimal.
func fromLedger(v *big.Int, decimals int32) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -decimals)
}

func positive(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

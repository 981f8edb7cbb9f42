package lender

import (
	"math/big"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/marginscope/internal/domain"
)

// CometCollateral is a collateral asset of a Compound-V3 (Comet) market.
type CometCollateral struct {
	Asset domain.Asset
	// LiquidateCollateralFactor 1e18-scaled.
	LiquidateCollateralFactor *big.Int
	Balance                   *big.Int
}

// CometMarket is a Comet market: one borrowable base asset plus collaterals.
type CometMarket struct {
	Base domain.Asset
	// BasePrincipal is the signed present value of the account's base
	// balance: positive for supply, negative for borrow.
	BasePrincipal *big.Int
	Collaterals   []CometCollateral
}

// Comet is the accessor for Compound-V3 markets. Supplied base earns
// interest but is not collateral.
type Comet struct {
	market      CometMarket
	collaterals map[domain.AssetID]CometCollateral
	order       []domain.AssetID
}

// NewComet indexes the collateral assets.
func NewComet(m CometMarket) *Comet {
	c := &Comet{
		market:      m,
		collaterals: make(map[domain.AssetID]CometCollateral, len(m.Collaterals)),
		order:       []domain.AssetID{m.Base.ID},
	}
	for _, col := range m.Collaterals {
		if col.Asset.ID == m.Base.ID {
			continue
		}
		if _, dup := c.collaterals[col.Asset.ID]; !dup {
			c.order = append(c.order, col.Asset.ID)
		}
		c.collaterals[col.Asset.ID] = col
	}
	return c
}

func (c *Comet) Protocol() domain.Protocol { return domain.ProtocolCompoundV3 }

func (c *Comet) Assets() []domain.AssetID {
	return append([]domain.AssetID(nil), c.order...)
}

// Base returns the market's base asset.
func (c *Comet) Base() domain.AssetID {
	return c.market.Base.ID
}

// LiquidationFactor returns the liquidate collateral factor. The base asset
// has none.
func (c *Comet) LiquidationFactor(asset domain.AssetID) (decimal.Decimal, bool) {
	col, ok := c.collaterals[asset]
	if !ok || col.LiquidateCollateralFactor == nil {
		return decimal.Zero, false
	}
	return fromLedger(col.LiquidateCollateralFactor, wadDecimals), true
}

// Holding splits the signed base principal into supply and borrow; other
// assets hold collateral only.
func (c *Comet) Holding(asset domain.AssetID) Holding {
	if asset == c.market.Base.ID {
		principal := fromLedger(c.market.BasePrincipal, c.market.Base.Decimals)
		return Holding{Supplied: positive(principal), Borrowed: positive(principal.Neg())}
	}
	col, ok := c.collaterals[asset]
	if !ok {
		return Holding{Supplied: decimal.Zero, Borrowed: decimal.Zero}
	}
	return Holding{Supplied: fromLedger(col.Balance, col.Asset.Decimals), Borrowed: decimal.Zero}
}

// Counted nets base supply against the base borrow: supplying base repays
// debt first and never becomes collateral.
func (c *Comet) Counted(asset domain.AssetID, h Holding) (decimal.Decimal, decimal.Decimal) {
	if asset == c.market.Base.ID {
		return decimal.Zero, positive(h.Borrowed.Sub(h.Supplied))
	}
	return h.clamped()
}

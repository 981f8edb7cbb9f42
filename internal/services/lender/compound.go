package lender

import (
	"math/big"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/marginscope/internal/domain"
)

// CompoundMarket is one cToken market of a Compound-V2-style comptroller
// together with the account's position in it.
type CompoundMarket struct {
	// Asset is the underlying token.
	Asset domain.Asset
	// CollateralFactorMantissa 1e18-scaled, 0.75e18 for 75%.
	CollateralFactorMantissa *big.Int
	// ExchangeRateMantissa underlying per cToken, scaled by 1e18 in raw units.
	ExchangeRateMantissa *big.Int
	CTokenBalance        *big.Int
	BorrowBalance        *big.Int
	// Entered reports whether the market backs the account's borrows.
	Entered bool
}

// Compound is the accessor for Compound-V2-style markets.
type Compound struct {
	markets map[domain.AssetID]CompoundMarket
	order   []domain.AssetID
}

// NewCompound indexes the markets by underlying asset.
func NewCompound(markets []CompoundMarket) *Compound {
	c := &Compound{markets: make(map[domain.AssetID]CompoundMarket, len(markets))}
	for _, m := range markets {
		if _, dup := c.markets[m.Asset.ID]; !dup {
			c.order = append(c.order, m.Asset.ID)
		}
		c.markets[m.Asset.ID] = m
	}
	return c
}

func (c *Compound) Protocol() domain.Protocol { return domain.ProtocolCompound }

func (c *Compound) Assets() []domain.AssetID {
	return append([]domain.AssetID(nil), c.order...)
}

// LiquidationFactor returns the collateral factor. Markets the account has
// not entered count with a zero factor.
func (c *Compound) LiquidationFactor(asset domain.AssetID) (decimal.Decimal, bool) {
	m, ok := c.markets[asset]
	if !ok || m.CollateralFactorMantissa == nil {
		return decimal.Zero, false
	}
	if !m.Entered {
		return decimal.Zero, true
	}
	return fromLedger(m.CollateralFactorMantissa, wadDecimals), true
}

// Holding converts the cToken balance to underlying via the exchange rate.
func (c *Compound) Holding(asset domain.AssetID) Holding {
	m, ok := c.markets[asset]
	if !ok {
		return Holding{Supplied: decimal.Zero, Borrowed: decimal.Zero}
	}
	supplied := decimal.Zero
	if m.CTokenBalance != nil && m.ExchangeRateMantissa != nil {
		// raw underlying = cTokens * exchangeRate / 1e18
		underlying := fromLedger(m.CTokenBalance, 0).Mul(fromLedger(m.ExchangeRateMantissa, wadDecimals))
		supplied = underlying.Shift(-m.Asset.Decimals)
	}
	return Holding{Supplied: supplied, Borrowed: fromLedger(m.BorrowBalance, m.Asset.Decimals)}
}

// Counted drops supply of markets the account has not entered.
func (c *Compound) Counted(asset domain.AssetID, h Holding) (decimal.Decimal, decimal.Decimal) {
	collateral, debt := h.clamped()
	if m, ok := c.markets[asset]; ok && !m.Entered {
		collateral = decimal.Zero
	}
	return collateral, debt
}

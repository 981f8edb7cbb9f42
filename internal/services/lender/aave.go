package lender

import (
	"math/big"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/marginscope/internal/domain"
)

// AaveReserve is one reserve of an AAVE-style pool together with the
// account's position in it. Amounts are raw ledger integers.
type AaveReserve struct {
	Asset domain.Asset
	// LiquidationThresholdBps e.g. 8250 for 82.5%.
	LiquidationThresholdBps  uint64
	UsageAsCollateralEnabled bool
	ATokenBalance            *big.Int
	StableDebt               *big.Int
	VariableDebt             *big.Int
}

// Aave is the accessor for AAVE-style pools.
type Aave struct {
	reserves map[domain.AssetID]AaveReserve
	order    []domain.AssetID
}

// NewAave indexes the reserves by asset.
func NewAave(reserves []AaveReserve) *Aave {
	a := &Aave{reserves: make(map[domain.AssetID]AaveReserve, len(reserves))}
	for _, r := range reserves {
		if _, dup := a.reserves[r.Asset.ID]; !dup {
			a.order = append(a.order, r.Asset.ID)
		}
		a.reserves[r.Asset.ID] = r
	}
	return a
}

func (a *Aave) Protocol() domain.Protocol { return domain.ProtocolAave }

func (a *Aave) Assets() []domain.AssetID {
	return append([]domain.AssetID(nil), a.order...)
}

// LiquidationFactor converts the basis-point liquidation threshold. Reserves
// not enabled as collateral count with a zero threshold.
func (a *Aave) LiquidationFactor(asset domain.AssetID) (decimal.Decimal, bool) {
	r, ok := a.reserves[asset]
	if !ok {
		return decimal.Zero, false
	}
	if !r.UsageAsCollateralEnabled {
		return decimal.Zero, true
	}
	return decimal.New(int64(r.LiquidationThresholdBps), -bpsDecimals), true
}

// Holding returns the aToken balance and stable plus variable debt.
func (a *Aave) Holding(asset domain.AssetID) Holding {
	r, ok := a.reserves[asset]
	if !ok {
		return Holding{Supplied: decimal.Zero, Borrowed: decimal.Zero}
	}
	return Holding{
		Supplied: fromLedger(r.ATokenBalance, r.Asset.Decimals),
		Borrowed: fromLedger(r.StableDebt, r.Asset.Decimals).Add(fromLedger(r.VariableDebt, r.Asset.Decimals)),
	}
}

// Counted drops supply of reserves not used as collateral.
func (a *Aave) Counted(asset domain.AssetID, h Holding) (decimal.Decimal, decimal.Decimal) {
	collateral, debt := h.clamped()
	if r, ok := a.reserves[asset]; ok && !r.UsageAsCollateralEnabled {
		collateral = decimal.Zero
	}
	return collateral, debt
}

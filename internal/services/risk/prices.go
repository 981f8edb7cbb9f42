package risk

import (
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/marginscope/internal/domain"
)

// PriceBook provides USD oracle prices.
type PriceBook interface {
	Price(asset domain.AssetID) (decimal.Decimal, bool)
}

// Prices is a map-backed PriceBook.
type Prices map[domain.AssetID]decimal.Decimal

// Price returns the USD price of an asset. Non-positive quotes count as missing.
func (p Prices) Price(asset domain.AssetID) (decimal.Decimal, bool) {
	v, ok := p[asset]
	if !ok || !v.IsPositive() {
		return decimal.Zero, false
	}
	return v, true
}

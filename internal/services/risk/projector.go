// Package risk projects how a candidate trade moves an account's collateral,
// debt, loan-to-value and health factor.
//
// All aggregation runs on exact decimals; the only rounding happens in the
// final divisions. Conversion to floating point is left to the display layer.
package risk

import (
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/marginscope/internal/domain"
	"github.com/vadiminshakov/marginscope/internal/services/lender"
	"go.uber.org/zap"
)

// ratioPrecision number of decimal places kept by LTV, threshold and health factor divisions.
const ratioPrecision = 18

// Projector computes before/after risk metrics. It holds no mutable state,
// so identical inputs always give identical results.
type Projector struct {
	l *zap.Logger
}

// NewProjector returns a projector logging through l.
func NewProjector(l *zap.Logger) *Projector {
	if l == nil {
		l = zap.NewNop()
	}
	return &Projector{l: l}
}

// ProjectSelection projects the trade implied by the selection and amounts.
func (p *Projector) ProjectSelection(state domain.PositionState, l lender.Lender, prices PriceBook, amounts Amounts) domain.RiskDelta {
	return p.Project(l, prices, LegsFor(state, amounts))
}

// Project applies legs to the account held on l and returns the risk delta.
// Missing prices or factors degrade the result instead of failing.
func (p *Projector) Project(l lender.Lender, prices PriceBook, legs []Leg) domain.RiskDelta {
	order, current := currentHoldings(l, legs)

	before, missing := snapshot(l, prices, order, current)
	after, _ := snapshot(l, prices, order, applyLegs(current, legs))

	if len(missing) > 0 {
		symbols := make([]string, 0, len(missing))
		for _, a := range missing {
			symbols = append(symbols, a.String())
		}
		p.l.Debug("projecting without prices",
			zap.String("protocol", l.Protocol().String()),
			zap.Strings("assets", symbols),
		)
	}

	return domain.RiskDelta{
		Before:            before,
		After:             after,
		HealthFactorDelta: healthFactorChange(before.HealthFactor, after.HealthFactor),
		LTVDelta:          after.LoanToValue.Sub(before.LoanToValue),
	}
}

// currentHoldings reads holdings of every listed asset plus any unlisted leg asset.
func currentHoldings(l lender.Lender, legs []Leg) ([]domain.AssetID, map[domain.AssetID]lender.Holding) {
	order := l.Assets()
	seen := make(map[domain.AssetID]bool, len(order))
	for _, a := range order {
		seen[a] = true
	}
	for _, leg := range legs {
		if !seen[leg.Asset] {
			seen[leg.Asset] = true
			order = append(order, leg.Asset)
		}
	}

	holdings := make(map[domain.AssetID]lender.Holding, len(order))
	for _, a := range order {
		holdings[a] = l.Holding(a)
	}
	return order, holdings
}

// applyLegs returns a new holding map. What the result counts for is left to
// the lender, so a leg never turns into collateral the market would ignore.
func applyLegs(current map[domain.AssetID]lender.Holding, legs []Leg) map[domain.AssetID]lender.Holding {
	next := make(map[domain.AssetID]lender.Holding, len(current))
	for a, h := range current {
		next[a] = h
	}
	for _, leg := range legs {
		next[leg.Asset] = next[leg.Asset].Apply(leg.Side, leg.Delta)
	}
	return next
}

// snapshot aggregates USD values. The health factor is the value-weighted
// sum of liquidation factors over debt, which equals total collateral times
// the weighted average threshold over debt.
func snapshot(l lender.Lender, prices PriceBook, order []domain.AssetID, holdings map[domain.AssetID]lender.Holding) (domain.RiskSnapshot, []domain.AssetID) {
	var (
		collateralValue = decimal.Zero
		debtValue       = decimal.Zero
		weighted        = decimal.Zero
		missing         []domain.AssetID
	)

	for _, a := range order {
		collateral, debt := l.Counted(a, holdings[a])
		if collateral.IsZero() && debt.IsZero() {
			continue
		}
		price, ok := prices.Price(a)
		if !ok {
			missing = append(missing, a)
			continue
		}

		cv := collateral.Mul(price)
		collateralValue = collateralValue.Add(cv)
		debtValue = debtValue.Add(debt.Mul(price))

		if factor, ok := l.LiquidationFactor(a); ok {
			weighted = weighted.Add(cv.Mul(factor))
		}
	}

	s := domain.RiskSnapshot{
		TotalCollateralValue: collateralValue,
		TotalDebtValue:       debtValue,
		LoanToValue:          decimal.Zero,
		LiquidationThreshold: decimal.Zero,
		HealthFactor:         domain.InfiniteHealthFactor(),
	}
	if collateralValue.IsPositive() {
		s.LoanToValue = debtValue.DivRound(collateralValue, ratioPrecision)
		s.LiquidationThreshold = weighted.DivRound(collateralValue, ratioPrecision)
	}
	if debtValue.IsPositive() {
		s.HealthFactor = domain.NewHealthFactor(weighted.DivRound(debtValue, ratioPrecision))
	}
	return s, missing
}

func healthFactorChange(before, after domain.HealthFactor) domain.HealthFactorChange {
	switch {
	case before.IsInfinite() && after.IsInfinite():
		return domain.HealthFactorChange{Kind: domain.HealthFactorChangeRemainsInfinite, Value: decimal.Zero}
	case after.IsInfinite():
		return domain.HealthFactorChange{Kind: domain.HealthFactorChangeSetToInfinite, Value: decimal.Zero}
	case before.IsInfinite():
		return domain.HealthFactorChange{Kind: domain.HealthFactorChangeReducedFromInfinite, Value: decimal.Zero}
	default:
		return domain.HealthFactorChange{
			Kind:  domain.HealthFactorChangeNumeric,
			Value: after.Value().Sub(before.Value()),
		}
	}
}

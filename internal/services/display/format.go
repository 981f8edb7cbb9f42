// Package display renders risk figures for the dashboard. It is the only
// place where decimals are converted to floating point.
package display

import (
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/marginscope/internal/domain"
)

const (
	amountFormat = "#,###.##"
	signedFormat = "+#,###.##"

	infinity = "∞"
)

var (
	// HealthFactorDisplayCap finite health factors at or above it are shown as "> 10,000".
	HealthFactorDisplayCap = decimal.NewFromInt(10_000)
	// ValueDisplayCap USD values at or above it are shown as "> $1,000,000".
	ValueDisplayCap = decimal.NewFromInt(1_000_000)

	hundred = decimal.NewFromInt(100)
)

// SnapshotView is a RiskSnapshot rendered for display.
type SnapshotView struct {
	Collateral           string `json:"collateral"`
	Debt                 string `json:"debt"`
	LoanToValue          string `json:"loan_to_value"`
	LiquidationThreshold string `json:"liquidation_threshold"`
	HealthFactor         string `json:"health_factor"`
}

// RiskView is a RiskDelta rendered for display.
type RiskView struct {
	Before             SnapshotView `json:"before"`
	After              SnapshotView `json:"after"`
	HealthFactorChange string       `json:"health_factor_change"`
	LTVChange          string       `json:"ltv_change"`
	Improves           bool         `json:"improves"`
}

// HealthFactor renders hf with two decimals, "∞" for the infinite sentinel.
func HealthFactor(hf domain.HealthFactor) string {
	if hf.IsInfinite() {
		return infinity
	}
	if hf.Value().GreaterThanOrEqual(HealthFactorDisplayCap) {
		return "> " + humanize.FormatFloat("#,###.", HealthFactorDisplayCap.InexactFloat64())
	}
	return humanize.FormatFloat(amountFormat, hf.Value().InexactFloat64())
}

// USD renders a dollar value with thousands separators.
func USD(v decimal.Decimal) string {
	if v.GreaterThanOrEqual(ValueDisplayCap) {
		return "> $" + humanize.FormatFloat("#,###.", ValueDisplayCap.InexactFloat64())
	}
	if v.IsNegative() {
		return "-$" + humanize.FormatFloat(amountFormat, v.Neg().InexactFloat64())
	}
	return "$" + humanize.FormatFloat(amountFormat, v.InexactFloat64())
}

// Percent renders a ratio as a percentage, 0.4166 -> "41.66%".
func Percent(ratio decimal.Decimal) string {
	return humanize.FormatFloat(amountFormat, ratio.Mul(hundred).InexactFloat64()) + "%"
}

// HealthFactorChange renders the change, including transitions through infinity.
func HealthFactorChange(c domain.HealthFactorChange) string {
	switch c.Kind {
	case domain.HealthFactorChangeSetToInfinite:
		return "→ " + infinity
	case domain.HealthFactorChangeReducedFromInfinite:
		return "from " + infinity
	case domain.HealthFactorChangeRemainsInfinite:
		return infinity
	default:
		return humanize.FormatFloat(signedFormat, c.Value.InexactFloat64())
	}
}

// Snapshot renders a single snapshot.
func Snapshot(s domain.RiskSnapshot) SnapshotView {
	return SnapshotView{
		Collateral:           USD(s.TotalCollateralValue),
		Debt:                 USD(s.TotalDebtValue),
		LoanToValue:          Percent(s.LoanToValue),
		LiquidationThreshold: Percent(s.LiquidationThreshold),
		HealthFactor:         HealthFactor(s.HealthFactor),
	}
}

// Summary renders a full projection.
func Summary(d domain.RiskDelta) RiskView {
	return RiskView{
		Before:             Snapshot(d.Before),
		After:              Snapshot(d.After),
		HealthFactorChange: HealthFactorChange(d.HealthFactorDelta),
		LTVChange:          humanize.FormatFloat(signedFormat, d.LTVDelta.Mul(hundred).InexactFloat64()) + "%",
		Improves:           d.HealthFactorDelta.IsImprovement(),
	}
}

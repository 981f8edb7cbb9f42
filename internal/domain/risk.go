package domain

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const healthFactorInfiniteString = "infinite"

// HealthFactor is either a finite ratio or the "infinite" sentinel used
// when there is no debt. It never carries a float infinity.
type HealthFactor struct {
	value    decimal.Decimal
	infinite bool
}

// InfiniteHealthFactor returns the zero-debt sentinel.
func InfiniteHealthFactor() HealthFactor {
	return HealthFactor{infinite: true}
}

// NewHealthFactor returns a finite health factor.
func NewHealthFactor(v decimal.Decimal) HealthFactor {
	return HealthFactor{value: v}
}

// IsInfinite reports whether this is the zero-debt sentinel.
func (h HealthFactor) IsInfinite() bool {
	return h.infinite
}

// Value returns the finite value. It is zero for the sentinel.
func (h HealthFactor) Value() decimal.Decimal {
	if h.infinite {
		return decimal.Zero
	}
	return h.value
}

// Equal compares two health factors.
func (h HealthFactor) Equal(other HealthFactor) bool {
	if h.infinite || other.infinite {
		return h.infinite == other.infinite
	}
	return h.value.Equal(other.value)
}

// String returns "infinite" or the decimal value.
func (h HealthFactor) String() string {
	if h.infinite {
		return healthFactorInfiniteString
	}
	return h.value.String()
}

// MarshalJSON encodes the sentinel as "infinite" and finite values as decimal strings.
func (h HealthFactor) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON decodes the representation produced by MarshalJSON.
func (h *HealthFactor) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == healthFactorInfiniteString {
		*h = InfiniteHealthFactor()
		return nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return errors.Wrap(err, "decode health factor")
	}
	*h = NewHealthFactor(v)
	return nil
}

// RiskSnapshot aggregated risk metrics of an account, in USD.
type RiskSnapshot struct {
	TotalCollateralValue decimal.Decimal `json:"total_collateral_value"`
	TotalDebtValue       decimal.Decimal `json:"total_debt_value"`
	LoanToValue          decimal.Decimal `json:"loan_to_value"`
	// LiquidationThreshold collateral-value weighted average threshold.
	LiquidationThreshold decimal.Decimal `json:"liquidation_threshold"`
	HealthFactor         HealthFactor    `json:"health_factor"`
}

// HealthFactorChangeKind tells how the health factor moved.
type HealthFactorChangeKind string

const (
	// HealthFactorChangeNumeric both values are finite; Value holds after - before.
	HealthFactorChangeNumeric HealthFactorChangeKind = "numeric"
	// HealthFactorChangeSetToInfinite the trade removes all debt.
	HealthFactorChangeSetToInfinite HealthFactorChangeKind = "set_to_infinite"
	// HealthFactorChangeReducedFromInfinite the trade introduces debt.
	HealthFactorChangeReducedFromInfinite HealthFactorChangeKind = "reduced_from_infinite"
	// HealthFactorChangeRemainsInfinite no debt before or after.
	HealthFactorChangeRemainsInfinite HealthFactorChangeKind = "remains_infinite"
)

// HealthFactorChange health factor delta with explicit sentinel transitions.
type HealthFactorChange struct {
	Kind HealthFactorChangeKind `json:"kind"`
	// Value is meaningful only for HealthFactorChangeNumeric.
	Value decimal.Decimal `json:"value"`
}

// IsImprovement reports whether the change makes the account safer.
func (c HealthFactorChange) IsImprovement() bool {
	switch c.Kind {
	case HealthFactorChangeSetToInfinite:
		return true
	case HealthFactorChangeNumeric:
		return c.Value.IsPositive()
	default:
		return false
	}
}

// RiskDelta before/after risk metrics of a candidate trade.
type RiskDelta struct {
	Before            RiskSnapshot       `json:"before"`
	After             RiskSnapshot       `json:"after"`
	HealthFactorDelta HealthFactorChange `json:"health_factor_delta"`
	LTVDelta          decimal.Decimal    `json:"ltv_delta"`
}

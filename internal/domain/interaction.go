package domain

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// InteractionKind is the concrete user action behind a selection.
type InteractionKind int

const (
	InteractionNone InteractionKind = iota
	InteractionSupply
	InteractionWithdraw
	InteractionBorrow
	InteractionRepay
	InteractionSwapCollateral
	InteractionSwapDebt
	InteractionOpen
	InteractionTrim
)

// interaction string constants to avoid magic strings
var interactionStrings = map[InteractionKind]string{
	InteractionNone:           "none",
	InteractionSupply:         "supply",
	InteractionWithdraw:       "withdraw",
	InteractionBorrow:         "borrow",
	InteractionRepay:          "repay",
	InteractionSwapCollateral: "swap_collateral",
	InteractionSwapDebt:       "swap_debt",
	InteractionOpen:           "open",
	InteractionTrim:           "trim",
}

// ErrInvalidInteraction is returned for unknown interaction names.
var ErrInvalidInteraction = errors.New("invalid interaction")

// String returns the string representation of the interaction.
func (k InteractionKind) String() string {
	if s, ok := interactionStrings[k]; ok {
		return s
	}
	return "unknown"
}

// ParseInteraction converts a string into an InteractionKind.
func ParseInteraction(raw string) (InteractionKind, error) {
	needle := strings.ToLower(strings.TrimSpace(raw))
	for kind, s := range interactionStrings {
		if s == needle {
			return kind, nil
		}
	}
	return InteractionNone, errors.Wrapf(ErrInvalidInteraction, "%q", raw)
}

// MarshalJSON encodes the interaction as its string form.
func (k InteractionKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes the interaction from its string form.
func (k *InteractionKind) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseInteraction(raw)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// CompatibleWith reports whether the interaction is meaningful for the given
// classification. side is the side of the most recent selection.
func (k InteractionKind) CompatibleWith(trade TradeType, side Side) bool {
	switch trade {
	case TradeTypeNone:
		return k == InteractionNone
	case TradeTypeSingle:
		if side == SideCollateral {
			return k == InteractionSupply || k == InteractionWithdraw
		}
		return k == InteractionBorrow || k == InteractionRepay
	case TradeTypeSingleSide:
		if side == SideCollateral {
			return k == InteractionSwapCollateral
		}
		return k == InteractionSwapDebt
	case TradeTypeMarginSwap:
		return k == InteractionOpen || k == InteractionTrim
	default:
		return false
	}
}

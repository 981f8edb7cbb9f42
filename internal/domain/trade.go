package domain

// TradeType classifies the current selection.
type TradeType int

const (
	// TradeTypeNone no slot populated.
	TradeTypeNone TradeType = iota
	// TradeTypeSingle one slot populated: plain supply, withdraw, borrow or repay.
	TradeTypeSingle
	// TradeTypeSingleSide both slots on the same side: asset-for-asset swap.
	TradeTypeSingleSide
	// TradeTypeMarginSwap slots on opposite sides: leveraged open or trim.
	TradeTypeMarginSwap
)

// String returns the string representation of the trade type.
func (t TradeType) String() string {
	switch t {
	case TradeTypeNone:
		return "none"
	case TradeTypeSingle:
		return "single"
	case TradeTypeSingleSide:
		return "single_side"
	case TradeTypeMarginSwap:
		return "margin_swap"
	default:
		return "unknown"
	}
}

// MarshalText encodes the trade type as its string form.
func (t TradeType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

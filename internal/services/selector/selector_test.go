package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	entity "github.com/vadiminshakov/marginscope/internal/domain"
)

const (
	usdc entity.AssetID = "USDC"
	dai  entity.AssetID = "DAI"
	weth entity.AssetID = "WETH"
	wbtc entity.AssetID = "WBTC"
)

func empty() entity.PositionState {
	return entity.NewPositionState(usdc)
}

func entry(a entity.AssetID, s entity.Side) entity.PositionEntry {
	return entity.NewPositionEntry(a, s)
}

func TestSelectAsset_FirstSelection(t *testing.T) {
	state := SelectAsset(empty(), usdc, entity.SideCollateral)

	assert.Equal(t, entry(usdc, entity.SideCollateral), state.To)
	assert.True(t, state.From.IsZero())
	assert.True(t, state.IsSingle)
	assert.Equal(t, entity.TradeTypeSingle, Classify(state))
	assert.Equal(t, entity.InteractionSupply, state.Interaction)
}

func TestSelectAsset_ToggleOffIsIdempotent(t *testing.T) {
	state := SelectAsset(empty(), usdc, entity.SideCollateral)
	state = SelectAsset(state, usdc, entity.SideCollateral)

	assert.True(t, state.IsEmpty())
	assert.Equal(t, entity.TradeTypeNone, Classify(state))
	assert.Equal(t, entity.InteractionNone, state.Interaction)
	assert.Equal(t, Classify(empty()), Classify(state))
}

func TestSelectAsset_ToggleOffFrom(t *testing.T) {
	state := SelectAsset(empty(), usdc, entity.SideCollateral)
	state = SelectAsset(state, weth, entity.SideBorrow)
	state = SelectAsset(state, usdc, entity.SideCollateral)

	assert.True(t, state.From.IsZero())
	assert.Equal(t, entry(weth, entity.SideBorrow), state.To)
	assert.True(t, state.IsSingle)
	assert.Equal(t, entity.TradeTypeSingle, Classify(state))
}

func TestSelectAsset_SameSideIsSingleSide(t *testing.T) {
	state := SelectAsset(empty(), usdc, entity.SideCollateral)
	state = SelectAsset(state, dai, entity.SideCollateral)

	assert.Equal(t, entry(usdc, entity.SideCollateral), state.From)
	assert.Equal(t, entry(dai, entity.SideCollateral), state.To)
	assert.False(t, state.IsSingle)
	assert.Equal(t, entity.TradeTypeSingleSide, Classify(state))
	assert.Equal(t, entity.InteractionSwapCollateral, state.Interaction)
	assert.Equal(t, "Swap Your Collateral", Describe(state))
}

func TestSelectAsset_OppositeSidesIsMarginSwap(t *testing.T) {
	state := SelectAsset(empty(), usdc, entity.SideCollateral)
	state = SelectAsset(state, weth, entity.SideBorrow)

	assert.Equal(t, entity.TradeTypeMarginSwap, Classify(state))
	assert.False(t, state.IsSingle)
	assert.Equal(t, entity.InteractionOpen, state.Interaction)
	assert.Equal(t, "Trade On Margin", Describe(state))
}

func TestSelectAsset_RollingWindowEvictsOldest(t *testing.T) {
	state := SelectAsset(empty(), usdc, entity.SideCollateral)
	state = SelectAsset(state, weth, entity.SideBorrow)
	state = SelectAsset(state, wbtc, entity.SideCollateral)

	assert.Equal(t, entry(weth, entity.SideBorrow), state.From)
	assert.Equal(t, entry(wbtc, entity.SideCollateral), state.To)
	assert.False(t, state.IsSingle)
	for _, e := range []entity.PositionEntry{state.From, state.To} {
		assert.NotEqual(t, usdc, e.Asset)
	}
}

func TestSelectAsset_OppositeSideOfSameAssetFlipsTo(t *testing.T) {
	t.Run("with populated from", func(t *testing.T) {
		state := SelectAsset(empty(), dai, entity.SideBorrow)
		state = SelectAsset(state, weth, entity.SideCollateral)
		state = SelectAsset(state, weth, entity.SideBorrow)

		assert.Equal(t, entry(dai, entity.SideBorrow), state.From)
		assert.Equal(t, entry(weth, entity.SideBorrow), state.To)
		assert.False(t, state.IsSingle)
		assert.Equal(t, entity.TradeTypeSingleSide, Classify(state))
		assert.Equal(t, "Swap Your Debt", Describe(state))
	})

	t.Run("single selection stays single", func(t *testing.T) {
		state := SelectAsset(empty(), weth, entity.SideCollateral)
		state = SelectAsset(state, weth, entity.SideBorrow)

		assert.True(t, state.From.IsZero())
		assert.Equal(t, entry(weth, entity.SideBorrow), state.To)
		assert.True(t, state.IsSingle)
		assert.Equal(t, entity.InteractionBorrow, state.Interaction)
	})
}

func TestSelectAsset_EmptyToRestartsSelection(t *testing.T) {
	state := SelectAsset(empty(), usdc, entity.SideCollateral)
	state = SelectAsset(state, weth, entity.SideBorrow)
	// toggle off To, leaving only From populated
	state = SelectAsset(state, weth, entity.SideBorrow)
	require.Equal(t, entry(usdc, entity.SideCollateral), state.From)
	require.True(t, state.To.IsZero())

	state = SelectAsset(state, dai, entity.SideBorrow)
	assert.True(t, state.From.IsZero())
	assert.Equal(t, entry(dai, entity.SideBorrow), state.To)
	assert.True(t, state.IsSingle)
}

func TestSelectAsset_IgnoresInvalidInput(t *testing.T) {
	start := SelectAsset(empty(), usdc, entity.SideCollateral)
	assert.Equal(t, start, SelectAsset(start, "", entity.SideBorrow))
	assert.Equal(t, start, SelectAsset(start, weth, entity.Side(7)))
}

func TestSelectAsset_DoesNotMutateInput(t *testing.T) {
	start := SelectAsset(empty(), usdc, entity.SideCollateral)
	snapshot := start
	_ = SelectAsset(start, weth, entity.SideBorrow)
	assert.Equal(t, snapshot, start)
}

func TestDeselectAsset(t *testing.T) {
	t.Run("clears from and keeps to", func(t *testing.T) {
		state := SelectAsset(empty(), usdc, entity.SideCollateral)
		state = SelectAsset(state, weth, entity.SideBorrow)
		state = DeselectAsset(state, usdc, entity.SideCollateral)

		assert.True(t, state.From.IsZero())
		assert.Equal(t, entry(weth, entity.SideBorrow), state.To)
		assert.True(t, state.IsSingle)
		assert.Equal(t, weth, SingleAsset(state))
	})

	t.Run("clearing the only slot still marks the state single", func(t *testing.T) {
		state := SelectAsset(empty(), usdc, entity.SideCollateral)
		state = DeselectAsset(state, usdc, entity.SideCollateral)

		assert.True(t, state.IsEmpty())
		assert.True(t, state.IsSingle)
		assert.Equal(t, entity.TradeTypeNone, Classify(state))
	})

	t.Run("no match leaves slots untouched", func(t *testing.T) {
		state := SelectAsset(empty(), usdc, entity.SideCollateral)
		state = SelectAsset(state, dai, entity.SideCollateral)
		next := DeselectAsset(state, weth, entity.SideBorrow)

		assert.Equal(t, state.From, next.From)
		assert.Equal(t, state.To, next.To)
		assert.True(t, next.IsSingle)
	})
}

func TestClassify_Totality(t *testing.T) {
	assets := []entity.AssetID{usdc, dai, weth}
	sides := []entity.Side{entity.SideCollateral, entity.SideBorrow}

	// walk every sequence of three selections and check each reached state
	var walk func(state entity.PositionState, depth int)
	walk = func(state entity.PositionState, depth int) {
		trade := Classify(state)
		switch trade {
		case entity.TradeTypeNone:
			assert.True(t, state.IsEmpty())
		case entity.TradeTypeSingle:
			assert.Equal(t, 1, state.Populated())
		case entity.TradeTypeSingleSide, entity.TradeTypeMarginSwap:
			assert.Equal(t, 2, state.Populated())
			assert.False(t, state.From.Equal(state.To))
		default:
			t.Fatalf("unexpected classification %v", trade)
		}
		assert.True(t, state.Interaction.CompatibleWith(trade, leadSide(state)))
		assert.NotEmpty(t, Describe(state))

		if depth == 0 {
			return
		}
		for _, a := range assets {
			for _, s := range sides {
				walk(SelectAsset(state, a, s), depth-1)
				walk(DeselectAsset(state, a, s), depth-1)
			}
		}
	}
	walk(empty(), 3)
}

func TestSetInteraction(t *testing.T) {
	state := SelectAsset(empty(), usdc, entity.SideCollateral)
	state = SelectAsset(state, weth, entity.SideBorrow)

	state = SetInteraction(state, entity.InteractionTrim)
	assert.Equal(t, entity.InteractionTrim, state.Interaction)
	assert.Equal(t, "Trim Your Position", Describe(state))

	// incompatible falls back to the default
	state = SetInteraction(state, entity.InteractionSupply)
	assert.Equal(t, entity.InteractionOpen, state.Interaction)

	// a compatible choice survives further selections of the same shape
	state = SetInteraction(state, entity.InteractionTrim)
	state = SelectAsset(state, wbtc, entity.SideCollateral)
	assert.Equal(t, entity.TradeTypeMarginSwap, Classify(state))
	assert.Equal(t, entity.InteractionTrim, state.Interaction)
}

func TestReset(t *testing.T) {
	state := SetBaseCurrency(empty(), dai)
	state = SelectAsset(state, usdc, entity.SideCollateral)
	state = SelectAsset(state, weth, entity.SideBorrow)

	state = Reset(state)
	assert.Equal(t, entity.NewPositionState(dai), state)
}

func TestSingleGetters(t *testing.T) {
	state := SelectAsset(empty(), weth, entity.SideBorrow)
	assert.Equal(t, weth, SingleAsset(state))
	assert.Equal(t, entry(weth, entity.SideBorrow), SinglePositionEntry(state))

	t.Run("panics on two selections", func(t *testing.T) {
		two := SelectAsset(state, usdc, entity.SideCollateral)
		assert.PanicsWithValue(t, entity.InvariantError{
			Op:     "SinglePositionEntry",
			Reason: "is_single=false populated=2",
		}, func() { SingleAsset(two) })
	})

	t.Run("panics on empty selection", func(t *testing.T) {
		assert.Panics(t, func() { SinglePositionEntry(empty()) })
		_, ok := LookupSingle(empty())
		assert.False(t, ok)
	})
}

func TestCanSelect(t *testing.T) {
	assert.NoError(t, CanSelect(entity.ProtocolAave, usdc, entry(weth, entity.SideBorrow)))
	assert.NoError(t, CanSelect(entity.ProtocolCompoundV3, usdc, entry(usdc, entity.SideBorrow)))
	assert.NoError(t, CanSelect(entity.ProtocolCompoundV3, usdc, entry(weth, entity.SideCollateral)))
	assert.ErrorIs(t, CanSelect(entity.ProtocolCompoundV3, usdc, entry(weth, entity.SideBorrow)), entity.ErrBorrowNotAllowed)
}

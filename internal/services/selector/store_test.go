package selector

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	entity "github.com/vadiminshakov/marginscope/internal/domain"
	"go.uber.org/zap"
)

func TestStore_Dispatch(t *testing.T) {
	store := NewStore(zap.NewNop(), "")
	assert.Equal(t, entity.DefaultBaseCurrency, store.State().BaseCurrency)

	state, err := store.Dispatch(Action{Kind: ActionSelect, Asset: usdc, Side: entity.SideCollateral})
	require.NoError(t, err)
	assert.Equal(t, entity.TradeTypeSingle, Classify(state))

	state, err = store.Dispatch(Action{Kind: ActionSelect, Asset: weth, Side: entity.SideBorrow})
	require.NoError(t, err)
	assert.Equal(t, entity.TradeTypeMarginSwap, Classify(state))
	assert.Equal(t, state, store.State())

	state, err = store.Dispatch(Action{Kind: ActionSetInteraction, Interaction: entity.InteractionTrim})
	require.NoError(t, err)
	assert.Equal(t, entity.InteractionTrim, state.Interaction)

	state, err = store.Dispatch(Action{Kind: ActionReset})
	require.NoError(t, err)
	assert.True(t, state.IsEmpty())

	_, err = store.Dispatch(Action{Kind: "explode"})
	assert.ErrorIs(t, err, ErrUnknownAction)
	assert.Equal(t, uint64(4), store.CurrentIndex())
}

func TestStore_EventsAfter(t *testing.T) {
	store := NewStore(zap.NewNop(), usdc)
	_, _ = store.Dispatch(Action{Kind: ActionSelect, Asset: usdc, Side: entity.SideCollateral})
	_, _ = store.Dispatch(Action{Kind: ActionSelect, Asset: dai, Side: entity.SideCollateral})
	_, _ = store.Dispatch(Action{Kind: ActionDeselect, Asset: usdc, Side: entity.SideCollateral})

	records := store.EventsAfter(1)
	require.Len(t, records, 2)
	assert.Equal(t, uint64(2), records[0].Index)
	assert.Equal(t, entity.TradeTypeSingleSide, records[0].Event.Trade)
	assert.Equal(t, "Swap Your Collateral", records[0].Event.Description)
	assert.Equal(t, ActionDeselect, records[1].Event.Action.Kind)

	assert.Empty(t, store.EventsAfter(3))
}

func TestStore_JournalIsBounded(t *testing.T) {
	store := NewStore(zap.NewNop(), usdc)
	store.capacity = 3
	for i := 0; i < 5; i++ {
		_, _ = store.Dispatch(Action{Kind: ActionSelect, Asset: usdc, Side: entity.SideCollateral})
	}

	records := store.EventsAfter(0)
	require.Len(t, records, 3)
	assert.Equal(t, uint64(3), records[0].Index)
	assert.Equal(t, uint64(5), records[2].Index)
}

func TestStore_ConcurrentReaders(t *testing.T) {
	store := NewStore(zap.NewNop(), usdc)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = Classify(store.State())
				_ = store.EventsAfter(0)
			}
		}()
	}
	for j := 0; j < 50; j++ {
		_, err := store.Dispatch(Action{Kind: ActionSelect, Asset: weth, Side: entity.SideBorrow})
		require.NoError(t, err)
	}
	wg.Wait()
	assert.Equal(t, uint64(50), store.CurrentIndex())
}

func TestStore_DispatchChecks(t *testing.T) {
	store := NewStore(zap.NewNop(), usdc)
	_, err := store.Dispatch(Action{Kind: ActionSelect, Asset: usdc, Side: entity.SideCollateral})
	require.NoError(t, err)

	var seen entity.PositionState
	reject := func(state entity.PositionState) error {
		seen = state
		return entity.ErrBorrowNotAllowed
	}
	state, err := store.Dispatch(Action{Kind: ActionSelect, Asset: weth, Side: entity.SideBorrow}, reject)
	assert.ErrorIs(t, err, entity.ErrBorrowNotAllowed)
	assert.Equal(t, usdc, seen.To.Asset)
	assert.Equal(t, store.State(), state)
	assert.Equal(t, uint64(1), store.CurrentIndex())

	accept := func(entity.PositionState) error { return nil }
	state, err = store.Dispatch(Action{Kind: ActionSelect, Asset: weth, Side: entity.SideBorrow}, accept, accept)
	require.NoError(t, err)
	assert.Equal(t, entity.TradeTypeMarginSwap, Classify(state))
	assert.Equal(t, uint64(2), store.CurrentIndex())
}

func TestStore_ChecksSeeConcurrentWrites(t *testing.T) {
	store := NewStore(zap.NewNop(), usdc)

	// only the first selection may land: the check reads the state it applies to
	firstOnly := func(state entity.PositionState) error {
		if !state.IsEmpty() {
			return entity.ErrUnknownAsset
		}
		return nil
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for _, asset := range []entity.AssetID{usdc, dai, weth, "WBTC", "LINK", "UNI"} {
		wg.Add(1)
		go func(asset entity.AssetID) {
			defer wg.Done()
			if _, err := store.Dispatch(Action{Kind: ActionSelect, Asset: asset, Side: entity.SideCollateral}, firstOnly); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}(asset)
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	assert.Equal(t, 1, store.State().Populated())
}

package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	entity "github.com/vadiminshakov/marginscope/internal/domain"
)

func TestWindow_PushEvictsOldest(t *testing.T) {
	var w window
	a := entry(usdc, entity.SideCollateral)
	b := entry(weth, entity.SideBorrow)
	c := entry(wbtc, entity.SideCollateral)

	w.push(a)
	assert.Equal(t, window{{}, a}, w)

	w.push(b)
	assert.Equal(t, window{a, b}, w)

	w.push(c)
	assert.Equal(t, window{b, c}, w)
	assert.Equal(t, -1, w.indexOf(a))
}

func TestWindow_IndexOf(t *testing.T) {
	a := entry(usdc, entity.SideCollateral)
	b := entry(usdc, entity.SideBorrow)
	w := window{a, b}

	assert.Equal(t, slotFrom, w.indexOf(a))
	assert.Equal(t, slotTo, w.indexOf(b))
	assert.Equal(t, -1, w.indexOf(entity.PositionEntry{}))

	w.clear(slotTo)
	assert.Equal(t, -1, w.indexOf(b))
	assert.True(t, w.newest().IsZero())
}

func TestWindow_RoundTripThroughState(t *testing.T) {
	state := entity.NewPositionState(usdc)
	state.From = entry(dai, entity.SideBorrow)
	state.To = entry(weth, entity.SideCollateral)
	state.IsSingle = false

	w := windowOf(state)
	w.replaceNewest(entry(weth, entity.SideBorrow))
	next := w.apply(state)

	assert.Equal(t, state.From, next.From)
	assert.Equal(t, entry(weth, entity.SideBorrow), next.To)
	assert.Equal(t, state.BaseCurrency, next.BaseCurrency)
}

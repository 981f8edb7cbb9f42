package selector

import entity "github.com/vadiminshakov/marginscope/internal/domain"

const (
	slotFrom = 0
	slotTo   = 1
)

// window is a two-slot ring buffer of selections. Index 1 holds the newest
// entry (To), index 0 the previous one (From). push evicts index 0.
type window [2]entity.PositionEntry

func windowOf(s entity.PositionState) window {
	return window{s.From, s.To}
}

func (w window) apply(s entity.PositionState) entity.PositionState {
	s.From = w[slotFrom]
	s.To = w[slotTo]
	return s
}

// push makes e the newest entry, demoting the current newest and evicting the oldest.
func (w *window) push(e entity.PositionEntry) {
	w[slotFrom] = w[slotTo]
	w[slotTo] = e
}

// replaceNewest overwrites the newest entry without touching the older one.
func (w *window) replaceNewest(e entity.PositionEntry) {
	w[slotTo] = e
}

func (w *window) clear(slot int) {
	w[slot] = entity.PositionEntry{}
}

// indexOf returns the slot holding e, preferring the newest, or -1.
func (w window) indexOf(e entity.PositionEntry) int {
	if e.IsZero() {
		return -1
	}
	if w[slotTo].Equal(e) {
		return slotTo
	}
	if w[slotFrom].Equal(e) {
		return slotFrom
	}
	return -1
}

func (w window) newest() entity.PositionEntry {
	return w[slotTo]
}

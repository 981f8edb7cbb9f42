package selector

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	entity "github.com/vadiminshakov/marginscope/internal/domain"
	"go.uber.org/zap"
)

const defaultJournalCapacity = 256

// ActionKind is the kind of state transition requested from the store.
type ActionKind string

const (
	ActionSelect         ActionKind = "select"
	ActionDeselect       ActionKind = "deselect"
	ActionReset          ActionKind = "reset"
	ActionSetInteraction ActionKind = "interaction"
	ActionSetBase        ActionKind = "base"
)

// Action is a single request to change the selection.
type Action struct {
	Kind        ActionKind             `json:"kind"`
	Asset       entity.AssetID         `json:"asset,omitempty"`
	Side        entity.Side            `json:"side"`
	Interaction entity.InteractionKind `json:"interaction"`
}

// Check vets an action against the state it is about to change. Checks run
// under the store lock, so the state they see is the one the action applies to.
type Check func(state entity.PositionState) error

// ErrUnknownAction is returned by Dispatch for unsupported action kinds.
var ErrUnknownAction = errors.New("unknown selection action")

// Event is a journaled transition.
type Event struct {
	Action      Action               `json:"action"`
	State       entity.PositionState `json:"state"`
	Trade       entity.TradeType     `json:"trade"`
	Description string               `json:"description"`
	At          time.Time            `json:"at"`
}

// EventRecord is an Event with its journal index.
type EventRecord struct {
	Index uint64
	Event Event
}

// Store holds the live selection. Dispatch is the only write path; readers
// receive copies.
type Store struct {
	mu       sync.RWMutex
	state    entity.PositionState
	journal  []EventRecord
	capacity int
	index    uint64
	l        *zap.Logger
	now      func() time.Time
}

// NewStore creates a store holding the empty selection for the given base currency.
func NewStore(l *zap.Logger, base entity.AssetID) *Store {
	if l == nil {
		l = zap.NewNop()
	}
	return &Store{
		state:    entity.NewPositionState(base),
		capacity: defaultJournalCapacity,
		l:        l,
		now:      time.Now,
	}
}

// State returns the current selection.
func (s *Store) State() entity.PositionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dispatch runs the checks and applies the action, returning the resulting
// state. A failed check leaves the state and journal untouched.
func (s *Store) Dispatch(a Action, checks ...Check) (entity.PositionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	for _, check := range checks {
		if err := check(prev); err != nil {
			return prev, err
		}
	}
	var next entity.PositionState
	switch a.Kind {
	case ActionSelect:
		next = SelectAsset(prev, a.Asset, a.Side)
	case ActionDeselect:
		next = DeselectAsset(prev, a.Asset, a.Side)
	case ActionReset:
		next = Reset(prev)
	case ActionSetInteraction:
		next = SetInteraction(prev, a.Interaction)
	case ActionSetBase:
		next = SetBaseCurrency(prev, a.Asset)
	default:
		return prev, errors.Wrapf(ErrUnknownAction, "%q", a.Kind)
	}

	s.state = next
	s.append(Event{
		Action:      a,
		State:       next,
		Trade:       Classify(next),
		Description: Describe(next),
		At:          s.now(),
	})

	s.l.Debug("selection changed",
		zap.String("action", string(a.Kind)),
		zap.String("from", next.From.String()),
		zap.String("to", next.To.String()),
		zap.Bool("single", next.IsSingle),
		zap.String("trade", Classify(next).String()),
		zap.String("interaction", next.Interaction.String()),
	)

	return next, nil
}

// append must be called with mu held.
func (s *Store) append(e Event) {
	s.index++
	s.journal = append(s.journal, EventRecord{Index: s.index, Event: e})
	if len(s.journal) > s.capacity {
		s.journal = append([]EventRecord(nil), s.journal[len(s.journal)-s.capacity:]...)
	}
}

// EventsAfter returns journaled events with an index greater than index.
// Older events beyond the journal capacity are gone.
func (s *Store) EventsAfter(index uint64) []EventRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]EventRecord, 0)
	for _, rec := range s.journal {
		if rec.Index > index {
			out = append(out, rec)
		}
	}
	return out
}

// CurrentIndex returns the index of the latest journaled event.
func (s *Store) CurrentIndex() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

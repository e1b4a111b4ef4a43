// Package state keeps track of which reactions have already been notified.
//
// The store is loaded once per run, mutated in memory while items are
// processed and written back in one piece at the end of the run.
package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultMaxEntries caps the number of item entries kept across runs.
const DefaultMaxEntries = 1000

// ErrNotExist is returned by a Backend when nothing has been persisted yet.
var ErrNotExist = errors.New("state: nothing persisted yet")

// Entry is the persisted record for one item.
type Entry struct {
	ItemID      string
	ReactionIDs []int64
}

// Snapshot is the full persisted state. Entries are in retention order,
// oldest first.
type Snapshot struct {
	Entries     []Entry
	LastUpdated *time.Time
}

// Backend persists snapshots. Write must replace the previous snapshot
// atomically.
type Backend interface {
	Read(ctx context.Context) (*Snapshot, error)
	Write(ctx context.Context, snap *Snapshot) error
	Close() error
}

type idSet struct {
	order   []int64
	members map[int64]struct{}
}

func (s *idSet) add(id int64) {
	if _, ok := s.members[id]; ok {
		return
	}
	s.members[id] = struct{}{}
	s.order = append(s.order, id)
}

// Store is the in-memory seen-state for a run.
type Store struct {
	backend    Backend
	maxEntries int
	now        func() time.Time

	mu          sync.Mutex
	order       []string
	items       map[string]*idSet
	lastUpdated *time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithMaxEntries overrides the retention cap. Values below one are ignored.
func WithMaxEntries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

// WithClock replaces time.Now, used to stamp lastUpdated.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty store on top of backend. Call Load to read the
// persisted state.
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:    backend,
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
		items:      make(map[string]*idSet),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory state with the persisted one. Read problems are
// logged and leave the store empty; they never fail the run.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()

	snap, err := s.backend.Read(ctx)
	switch {
	case errors.Is(err, ErrNotExist):
		log.Info().Msg("No seen-state persisted yet, starting fresh")
		return
	case err != nil:
		log.Error().Err(err).Str("phase", "state_load").Msg("Failed to load seen-state, starting fresh")
		return
	}

	for _, e := range snap.Entries {
		set := s.entry(e.ItemID)
		for _, id := range e.ReactionIDs {
			set.add(id)
		}
	}
	s.lastUpdated = snap.LastUpdated

	log.Debug().Int("entries", len(s.order)).Msg("Loaded seen-state")
}

func (s *Store) reset() {
	s.order = nil
	s.items = make(map[string]*idSet)
	s.lastUpdated = nil
}

// entry returns the set for itemID, registering the item at the end of the
// retention order on first use. Caller holds mu.
func (s *Store) entry(itemID string) *idSet {
	set, ok := s.items[itemID]
	if !ok {
		set = &idSet{members: make(map[int64]struct{})}
		s.items[itemID] = set
		s.order = append(s.order, itemID)
	}
	return set
}

// IsNew reports whether reactionID has not been recorded for itemID.
func (s *Store) IsNew(itemID string, reactionID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.items[itemID]
	if !ok {
		return true
	}
	_, seen := set.members[reactionID]
	return !seen
}

// MarkSeen records reactionIDs under itemID. The item is registered even when
// no ids are given. Marking an item again does not move it in the retention
// order.
func (s *Store) MarkSeen(itemID string, reactionIDs ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.entry(itemID)
	for _, id := range reactionIDs {
		set.add(id)
	}
}

// Len returns the number of item entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// LastUpdated returns the time of the last successful Save, if any.
func (s *Store) LastUpdated() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastUpdated == nil {
		return nil
	}
	t := *s.lastUpdated
	return &t
}

// Prune drops the oldest entries beyond the retention cap and returns how
// many were removed. Order is insertion order, not recency of activity.
func (s *Store) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prune()
}

func (s *Store) prune() int {
	excess := len(s.order) - s.maxEntries
	if excess <= 0 {
		return 0
	}
	for _, id := range s.order[:excess] {
		delete(s.items, id)
	}
	s.order = append([]string(nil), s.order[excess:]...)
	return excess
}

// Snapshot returns a deep copy of the current state in retention order.
func (s *Store) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Store) snapshot() *Snapshot {
	snap := &Snapshot{Entries: make([]Entry, 0, len(s.order))}
	for _, id := range s.order {
		ids := append([]int64{}, s.items[id].order...)
		snap.Entries = append(snap.Entries, Entry{ItemID: id, ReactionIDs: ids})
	}
	if s.lastUpdated != nil {
		t := *s.lastUpdated
		snap.LastUpdated = &t
	}
	return snap
}

// Save stamps lastUpdated, applies retention and persists the whole state.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	s.lastUpdated = &now
	if dropped := s.prune(); dropped > 0 {
		log.Info().Int("dropped", dropped).Int("kept", len(s.order)).Msg("Pruned oldest seen-state entries")
	}

	if err := s.backend.Write(ctx, s.snapshot()); err != nil {
		return fmt.Errorf("failed to persist seen-state: %w", err)
	}
	return nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

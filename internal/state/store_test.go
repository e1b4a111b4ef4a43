package state

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memBackend struct {
	snap     *Snapshot
	readErr  error
	writeErr error
	writes   int
}

func (m *memBackend) Read(context.Context) (*Snapshot, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	if m.snap == nil {
		return nil, ErrNotExist
	}
	return m.snap, nil
}

func (m *memBackend) Write(_ context.Context, snap *Snapshot) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writes++
	m.snap = snap
	return nil
}

func (m *memBackend) Close() error { return nil }

func TestStore_LoadMissingStartsEmpty(t *testing.T) {
	s := NewStore(&memBackend{})
	s.Load(context.Background())

	require.Equal(t, 0, s.Len())
	require.Nil(t, s.LastUpdated())
	require.True(t, s.IsNew("100", 1))
}

func TestStore_LoadErrorFallsBackToEmpty(t *testing.T) {
	s := NewStore(&memBackend{readErr: errors.New("disk on fire")})
	s.MarkSeen("1", 1)
	s.Load(context.Background())

	require.Equal(t, 0, s.Len())
}

func TestStore_MarkSeenScenario(t *testing.T) {
	s := NewStore(&memBackend{})

	s.MarkSeen("100", 1)
	require.False(t, s.IsNew("100", 1))

	// Self reaction id 2 still gets recorded.
	s.MarkSeen("100", 2)
	s.MarkSeen("100", 1, 2)

	snap := s.Snapshot()
	require.Equal(t, []Entry{{ItemID: "100", ReactionIDs: []int64{1, 2}}}, snap.Entries)
}

func TestStore_MarkSeenWithoutIDsRegistersItem(t *testing.T) {
	s := NewStore(&memBackend{})
	s.MarkSeen("7")

	require.Equal(t, 1, s.Len())
	require.Equal(t, []int64{}, s.Snapshot().Entries[0].ReactionIDs)
}

func TestStore_RemarkDoesNotReorder(t *testing.T) {
	s := NewStore(&memBackend{})
	s.MarkSeen("a", 1)
	s.MarkSeen("b", 2)
	s.MarkSeen("a", 3)

	snap := s.Snapshot()
	require.Equal(t, "a", snap.Entries[0].ItemID)
	require.Equal(t, []int64{1, 3}, snap.Entries[0].ReactionIDs)
	require.Equal(t, "b", snap.Entries[1].ItemID)
}

func TestStore_SaveStampsAndPrunes(t *testing.T) {
	backend := &memBackend{}
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(backend, WithClock(func() time.Time { return fixed }))

	for i := 0; i < DefaultMaxEntries+25; i++ {
		s.MarkSeen(strconv.Itoa(i), int64(i))
	}
	require.NoError(t, s.Save(context.Background()))

	require.Len(t, backend.snap.Entries, DefaultMaxEntries)
	require.Equal(t, "25", backend.snap.Entries[0].ItemID, "oldest inserted entries are dropped first")
	require.Equal(t, strconv.Itoa(DefaultMaxEntries+24), backend.snap.Entries[DefaultMaxEntries-1].ItemID)
	require.NotNil(t, backend.snap.LastUpdated)
	require.True(t, fixed.Equal(*backend.snap.LastUpdated))
	require.True(t, s.IsNew("0", 0), "pruned entries are forgotten")
}

func TestStore_PruneCustomCap(t *testing.T) {
	s := NewStore(&memBackend{}, WithMaxEntries(2))
	s.MarkSeen("1")
	s.MarkSeen("2")
	s.MarkSeen("3")

	require.Equal(t, 1, s.Prune())
	require.Equal(t, 2, s.Len())
	require.Equal(t, 0, s.Prune())
}

func TestStore_SaveErrorPropagates(t *testing.T) {
	s := NewStore(&memBackend{writeErr: errors.New("read-only filesystem")})
	s.MarkSeen("1", 1)

	err := s.Save(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "read-only filesystem")
}

func TestStore_RoundTripThroughBackend(t *testing.T) {
	backend := &memBackend{}
	s := NewStore(backend)
	s.MarkSeen("100", 1, 2)
	s.MarkSeen("200", 5)
	require.NoError(t, s.Save(context.Background()))

	reloaded := NewStore(backend)
	reloaded.Load(context.Background())
	require.Equal(t, 2, reloaded.Len())
	require.False(t, reloaded.IsNew("100", 2))
	require.False(t, reloaded.IsNew("200", 5))
	require.True(t, reloaded.IsNew("200", 6))
	require.NotNil(t, reloaded.LastUpdated())
}

func TestStore_ConcurrentMarkSeenKeepsEveryID(t *testing.T) {
	s := NewStore(&memBackend{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			s.MarkSeen("100", id)
		}(int64(i))
	}
	wg.Wait()

	require.Equal(t, 1, s.Len())
	require.Len(t, s.Snapshot().Entries[0].ReactionIDs, 50)
	for i := 0; i < 50; i++ {
		require.False(t, s.IsNew("100", int64(i)))
	}
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	s := NewStore(&memBackend{})
	s.MarkSeen("1", 1)

	snap := s.Snapshot()
	snap.Entries[0].ReactionIDs[0] = 42

	require.False(t, s.IsNew("1", 1))
	require.True(t, s.IsNew("1", 42))
}

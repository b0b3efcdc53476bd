package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/mntfs/pkg/mtab"
)

func walkIDs(t *testing.T, s *Store) []uint64 {
	t.Helper()

	ctx := context.Background()
	ns, err := s.Resolve(ctx)
	require.NoError(t, err)

	var ids []uint64
	err = s.Walk(ctx, ns, func(rec mtab.Record) bool {
		ids = append(ids, rec.ID)
		return true
	})
	require.NoError(t, err)
	return ids
}

func TestStoreResolve(t *testing.T) {
	s := NewStore(Options{NamespaceID: 77})

	ns, err := s.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(77), ns.ID())
}

func TestStoreMount(t *testing.T) {
	t.Run("MountsInOrder", func(t *testing.T) {
		s := NewStore(Options{})
		require.NoError(t, s.Mount(3, "/c"))
		require.NoError(t, s.Mount(1, "/a"))
		require.NoError(t, s.Mount(2, "/b"))

		assert.Equal(t, []uint64{3, 1, 2}, walkIDs(t, s))
		assert.Equal(t, 3, s.Len())
	})

	t.Run("RejectsLiveDuplicateID", func(t *testing.T) {
		s := NewStore(Options{})
		require.NoError(t, s.Mount(1, "/a"))
		require.Error(t, s.Mount(1, "/b"))
	})

	t.Run("AllowsIDReuseAfterUnmount", func(t *testing.T) {
		s := NewStore(Options{})
		require.NoError(t, s.Mount(1, "/a"))
		require.True(t, s.Unmount(1))
		require.NoError(t, s.Mount(1, "/a2"))
	})

	t.Run("CapacityExhausted", func(t *testing.T) {
		s := NewStore(Options{Capacity: 2})
		require.NoError(t, s.Mount(1, "/a"))
		require.NoError(t, s.Mount(2, "/b"))

		err := s.Mount(3, "/c")
		assert.True(t, mtab.IsCode(err, mtab.ErrExhausted))

		// Unmounting frees the slot.
		require.True(t, s.Unmount(1))
		require.NoError(t, s.Mount(3, "/c"))
	})
}

func TestStoreUnmount(t *testing.T) {
	s := NewStore(Options{})
	require.NoError(t, s.Mount(1, "/a"))
	require.NoError(t, s.Mount(2, "/b"))

	assert.True(t, s.Unmount(1))
	assert.False(t, s.Unmount(1))
	assert.Equal(t, []uint64{2}, walkIDs(t, s))
}

func TestStoreWalk(t *testing.T) {
	ctx := context.Background()

	t.Run("EarlyStop", func(t *testing.T) {
		s := NewStore(Options{})
		require.NoError(t, s.Mount(1, "/a"))
		require.NoError(t, s.Mount(2, "/b"))

		ns, err := s.Resolve(ctx)
		require.NoError(t, err)

		var seen int
		err = s.Walk(ctx, ns, func(mtab.Record) bool {
			seen++
			return false
		})
		require.NoError(t, err)
		assert.Equal(t, 1, seen)
	})

	t.Run("UnmountMidWalkSkipsDeadRecord", func(t *testing.T) {
		s := NewStore(Options{})
		require.NoError(t, s.Mount(1, "/a"))
		require.NoError(t, s.Mount(2, "/b"))
		require.NoError(t, s.Mount(3, "/c"))

		ns, err := s.Resolve(ctx)
		require.NoError(t, err)

		var ids []uint64
		err = s.Walk(ctx, ns, func(rec mtab.Record) bool {
			if rec.ID == 1 {
				// Retire a record the walk has not reached yet.
				s.Unmount(2)
			}
			ids = append(ids, rec.ID)
			return true
		})
		require.NoError(t, err)
		assert.Equal(t, []uint64{1, 3}, ids)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		s := NewStore(Options{})
		require.NoError(t, s.Mount(1, "/a"))

		ns, err := s.Resolve(context.Background())
		require.NoError(t, err)

		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		err = s.Walk(cancelled, ns, func(mtab.Record) bool { return true })
		require.Error(t, err)
	})
}

func TestStoreDetach(t *testing.T) {
	s := NewStore(Options{})
	require.NoError(t, s.Mount(1, "/a"))

	assert.False(t, s.Detach(99))
	assert.True(t, s.Detach(1))

	// Detached mounts stay listed but their root no longer renders.
	assert.Equal(t, []uint64{1}, walkIDs(t, s))

	ctx := context.Background()
	ns, err := s.Resolve(ctx)
	require.NoError(t, err)

	err = s.Walk(ctx, ns, func(rec mtab.Record) bool {
		_, pathErr := rec.Root.Path()
		assert.Error(t, pathErr)
		return true
	})
	require.NoError(t, err)
}

func TestStoreIDs(t *testing.T) {
	s := NewStore(Options{})
	require.NoError(t, s.Mount(5, "/a"))
	require.NoError(t, s.Mount(6, "/b"))
	assert.Equal(t, []uint64{5, 6}, s.IDs())
}

package binlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_AllocatePublishes(t *testing.T) {
	var r queueRegistry

	w := r.allocate(64, 4096)
	require.NotNil(t, w)
	assert.True(t, r.addFlag.Load())
	assert.Empty(t, r.snapshot, "snapshot must not change before a refresh")

	r.refreshAdd()
	assert.False(t, r.addFlag.Load())
	require.Len(t, r.snapshot, 1)
	assert.Same(t, w, r.snapshot[0])
}

func TestRegistry_SnapshotUndisturbedByAllocate(t *testing.T) {
	var r queueRegistry

	r.allocate(64, 4096)
	r.refreshAdd()
	snap := r.snapshot

	r.allocate(64, 4096)
	assert.Len(t, snap, 1, "consumer's snapshot must be stable across allocate")
	assert.Len(t, r.current, 2)

	r.refreshAdd()
	assert.Len(t, r.snapshot, 2)
}

func TestRegistry_OrphanEmptyRaisesDeleteFlag(t *testing.T) {
	var r queueRegistry

	w := r.allocate(64, 4096)
	r.refreshAdd()

	r.markOrphaned(w)
	assert.True(t, w.orphaned.Load())
	assert.True(t, r.deleteFlag.Load(), "an already-empty orphan is deletable now")
	assert.NotZero(t, w.orphanedAt.Load())

	// Idempotent.
	before := w.orphanedAt.Load()
	r.markOrphaned(w)
	assert.Equal(t, before, w.orphanedAt.Load())
}

func TestRegistry_OrphanWithDataDefersDeletion(t *testing.T) {
	var r queueRegistry

	w := r.allocate(64, 4096)
	r.refreshAdd()

	buf := w.queue.ReserveWrite(8)
	require.NotNil(t, buf)
	w.queue.CommitWrite(8)

	r.markOrphaned(w)
	assert.False(t, r.deleteFlag.Load(), "a non-empty orphan keeps being drained")
}

func TestRegistry_TwoPhaseReclamation(t *testing.T) {
	var r queueRegistry

	w1 := r.allocate(64, 4096)
	w2 := r.allocate(64, 4096)
	r.refreshAdd()

	r.markOrphaned(w1)
	require.True(t, r.deleteFlag.Load())

	// Phase one: removed from current and snapshot, parked in
	// pendingDeletion.
	r.refreshDelete()
	assert.False(t, r.deleteFlag.Load())
	require.Len(t, r.snapshot, 1)
	assert.Same(t, w2, r.snapshot[0])
	require.Len(t, r.pendingDeletion, 1)
	assert.Same(t, w1, r.pendingDeletion[0])

	// Phase two: the next refresh of either kind clears the parked
	// wrappers.
	r.refreshAdd()
	assert.Empty(t, r.pendingDeletion)
}

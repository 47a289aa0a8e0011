package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allocJob(t *testing.T, pool *IDPool, background bool, argvs ...[]string) *Job {
	t.Helper()

	id, err := pool.Allocate()
	require.NoError(t, err)
	return NewJob(id, mustProcesses(t, argvs...), background)
}

func TestTableAddAndList(t *testing.T) {
	pool := NewIDPool(8)
	table := NewTable(pool, 8)

	var added []*Job
	for i := 0; i < 3; i++ {
		job := allocJob(t, pool, true, []string{"cmd"})
		require.NoError(t, table.Add(job))
		added = append(added, job)
	}

	// Free the middle slot and fill it again, the list stays in ID order.
	removed, ok := table.Remove(2)
	require.True(t, ok)
	require.NoError(t, pool.Release(removed.ID))
	refill := allocJob(t, pool, true, []string{"cmd", "again"})
	require.Equal(t, 2, refill.ID)
	require.NoError(t, table.Add(refill))

	var ids []int
	for _, job := range table.List() {
		ids = append(ids, job.ID)
	}
	assert.Equal(t, []int{1, 2, 3}, ids)
	assert.Equal(t, 3, table.Len())

	got, ok := table.Get(2)
	assert.True(t, ok)
	assert.Equal(t, "cmd again &", got.String())

	_, ok = table.Get(9)
	assert.False(t, ok)

	assert.ErrorIs(t, table.Add(added[0]), ErrDuplicateJob)
}

func TestTableFull(t *testing.T) {
	pool := NewIDPool(4)
	table := NewTable(pool, 2)

	require.NoError(t, table.Add(allocJob(t, pool, true, []string{"a"})))
	require.NoError(t, table.Add(allocJob(t, pool, true, []string{"b"})))

	err := table.Add(allocJob(t, pool, true, []string{"c"}))
	assert.ErrorIs(t, err, ErrTooManyJobs)
	assert.Equal(t, 2, table.Len())
}

func TestTableReap(t *testing.T) {
	pool := NewIDPool(8)
	table := NewTable(pool, 8)

	fastID, err := pool.Allocate()
	require.NoError(t, err)
	slowID, err := pool.Allocate()
	require.NoError(t, err)

	fast := startJob(t, fastID, true, []string{"true"})
	slow := startJob(t, slowID, true, []string{"sleep", "30"})
	require.NoError(t, table.Add(fast))
	require.NoError(t, table.Add(slow))

	var notices []Notice
	assert.Eventually(t, func() bool {
		notices = append(notices, table.Reap()...)
		return len(notices) > 0
	}, 5*time.Second, 10*time.Millisecond)

	require.Len(t, notices, 1)
	assert.Equal(t, fast, notices[0].Job)
	assert.Equal(t, 0, notices[0].Status)
	assert.Nil(t, notices[0].Err)
	assert.Nil(t, notices[0].ReleaseErr)
	assert.False(t, pool.Allocated(fastID), "reaped job's ID should be free")
	assert.True(t, pool.Allocated(slowID))

	t.Run("idempotent", func(t *testing.T) {
		before := table.Len()
		assert.Empty(t, table.Reap())
		assert.Equal(t, before, table.Len())
		assert.Empty(t, table.Reap())
		assert.Equal(t, before, table.Len())
	})
}

func TestTableReapPartialPipeline(t *testing.T) {
	pool := NewIDPool(8)
	table := NewTable(pool, 8)

	id, err := pool.Allocate()
	require.NoError(t, err)
	job := startJob(t, id, true, []string{"true"}, []string{"sleep", "30"})
	require.NoError(t, table.Add(job))

	assert.Eventually(t, func() bool {
		assert.Empty(t, table.Reap())
		return job.Stages[0].Done()
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, table.Len(), "job with a live stage must stay tracked")
	assert.True(t, pool.Allocated(id))
}

func TestTableClose(t *testing.T) {
	pool := NewIDPool(8)
	table := NewTable(pool, 8)
	require.NoError(t, table.Add(allocJob(t, pool, true, []string{"a"})))
	require.NoError(t, table.Add(allocJob(t, pool, true, []string{"b"})))

	assert.NoError(t, table.Close())
	assert.Zero(t, table.Len())
	assert.Zero(t, pool.InUse())
}

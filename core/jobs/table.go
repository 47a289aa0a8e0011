package jobs

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrTooManyJobs is returned when the table is full.
	ErrTooManyJobs = errors.New("too many background jobs")

	// ErrDuplicateJob is returned when a job ID is already tracked.
	ErrDuplicateJob = errors.New("job already tracked")
)

// Notice reports a background job that finished.
type Notice struct {
	Job    *Job
	Status int
	// Err is set if the job's status couldn't be fully collected.
	Err error
	// ReleaseErr is set if the job's ID couldn't be returned to the pool.
	ReleaseErr error
}

// Table tracks background jobs by job ID.
type Table struct {
	pool *IDPool
	max  int
	jobs map[int]*Job
}

// NewTable creates a table that returns IDs to pool as jobs are reaped.
func NewTable(pool *IDPool, max int) *Table {
	if max < 1 {
		max = pool.Size()
	}
	return &Table{
		pool: pool,
		max:  max,
		jobs: make(map[int]*Job),
	}
}

// Add starts tracking a launched background job.
func (t *Table) Add(job *Job) error {
	if _, ok := t.jobs[job.ID]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateJob, job.ID)
	}
	if len(t.jobs) >= t.max {
		return fmt.Errorf("%w: limit is %d", ErrTooManyJobs, t.max)
	}
	t.jobs[job.ID] = job
	return nil
}

// Get looks up a job by ID.
func (t *Table) Get(id int) (*Job, bool) {
	job, ok := t.jobs[id]
	return job, ok
}

// Remove stops tracking a job without releasing its ID; the caller takes
// ownership of both.
func (t *Table) Remove(id int) (*Job, bool) {
	job, ok := t.jobs[id]
	if ok {
		delete(t.jobs, id)
	}
	return job, ok
}

// Len returns the number of tracked jobs.
func (t *Table) Len() int {
	return len(t.jobs)
}

// List returns the tracked jobs in ascending ID order.
func (t *Table) List() []*Job {
	out := make([]*Job, 0, len(t.jobs))
	for _, job := range t.jobs {
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

// Reap checks every tracked job without blocking. Jobs whose stages have
// all terminated are removed, their IDs released, and reported in ID order.
// Partially finished pipelines stay tracked.
func (t *Table) Reap() []Notice {
	var notices []Notice
	for _, job := range t.List() {
		if !Poll(job) {
			continue
		}

		delete(t.jobs, job.ID)
		notices = append(notices, Notice{
			Job:        job,
			Status:     job.Status(),
			Err:        job.Err(),
			ReleaseErr: t.pool.Release(job.ID),
		})
	}
	return notices
}

// Close releases the OS handles of every tracked job and empties the table.
// The processes keep running.
func (t *Table) Close() error {
	var lastErr error
	for id, job := range t.jobs {
		job.Release()
		if err := t.pool.Release(id); err != nil {
			lastErr = err
		}
		delete(t.jobs, id)
	}
	return lastErr
}

package jobs

import (
	"errors"
	"fmt"
)

// DefaultMaxJobs is the size of the job ID pool when none is configured.
const DefaultMaxJobs = 256

var (
	// ErrResourceExhausted is returned when every job ID is in use.
	ErrResourceExhausted = errors.New("no available job IDs")

	// ErrNotAllocated is returned when releasing an ID that isn't held.
	ErrNotAllocated = errors.New("job ID not allocated")
)

// IDPool hands out job IDs in the range [1, Size()].
type IDPool struct {
	// inUse[i] tracks ID i+1.
	inUse []bool
	count int
}

// NewIDPool creates a pool with IDs 1 through size.
func NewIDPool(size int) *IDPool {
	if size < 1 {
		size = DefaultMaxJobs
	}
	return &IDPool{inUse: make([]bool, size)}
}

// Allocate reserves and returns the smallest free ID.
func (p *IDPool) Allocate() (int, error) {
	for i, used := range p.inUse {
		if !used {
			p.inUse[i] = true
			p.count++
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("%w: all %d in use", ErrResourceExhausted, len(p.inUse))
}

// Release returns id to the pool. Releasing an ID twice is an error and
// leaves the pool unchanged.
func (p *IDPool) Release(id int) error {
	if id < 1 || id > len(p.inUse) || !p.inUse[id-1] {
		return fmt.Errorf("%w: %d", ErrNotAllocated, id)
	}
	p.inUse[id-1] = false
	p.count--
	return nil
}

// Allocated reports whether id is currently held.
func (p *IDPool) Allocated(id int) bool {
	return id >= 1 && id <= len(p.inUse) && p.inUse[id-1]
}

// InUse returns the number of held IDs.
func (p *IDPool) InUse() int {
	return p.count
}

// Size returns the total number of IDs in the pool.
func (p *IDPool) Size() int {
	return len(p.inUse)
}

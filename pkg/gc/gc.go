// Package gc implements the byte-accounting policy behind spec.md
// §4.5's single `reallocate` entry point: it tracks bytes_allocated,
// decides when a collection threshold has been crossed, and holds the
// growth factor that recomputes the next threshold after a
// collection. It does not know how to mark or trace objects — that is
// necessarily kind-aware (Function, Closure, Class, Instance, ...) and
// lives in pkg/vm, which is the only package that knows every Obj
// kind and every VM root. Allocator is the generic "when do we
// collect" policy object the VM calls into on every allocation and
// every collection.
package gc

import "github.com/pkg/errors"

// DefaultGrowthFactor is the multiplier applied to bytes_allocated
// after a collection to compute the next collection threshold
// (spec.md §4.5 step 5: "growth_factor (factor >= 2)").
const DefaultGrowthFactor = 2

// DefaultNextGC is the initial threshold, chosen so a freshly
// constructed VM can allocate a reasonable amount before its first
// collection.
const DefaultNextGC = 1 << 20 // 1 MiB

// ErrOutOfMemory is returned (wrapped) by Allocator.Track when it is
// asked to account for more memory than MaxBytes allows, modeling the C original's
// "host allocator returns null" fatal condition (spec.md §7). A VM
// embedder can set MaxBytes to bound worst-case memory use; by
// default it is 0 (unbounded).
var ErrOutOfMemory = errors.New("gc: out of memory")

// Allocator tracks bytes_allocated and decides when to collect.
// StressGC, when true, requests a collection on every allocation
// regardless of threshold — used by tests exercising the "GC safety"
// property (spec.md §8).
type Allocator struct {
	BytesAllocated int64
	NextGC         int64
	GrowthFactor   int64
	StressGC       bool
	MaxBytes       int64 // 0 = unbounded
}

// New returns an Allocator with the default threshold and growth factor.
func New() *Allocator {
	return &Allocator{
		NextGC:       DefaultNextGC,
		GrowthFactor: DefaultGrowthFactor,
	}
}

// Track records the allocation of n bytes (n may be negative, for a
// free) and reports whether a collection should run before the
// allocation is considered complete: either StressGC is set, or
// BytesAllocated has crossed NextGC.
func (a *Allocator) Track(n int64) (shouldCollect bool, err error) {
	a.BytesAllocated += n
	if a.MaxBytes > 0 && a.BytesAllocated > a.MaxBytes {
		return false, errors.Wrapf(ErrOutOfMemory, "bytes_allocated=%d max=%d", a.BytesAllocated, a.MaxBytes)
	}
	if a.StressGC {
		return true, nil
	}
	return a.BytesAllocated > a.NextGC, nil
}

// AfterCollect recomputes NextGC from the post-collection
// BytesAllocated (spec.md §4.5 step 5).
func (a *Allocator) AfterCollect() {
	next := a.BytesAllocated * a.GrowthFactor
	if next < DefaultNextGC {
		next = DefaultNextGC
	}
	a.NextGC = next
}

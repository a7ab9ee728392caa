// Package stackmem allocates size-aligned, guard-paged memory regions.
//
// Every Inko-style process owns one such region. The runtime does not
// execute on it directly -- Go goroutines already come with their own
// growable, runtime-managed stacks, and there is no supported way to run Go
// code on an externally allocated one. Instead, the region backs the
// process's addressable scratch/metadata segment: the stack_mask trick
// (recovering a *Process from any address that falls inside its region) is
// exercised the same way the original uses it to recover the owning process
// from a fault address, just over a smaller backing store than a true
// execution stack.
package stackmem

import (
	"errors"
	"fmt"
)

// ErrNotPowerOfTwo is returned when the requested size is not a power of
// two, which the alignment trick (mask = ^(size-1)) requires.
var ErrNotPowerOfTwo = errors.New("stackmem: size must be a power of two")

// Region is a guard-paged, size-aligned block of memory. The first page is
// mapped PROT_NONE; Data returns the remaining, usable portion.
type Region struct {
	base  uintptr
	total uintptr
	guard uintptr
	data  []byte
	closer func() error
}

// New allocates a region of exactly size bytes, aligned to size, with its
// first page access-protected as a guard page. size must be a power of two
// and a multiple of the platform page size.
func New(size int) (*Region, error) {
	if size <= 0 || size&(size-1) != 0 {
		return nil, fmt.Errorf("%w: got %d", ErrNotPowerOfTwo, size)
	}
	return newRegion(uintptr(size))
}

// Data returns the usable memory beyond the guard page. Writing to it is
// safe; reading or writing anywhere in the guard page segfaults the
// process, which is the point: a runaway write from the metadata segment
// into unallocated territory is caught immediately rather than corrupting
// an adjacent allocation.
func (r *Region) Data() []byte {
	return r.data
}

// Base returns the address of the start of the full mapping, including the
// guard page.
func (r *Region) Base() uintptr {
	return r.base
}

// Mask returns the bitmask that recovers Base from any address that falls
// within this region: base == addr &^ (total-1), equivalently addr & Mask().
func (r *Region) Mask() uintptr {
	return ^(r.total - 1)
}

// OwnerBase applies Mask to addr, returning the Base of the region that
// contains it -- assuming addr does in fact fall within some region of this
// same total size. Callers recover their own metadata pointer (e.g. a
// *Process) by storing it at a fixed offset from Base and reading it back
// through this address.
func (r *Region) OwnerBase(addr uintptr) uintptr {
	return addr & r.Mask()
}

// Close releases the underlying mapping. The Region must not be used again
// afterward.
func (r *Region) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer()
}

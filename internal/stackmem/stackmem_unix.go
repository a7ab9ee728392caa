//go:build linux || darwin

package stackmem

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// newRegion over-allocates 2*size, trims the unused prefix/suffix to land on
// a size-aligned boundary, then mprotects the first page PROT_NONE. Grounded
// on the original's MemoryMap::stack, which uses the identical
// allocate-double-then-trim trick because POSIX mmap has no alignment hint.
func newRegion(size uintptr) (*Region, error) {
	allocSize := size * 2
	mem, err := unix.Mmap(-1, 0, int(allocSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("stackmem: mmap: %w", err)
	}

	rawStart := uintptr(unsafe.Pointer(&mem[0]))
	alignedStart := (rawStart + (size - 1)) &^ (size - 1)
	unusedBefore := alignedStart - rawStart
	unusedAfter := (rawStart + allocSize) - (alignedStart + size)

	if unusedBefore > 0 {
		if err := unix.MunmapPtr(unsafe.Pointer(rawStart), unusedBefore); err != nil {
			return nil, fmt.Errorf("stackmem: munmap prefix: %w", err)
		}
	}
	if unusedAfter > 0 {
		tailOff := int(allocSize - unusedAfter)
		if err := unix.MunmapPtr(unsafe.Pointer(rawStart+allocSize-unusedAfter), unusedAfter); err != nil {
			return nil, fmt.Errorf("stackmem: munmap suffix: %w", err)
		}
		_ = tailOff
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(alignedStart)), size)

	guard := uintptr(unix.Getpagesize())
	if err := unix.Mprotect(data[:guard], unix.PROT_NONE); err != nil {
		_ = unix.MunmapPtr(unsafe.Pointer(alignedStart), size)
		return nil, fmt.Errorf("stackmem: mprotect guard page: %w", err)
	}

	r := &Region{
		base:  alignedStart,
		total: size,
		guard: guard,
		data:  data[guard:],
	}
	r.closer = func() error {
		return unix.MunmapPtr(unsafe.Pointer(alignedStart), size)
	}
	return r, nil
}

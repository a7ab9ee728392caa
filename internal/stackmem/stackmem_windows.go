//go:build windows

package stackmem

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// newRegion mirrors the unix implementation using VirtualAlloc/VirtualFree,
// since Windows has no mmap(2) analogue. VirtualAlloc does not honour an
// alignment hint either, so the same over-allocate-then-trim strategy is
// used, except MEM_RELEASE requires releasing the entire original
// reservation in one call -- Windows cannot partially unmap a VirtualAlloc
// region. Instead, the oversized reservation is kept whole and the guard
// page plus usable slice are carved out of it with VirtualProtect, at the
// cost of reserving and committing 2x the requested size per process.
func newRegion(size uintptr) (*Region, error) {
	allocSize := size * 2
	addr, err := windows.VirtualAlloc(0, allocSize, windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, fmt.Errorf("stackmem: VirtualAlloc: %w", err)
	}

	alignedStart := (addr + (size - 1)) &^ (size - 1)
	guard := uintptr(4096)

	var oldProtect uint32
	guardSlice := unsafe.Slice((*byte)(unsafe.Pointer(alignedStart)), guard)
	if err := windows.VirtualProtect(uintptr(unsafe.Pointer(&guardSlice[0])), guard, windows.PAGE_NOACCESS, &oldProtect); err != nil {
		_ = windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
		return nil, fmt.Errorf("stackmem: VirtualProtect guard page: %w", err)
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(alignedStart)), size)

	r := &Region{
		base:  alignedStart,
		total: size,
		guard: guard,
		data:  data[guard:],
	}
	r.closer = func() error {
		return windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
	}
	return r, nil
}

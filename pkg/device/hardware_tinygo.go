//go:build tinygo

package device

import (
	"fmt"
	"runtime/volatile"
	"unsafe"
)

// Hardware is the Memory of the chip the program runs on.
type Hardware struct {
	regions [][]uint32 // keeps allocated buffers reachable
}

func (h *Hardware) Read32(addr uint32) uint32 {
	return volatile.LoadUint32((*uint32)(unsafe.Pointer(uintptr(addr))))
}

func (h *Hardware) Write32(addr uint32, value uint32) {
	volatile.StoreUint32((*uint32)(unsafe.Pointer(uintptr(addr))), value)
}

func (h *Hardware) Alloc(size int) (Region, error) {
	if size <= 0 {
		return Region{}, fmt.Errorf("%w: %d bytes requested", ErrOutOfMemory, size)
	}
	words := make([]uint32, (size+3)/4)
	h.regions = append(h.regions, words)

	p := unsafe.Pointer(&words[0])
	return Region{
		Addr:  uint32(uintptr(p)),
		Bytes: unsafe.Slice((*byte)(p), len(words)*4),
	}, nil
}

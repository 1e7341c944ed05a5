package device

import (
	"encoding/binary"
	"fmt"
	"sync"
)

// IORegion routes accesses in [start, end] to peripheral callbacks.
type IORegion struct {
	start   uint32
	end     uint32
	onRead  func(addr uint32) uint32
	onWrite func(addr uint32, value uint32)
}

// Write is one recorded CPU register write.
type Write struct {
	Addr  uint32
	Value uint32
}

// SystemBus is a host-side Bus and Memory: an SRAM window that backs
// allocated regions, a sparse register file, memory-mapped peripherals and a
// log of every register write the CPU issued.
type SystemBus struct {
	mutex sync.Mutex

	ram  []byte
	next uint32

	regs   map[uint32]uint32
	io     []IORegion
	writes []Write
}

func NewSystemBus() *SystemBus {
	return &SystemBus{
		ram:  make([]byte, SRAM_SIZE),
		regs: make(map[uint32]uint32),
	}
}

func (bus *SystemBus) MapIO(start, end uint32, onRead func(addr uint32) uint32, onWrite func(addr uint32, value uint32)) {
	bus.mutex.Lock()
	defer bus.mutex.Unlock()

	bus.io = append(bus.io, IORegion{
		start:   start,
		end:     end,
		onRead:  onRead,
		onWrite: onWrite,
	})
}

// Alloc hands out word-aligned SRAM. Regions are never freed.
func (bus *SystemBus) Alloc(size int) (Region, error) {
	bus.mutex.Lock()
	defer bus.mutex.Unlock()

	n := uint32(size+3) &^ 3
	if size <= 0 || bus.next+n > uint32(len(bus.ram)) {
		return Region{}, fmt.Errorf("%w: %d bytes requested, %d free", ErrOutOfMemory, size, uint32(len(bus.ram))-bus.next)
	}
	r := Region{
		Addr:  SRAM_BASE + bus.next,
		Bytes: bus.ram[bus.next : bus.next+n : bus.next+n],
	}
	bus.next += n
	return r, nil
}

func (bus *SystemBus) Write32(addr uint32, value uint32) {
	bus.mutex.Lock()
	defer bus.mutex.Unlock()

	if !bus.inRAM(addr) {
		bus.writes = append(bus.writes, Write{addr, value})
	}
	bus.store(addr, value)
}

func (bus *SystemBus) Read32(addr uint32) uint32 {
	bus.mutex.Lock()
	defer bus.mutex.Unlock()

	return bus.load(addr)
}

// Writes returns a copy of the register write log.
func (bus *SystemBus) Writes() []Write {
	bus.mutex.Lock()
	defer bus.mutex.Unlock()

	return append([]Write(nil), bus.writes...)
}

func (bus *SystemBus) ClearWrites() {
	bus.mutex.Lock()
	defer bus.mutex.Unlock()

	bus.writes = bus.writes[:0]
}

func (bus *SystemBus) inRAM(addr uint32) bool {
	return addr >= SRAM_BASE && addr-SRAM_BASE+4 <= uint32(len(bus.ram))
}

func (bus *SystemBus) region(addr uint32) *IORegion {
	for i := range bus.io {
		if addr >= bus.io[i].start && addr <= bus.io[i].end {
			return &bus.io[i]
		}
	}
	return nil
}

// store and load expect the mutex to be held.
func (bus *SystemBus) store(addr uint32, value uint32) {
	if bus.inRAM(addr) {
		binary.LittleEndian.PutUint32(bus.ram[addr-SRAM_BASE:], value)
		return
	}
	if r := bus.region(addr); r != nil && r.onWrite != nil {
		r.onWrite(addr, value)
	}
	bus.regs[addr] = value
}

func (bus *SystemBus) load(addr uint32) uint32 {
	if bus.inRAM(addr) {
		return binary.LittleEndian.Uint32(bus.ram[addr-SRAM_BASE:])
	}
	if r := bus.region(addr); r != nil && r.onRead != nil {
		return r.onRead(addr)
	}
	return bus.regs[addr]
}

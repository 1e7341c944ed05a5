package device

import "PicoAWG/pkg/fixed"

// Bus is 32-bit access to registers and memory.
type Bus interface {
	Read32(addr uint32) uint32
	Write32(addr uint32, value uint32)
}

// Region is a word-aligned block of memory the transfer engine can address.
type Region struct {
	Addr  uint32
	Bytes []byte
}

func (r Region) Contains(addr uint32) bool {
	return addr >= r.Addr && addr < r.Addr+uint32(len(r.Bytes))
}

// Memory allocates regions that stay at a fixed address for the session.
type Memory interface {
	Bus
	Alloc(size int) (Region, error)
}

// Clock sets the system clock and reports the rate actually reached.
type Clock interface {
	SetSystemClock(hz float64) (float64, error)
}

// Shifter is the shift-register peripheral that serializes words onto pins.
type Shifter interface {
	// ConfigureOutput loads the output program: bitsPerSample pins starting at
	// pinBase, one word pulled every samplesPerWord samples.
	ConfigureOutput(pinBase, bitsPerSample, samplesPerWord int) error
	SetClockDivider(div fixed.T) error
	// DataRequest is the pacing signal raised while the shifter can take a word.
	DataRequest() Pacing
	// TxAddr is the bus address of the shifter's input register.
	TxAddr() uint32
	Start() error
}

// Pacing selects what a transfer channel waits for between beats.
type Pacing uint8

const Unpaced Pacing = 0x3f

type DataSize uint8

const (
	SizeByte DataSize = iota
	SizeHalfWord
	SizeWord
)

// Transfer is the programming of one transfer channel.
type Transfer struct {
	Read  uint32
	Write uint32
	Count uint32

	Pacing    Pacing
	Size      DataSize
	IncrRead  bool
	IncrWrite bool
	ChainTo   int // a channel chaining to itself does not chain
}

// DMA is a transfer engine with independently programmable channels.
type DMA interface {
	// Configure programs and enables ch without starting it.
	Configure(ch int, t Transfer) error
	// Trigger starts ch with its current programming.
	Trigger(ch int) error
	Disable(ch int) error
	Busy(ch int) bool
	// ReadAddr is the current read pointer of ch.
	ReadAddr(ch int) uint32
	// ReadAddrReg is the bus address of the read pointer register of ch.
	ReadAddrReg(ch int) uint32
}

package stream

import (
	"encoding/binary"
	"errors"
	"fmt"

	"PicoAWG/pkg/device"
)

const (
	DataChannel   = 0
	ReloadChannel = 1
	WordSize      = 4
)

var (
	ErrSlot       = errors.New("no such buffer slot")
	ErrWordCount  = errors.New("word count out of range")
	ErrNotArmed   = errors.New("stream not armed")
	ErrBufferBusy = errors.New("buffer still streaming")
)

// State is what the transfer loop is doing right now.
type State int

const (
	Disarmed State = iota
	// Armed: the data transfer is moving buffer words into the shifter.
	Armed
	// ChainedReload: the reload transfer is rewriting the data transfer's
	// source pointer and will retrigger it.
	ChainedReload
)

func (s State) String() string {
	switch s {
	case Disarmed:
		return "disarmed"
	case Armed:
		return "armed"
	case ChainedReload:
		return "chained-reload"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Engine keeps the shifter fed from one of two buffers with a pair of
// transfers that retrigger each other: the data transfer streams the buffer,
// then chains to the reload transfer, which copies the buffer address from
// the scratch cell back into the data transfer's source pointer and chains
// back. Once armed the loop runs without the CPU.
type Engine struct {
	mem     device.Memory
	dma     device.DMA
	shifter device.Shifter

	buffers  [2]device.Region
	scratch  device.Region
	counts   [2]int
	maxWords int

	active int // -1 while disarmed
	// previous is the slot the hardware may still be reading after a Swap.
	previous int
}

// New allocates both buffers and the scratch cell. Buffers live for the
// lifetime of the engine.
func New(mem device.Memory, dma device.DMA, shifter device.Shifter, maxWordCount int) (*Engine, error) {
	if maxWordCount < 1 {
		return nil, fmt.Errorf("%w: %d", ErrWordCount, maxWordCount)
	}

	e := &Engine{
		mem:      mem,
		dma:      dma,
		shifter:  shifter,
		maxWords: maxWordCount,
		active:   -1,
		previous: -1,
	}
	for i := range e.buffers {
		r, err := mem.Alloc(maxWordCount * WordSize)
		if err != nil {
			return nil, fmt.Errorf("failed to allocate buffer %d: %w", i, err)
		}
		e.buffers[i] = r
	}
	r, err := mem.Alloc(WordSize)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate scratch cell: %w", err)
	}
	e.scratch = r
	return e, nil
}

func (e *Engine) MaxWordCount() int {
	return e.maxWords
}

// Buffer returns the memory of slot for the caller to fill. Only the slot
// reported by Inactive may be written, and only while Streaming is false.
func (e *Engine) Buffer(slot int) []byte {
	return e.buffers[slot].Bytes
}

func (e *Engine) Addr(slot int) uint32 {
	return e.buffers[slot].Addr
}

// Active is the slot the loop reloads from, or -1.
func (e *Engine) Active() int {
	return e.active
}

func (e *Engine) Inactive() int {
	if e.active == 0 {
		return 1
	}
	return 0
}

// WordCount is the number of words last armed from slot.
func (e *Engine) WordCount(slot int) int {
	return e.counts[slot]
}

func (e *Engine) State() State {
	switch {
	case e.active < 0:
		return Disarmed
	case e.dma.Busy(ReloadChannel):
		return ChainedReload
	}
	return Armed
}

// Streaming reports whether the hardware may still read slot.
func (e *Engine) Streaming(slot int) bool {
	if e.active < 0 {
		return false
	}
	if slot == e.active {
		return true
	}
	if slot != e.previous {
		return false
	}
	if e.dma.Busy(ReloadChannel) {
		// the reload already fetched the new address, or is about to
		return false
	}
	b := e.buffers[slot]
	end := b.Addr + uint32(e.counts[slot]*WordSize)
	addr := e.dma.ReadAddr(DataChannel)
	if e.dma.Busy(DataChannel) && addr >= b.Addr && addr < end {
		return true
	}
	e.previous = -1
	return false
}

func (e *Engine) check(slot, wordCount int) error {
	if slot < 0 || slot >= len(e.buffers) {
		return fmt.Errorf("%w: %d", ErrSlot, slot)
	}
	if wordCount < 1 || wordCount > e.maxWords {
		return fmt.Errorf("%w: %d, allowed 1-%d", ErrWordCount, wordCount, e.maxWords)
	}
	return nil
}

// Arm stops any running loop and starts streaming wordCount words of slot.
func (e *Engine) Arm(slot, wordCount int) error {
	if err := e.check(slot, wordCount); err != nil {
		return err
	}

	// stop both before touching either, so no half-programmed channel runs
	if err := e.Disarm(); err != nil {
		return err
	}

	buf := e.buffers[slot]
	if err := e.dma.Configure(DataChannel, device.Transfer{
		Read:     buf.Addr,
		Write:    e.shifter.TxAddr(),
		Count:    uint32(wordCount),
		Pacing:   e.shifter.DataRequest(),
		Size:     device.SizeWord,
		IncrRead: true,
		ChainTo:  ReloadChannel,
	}); err != nil {
		return fmt.Errorf("failed to program data transfer: %w", err)
	}

	binary.LittleEndian.PutUint32(e.scratch.Bytes, buf.Addr)
	if err := e.dma.Configure(ReloadChannel, device.Transfer{
		Read:    e.scratch.Addr,
		Write:   e.dma.ReadAddrReg(DataChannel),
		Count:   1,
		Pacing:  device.Unpaced,
		Size:    device.SizeWord,
		ChainTo: DataChannel,
	}); err != nil {
		return fmt.Errorf("failed to program reload transfer: %w", err)
	}

	if err := e.dma.Trigger(ReloadChannel); err != nil {
		return fmt.Errorf("failed to start reload transfer: %w", err)
	}

	e.active = slot
	e.previous = -1
	e.counts[slot] = wordCount
	fmt.Printf("[Stream] armed buffer %d at %#08x, %d words\n", slot, buf.Addr, wordCount)
	return nil
}

// Swap points the running loop at slot by rewriting only the scratch cell.
// The current buffer plays to its end first, so the switch is gap-free. The
// data transfer keeps its word count, so slot must hold as many words.
func (e *Engine) Swap(slot, wordCount int) error {
	if err := e.check(slot, wordCount); err != nil {
		return err
	}
	if e.active < 0 {
		return ErrNotArmed
	}
	if slot == e.active {
		return nil
	}
	if wordCount != e.counts[e.active] {
		return fmt.Errorf("%w: swap needs %d words, got %d", ErrWordCount, e.counts[e.active], wordCount)
	}

	// the reload transfer may read the cell at any time: single aligned store
	e.mem.Write32(e.scratch.Addr, e.buffers[slot].Addr)

	e.previous = e.active
	e.active = slot
	e.counts[slot] = wordCount
	fmt.Printf("[Stream] swapped to buffer %d at %#08x\n", slot, e.buffers[slot].Addr)
	return nil
}

// Disarm stops both transfers. The shifter runs dry and holds its last output.
func (e *Engine) Disarm() error {
	if err := e.dma.Disable(DataChannel); err != nil {
		return fmt.Errorf("failed to disable data transfer: %w", err)
	}
	if err := e.dma.Disable(ReloadChannel); err != nil {
		return fmt.Errorf("failed to disable reload transfer: %w", err)
	}
	e.active = -1
	e.previous = -1
	return nil
}

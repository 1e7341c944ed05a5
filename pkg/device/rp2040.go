package device

import (
	"errors"
	"fmt"

	"PicoAWG/pkg/fixed"
)

// Register map of the parts of the RP2040 the generator touches.
const (
	XOSC_HZ = 12000000

	PLL_SYS_BASE      = 0x40028000
	PLL_SYS_FBDIV_INT = PLL_SYS_BASE + 0x8
	PLL_SYS_PRIM      = PLL_SYS_BASE + 0xc

	IO_BANK0_BASE  = 0x40014000
	GPIO_FUNC_PIO0 = 6
	NUM_GPIO       = 30

	DMA_BASE        = 0x50000000
	DMA_CH_STRIDE   = 0x40
	DMA_CHANNELS    = 12
	DMA_READ_ADDR   = 0x000
	DMA_WRITE_ADDR  = 0x004
	DMA_TRANS_COUNT = 0x008
	DMA_CTRL_TRIG   = 0x00c
	DMA_AL1_CTRL    = 0x010

	PIO0_BASE         = 0x50200000
	PIO_CTRL          = 0x000
	PIO_TXF0          = 0x010
	PIO_INSTR_MEM0    = 0x048
	PIO_SM0_CLKDIV    = 0x0c8
	PIO_SM0_EXECCTRL  = 0x0cc
	PIO_SM0_SHIFTCTRL = 0x0d0
	PIO_SM0_INSTR     = 0x0d8
	PIO_SM0_PINCTRL   = 0x0dc
	PIO_SM_STRIDE     = 0x18
	PIO_SM_COUNT      = 4
	PIO_REGION_SIZE   = 0x144

	DREQ_PIO0_TX0 = 0

	SRAM_BASE = 0x20000000
	SRAM_SIZE = 264 * 1024
)

// DMA CTRL register fields.
const (
	CTRL_EN              = 1 << 0
	CTRL_HIGH_PRIORITY   = 1 << 1
	CTRL_DATA_SIZE_SHIFT = 2
	CTRL_INCR_READ       = 1 << 4
	CTRL_INCR_WRITE      = 1 << 5
	CTRL_RING_SIZE_SHIFT = 6
	CTRL_RING_SEL        = 1 << 10
	CTRL_CHAIN_TO_SHIFT  = 11
	CTRL_TREQ_SEL_SHIFT  = 15
	CTRL_IRQ_QUIET       = 1 << 21
	CTRL_BUSY            = 1 << 24
)

// PIO SHIFTCTRL fields and instruction encodings.
const (
	SHIFTCTRL_AUTOPULL     = 1 << 17
	SHIFTCTRL_OUT_SHIFTDIR = 1 << 19
	SHIFTCTRL_PULL_THRESH  = 25
	SHIFTCTRL_FJOIN_TX     = 1 << 30

	PINCTRL_OUT_COUNT = 20

	INSTR_OUT_PINS    = 0x6000
	INSTR_OUT_PINDIRS = 0x6080
	INSTR_PULL_BLOCK  = 0x80a0
)

var (
	ErrClockRange    = errors.New("system clock out of range")
	ErrChannel       = errors.New("no such transfer channel")
	ErrNotConfigured = errors.New("transfer channel not configured")
	ErrShifterConfig = errors.New("invalid shifter configuration")
	ErrClockDivider  = errors.New("clock divider out of range")
	ErrOutOfMemory   = errors.New("out of transfer memory")
)

// RP2040 drives the PLL, one PIO0 state machine and the DMA channels of an
// RP2040 through a Bus.
type RP2040 struct {
	Bus Bus
	SM  int // PIO0 state machine used as the shifter

	ctrl [DMA_CHANNELS]uint32
}

func NewRP2040(bus Bus) *RP2040 {
	return &RP2040{Bus: bus}
}

// SetSystemClock reprograms the system PLL for 100-250 MHz. Below 130 MHz it
// steps in 1 MHz, above in 2 MHz.
func (r *RP2040) SetSystemClock(hz float64) (float64, error) {
	if hz < 100e6 || hz > 250e6 {
		return 0, fmt.Errorf("%w: %.0f Hz, allowed 100-250 MHz", ErrClockRange, hz)
	}

	var fbdiv, postdiv1, postdiv2 uint32
	if hz <= 130e6 {
		fbdiv, postdiv1, postdiv2 = uint32(hz/1e6), 6, 2
	} else {
		fbdiv, postdiv1, postdiv2 = uint32(hz/2e6), 3, 2
	}
	r.Bus.Write32(PLL_SYS_PRIM, postdiv1<<16|postdiv2<<12)
	r.Bus.Write32(PLL_SYS_FBDIV_INT, fbdiv)

	actual := float64(XOSC_HZ) * float64(fbdiv) / float64(postdiv1*postdiv2)
	fmt.Printf("[Clock] system clock %.1f MHz (fbdiv %d, postdiv %d/%d)\n", actual/1e6, fbdiv, postdiv1, postdiv2)
	return actual, nil
}

func (r *RP2040) smReg(offset uint32) uint32 {
	return PIO0_BASE + offset + uint32(r.SM)*PIO_SM_STRIDE
}

// ConfigureOutput loads a single `out pins, n` instruction with autopull, so
// the state machine shifts one sample per cycle and pulls a new word every
// samplesPerWord samples.
func (r *RP2040) ConfigureOutput(pinBase, bitsPerSample, samplesPerWord int) error {
	switch {
	case r.SM < 0 || r.SM >= PIO_SM_COUNT:
		return fmt.Errorf("%w: state machine %d", ErrShifterConfig, r.SM)
	case bitsPerSample < 1 || samplesPerWord < 1:
		return fmt.Errorf("%w: %d bits x %d samples", ErrShifterConfig, bitsPerSample, samplesPerWord)
	case bitsPerSample*samplesPerWord > 32:
		return fmt.Errorf("%w: %d bits x %d samples exceed a word", ErrShifterConfig, bitsPerSample, samplesPerWord)
	case pinBase < 0 || pinBase+bitsPerSample > NUM_GPIO:
		return fmt.Errorf("%w: pins %d-%d", ErrShifterConfig, pinBase, pinBase+bitsPerSample-1)
	}

	bits := uint32(bitsPerSample)
	pio := uint32(PIO0_BASE)

	r.Bus.Write32(pio+PIO_CTRL, r.Bus.Read32(pio+PIO_CTRL)&^(1<<r.SM))
	r.Bus.Write32(pio+PIO_INSTR_MEM0, INSTR_OUT_PINS|bits&0x1f)
	// wrap top and bottom both on instruction 0
	r.Bus.Write32(r.smReg(PIO_SM0_EXECCTRL), 0)
	r.Bus.Write32(r.smReg(PIO_SM0_SHIFTCTRL),
		SHIFTCTRL_FJOIN_TX|(bits*uint32(samplesPerWord)&0x1f)<<SHIFTCTRL_PULL_THRESH|SHIFTCTRL_OUT_SHIFTDIR|SHIFTCTRL_AUTOPULL)
	r.Bus.Write32(r.smReg(PIO_SM0_PINCTRL), bits<<PINCTRL_OUT_COUNT|uint32(pinBase))

	for p := pinBase; p < pinBase+bitsPerSample; p++ {
		r.Bus.Write32(IO_BANK0_BASE+uint32(p)*8+4, GPIO_FUNC_PIO0)
	}

	// drive all output pins: pull a word of ones and shift it into pindirs
	r.Bus.Write32(pio+PIO_TXF0+uint32(r.SM)*4, 0xffffffff)
	r.Bus.Write32(r.smReg(PIO_SM0_INSTR), INSTR_PULL_BLOCK)
	r.Bus.Write32(r.smReg(PIO_SM0_INSTR), INSTR_OUT_PINDIRS|bits&0x1f)
	return nil
}

func (r *RP2040) SetClockDivider(div fixed.T) error {
	if !div.Valid() {
		return fmt.Errorf("%w: %.3f", ErrClockDivider, div.Float())
	}
	r.Bus.Write32(r.smReg(PIO_SM0_CLKDIV), div.Register())
	return nil
}

func (r *RP2040) DataRequest() Pacing {
	return Pacing(DREQ_PIO0_TX0 + r.SM)
}

func (r *RP2040) TxAddr() uint32 {
	return PIO0_BASE + PIO_TXF0 + uint32(r.SM)*4
}

func (r *RP2040) Start() error {
	ctrl := r.Bus.Read32(PIO0_BASE + PIO_CTRL)
	r.Bus.Write32(PIO0_BASE+PIO_CTRL, ctrl|1<<r.SM)
	return nil
}

func channelBase(ch int) uint32 {
	return DMA_BASE + uint32(ch)*DMA_CH_STRIDE
}

func checkChannel(ch int) error {
	if ch < 0 || ch >= DMA_CHANNELS {
		return fmt.Errorf("%w: %d", ErrChannel, ch)
	}
	return nil
}

// EncodeCtrl builds the CTRL word for t on channel ch, enabled, quiet and at
// high priority.
func EncodeCtrl(ch int, t Transfer) uint32 {
	chain := uint32(t.ChainTo)
	if t.ChainTo < 0 || t.ChainTo >= DMA_CHANNELS {
		chain = uint32(ch)
	}
	ctrl := uint32(CTRL_IRQ_QUIET | CTRL_HIGH_PRIORITY | CTRL_EN)
	ctrl |= uint32(t.Pacing&0x3f) << CTRL_TREQ_SEL_SHIFT
	ctrl |= chain << CTRL_CHAIN_TO_SHIFT
	ctrl |= uint32(t.Size&0x3) << CTRL_DATA_SIZE_SHIFT
	if t.IncrRead {
		ctrl |= CTRL_INCR_READ
	}
	if t.IncrWrite {
		ctrl |= CTRL_INCR_WRITE
	}
	return ctrl
}

func (r *RP2040) Configure(ch int, t Transfer) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	base := channelBase(ch)
	r.ctrl[ch] = EncodeCtrl(ch, t)
	r.Bus.Write32(base+DMA_READ_ADDR, t.Read)
	r.Bus.Write32(base+DMA_WRITE_ADDR, t.Write)
	r.Bus.Write32(base+DMA_TRANS_COUNT, t.Count)
	r.Bus.Write32(base+DMA_AL1_CTRL, r.ctrl[ch])
	return nil
}

func (r *RP2040) Trigger(ch int) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	if r.ctrl[ch] == 0 {
		return fmt.Errorf("%w: %d", ErrNotConfigured, ch)
	}
	r.Bus.Write32(channelBase(ch)+DMA_CTRL_TRIG, r.ctrl[ch])
	return nil
}

func (r *RP2040) Disable(ch int) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	r.Bus.Write32(channelBase(ch)+DMA_AL1_CTRL, 0)
	return nil
}

func (r *RP2040) Busy(ch int) bool {
	if checkChannel(ch) != nil {
		return false
	}
	return r.Bus.Read32(channelBase(ch)+DMA_AL1_CTRL)&CTRL_BUSY != 0
}

func (r *RP2040) ReadAddr(ch int) uint32 {
	return r.Bus.Read32(r.ReadAddrReg(ch))
}

func (r *RP2040) ReadAddrReg(ch int) uint32 {
	return channelBase(ch) + DMA_READ_ADDR
}

package device

type dmaChannel struct {
	read      uint32
	write     uint32
	reload    uint32 // count loaded on trigger
	remaining uint32
	ctrl      uint32
	busy      bool
}

func (c *dmaChannel) chainTo() int {
	return int(c.ctrl>>CTRL_CHAIN_TO_SHIFT) & 0xf
}

func (c *dmaChannel) pacing() Pacing {
	return Pacing(c.ctrl>>CTRL_TREQ_SEL_SHIFT) & 0x3f
}

// Sim is an RP2040 stand-in for the host: a SystemBus whose DMA and PIO0
// register windows behave like the peripherals closely enough to run the
// chained transfer loop. Every word written to an enabled state machine's TX
// FIFO is recorded as shifted out.
type Sim struct {
	*SystemBus

	dma     [DMA_CHANNELS]dmaChannel
	smOn    uint32
	shifted []uint32
}

func NewSim() *Sim {
	s := &Sim{SystemBus: NewSystemBus()}
	s.MapIO(DMA_BASE, DMA_BASE+DMA_CHANNELS*DMA_CH_STRIDE-1, s.dmaRead, s.dmaWrite)
	s.MapIO(PIO0_BASE, PIO0_BASE+PIO_REGION_SIZE-1, s.pioRead, s.pioWrite)
	return s
}

func (s *Sim) dmaRead(addr uint32) uint32 {
	c := &s.dma[(addr-DMA_BASE)/DMA_CH_STRIDE]
	switch (addr - DMA_BASE) % DMA_CH_STRIDE {
	case DMA_READ_ADDR:
		return c.read
	case DMA_WRITE_ADDR:
		return c.write
	case DMA_TRANS_COUNT:
		return c.remaining
	case DMA_CTRL_TRIG, DMA_AL1_CTRL:
		if c.busy {
			return c.ctrl | CTRL_BUSY
		}
		return c.ctrl
	}
	return 0
}

func (s *Sim) dmaWrite(addr uint32, value uint32) {
	ch := int((addr - DMA_BASE) / DMA_CH_STRIDE)
	c := &s.dma[ch]
	switch (addr - DMA_BASE) % DMA_CH_STRIDE {
	case DMA_READ_ADDR:
		c.read = value
	case DMA_WRITE_ADDR:
		c.write = value
	case DMA_TRANS_COUNT:
		c.reload = value
	case DMA_CTRL_TRIG:
		c.ctrl = value &^ CTRL_BUSY
		s.trigger(ch)
	case DMA_AL1_CTRL:
		c.ctrl = value &^ CTRL_BUSY
		if c.ctrl&CTRL_EN == 0 {
			c.busy = false
		}
	}
}

func (s *Sim) pioRead(addr uint32) uint32 {
	if addr == PIO0_BASE+PIO_CTRL {
		return s.smOn
	}
	return s.regs[addr]
}

func (s *Sim) pioWrite(addr uint32, value uint32) {
	switch {
	case addr == PIO0_BASE+PIO_CTRL:
		s.smOn = value & 0xf
	case addr >= PIO0_BASE+PIO_TXF0 && addr < PIO0_BASE+PIO_TXF0+4*PIO_SM_COUNT:
		if s.smOn&(1<<((addr-PIO0_BASE-PIO_TXF0)/4)) != 0 {
			s.shifted = append(s.shifted, value)
		}
	}
}

func (s *Sim) trigger(ch int) {
	c := &s.dma[ch]
	if c.ctrl&CTRL_EN == 0 {
		return
	}
	c.remaining = c.reload
	c.busy = c.remaining > 0
}

// ready reports whether the pacing signal of c is asserted. The TX FIFOs of
// running state machines are drained as fast as they are filled.
func (s *Sim) ready(c *dmaChannel) bool {
	p := c.pacing()
	if p == Unpaced {
		return true
	}
	if p < DREQ_PIO0_TX0+PIO_SM_COUNT {
		return s.smOn&(1<<(p-DREQ_PIO0_TX0)) != 0
	}
	return false
}

// Step moves one word on the lowest busy channel whose pacing signal is
// asserted. It reports false when no channel could move.
func (s *Sim) Step() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.step()
}

func (s *Sim) step() bool {
	for ch := range s.dma {
		c := &s.dma[ch]
		if !c.busy || !s.ready(c) {
			continue
		}

		s.store(c.write, s.load(c.read))
		if c.ctrl&CTRL_INCR_READ != 0 {
			c.read += 4
		}
		if c.ctrl&CTRL_INCR_WRITE != 0 {
			c.write += 4
		}
		c.remaining--
		if c.remaining == 0 {
			c.busy = false
			if next := c.chainTo(); next != ch {
				s.trigger(next)
			}
		}
		return true
	}
	return false
}

// Run steps the transfer engine until n more words have been shifted out or
// it stalls, and returns the words shifted out meanwhile.
func (s *Sim) Run(n int) []uint32 {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	start := len(s.shifted)
	for len(s.shifted)-start < n && s.step() {
	}
	return append([]uint32(nil), s.shifted[start:]...)
}

// Shifted returns every word shifted out so far.
func (s *Sim) Shifted() []uint32 {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return append([]uint32(nil), s.shifted...)
}

// Drain returns the words shifted out so far and forgets them.
func (s *Sim) Drain() []uint32 {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	out := s.shifted
	s.shifted = nil
	return out
}

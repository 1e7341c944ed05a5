package device

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func fillWords(r Region, words ...uint32) {
	for i, w := range words {
		binary.LittleEndian.PutUint32(r.Bytes[4*i:], w)
	}
}

func TestAlloc(t *testing.T) {
	bus := NewSystemBus()

	a, err := bus.Alloc(10)
	if err != nil {
		t.Fatal(err)
	}
	b, err := bus.Alloc(4)
	if err != nil {
		t.Fatal(err)
	}
	if a.Addr != SRAM_BASE || len(a.Bytes) != 12 || b.Addr != SRAM_BASE+12 {
		t.Errorf("unexpected regions %#x/%d and %#x", a.Addr, len(a.Bytes), b.Addr)
	}

	fillWords(b, 0xdeadbeef)
	if got := bus.Read32(b.Addr); got != 0xdeadbeef {
		t.Errorf("expected the region to alias bus memory, got %#x", got)
	}
	bus.Write32(a.Addr, 42)
	if binary.LittleEndian.Uint32(a.Bytes) != 42 {
		t.Error("expected a bus write to show in the region")
	}
	if len(bus.Writes()) != 0 {
		t.Error("memory writes should not be logged as register writes")
	}

	if _, err := bus.Alloc(SRAM_SIZE); !errors.Is(err, ErrOutOfMemory) {
		t.Errorf("expected ErrOutOfMemory, got %v", err)
	}
	if !a.Contains(a.Addr+8) || a.Contains(b.Addr) {
		t.Error("Contains disagrees with the region bounds")
	}
}

// armLoop programs the two-channel loop by hand: channel 0 streams buf into
// the TX FIFO, channel 1 rewrites channel 0's read pointer from cell.
func armLoop(t *testing.T, r *RP2040, buf, cell Region, count uint32) {
	t.Helper()

	fillWords(cell, buf.Addr)
	if err := r.Configure(0, Transfer{
		Read: buf.Addr, Write: r.TxAddr(), Count: count,
		Pacing: r.DataRequest(), Size: SizeWord, IncrRead: true, ChainTo: 1,
	}); err != nil {
		t.Fatal(err)
	}
	if err := r.Configure(1, Transfer{
		Read: cell.Addr, Write: r.ReadAddrReg(0), Count: 1,
		Pacing: Unpaced, Size: SizeWord, ChainTo: 0,
	}); err != nil {
		t.Fatal(err)
	}
	if err := r.Trigger(1); err != nil {
		t.Fatal(err)
	}
}

func TestSimChainedLoop(t *testing.T) {
	s := NewSim()
	r := NewRP2040(s)
	buf, _ := s.Alloc(16)
	cell, _ := s.Alloc(4)
	fillWords(buf, 1, 2, 3, 4)

	if err := r.ConfigureOutput(0, 8, 1); err != nil {
		t.Fatal(err)
	}
	armLoop(t, r, buf, cell, 4)

	// paced by a stopped state machine, the data channel must wait
	for i := 0; i < 10; i++ {
		s.Step()
	}
	if len(s.Shifted()) != 0 {
		t.Fatalf("words shifted out before the state machine started: %v", s.Shifted())
	}
	if !r.Busy(0) || r.Busy(1) {
		t.Fatalf("expected the data channel armed, got busy %v/%v", r.Busy(0), r.Busy(1))
	}

	r.Start()
	got := s.Run(10)
	expected := []uint32{1, 2, 3, 4, 1, 2, 3, 4, 1, 2}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("shifted words mismatch (-want +got):\n%s", diff)
	}

	// repoint the loop at a second buffer through the cell only
	next, _ := s.Alloc(16)
	fillWords(next, 7, 8, 9, 10)
	fillWords(cell, next.Addr)
	got = s.Run(8)
	expected = []uint32{3, 4, 7, 8, 9, 10, 7, 8}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("shifted words after repoint mismatch (-want +got):\n%s", diff)
	}
}

func TestSimDisable(t *testing.T) {
	s := NewSim()
	r := NewRP2040(s)
	buf, _ := s.Alloc(8)
	cell, _ := s.Alloc(4)
	fillWords(buf, 5, 6)

	r.ConfigureOutput(0, 8, 1)
	r.Start()
	armLoop(t, r, buf, cell, 2)

	if got := s.Run(3); len(got) != 3 {
		t.Fatalf("expected 3 words, got %v", got)
	}
	r.Disable(0)
	r.Disable(1)
	if s.Step() {
		t.Error("no channel should move after both are disabled")
	}
	if got := s.Run(5); len(got) != 0 {
		t.Errorf("expected a stalled engine, got %v", got)
	}

	if got := s.Drain(); len(got) != 3 {
		t.Errorf("expected to drain 3 words, got %v", got)
	}
	if len(s.Shifted()) != 0 {
		t.Error("Drain should forget the drained words")
	}
}

package stream

import (
	"encoding/binary"
	"errors"
	"testing"

	"PicoAWG/pkg/device"

	"github.com/google/go-cmp/cmp"
)

func newTestEngine(t *testing.T, maxWords int) (*Engine, *device.Sim, *device.RP2040) {
	t.Helper()

	sim := device.NewSim()
	chip := device.NewRP2040(sim)
	if err := chip.ConfigureOutput(0, 22, 1); err != nil {
		t.Fatal(err)
	}
	if err := chip.Start(); err != nil {
		t.Fatal(err)
	}
	e, err := New(sim, chip, chip, maxWords)
	if err != nil {
		t.Fatal(err)
	}
	return e, sim, chip
}

func fill(e *Engine, slot int, words ...uint32) {
	buf := e.Buffer(slot)
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[4*i:], w)
	}
}

func repeat(words []uint32, n int) []uint32 {
	out := make([]uint32, 0, n)
	for len(out) < n {
		out = append(out, words...)
	}
	return out[:n]
}

func TestArmStreamsContinuously(t *testing.T) {
	e, sim, _ := newTestEngine(t, 8)
	words := []uint32{10, 11, 12, 13, 14}
	fill(e, 0, words...)

	if e.State() != Disarmed {
		t.Fatalf("expected disarmed, got %v", e.State())
	}
	if err := e.Arm(0, len(words)); err != nil {
		t.Fatal(err)
	}
	if e.State() != ChainedReload {
		t.Errorf("expected the reload transfer to run first, got %v", e.State())
	}

	got := sim.Run(5 * len(words))
	if diff := cmp.Diff(repeat(words, 5*len(words)), got); diff != "" {
		t.Errorf("stream mismatch (-want +got):\n%s", diff)
	}
	if e.State() == Disarmed || e.Active() != 0 || e.Inactive() != 1 {
		t.Errorf("unexpected state %v, active %d", e.State(), e.Active())
	}
}

func TestArmProgramsBothTransfers(t *testing.T) {
	e, sim, chip := newTestEngine(t, 16)
	sim.ClearWrites()

	if err := e.Arm(1, 12); err != nil {
		t.Fatal(err)
	}

	dataCtrl := device.EncodeCtrl(DataChannel, device.Transfer{
		Pacing: chip.DataRequest(), Size: device.SizeWord, IncrRead: true, ChainTo: ReloadChannel,
	})
	reloadCtrl := device.EncodeCtrl(ReloadChannel, device.Transfer{
		Pacing: device.Unpaced, Size: device.SizeWord, ChainTo: DataChannel,
	})
	data := uint32(device.DMA_BASE)
	reload := uint32(device.DMA_BASE + device.DMA_CH_STRIDE)

	expected := []device.Write{
		{Addr: data + device.DMA_AL1_CTRL, Value: 0},
		{Addr: reload + device.DMA_AL1_CTRL, Value: 0},
		{Addr: data + device.DMA_READ_ADDR, Value: e.Addr(1)},
		{Addr: data + device.DMA_WRITE_ADDR, Value: chip.TxAddr()},
		{Addr: data + device.DMA_TRANS_COUNT, Value: 12},
		{Addr: data + device.DMA_AL1_CTRL, Value: dataCtrl},
		{Addr: reload + device.DMA_READ_ADDR, Value: e.scratch.Addr},
		{Addr: reload + device.DMA_WRITE_ADDR, Value: data + device.DMA_READ_ADDR},
		{Addr: reload + device.DMA_TRANS_COUNT, Value: 1},
		{Addr: reload + device.DMA_AL1_CTRL, Value: reloadCtrl},
		{Addr: reload + device.DMA_CTRL_TRIG, Value: reloadCtrl},
	}
	if diff := cmp.Diff(expected, sim.Writes()); diff != "" {
		t.Errorf("register writes mismatch (-want +got):\n%s", diff)
	}
	if got := binary.LittleEndian.Uint32(e.scratch.Bytes); got != e.Addr(1) {
		t.Errorf("scratch cell holds %#x, expected %#x", got, e.Addr(1))
	}
}

func TestRearmWithOtherBuffer(t *testing.T) {
	e, sim, _ := newTestEngine(t, 4)
	fill(e, 0, 1, 2, 3, 4)
	fill(e, 1, 5, 6)

	if err := e.Arm(0, 4); err != nil {
		t.Fatal(err)
	}
	sim.Run(6)

	if e.Streaming(1) {
		t.Fatal("the inactive buffer must not be streaming")
	}
	if err := e.Arm(1, 2); err != nil {
		t.Fatal(err)
	}
	if e.Streaming(0) {
		t.Error("re-arming releases the old buffer")
	}

	got := sim.Run(6)
	if diff := cmp.Diff([]uint32{5, 6, 5, 6, 5, 6}, got); diff != "" {
		t.Errorf("stream mismatch (-want +got):\n%s", diff)
	}
}

func TestSwapIsGapFree(t *testing.T) {
	e, sim, _ := newTestEngine(t, 4)
	fill(e, 0, 1, 2, 3, 4)
	fill(e, 1, 5, 6, 7, 8)

	if err := e.Arm(0, 4); err != nil {
		t.Fatal(err)
	}
	first := sim.Run(6)

	if err := e.Swap(1, 4); err != nil {
		t.Fatal(err)
	}
	if e.Active() != 1 || e.Inactive() != 0 {
		t.Fatalf("expected slot 1 active, got %d", e.Active())
	}
	if !e.Streaming(0) {
		t.Error("the old buffer is still mid-transfer after a swap")
	}

	second := sim.Run(10)
	if e.Streaming(0) {
		t.Error("the old buffer is released once the reload picked up the new one")
	}

	got := append(first, second...)
	expected := []uint32{1, 2, 3, 4, 1, 2, 3, 4, 5, 6, 7, 8, 5, 6, 7, 8}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("stream mismatch (-want +got):\n%s", diff)
	}
}

func TestSwapErrors(t *testing.T) {
	e, _, _ := newTestEngine(t, 4)

	if err := e.Swap(1, 4); !errors.Is(err, ErrNotArmed) {
		t.Errorf("expected ErrNotArmed, got %v", err)
	}
	if err := e.Arm(0, 4); err != nil {
		t.Fatal(err)
	}
	if err := e.Swap(1, 3); !errors.Is(err, ErrWordCount) {
		t.Errorf("expected ErrWordCount, got %v", err)
	}
	if e.Active() != 0 {
		t.Errorf("a failed swap must not change the active slot, got %d", e.Active())
	}
}

func TestArmErrors(t *testing.T) {
	e, sim, _ := newTestEngine(t, 4)
	fill(e, 0, 9, 9, 9, 9)
	if err := e.Arm(0, 4); err != nil {
		t.Fatal(err)
	}
	sim.ClearWrites()

	tests := []struct {
		name      string
		slot      int
		wordCount int
		err       error
	}{
		{"slot", 2, 4, ErrSlot},
		{"negative slot", -1, 4, ErrSlot},
		{"zero words", 1, 0, ErrWordCount},
		{"too many words", 1, 5, ErrWordCount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := e.Arm(tt.slot, tt.wordCount); !errors.Is(err, tt.err) {
				t.Errorf("expected %v, got %v", tt.err, err)
			}
		})
	}

	if len(sim.Writes()) != 0 {
		t.Errorf("rejected arms touched registers: %+v", sim.Writes())
	}
	if got := sim.Run(4); len(got) != 4 {
		t.Errorf("the running stream must survive rejected arms, got %v", got)
	}
}

func TestDisarm(t *testing.T) {
	e, sim, _ := newTestEngine(t, 4)
	fill(e, 0, 1, 2)
	e.Arm(0, 2)
	sim.Run(3)

	if err := e.Disarm(); err != nil {
		t.Fatal(err)
	}
	if e.State() != Disarmed || e.Active() != -1 {
		t.Errorf("expected disarmed, got %v", e.State())
	}
	if got := sim.Run(4); len(got) != 0 {
		t.Errorf("expected no output after disarm, got %v", got)
	}
}

func TestNewAllocatesOnce(t *testing.T) {
	sim := device.NewSim()
	chip := device.NewRP2040(sim)

	if _, err := New(sim, chip, chip, 0); !errors.Is(err, ErrWordCount) {
		t.Errorf("expected ErrWordCount, got %v", err)
	}
	if _, err := New(sim, chip, chip, device.SRAM_SIZE); !errors.Is(err, device.ErrOutOfMemory) {
		t.Errorf("expected ErrOutOfMemory, got %v", err)
	}

	e, err := New(sim, chip, chip, 2048)
	if err != nil {
		t.Fatal(err)
	}
	if len(e.Buffer(0)) != 2048*4 || len(e.Buffer(1)) != 2048*4 {
		t.Errorf("unexpected buffer sizes %d/%d", len(e.Buffer(0)), len(e.Buffer(1)))
	}
	if e.Addr(0) == e.Addr(1) || e.MaxWordCount() != 2048 {
		t.Error("buffers must be distinct")
	}
}

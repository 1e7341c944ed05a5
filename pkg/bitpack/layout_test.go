package bitpack

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/exp/rand"
)

func TestInvertBits(t *testing.T) {
	tests := []struct {
		v, n     uint32
		expected uint32
	}{
		{0b1, 1, 0b1},
		{0b001, 3, 0b100},
		{0b1101, 4, 0b1011},
		{0b10000000000, 11, 0b00000000001},
		{0, 11, 0},
	}

	for _, tt := range tests {
		if got := InvertBits(tt.v, int(tt.n)); got != tt.expected {
			t.Errorf("InvertBits(%b, %d) = %b, expected %b", tt.v, tt.n, got, tt.expected)
		}
	}

	r := rand.New(rand.NewSource(7))
	for n := 1; n <= 32; n++ {
		for i := 0; i < 100; i++ {
			v := r.Uint32() & mask(n)
			if got := InvertBits(InvertBits(v, n), n); got != v {
				t.Fatalf("InvertBits is not self-inverse for %b over %d bits: %b", v, n, got)
			}
		}
	}
}

func TestQuantize(t *testing.T) {
	tests := []struct {
		name     string
		v        float64
		bits     int
		expected uint32
	}{
		{"midpoint", 0, 11, 1024},
		{"top", 1, 11, 2047},
		{"above top", 3.5, 11, 2047},
		{"bottom", -1, 11, 0},
		{"below bottom", -2, 8, 0},
		{"truncates", 0.5, 2, 3},
		{"nan", math.NaN(), 8, 0},
		{"full word", 1, 32, 0xffffffff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Quantize(tt.v, tt.bits); got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestPackRoundTrip(t *testing.T) {
	layouts := []Layout{
		{Channels: [2]Channel{{Bits: 11}, {Bits: 11}}, SamplesPerWord: 1},
		{Channels: [2]Channel{{Bits: 8}, {Bits: 8}}, SamplesPerWord: 2},
		{Channels: [2]Channel{{Bits: 6}, {Bits: 4}}, SamplesPerWord: 3},
		{Channels: [2]Channel{{Bits: 4}, {Bits: 4}}, SamplesPerWord: 4},
		{Channels: [2]Channel{{Bits: 1}, {Bits: 31}}, SamplesPerWord: 1},
	}

	r := rand.New(rand.NewSource(3))
	for _, l := range layouts {
		if err := l.Validate(); err != nil {
			t.Fatalf("layout %+v: %v", l, err)
		}
		for i := 0; i < 200; i++ {
			samples := make([][2]uint32, l.SamplesPerWord)
			for s := range samples {
				samples[s] = [2]uint32{
					r.Uint32() & mask(l.Channels[0].Bits),
					r.Uint32() & mask(l.Channels[1].Bits),
				}
			}
			got := l.Unpack(l.Pack(samples))
			if diff := cmp.Diff(samples, got); diff != "" {
				t.Fatalf("layout %+v: round trip mismatch (-want +got):\n%s", l, diff)
			}
		}
	}
}

func TestPackPlacement(t *testing.T) {
	l := Layout{Channels: [2]Channel{{Bits: 3}, {Bits: 2}}, SamplesPerWord: 2}
	got := l.Pack([][2]uint32{{0b101, 0b10}, {0b011, 0b01}})
	// slot 1: ch2=01 ch1=011, slot 0: ch2=10 ch1=101
	expected := uint32(0b01_011_10_101)
	if got != expected {
		t.Errorf("expected %010b, got %010b", expected, got)
	}
}

func TestEncodeDecode(t *testing.T) {
	l := Layout{Channels: [2]Channel{{Bits: 11}, {Bits: 11, Invert: true}}, SamplesPerWord: 1}

	if got := l.Encode(0, 0b101); got != 0b101 {
		t.Errorf("channel 1 should keep bit order, got %b", got)
	}
	if got := l.Encode(1, 1); got != 1<<10 {
		t.Errorf("channel 2 should reverse bit order, got %b", got)
	}
	for v := uint32(0); v < 1<<11; v += 37 {
		if got := l.Decode(1, l.Encode(1, v)); got != v {
			t.Fatalf("decode(encode(%d)) = %d", v, got)
		}
	}
}

func TestLayoutValidate(t *testing.T) {
	tests := []struct {
		name   string
		layout Layout
		valid  bool
	}{
		{"11+11", Layout{Channels: [2]Channel{{Bits: 11}, {Bits: 11}}, SamplesPerWord: 1}, true},
		{"16+16", Layout{Channels: [2]Channel{{Bits: 16}, {Bits: 16}}, SamplesPerWord: 1}, true},
		{"too wide", Layout{Channels: [2]Channel{{Bits: 20}, {Bits: 13}}, SamplesPerWord: 1}, false},
		{"too many samples", Layout{Channels: [2]Channel{{Bits: 8}, {Bits: 8}}, SamplesPerWord: 3}, false},
		{"zero bits", Layout{Channels: [2]Channel{{Bits: 0}, {Bits: 8}}, SamplesPerWord: 1}, false},
		{"zero samples", Layout{Channels: [2]Channel{{Bits: 8}, {Bits: 8}}, SamplesPerWord: 0}, false},
		{"five samples", Layout{Channels: [2]Channel{{Bits: 1}, {Bits: 1}}, SamplesPerWord: 5}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.layout.Validate()
			if tt.valid && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.valid && !errors.Is(err, ErrLayout) {
				t.Errorf("expected ErrLayout, got %v", err)
			}
		})
	}
}

func TestWord(t *testing.T) {
	var w Word
	w.Set(0)
	w.Set(31)
	w.Put(4, 4, 0xff)
	if uint32(w) != 0x800000f1 {
		t.Errorf("expected 0x800000f1, got %#x", uint32(w))
	}
	w.Clear(31)
	if w.IsSet(31) || w.Get(4, 4) != 0xf {
		t.Errorf("unexpected word %s", w)
	}
	w.Put(4, 4, 0x2)
	if w.Get(4, 4) != 0x2 || !w.IsSet(0) {
		t.Errorf("Put should only replace its field, got %s", w)
	}
}

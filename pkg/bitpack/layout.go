package bitpack

import (
	"errors"
	"fmt"
	"math"
)

var ErrLayout = errors.New("invalid channel layout")

const (
	WordBits          = 32
	MaxSamplesPerWord = 4
)

// Channel is the output width and bit order of one channel.
type Channel struct {
	Bits   int
	Invert bool // MSB on the lowest pin
}

// Layout describes how samples of both channels are packed into a word:
// channel 1 then channel 2, repeated SamplesPerWord times from the LSB up.
type Layout struct {
	Channels       [2]Channel
	SamplesPerWord int
}

func (l Layout) SampleBits() int {
	return l.Channels[0].Bits + l.Channels[1].Bits
}

func (l Layout) WordBits() int {
	return l.SampleBits() * l.SamplesPerWord
}

func (l Layout) Validate() error {
	for i, c := range l.Channels {
		if c.Bits < 1 || c.Bits > WordBits {
			return fmt.Errorf("%w: channel %d has %d bits", ErrLayout, i+1, c.Bits)
		}
	}
	if l.SamplesPerWord < 1 || l.SamplesPerWord > MaxSamplesPerWord {
		return fmt.Errorf("%w: %d samples per word", ErrLayout, l.SamplesPerWord)
	}
	if l.WordBits() > WordBits {
		return fmt.Errorf("%w: %d samples of %d bits do not fit a %d-bit word",
			ErrLayout, l.SamplesPerWord, l.SampleBits(), WordBits)
	}
	return nil
}

// Quantize maps v in [-1,1] onto [0, 2^bits-1], truncating and clamping.
func Quantize(v float64, bits int) uint32 {
	top := float64(uint64(1)<<bits - 1)
	q := math.Trunc(float64(uint64(1)<<bits) * (0.5 + 0.5*v))
	switch {
	case math.IsNaN(q), q < 0:
		return 0
	case q > top:
		return uint32(top)
	}
	return uint32(q)
}

// Encode applies the bit order of channel ch to an in-range value.
func (l Layout) Encode(ch int, v uint32) uint32 {
	c := l.Channels[ch]
	if c.Invert {
		return InvertBits(v, c.Bits)
	}
	return v
}

func (l Layout) Decode(ch int, v uint32) uint32 {
	// inversion is its own inverse
	return l.Encode(ch, v)
}

func (l Layout) offset(slot, ch int) int {
	o := slot * l.SampleBits()
	if ch == 1 {
		o += l.Channels[0].Bits
	}
	return o
}

// Pack places already encoded samples into a word, one per slot.
func (l Layout) Pack(samples [][2]uint32) uint32 {
	var w Word
	for i, s := range samples[:min(len(samples), l.SamplesPerWord)] {
		for ch := 0; ch < 2; ch++ {
			w.Put(l.offset(i, ch), l.Channels[ch].Bits, s[ch])
		}
	}
	return uint32(w)
}

// Unpack is the inverse of Pack.
func (l Layout) Unpack(word uint32) [][2]uint32 {
	w := Word(word)
	samples := make([][2]uint32, l.SamplesPerWord)
	for i := range samples {
		for ch := 0; ch < 2; ch++ {
			samples[i][ch] = w.Get(l.offset(i, ch), l.Channels[ch].Bits)
		}
	}
	return samples
}

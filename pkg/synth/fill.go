package synth

import (
	"encoding/binary"
	"fmt"

	"PicoAWG/pkg/bitpack"
	"PicoAWG/pkg/wave"
)

// Fill samples both channels at the centre of every sample slot and writes
// t.WordCount packed words into buf, little-endian. Sample i sits at
// dup*(i+0.5)/samples, so the buffer holds exactly t.Duplication periods.
func Fill(buf []byte, t Timing, layout bitpack.Layout, ch1, ch2 *wave.Node) error {
	if err := layout.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrChannelWidth, err)
	}
	if t.Samples != t.WordCount*layout.SamplesPerWord || t.WordCount < 1 {
		return fmt.Errorf("%w: %d samples in %d words", ErrDegenerate, t.Samples, t.WordCount)
	}
	if len(buf) < t.WordCount*4 {
		return fmt.Errorf("%w: %d words do not fit %d bytes", ErrDegenerate, t.WordCount, len(buf))
	}

	nodes := [2]*wave.Node{ch1, ch2}
	spw := layout.SamplesPerWord
	slots := make([][2]uint32, spw)
	scale := float64(t.Duplication) / float64(t.Samples)

	for w := 0; w < t.WordCount; w++ {
		for s := range slots {
			xpos := scale * (float64(w*spw+s) + 0.5)
			for ch, n := range nodes {
				q := bitpack.Quantize(n.Eval(xpos), layout.Channels[ch].Bits)
				slots[s][ch] = layout.Encode(ch, q)
			}
		}
		binary.LittleEndian.PutUint32(buf[4*w:], layout.Pack(slots))
	}
	return nil
}

// Words reads the first n little-endian words of buf.
func Words(buf []byte, n int) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(buf[4*i:])
	}
	return out
}

// Decode reads wordCount packed words back into per-channel sample values,
// undoing bit inversion.
func Decode(buf []byte, wordCount int, layout bitpack.Layout) [2][]uint32 {
	return DecodeWords(Words(buf, wordCount), layout)
}

func DecodeWords(words []uint32, layout bitpack.Layout) [2][]uint32 {
	var out [2][]uint32
	for _, w := range words {
		for _, s := range layout.Unpack(w) {
			for ch := range out {
				out[ch] = append(out[ch], layout.Decode(ch, s[ch]))
			}
		}
	}
	return out
}

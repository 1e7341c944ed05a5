package device

import "PicoAWG/pkg/bitpack"

const BufferSize = 512

// Sink plays stereo frames it pulls from a callback, one buffer per call.
type Sink interface {
	Start(callback func(out [][]int32))
	Stop()
}

// Preview loops the samples of a shifted-out word stream, one channel per
// output, the way the transfer engine loops its buffer onto the pins.
type Preview struct {
	frames [2][]int32
	pos    int
}

func NewPreview(words []uint32, layout bitpack.Layout) *Preview {
	p := &Preview{}
	for _, w := range words {
		for _, s := range layout.Unpack(w) {
			for ch := 0; ch < 2; ch++ {
				v := layout.Decode(ch, s[ch])
				p.frames[ch] = append(p.frames[ch], toInt32(v, layout.Channels[ch].Bits))
			}
		}
	}
	return p
}

// toInt32 centers an unsigned n-bit code on zero at full 32-bit scale.
func toInt32(v uint32, bits int) int32 {
	return int32(int64(v)<<(32-bits) - 1<<31)
}

func (p *Preview) Len() int {
	return len(p.frames[0])
}

// Fill writes the next frames into out[0] and out[1], wrapping around.
func (p *Preview) Fill(out [][]int32) {
	n := p.Len()
	for i := range out[0] {
		if n == 0 {
			out[0][i], out[1][i] = 0, 0
			continue
		}
		out[0][i] = p.frames[0][p.pos]
		out[1][i] = p.frames[1][p.pos]
		p.pos = (p.pos + 1) % n
	}
}

package bitpack

import "strings"

// Word is one 32-bit unit written to the shifter.
type Word uint32

func (w *Word) Set(pos int) {
	*w |= 1 << pos
}

func (w *Word) Clear(pos int) {
	*w &^= 1 << pos
}

func (w Word) IsSet(pos int) bool {
	return w&(1<<pos) != 0
}

// Put stores the low width bits of v at offset, replacing what was there.
func (w *Word) Put(offset, width int, v uint32) {
	m := mask(width) << offset
	*w = (*w &^ Word(m)) | Word((v<<offset)&m)
}

func (w Word) Get(offset, width int) uint32 {
	return (uint32(w) >> offset) & mask(width)
}

func (w Word) String() string {
	var sb strings.Builder
	for i := 0; i < 32; i++ {
		if w.IsSet(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

func mask(width int) uint32 {
	if width >= 32 {
		return 0xffffffff
	}
	return 1<<width - 1
}

// InvertBits reverses the order of the low n bits of v.
func InvertBits(v uint32, n int) uint32 {
	var r uint32
	for i := 0; i < n; i++ {
		if v&(1<<i) != 0 {
			r |= 1 << (n - 1 - i)
		}
	}
	return r
}

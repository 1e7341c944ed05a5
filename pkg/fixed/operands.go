package fixed

// T is an unsigned 16.8 fixed-point clock divider, the layout of the
// shifter's CLKDIV register: 16 integer bits and D fractional bits.
type T uint32

const (
	D     = 8
	Denom = 1 << D

	MaxInt = 0xffff

	One = T(Denom)
)

func (f T) Int() int {
	return int(f >> D)
}

func (f T) Frac() int {
	return int(f & (Denom - 1))
}

func (f T) IsInteger() bool {
	return f.Frac() == 0
}

func (f T) Float() float64 {
	return float64(f) / Denom
}

// Valid reports whether f fits the register: an integer part of 1..MaxInt.
func (f T) Valid() bool {
	return f.Int() >= 1 && f.Int() <= MaxInt
}

// Register returns the CLKDIV register word, INT in bits 31:16 and FRAC in 15:8.
func (f T) Register() uint32 {
	return uint32(f.Int())<<16 | uint32(f.Frac())<<8
}

func FromInt(i int) T {
	return T(i << D)
}

// FromFloat rounds f down to the nearest 1/256.
func FromFloat(f float64) T {
	return T(f * Denom)
}

func FromRegister(r uint32) T {
	return T(r>>16)<<D | T((r>>8)&0xff)
}

package wave

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/exp/rand"
)

// Shape selects the waveform family a Node evaluates.
type Shape int

const (
	Sine Shape = iota
	Pulse
	Gaussian
	Sinc
	Exponential
	Noise
)

var shapeNames = [...]string{
	Sine:        "sine",
	Pulse:       "pulse",
	Gaussian:    "gaussian",
	Sinc:        "sinc",
	Exponential: "exponential",
	Noise:       "noise",
}

func (s Shape) String() string {
	if s < 0 || int(s) >= len(shapeNames) {
		return fmt.Sprintf("Shape(%d)", int(s))
	}
	return shapeNames[s]
}

func ParseShape(name string) (Shape, error) {
	for i, n := range shapeNames {
		if strings.EqualFold(n, name) {
			return Shape(i), nil
		}
	}
	return 0, fmt.Errorf("unknown shape %q", name)
}

func (s Shape) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Shape) UnmarshalText(text []byte) error {
	v, err := ParseShape(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParamCount is the number of leading params the shape reads.
func (s Shape) ParamCount() int {
	switch s {
	case Pulse:
		return 3
	case Gaussian, Sinc, Exponential, Noise:
		return 1
	}
	return 0
}

// Eval returns the shape value at phase x in [0,1).
func (s Shape) Eval(x float64, params []float64) float64 {
	switch s {
	case Sine:
		return sine(x)
	case Pulse:
		return pulse(x, params[0], params[1], params[2])
	case Gaussian:
		return gaussian(x, params[0])
	case Sinc:
		return sinc(x, params[0])
	case Exponential:
		return exponential(x, params[0])
	case Noise:
		return noise(int(params[0]))
	}
	panic(fmt.Sprintf("wave: unknown shape %d", int(s)))
}

func sine(x float64) float64 {
	return math.Sin(2 * math.Pi * x)
}

// linear ramp up over rise, flat over hold, ramp down over fall
func pulse(x, rise, hold, fall float64) float64 {
	if x < rise {
		return x / rise
	}
	if x < rise+hold {
		return 1.0
	}
	if x < rise+hold+fall {
		return 1.0 - (x-rise-hold)/fall
	}
	return 0.0
}

func gaussian(x, sigma float64) float64 {
	d := (x - 0.5) / sigma
	return math.Exp(-d * d)
}

func sinc(x, width float64) float64 {
	if x == 0.5 {
		return 1.0
	}
	d := (x - 0.5) / width
	return math.Sin(d) / d
}

func exponential(x, tau float64) float64 {
	return math.Exp(-x / tau)
}

// noise sums quality uniform draws and rescales to the variance of one draw.
func noise(quality int) float64 {
	sum := 0.0
	for i := 0; i < quality; i++ {
		sum += rand.Float64() - 0.5
	}
	return sum * math.Sqrt(12/float64(quality))
}

// Seed reseeds the process-wide source used by the noise shape.
func Seed(seed uint64) {
	rand.Seed(seed)
}

package wave

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidNode = errors.New("invalid wave node")

// Node is one generator stage of a channel. The modulator slots are optional
// and must form a finite tree (or DAG); evaluation recurses into each of them
// once per sample.
type Node struct {
	Amplitude float64
	Offset    float64
	Phase     float64 // subtracted from the phase before wrapping
	Replicate int     // periods per evaluation window

	Shape  Shape
	Params []float64

	PhaseMod *Node // output is subtracted from the phase
	AmpMod   *Node // output multiplies the shape value
	Sum      *Node // output is added after amplitude and offset
}

// New returns a unit-amplitude, single-period node of the given shape.
func New(shape Shape, params ...float64) *Node {
	return &Node{
		Amplitude: 1.0,
		Replicate: 1,
		Shape:     shape,
		Params:    params,
	}
}

// Frac reduces x to [0,1), also for negative x.
func Frac(x float64) float64 {
	f := x - math.Floor(x)
	if f >= 1 {
		// x slightly below an integer can round up
		return 0
	}
	return f
}

// Evaluate resolves n at the normalized position x. The result is not clamped.
func Evaluate(n *Node, x float64) float64 {
	return n.Eval(x)
}

func (n *Node) Eval(x float64) float64 {
	phaseMod, ampMod, sum := 0.0, 1.0, 0.0
	if n.PhaseMod != nil {
		phaseMod = n.PhaseMod.Eval(x)
	}
	if n.AmpMod != nil {
		ampMod = n.AmpMod.Eval(x)
	}
	if n.Sum != nil {
		sum = n.Sum.Eval(x)
	}

	local := Frac(x*float64(n.Replicate) - n.Phase - phaseMod)
	v := n.Shape.Eval(local, n.Params)
	v = v * n.Amplitude * ampMod
	return v + n.Offset + sum
}

// Validate checks the parameters of n and every node it references, and
// rejects modulator cycles.
func (n *Node) Validate() error {
	return n.validate("wave", map[*Node]bool{})
}

func (n *Node) validate(path string, visiting map[*Node]bool) error {
	if n == nil {
		return fmt.Errorf("%w: %s is nil", ErrInvalidNode, path)
	}
	if visiting[n] {
		return fmt.Errorf("%w: %s forms a modulator cycle", ErrInvalidNode, path)
	}
	if err := n.check(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidNode, path, err)
	}

	visiting[n] = true
	defer delete(visiting, n)

	children := []struct {
		name string
		node *Node
	}{
		{"phase_mod", n.PhaseMod},
		{"amp_mod", n.AmpMod},
		{"sum", n.Sum},
	}
	for _, c := range children {
		if c.node == nil {
			continue
		}
		if err := c.node.validate(path+"."+c.name, visiting); err != nil {
			return err
		}
	}
	return nil
}

func (n *Node) check() error {
	if n.Shape < Sine || n.Shape > Noise {
		return fmt.Errorf("unknown shape %d", int(n.Shape))
	}
	if n.Replicate < 1 {
		return fmt.Errorf("replicate must be at least 1, got %d", n.Replicate)
	}
	for _, v := range []float64{n.Amplitude, n.Offset, n.Phase} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite amplitude, offset or phase")
		}
	}
	if len(n.Params) < n.Shape.ParamCount() {
		return fmt.Errorf("%v needs %d params, got %d", n.Shape, n.Shape.ParamCount(), len(n.Params))
	}
	for _, p := range n.Params {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return fmt.Errorf("non-finite param")
		}
	}

	switch n.Shape {
	case Pulse:
		if n.Params[0] < 0 || n.Params[1] < 0 || n.Params[2] < 0 {
			return fmt.Errorf("pulse segments must not be negative")
		}
	case Gaussian, Sinc, Exponential:
		if n.Params[0] == 0 {
			return fmt.Errorf("%v width must not be zero", n.Shape)
		}
	case Noise:
		if n.Params[0] < 1 {
			return fmt.Errorf("noise quality must be at least 1")
		}
	}
	return nil
}

package synth

import (
	"fmt"

	"PicoAWG/pkg/device"
	"PicoAWG/pkg/stream"
	"PicoAWG/pkg/wave"
)

// Generator drives one shifter from two buffers. The channel layout is fixed
// when the generator is created; every synthesis fills the idle buffer and
// hands it to the streaming engine.
type Generator struct {
	params  Params
	shifter device.Shifter
	engine  *stream.Engine

	timing Timing // last timing handed to the engine
}

func NewGenerator(p Params, mem device.Memory, dma device.DMA, shifter device.Shifter, pinBase int) (*Generator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if _, err := MinDivider(p.Layout.SamplesPerWord); err != nil {
		return nil, err
	}

	if err := shifter.ConfigureOutput(pinBase, p.Layout.SampleBits(), p.Layout.SamplesPerWord); err != nil {
		return nil, fmt.Errorf("failed to configure shifter: %w", err)
	}
	engine, err := stream.New(mem, dma, shifter, p.MaxWordCount)
	if err != nil {
		return nil, err
	}
	if err := shifter.Start(); err != nil {
		return nil, fmt.Errorf("failed to start shifter: %w", err)
	}

	return &Generator{
		params:  p,
		shifter: shifter,
		engine:  engine,
	}, nil
}

func (g *Generator) Params() Params {
	return g.params
}

func (g *Generator) Engine() *stream.Engine {
	return g.engine
}

// Timing is what the generator is currently playing; zero before the first
// synthesis.
func (g *Generator) Timing() Timing {
	return g.timing
}

// Synthesize plans the timing for freq and loads both channels with it.
func (g *Generator) Synthesize(freq float64, ch1, ch2 *wave.Node) (Timing, error) {
	if err := validateChannels(ch1, ch2); err != nil {
		return Timing{}, err
	}
	t, err := Plan(freq, g.params)
	if err != nil {
		return Timing{}, err
	}
	if err := g.Load(t, ch1, ch2); err != nil {
		return Timing{}, err
	}
	return g.timing, nil
}

// Load fills the idle buffer with ch1 and ch2 at timing t, programs the clock
// divider and starts streaming it. When the running buffer has the same word
// count and divider the switch happens at the end of its current pass;
// otherwise the loop is re-armed. Nothing is written to the hardware unless
// every check passes.
func (g *Generator) Load(t Timing, ch1, ch2 *wave.Node) error {
	if err := validateChannels(ch1, ch2); err != nil {
		return err
	}
	if err := t.check(g.params); err != nil {
		return err
	}
	t.Frequency = t.realized(g.params.ClockRate)

	slot := g.engine.Inactive()
	if g.engine.Streaming(slot) {
		return fmt.Errorf("%w: slot %d", stream.ErrBufferBusy, slot)
	}
	if err := Fill(g.engine.Buffer(slot), t, g.params.Layout, ch1, ch2); err != nil {
		return err
	}

	fmt.Printf("[Synth] %v\n", t)

	seamless := g.engine.State() != stream.Disarmed &&
		g.engine.WordCount(g.engine.Active()) == t.WordCount &&
		g.timing.ClockDivider == t.ClockDivider

	if err := g.shifter.SetClockDivider(t.ClockDivider); err != nil {
		return fmt.Errorf("failed to set clock divider: %w", err)
	}
	if seamless {
		if err := g.engine.Swap(slot, t.WordCount); err != nil {
			return err
		}
	} else if err := g.engine.Arm(slot, t.WordCount); err != nil {
		return err
	}

	g.timing = t
	return nil
}

// Stop halts both transfers. The outputs hold the last sample.
func (g *Generator) Stop() error {
	g.timing = Timing{}
	return g.engine.Disarm()
}

func validateChannels(ch1, ch2 *wave.Node) error {
	for i, n := range []*wave.Node{ch1, ch2} {
		if err := n.Validate(); err != nil {
			return fmt.Errorf("%w: channel %d: %w", ErrConfiguration, i+1, err)
		}
	}
	return nil
}

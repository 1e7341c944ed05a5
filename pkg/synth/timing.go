package synth

import (
	"errors"
	"fmt"
	"math"

	"PicoAWG/pkg/bitpack"
	"PicoAWG/pkg/fixed"
)

var (
	ErrConfiguration     = errors.New("configuration error")
	ErrFrequencyRange    = fmt.Errorf("%w: frequency out of range", ErrConfiguration)
	ErrChannelWidth      = fmt.Errorf("%w: channel width", ErrConfiguration)
	ErrFractionalDivider = fmt.Errorf("%w: fractional clock divider", ErrConfiguration)
	ErrDegenerate        = fmt.Errorf("%w: degenerate buffer", ErrConfiguration)
)

// MinDivider is the smallest clock divider at which the shifter keeps up
// with the transfer engine when it pulls a word every samplesPerWord samples.
func MinDivider(samplesPerWord int) (int, error) {
	switch samplesPerWord {
	case 1:
		return 3, nil
	case 2:
		return 2, nil
	case 3, 4:
		return 1, nil
	}
	return 0, fmt.Errorf("%w: %d samples per word", ErrChannelWidth, samplesPerWord)
}

// Params are the fixed inputs of every synthesis in a session.
type Params struct {
	ClockRate    float64 // shifter input clock, Hz
	MaxWordCount int
	Layout       bitpack.Layout
}

func (p Params) Validate() error {
	if err := p.Layout.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrChannelWidth, err)
	}
	if !(p.ClockRate > 0) || math.IsInf(p.ClockRate, 0) {
		return fmt.Errorf("%w: clock rate %v", ErrConfiguration, p.ClockRate)
	}
	if p.MaxWordCount < 1 {
		return fmt.Errorf("%w: max word count %d", ErrConfiguration, p.MaxWordCount)
	}
	return nil
}

// Timing is the realized buffer geometry for one target frequency.
type Timing struct {
	Divider      float64 // ideal division for a full buffer
	ClockDivider fixed.T
	Duplication  int // waveform periods per buffer
	WordCount    int
	Samples      int
	Frequency    float64 // realized output frequency
}

// Error is the relative deviation of the realized frequency from target.
func (t Timing) Error(target float64) float64 {
	return (t.Frequency - target) / target
}

func (t Timing) String() string {
	return fmt.Sprintf("div %.3f clkdiv %g dup %d nword %d nsamp %d freq %.3f Hz",
		t.Divider, t.ClockDivider.Float(), t.Duplication, t.WordCount, t.Samples, t.Frequency)
}

// Plan picks the clock divider, duplication factor and word count that best
// approach freq with at most p.MaxWordCount words. When a full buffer would
// need a divider below the minimum, the waveform is repeated inside the
// buffer at the minimum divider; otherwise one period fills the buffer with
// an integer divider. The result is checked and never silently clamped.
func Plan(freq float64, p Params) (Timing, error) {
	if err := p.Validate(); err != nil {
		return Timing{}, err
	}
	spw := p.Layout.SamplesPerWord
	minDiv, err := MinDivider(spw)
	if err != nil {
		return Timing{}, err
	}

	maxFreq := p.ClockRate / float64(minDiv)
	if !(freq > 0) || freq > maxFreq || math.IsInf(freq, 0) {
		return Timing{}, fmt.Errorf("%w: %v Hz, allowed (0, %v]", ErrFrequencyRange, freq, maxFreq)
	}

	div := p.ClockRate / (freq * float64(p.MaxWordCount*spw))
	var clkdiv int
	t := Timing{Divider: div}
	if div < float64(minDiv) {
		t.Duplication = int(float64(minDiv) / div)
		t.WordCount = int(math.Round(float64(p.MaxWordCount*t.Duplication) * div / float64(minDiv)))
		clkdiv = minDiv
	} else {
		// clamp before converting so absurdly low frequencies cannot overflow
		clkdiv = int(math.Min(math.Floor(div), 2*fixed.MaxInt)) + minDiv
		t.WordCount = int(math.Round(float64(p.MaxWordCount) * div / float64(clkdiv)))
		t.Duplication = 1
	}
	t.Samples = t.WordCount * spw

	if clkdiv > fixed.MaxInt {
		return Timing{}, fmt.Errorf("%w: %v Hz needs clock divider %d, max %d", ErrFrequencyRange, freq, clkdiv, fixed.MaxInt)
	}
	t.ClockDivider = fixed.FromInt(clkdiv)
	if err := t.check(p); err != nil {
		return Timing{}, fmt.Errorf("%v Hz: %w", freq, err)
	}

	t.Frequency = t.realized(p.ClockRate)
	return t, nil
}

func (t Timing) realized(clockRate float64) float64 {
	return clockRate * float64(t.Duplication) / (t.ClockDivider.Float() * float64(t.Samples))
}

// check rejects a timing the hardware cannot play back exactly.
func (t Timing) check(p Params) error {
	minDiv, err := MinDivider(p.Layout.SamplesPerWord)
	if err != nil {
		return err
	}
	switch {
	case !t.ClockDivider.IsInteger():
		return fmt.Errorf("%w: %.3f", ErrFractionalDivider, t.ClockDivider.Float())
	case t.ClockDivider.Int() < minDiv || t.ClockDivider.Int() > fixed.MaxInt:
		return fmt.Errorf("%w: clock divider %d, allowed %d-%d", ErrFrequencyRange, t.ClockDivider.Int(), minDiv, fixed.MaxInt)
	case t.WordCount < 1 || t.WordCount > p.MaxWordCount:
		return fmt.Errorf("%w: %d words, allowed 1-%d", ErrDegenerate, t.WordCount, p.MaxWordCount)
	case t.Duplication < 1:
		return fmt.Errorf("%w: duplication %d", ErrDegenerate, t.Duplication)
	case t.Samples != t.WordCount*p.Layout.SamplesPerWord:
		return fmt.Errorf("%w: %d samples in %d words", ErrDegenerate, t.Samples, t.WordCount)
	case 2*t.Duplication > t.Samples:
		return fmt.Errorf("%w: %d samples for %d periods", ErrDegenerate, t.Samples, t.Duplication)
	}
	return nil
}

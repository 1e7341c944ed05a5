package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"PicoAWG/pkg/bitpack"
	"PicoAWG/pkg/synth"
	"PicoAWG/pkg/wave"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Clock struct {
		SystemHz float64 `yaml:"system_hz"`
	} `yaml:"clock"`

	Shifter struct {
		PinBase        int `yaml:"pin_base"`
		SamplesPerWord int `yaml:"samples_per_word"`
	} `yaml:"shifter"`

	Buffer struct {
		MaxWordCount int `yaml:"max_word_count"`
	} `yaml:"buffer"`

	Channels []ChannelConfig `yaml:"channels"`

	Sweep struct {
		Frequencies []float64     `yaml:"frequencies"`
		Dwell       time.Duration `yaml:"dwell"`
		Loop        bool          `yaml:"loop"`
	} `yaml:"sweep"`

	Preview PreviewConfig `yaml:"preview"`
}

type ChannelConfig struct {
	Bits   int         `yaml:"bits"`
	Invert bool        `yaml:"invert"`
	Wave   *WaveConfig `yaml:"wave"`
}

// WaveConfig is one node of a channel's wave tree. Amplitude and replicate
// default to 1 when left out.
type WaveConfig struct {
	Shape     wave.Shape `yaml:"shape"`
	Amplitude *float64   `yaml:"amplitude"`
	Offset    float64    `yaml:"offset"`
	Phase     float64    `yaml:"phase"`
	Replicate int        `yaml:"replicate"`
	Params    []float64  `yaml:"params"`

	PhaseMod *WaveConfig `yaml:"phase_mod"`
	AmpMod   *WaveConfig `yaml:"amp_mod"`
	Sum      *WaveConfig `yaml:"sum"`
}

type PreviewConfig struct {
	DeviceName  string  `yaml:"device_name"`
	SampleRate  float64 `yaml:"sample_rate"`
	OutChannels [2]int  `yaml:"out_channels"`
}

var ErrConfig = errors.New("invalid config")

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	if len(config.Channels) != 2 {
		return nil, fmt.Errorf("%w: expected 2 channels, got %d", ErrConfig, len(config.Channels))
	}
	for i, c := range config.Channels {
		if c.Wave == nil {
			return nil, fmt.Errorf("%w: channel %d has no wave", ErrConfig, i+1)
		}
	}
	if len(config.Sweep.Frequencies) == 0 {
		return nil, fmt.Errorf("%w: no frequencies to play", ErrConfig)
	}
	return &config, nil
}

func (c ChannelConfig) New() bitpack.Channel {
	return bitpack.Channel{Bits: c.Bits, Invert: c.Invert}
}

func (c *Config) Layout() bitpack.Layout {
	return bitpack.Layout{
		Channels:       [2]bitpack.Channel{c.Channels[0].New(), c.Channels[1].New()},
		SamplesPerWord: c.Shifter.SamplesPerWord,
	}
}

// Params combines the config with the clock rate the PLL actually reached.
func (c *Config) Params(clockRate float64) synth.Params {
	return synth.Params{
		ClockRate:    clockRate,
		MaxWordCount: c.Buffer.MaxWordCount,
		Layout:       c.Layout(),
	}
}

// Waves builds and validates the wave trees of both channels.
func (c *Config) Waves() (ch1, ch2 *wave.Node, err error) {
	var nodes [2]*wave.Node
	for i := range nodes {
		if nodes[i], err = c.Channels[i].Wave.New(); err != nil {
			return nil, nil, fmt.Errorf("channel %d: %w", i+1, err)
		}
	}
	return nodes[0], nodes[1], nil
}

func (c WaveConfig) New() (*wave.Node, error) {
	n := c.node()
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}

func (c *WaveConfig) node() *wave.Node {
	if c == nil {
		return nil
	}

	n := wave.New(c.Shape, c.Params...)
	if c.Amplitude != nil {
		n.Amplitude = *c.Amplitude
	}
	if c.Replicate != 0 {
		n.Replicate = c.Replicate
	}
	n.Offset = c.Offset
	n.Phase = c.Phase
	n.PhaseMod = c.PhaseMod.node()
	n.AmpMod = c.AmpMod.node()
	n.Sum = c.Sum.node()
	return n
}

package main

import (
	_ "embed"
	"errors"
	"flag"
	"fmt"
	"sync/atomic"
	"time"

	"PicoAWG/cmd/awg/config"
	"PicoAWG/internel/utils"
	"PicoAWG/pkg/async"
	"PicoAWG/pkg/bitpack"
	"PicoAWG/pkg/device"
	"PicoAWG/pkg/stream"
	"PicoAWG/pkg/synth"
	"PicoAWG/pkg/wave"
)

//go:embed config.yml
var defaultConfig []byte

const captureLimit = 1 << 20

func main() {
	configFile := flag.String("config", "", "YAML config file (default: built-in config)")
	dumpFile := flag.String("dump", "", "write the shifted words to this file")
	samplesFile := flag.String("samples", "", "write the decoded channel samples to this file")
	preview := flag.Bool("preview", false, "play the active buffer on the preview device")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configFile == "" {
		cfg, err = config.Parse(defaultConfig)
	} else {
		cfg, err = config.LoadConfig(*configFile)
	}
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		return
	}
	fmt.Printf("[Config] clock %.0f Hz, %d words, layout %+v, %d frequencies\n",
		cfg.Clock.SystemHz, cfg.Buffer.MaxWordCount, cfg.Layout(), len(cfg.Sweep.Frequencies))

	ch1, ch2, err := cfg.Waves()
	if err != nil {
		fmt.Printf("Error building waves: %v\n", err)
		return
	}

	b := newBackend(captureLimit)
	clockRate, err := b.chip.SetSystemClock(cfg.Clock.SystemHz)
	if err != nil {
		fmt.Printf("Error setting system clock: %v\n", err)
		return
	}
	gen, err := synth.NewGenerator(cfg.Params(clockRate), b.mem, b.chip, b.chip, cfg.Shifter.PinBase)
	if err != nil {
		fmt.Printf("Error creating generator: %v\n", err)
		return
	}

	var current atomic.Pointer[device.Preview]
	if *preview {
		sink := cfg.Preview.New()
		sink.Start(func(out [][]int32) {
			if p := current.Load(); p != nil {
				p.Fill(out)
			} else {
				clear(out[0])
				clear(out[1])
			}
		})
		defer sink.Stop()
	}

	var stop async.Signal[struct{}]
	stopped := stop.Signal()

	hw := async.Job(func() { b.run(stopped) })
	sweep := async.Job(func() {
		s := sweeper{
			gen:    gen,
			ch1:    ch1,
			ch2:    ch2,
			dwell:  cfg.Sweep.Dwell,
			stop:   stopped,
			played: func(w []uint32) { current.Store(device.NewPreview(w, gen.Params().Layout)) },
		}
		for s.run(cfg.Sweep.Frequencies) && cfg.Sweep.Loop {
		}
	})

	// a sweep without loop ends on its own
	fmt.Println("Press Enter to stop")
	async.Await0(async.Any0(async.EnterKey(), sweep))
	stop.Notify()
	async.Await0(async.Gather0(hw, sweep))

	if err := gen.Stop(); err != nil {
		fmt.Printf("Error stopping generator: %v\n", err)
	}
	fmt.Println("Exiting...")

	words := b.shifted()
	if *dumpFile != "" {
		if err := utils.WriteBinary(*dumpFile, words); err != nil {
			fmt.Printf("Error writing dump: %v\n", err)
		} else {
			fmt.Printf("[Dump] %d words written to %s\n", len(words), *dumpFile)
		}
	}
	if *samplesFile != "" {
		if err := writeSamples(*samplesFile, words, gen.Params().Layout); err != nil {
			fmt.Printf("Error writing samples: %v\n", err)
		}
	}
}

type sweeper struct {
	gen      *synth.Generator
	ch1, ch2 *wave.Node
	dwell    time.Duration
	stop     <-chan struct{}
	played   func(words []uint32)
}

// run plays each frequency for the dwell time. It reports false once stop
// closes or when no frequency could be played.
func (s *sweeper) run(freqs []float64) bool {
	n := 0
	for _, f := range freqs {
		t, err := s.synthesize(f)
		switch {
		case errors.Is(err, synth.ErrConfiguration):
			fmt.Printf("[Sweep] skipping %v Hz: %v\n", f, err)
			continue
		case err != nil:
			return false
		}
		fmt.Printf("[Sweep] %v Hz -> %.3f Hz (error %+.2e)\n", f, t.Frequency, t.Error(f))
		n++
		if s.played != nil {
			e := s.gen.Engine()
			s.played(synth.Words(e.Buffer(e.Active()), t.WordCount))
		}

		select {
		case <-s.stop:
			return false
		case <-time.After(s.dwell):
		}
	}
	return n > 0
}

// synthesize retries while the idle buffer is still playing out.
func (s *sweeper) synthesize(f float64) (synth.Timing, error) {
	for {
		t, err := s.gen.Synthesize(f, s.ch1, s.ch2)
		if !errors.Is(err, stream.ErrBufferBusy) {
			return t, err
		}
		select {
		case <-s.stop:
			return t, err
		case <-time.After(time.Millisecond):
		}
	}
}

func writeSamples(filename string, words []uint32, layout bitpack.Layout) error {
	samples := synth.DecodeWords(words, layout)
	frames := make([][2]uint32, len(samples[0]))
	for i := range frames {
		frames[i] = [2]uint32{samples[0][i], samples[1][i]}
	}
	return utils.WriteTxt(filename, frames, func(f [2]uint32) string {
		return fmt.Sprintf("%d %d", f[0], f[1])
	})
}

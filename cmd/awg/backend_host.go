//go:build !tinygo

package main

import (
	"time"

	"PicoAWG/pkg/device"
)

// stepWords is how many words the simulated transfers move per tick.
const stepWords = 256

type backend struct {
	mem  device.Memory
	chip *device.RP2040
	sim  *device.Sim

	capture []uint32
	limit   int
}

func newBackend(captureLimit int) *backend {
	sim := device.NewSim()
	return &backend{
		mem:   sim,
		chip:  device.NewRP2040(sim),
		sim:   sim,
		limit: captureLimit,
	}
}

// run steps the simulated transfer loop until stop closes, keeping the
// first words shifted out for -dump.
func (b *backend) run(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			b.sim.Run(stepWords)
			words := b.sim.Drain()
			if room := b.limit - len(b.capture); room > 0 {
				b.capture = append(b.capture, words[:min(room, len(words))]...)
			}
		}
	}
}

// shifted is only valid once run has returned.
func (b *backend) shifted() []uint32 {
	return b.capture
}

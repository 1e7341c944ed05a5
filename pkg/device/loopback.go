package device

import "time"

// Loopback is a Sink without audio hardware. Each filled buffer is handed to
// Output, if set, instead of being played.
type Loopback struct {
	SampleRate float64 // the fake sample rate, 0 means no limit
	Output     func(out [][]int32)
	done       chan struct{}
}

func (d *Loopback) Start(callback func(out [][]int32)) {
	d.done = make(chan struct{})
	go func() {
		var buf = [2][][]int32{
			{make([]int32, BufferSize), make([]int32, BufferSize)},
			{make([]int32, BufferSize), make([]int32, BufferSize)},
		}

		swap := 0
		update := func() {
			callback(buf[swap])
			if d.Output != nil {
				d.Output(buf[swap])
			}
			swap ^= 1
		}

		if d.SampleRate == 0 {
			for {
				select {
				case <-d.done:
					return
				default:
					update()
				}
			}
		} else {
			ticker := time.NewTicker(time.Duration(float64(time.Second) * BufferSize / d.SampleRate))
			defer ticker.Stop()
			for {
				select {
				case <-d.done:
					return
				case <-ticker.C:
					update()
				}
			}
		}
	}()
}

func (d *Loopback) Stop() {
	close(d.done)
}

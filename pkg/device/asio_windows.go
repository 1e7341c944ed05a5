package device

import "github.com/xsjk/go-asio"

// ASIOStereo plays the preview on two output channels of an ASIO device.
type ASIOStereo struct {
	DeviceName  string
	SampleRate  float64
	OutChannels [2]int
	device      asio.Device
	pair        [][]int32
}

func (a *ASIOStereo) Start(callback func(out [][]int32)) {
	a.pair = make([][]int32, 2)
	a.device.Load(a.DeviceName)
	a.device.SetSampleRate(a.SampleRate)
	a.device.Open()
	a.device.Start(func(in, out [][]int32) {
		a.pair[0] = out[a.OutChannels[0]]
		a.pair[1] = out[a.OutChannels[1]]
		callback(a.pair)
	})
}

func (a *ASIOStereo) Stop() {
	a.device.Stop()
	a.device.Close()
	a.device.Unload()
}

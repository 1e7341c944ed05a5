package config

import "PicoAWG/pkg/device"

func (c PreviewConfig) New() device.Sink {
	return &device.ASIOStereo{
		DeviceName:  c.DeviceName,
		SampleRate:  c.SampleRate,
		OutChannels: c.OutChannels,
	}
}

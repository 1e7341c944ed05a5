//go:build !windows

package config

import (
	"fmt"

	"PicoAWG/pkg/device"
)

// New falls back to a silent loopback where ASIO is unavailable.
func (c PreviewConfig) New() device.Sink {
	fmt.Printf("[Preview] ASIO device %q unavailable on this platform, using loopback\n", c.DeviceName)
	return &device.Loopback{SampleRate: c.SampleRate}
}

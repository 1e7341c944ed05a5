//go:build tinygo

package main

import "PicoAWG/pkg/device"

type backend struct {
	mem  device.Memory
	chip *device.RP2040
}

func newBackend(int) *backend {
	hw := &device.Hardware{}
	return &backend{mem: hw, chip: device.NewRP2040(hw)}
}

// run has nothing to do: the transfer engine loops on its own.
func (b *backend) run(stop <-chan struct{}) {
	<-stop
}

func (b *backend) shifted() []uint32 {
	return nil
}

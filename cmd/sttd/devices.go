package main

import (
	"fmt"
	"io"

	"sttd/internal/config"
	"sttd/internal/device"
)

// runDevices prints what the selector decides. A nil probe means SysProbe.
func runDevices(w io.Writer, cfg config.Config, probe device.Probe) error {
	if probe == nil {
		probe = device.SysProbe{}
	}
	sel := device.NewSelector(cfg.Device, probe)
	fmt.Fprintf(w, "policy:      %s\n", sel.Policy())
	fmt.Fprintf(w, "accelerator: %t\n", probe.AcceleratorAvailable())
	_, err := fmt.Fprintf(w, "selected:    %s\n", sel.Select())
	return err
}

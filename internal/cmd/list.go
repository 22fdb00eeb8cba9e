package cmd

import (
	"fmt"
	"log/slog"

	"github.com/Thiagojm/go-bitbabbler/bbusb"
)

// ListCmd enumerates attached BitBabbler hardware. It prefers the USB
// backend and falls back to platform device registries when libusb is not
// available.
type ListCmd struct{}

func (c *ListCmd) Run(logger *slog.Logger) error {
	devs, err := bbusb.List()
	if err != nil {
		logger.Debug("usb enumeration unavailable", "error", err)
	}
	if len(devs) > 0 {
		for _, d := range devs {
			line := fmt.Sprintf("bus %03d addr %03d", d.Bus, d.Address)
			if d.Serial != "" {
				line += " serial " + d.Serial
			}
			if d.Product != "" {
				line += " " + d.Product
			}
			fmt.Println(line)
		}
		return nil
	}

	found, detected, derr := bbusb.Detect()
	if derr != nil {
		if err != nil {
			return fmt.Errorf("usb enumeration failed (%v), platform detection failed: %w", err, derr)
		}
		return derr
	}
	if !found {
		fmt.Println("no BitBabbler devices found (VID 0403 PID 7840)")
		return nil
	}
	for _, d := range detected {
		line := d.Path
		if d.Description != "" {
			line += "  " + d.Description
		}
		if d.Serial != "" {
			line += "  serial " + d.Serial
		}
		fmt.Println(line)
	}
	return nil
}

//go:build !windows

package bbusb

import (
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
)

// Detect looks for a BitBabbler through the serial-port enumerator. When the
// kernel's ftdi_sio driver has claimed the chip it shows up as a USB serial
// port, which is exactly the situation where a libusb open would fail with a
// busy interface, so this makes a useful presence check alongside List.
func Detect() (bool, []DetectedDevice, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return false, nil, fmt.Errorf("enumerating ports: %w", err)
	}

	var found []DetectedDevice
	for _, p := range ports {
		if p == nil || !portIsBitBabbler(p) {
			continue
		}
		found = append(found, DetectedDevice{
			Path:        p.Name,
			Description: p.Product,
			Serial:      p.SerialNumber,
		})
	}
	return len(found) > 0, found, nil
}

// portIsBitBabbler matches on the FTDI VID/PID pair first, then falls back to
// the product string and the vendor's BBnnnnnn serial format.
func portIsBitBabbler(p *enumerator.PortDetails) bool {
	if !p.IsUSB {
		return false
	}
	if strings.EqualFold(p.VID, "0403") && strings.EqualFold(p.PID, "7840") {
		return true
	}
	if strings.Contains(strings.ToUpper(p.Product), "BITBABBLER") {
		return true
	}
	return strings.HasPrefix(strings.ToUpper(p.SerialNumber), "BB")
}

//go:build windows

package bbusb

import (
	"fmt"
	"strings"

	"golang.org/x/sys/windows"
)

// Detect scans the SetupAPI device tree for the BitBabbler VID/PID pair. It
// works without libusb and regardless of which driver is bound, so it can
// tell "device absent" from "device present but not claimable" before WinUSB
// setup has happened.
func Detect() (bool, []DetectedDevice, error) {
	want := fmt.Sprintf("VID_%04X&PID_%04X", ftdiVendorID, bbProductID)

	set, err := windows.SetupDiGetClassDevsEx(nil, "USB", 0, windows.DIGCF_PRESENT|windows.DIGCF_ALLCLASSES, 0, "")
	if err != nil {
		return false, nil, fmt.Errorf("setupapi: device list: %w", err)
	}
	defer set.Close()

	var found []DetectedDevice
	for i := 0; ; i++ {
		data, err := set.EnumDeviceInfo(i)
		if err != nil {
			// ERROR_NO_MORE_ITEMS ends the walk.
			break
		}
		if !hardwareIDMatches(set, data, want) {
			continue
		}
		found = append(found, DetectedDevice{
			Path:        deviceInstancePath(set, data),
			Description: deviceDescription(set, data),
		})
	}
	return len(found) > 0, found, nil
}

func hardwareIDMatches(set windows.DevInfo, data *windows.DevInfoData, want string) bool {
	prop, err := set.DeviceRegistryProperty(data, windows.SPDRP_HARDWAREID)
	if err != nil {
		return false
	}
	var ids []string
	switch v := prop.(type) {
	case []string:
		ids = v
	case string:
		ids = []string{v}
	}
	for _, id := range ids {
		if strings.Contains(strings.ToUpper(id), want) {
			return true
		}
	}
	return false
}

func deviceDescription(set windows.DevInfo, data *windows.DevInfoData) string {
	for _, p := range []windows.SPDRP{windows.SPDRP_FRIENDLYNAME, windows.SPDRP_DEVICEDESC} {
		if prop, err := set.DeviceRegistryProperty(data, p); err == nil {
			if s, ok := prop.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func deviceInstancePath(set windows.DevInfo, data *windows.DevInfoData) string {
	id, err := set.DeviceInstanceID(data)
	if err != nil {
		return ""
	}
	return id
}

package bbusb

import (
	"fmt"

	"github.com/google/gousb"
)

// DeviceInfo describes an attached BitBabbler as read from its USB
// descriptors. It is a snapshot taken during enumeration.
type DeviceInfo struct {
	Bus          int
	Address      int
	Serial       string
	Product      string
	Manufacturer string
}

func isBitBabbler(desc *gousb.DeviceDesc) bool {
	return desc.Vendor == gousb.ID(ftdiVendorID) && desc.Product == gousb.ID(bbProductID)
}

// List enumerates attached BitBabblers without claiming any of them. An empty
// list with a nil error means none are attached.
func List() ([]DeviceInfo, error) {
	uctx, err := acquireUSBContext()
	if err != nil {
		return nil, err
	}
	defer releaseUSBContext()

	devs, enumErr := uctx.OpenDevices(isBitBabbler)
	defer closeAll(devs)
	if len(devs) == 0 && enumErr != nil {
		return nil, fmt.Errorf("%w: enumerate: %v", ErrIO, enumErr)
	}
	infos := make([]DeviceInfo, 0, len(devs))
	for _, d := range devs {
		infos = append(infos, describe(d))
	}
	return infos, nil
}

// findDevice opens the device matching cfg, without claiming it. With a
// serial, only the exact match will do; without one, a single candidate is
// required unless TakeFirst accepts the platform's enumeration order.
func findDevice(uctx *gousb.Context, cfg Config) (*gousb.Device, DeviceInfo, error) {
	devs, enumErr := uctx.OpenDevices(isBitBabbler)
	if len(devs) == 0 {
		// Open failures on matching devices (typically permissions) land in
		// enumErr and hide the device just as effectively as its absence.
		if enumErr != nil {
			return nil, DeviceInfo{}, fmt.Errorf("%w: %v", ErrDeviceNotFound, enumErr)
		}
		return nil, DeviceInfo{}, fmt.Errorf("%w (vid %04x, pid %04x)", ErrDeviceNotFound, ftdiVendorID, bbProductID)
	}
	if enumErr != nil {
		cfg.Logger.Debug("partial usb enumeration", "err", enumErr, "opened", len(devs))
	}

	pick, err := selectCandidate(len(devs), func(i int) (string, error) {
		return devs[i].SerialNumber()
	}, cfg)
	if err != nil {
		closeAll(devs)
		return nil, DeviceInfo{}, err
	}

	for i, d := range devs {
		if i != pick {
			d.Close()
		}
	}
	chosen := devs[pick]
	return chosen, describe(chosen), nil
}

// selectCandidate applies the selection policy to n enumerated candidates:
// an exact serial match when one was asked for, otherwise a lone candidate,
// or the first one when TakeFirst accepts the platform's enumeration order.
func selectCandidate(n int, serialAt func(int) (string, error), cfg Config) (int, error) {
	if cfg.Serial != "" {
		for i := 0; i < n; i++ {
			s, err := serialAt(i)
			if err != nil {
				continue
			}
			if s == cfg.Serial {
				return i, nil
			}
		}
		return -1, fmt.Errorf("%w: serial %q", ErrDeviceNotFound, cfg.Serial)
	}
	if n > 1 && !cfg.TakeFirst {
		return -1, fmt.Errorf("%w: %d candidates, select one by serial or set TakeFirst", ErrAmbiguousDevice, n)
	}
	return 0, nil
}

func describe(d *gousb.Device) DeviceInfo {
	info := DeviceInfo{Bus: d.Desc.Bus, Address: d.Desc.Address}
	if s, err := d.SerialNumber(); err == nil {
		info.Serial = s
	}
	if s, err := d.Product(); err == nil {
		info.Product = s
	}
	if s, err := d.Manufacturer(); err == nil {
		info.Manufacturer = s
	}
	return info
}

func closeAll(devs []*gousb.Device) {
	for _, d := range devs {
		if d != nil {
			d.Close()
		}
	}
}

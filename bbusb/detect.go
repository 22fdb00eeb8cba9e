package bbusb

// DetectedDevice describes a BitBabbler found by platform enumeration rather
// than libusb. Fields are best effort; the platform may not expose all of
// them.
type DetectedDevice struct {
	// Path is the OS handle to the device: a device instance ID on Windows,
	// a serial port name elsewhere.
	Path string
	// Description is the product or friendly name, when available.
	Description string
	// Serial is the device serial number, when the platform exposes it.
	Serial string
}

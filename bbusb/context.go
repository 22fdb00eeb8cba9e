package bbusb

import (
	"fmt"
	"sync"

	"github.com/google/gousb"
)

// The process keeps exactly one libusb context, created on first use and torn
// down when the last holder releases it. Every open device and enumeration
// call holds a reference.
var (
	usbMu   sync.Mutex
	usbCtx  *gousb.Context
	usbRefs int
)

// acquireUSBContext returns the shared libusb context, initializing it on
// first use. Each successful call must be paired with releaseUSBContext.
func acquireUSBContext() (*gousb.Context, error) {
	usbMu.Lock()
	defer usbMu.Unlock()
	if usbCtx == nil {
		ctx, err := newUSBContext()
		if err != nil {
			return nil, err
		}
		usbCtx = ctx
	}
	usbRefs++
	return usbCtx, nil
}

// newUSBContext turns the panic gousb raises when libusb cannot be loaded or
// initialized into an ErrBackendUnavailable.
func newUSBContext() (ctx *gousb.Context, err error) {
	defer func() {
		if r := recover(); r != nil {
			ctx = nil
			err = fmt.Errorf("%w: %v", ErrBackendUnavailable, r)
		}
	}()
	return gousb.NewContext(), nil
}

func releaseUSBContext() {
	usbMu.Lock()
	defer usbMu.Unlock()
	if usbRefs == 0 {
		return
	}
	usbRefs--
	if usbRefs == 0 {
		_ = usbCtx.Close()
		usbCtx = nil
	}
}

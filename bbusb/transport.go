package bbusb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/gousb"
)

// Transport is the raw pipe to an FTDI device: vendor control requests plus
// bulk IN/OUT transfers. The MPSSE and entropy-read logic run entirely on top
// of this interface, so they can be exercised against synthetic transports.
//
// Bulk reads return whole USB packets as the device sent them, including the
// two FTDI modem-status bytes that lead every MaxPacket-sized block; stripping
// is the reader's job.
type Transport interface {
	// Control issues a vendor OUT request with no data stage.
	Control(request uint8, value, index uint16) error
	// BulkWrite pushes p to the OUT endpoint.
	BulkWrite(ctx context.Context, p []byte) (int, error)
	// BulkRead fills p from the IN endpoint. A read that outlives the
	// configured timeout fails with ErrTimeout.
	BulkRead(ctx context.Context, p []byte) (int, error)
	// MaxPacket is the IN endpoint's packet size (the status-byte stride).
	MaxPacket() int
	// Close releases the claimed interface. It is idempotent.
	Close() error
}

// usbTransport claims config 1, interface 0 of an FTDI device and owns the
// whole handle chain below it, including the shared context reference.
type usbTransport struct {
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface
	in   *gousb.InEndpoint
	out  *gousb.OutEndpoint

	readTimeout  time.Duration
	writeTimeout time.Duration

	closed  bool
	onClose func()
}

// claimTransport claims the device's MPSSE interface and locates the bulk
// endpoint pair. On success the transport takes ownership of dev and calls
// onClose when released; on failure the caller still owns dev.
func claimTransport(dev *gousb.Device, readTimeout, writeTimeout time.Duration, onClose func()) (*usbTransport, error) {
	// Detach ftdi_sio or similar where the OS supports it.
	_ = dev.SetAutoDetach(true)

	cfg, err := dev.Config(1)
	if err != nil {
		return nil, claimErr("set config", err)
	}
	intf, err := cfg.Interface(0, 0)
	if err != nil {
		cfg.Close()
		return nil, claimErr("claim interface", err)
	}

	var in *gousb.InEndpoint
	var out *gousb.OutEndpoint
	for _, ep := range intf.Setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeBulk {
			continue
		}
		switch ep.Direction {
		case gousb.EndpointDirectionIn:
			in, err = intf.InEndpoint(ep.Number)
		case gousb.EndpointDirectionOut:
			out, err = intf.OutEndpoint(ep.Number)
		}
		if err != nil {
			intf.Close()
			cfg.Close()
			return nil, claimErr("open endpoint", err)
		}
	}
	if in == nil || out == nil {
		intf.Close()
		cfg.Close()
		return nil, fmt.Errorf("%w: bulk endpoint pair not found", ErrClaim)
	}

	return &usbTransport{
		dev:          dev,
		cfg:          cfg,
		intf:         intf,
		in:           in,
		out:          out,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
		onClose:      onClose,
	}, nil
}

// claimErr keeps the gousb detail while classifying busy/permission failures
// as claim errors for the caller.
func claimErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrClaim, op, err)
}

func (t *usbTransport) Control(request uint8, value, index uint16) error {
	rtype := uint8(gousb.ControlOut) | uint8(gousb.ControlVendor) | uint8(gousb.ControlDevice)
	if _, err := t.dev.Control(rtype, request, value, index, nil); err != nil {
		return fmt.Errorf("%w: control request 0x%02x: %v", ErrIO, request, err)
	}
	return nil
}

func (t *usbTransport) BulkWrite(ctx context.Context, p []byte) (int, error) {
	wctx, cancel := context.WithTimeout(ctx, t.writeTimeout)
	defer cancel()
	n, err := t.out.WriteContext(wctx, p)
	if err != nil {
		return n, transferErr("bulk out", err)
	}
	return n, nil
}

func (t *usbTransport) BulkRead(ctx context.Context, p []byte) (int, error) {
	rctx, cancel := context.WithTimeout(ctx, t.readTimeout)
	defer cancel()
	n, err := t.in.ReadContext(rctx, p)
	if err != nil {
		return n, transferErr("bulk in", err)
	}
	return n, nil
}

// transferErr sorts a gousb transfer failure into the timeout or I/O bucket.
// gousb reports a transfer cut short by context expiry as TransferCancelled.
func transferErr(op string, err error) error {
	if errors.Is(err, gousb.TransferCancelled) ||
		errors.Is(err, gousb.ErrorTimeout) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %s: %v", ErrTimeout, op, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrIO, op, err)
}

func (t *usbTransport) MaxPacket() int {
	return t.in.Desc.MaxPacketSize
}

func (t *usbTransport) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	t.intf.Close()
	t.cfg.Close()
	t.dev.Close()
	if t.onClose != nil {
		t.onClose()
	}
	return nil
}

package bbusb

import (
	"context"
	"fmt"
	"log/slog"
)

// shortReadLimit caps consecutive payload-free read intervals inside one
// chunk before the reader declares the device stalled.
const shortReadLimit = 32

// Device is an open, MPSSE-synchronized BitBabbler. It is not safe for
// concurrent use: both the handshake and chunked reads assume exclusive,
// ordered access to the endpoint pair. Callers wanting parallel consumption
// open one Device per physical generator or serialize access externally.
type Device struct {
	tr   Transport
	log  *slog.Logger
	info DeviceInfo

	bitrate     uint
	latency     uint8
	maxTransfer int

	residue []byte // stripped payload beyond the last request
	scratch []byte
	ready   bool
	closed  bool
}

// Open selects a device per cfg, claims its interface, and runs the MPSSE
// initialization. The returned handle is past the sync handshake and ready
// for entropy reads.
func Open(cfg Config) (*Device, error) {
	cfg = cfg.withDefaults()

	uctx, err := acquireUSBContext()
	if err != nil {
		return nil, err
	}
	dev, info, err := findDevice(uctx, cfg)
	if err != nil {
		releaseUSBContext()
		return nil, err
	}
	tr, err := claimTransport(dev, cfg.ReadTimeout, cfg.WriteTimeout, releaseUSBContext)
	if err != nil {
		dev.Close()
		releaseUSBContext()
		return nil, err
	}

	d := newDevice(tr, cfg)
	d.info = info
	if err := d.init(context.Background()); err != nil {
		d.Close()
		return nil, err
	}
	d.log.Debug("device ready", "serial", info.Serial, "bitrate", d.bitrate, "max_packet", tr.MaxPacket())
	return d, nil
}

// newDevice wires a Device over an arbitrary transport. Open is the only
// production caller; tests substitute synthetic transports here.
func newDevice(tr Transport, cfg Config) *Device {
	cfg = cfg.withDefaults()
	return &Device{
		tr:          tr,
		log:         cfg.Logger,
		bitrate:     cfg.Bitrate,
		latency:     cfg.Latency,
		maxTransfer: cfg.MaxTransfer,
	}
}

// init runs the MPSSE bring-up once per handle; on an already-synchronized
// handle it is a no-op.
func (d *Device) init(ctx context.Context) error {
	if d.ready {
		return nil
	}
	if err := initMPSSE(ctx, d.tr, d.bitrate, d.latency, d.log); err != nil {
		return err
	}
	if actual, err := RealBitrate(d.bitrate); err == nil {
		d.bitrate = actual
	}
	d.residue = d.residue[:0]
	d.ready = true
	return nil
}

// Reconfigure applies a new bitrate or latency to a live handle. The sync
// handshake runs again, so it must not interleave with reads.
func (d *Device) Reconfigure(bitrate uint, latency uint8) error {
	if d.closed {
		return fmt.Errorf("%w: device closed", ErrIO)
	}
	if bitrate == 0 {
		bitrate = DefaultBitrate
	}
	if _, err := RealBitrate(bitrate); err != nil {
		return fmt.Errorf("%w: %v", ErrSync, err)
	}
	d.bitrate = bitrate
	d.latency = latency
	d.ready = false
	return d.init(context.Background())
}

// Info returns the descriptor snapshot taken when the device was selected.
func (d *Device) Info() DeviceInfo { return d.info }

// Bitrate returns the quantized rate the clock actually runs at.
func (d *Device) Bitrate() uint { return d.bitrate }

// Close releases the interface and USB handles. It is idempotent and safe to
// call after a failed read.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.ready = false
	return d.tr.Close()
}

// ReadEntropy returns exactly n bytes of raw entropy. n = 0 returns an empty
// buffer without touching the device. Larger requests are split into
// MaxTransfer-sized chunks, one MPSSE read command each; on failure no
// partial buffer is returned.
func (d *Device) ReadEntropy(ctx context.Context, n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("entropy length must be non-negative, got %d", n)
	}
	if n == 0 {
		return []byte{}, nil
	}
	if d.closed {
		return nil, fmt.Errorf("%w: device closed", ErrIO)
	}
	out := make([]byte, n)
	for got := 0; got < n; {
		chunk := n - got
		if chunk > d.maxTransfer {
			chunk = d.maxTransfer
		}
		if err := d.readChunk(ctx, out[got:got+chunk]); err != nil {
			return nil, err
		}
		got += chunk
	}
	return out, nil
}

// ReadEntropyFolded reads n<<folds raw bytes and XOR-folds them down to
// exactly n.
func (d *Device) ReadEntropyFolded(ctx context.Context, n, folds int) ([]byte, error) {
	if folds < 0 {
		return nil, fmt.Errorf("folds must be non-negative, got %d", folds)
	}
	raw := n << folds
	if n > 0 && raw>>folds != n {
		return nil, fmt.Errorf("folds too large: %d bytes * 2^%d overflows", n, folds)
	}
	buf, err := d.ReadEntropy(ctx, raw)
	if err != nil {
		return nil, err
	}
	return foldInPlace(buf, folds), nil
}

// readChunk fills dst: leftover payload from earlier transfers first, then
// one MPSSE read command for the remainder, draining packets and stripping
// the status prefix each one carries.
func (d *Device) readChunk(ctx context.Context, dst []byte) error {
	got := copy(dst, d.residue)
	d.residue = d.residue[:copy(d.residue, d.residue[got:])]
	if got == len(dst) {
		return nil
	}

	want := len(dst) - got
	cmd := []byte{
		mpsseDataByteInPosMSB,
		byte((want - 1) & 0xFF),
		byte((want - 1) >> 8),
		mpsseSendImmediate,
	}
	if _, err := d.tr.BulkWrite(ctx, cmd); err != nil {
		return err
	}

	if d.scratch == nil {
		d.scratch = make([]byte, readBufSize(d.tr.MaxPacket()))
	}
	idle := 0
	for got < len(dst) {
		n, err := d.tr.BulkRead(ctx, d.scratch)
		if err != nil {
			return err
		}
		payload := appendStripped(nil, d.scratch[:n], d.tr.MaxPacket())
		if len(payload) == 0 {
			// The chip flushes a bare status header every latency interval
			// even when it has nothing to say.
			idle++
			if idle > shortReadLimit {
				return fmt.Errorf("%w: %d of %d bytes, then %d empty reads", ErrIO, got, len(dst), idle)
			}
			continue
		}
		idle = 0
		c := copy(dst[got:], payload)
		got += c
		if c < len(payload) {
			d.residue = append(d.residue, payload[c:]...)
		}
	}
	return nil
}

// appendStripped appends the payload of a raw bulk-in buffer to dst, dropping
// the two modem-status bytes at the head of each maxPacket-sized block.
func appendStripped(dst, raw []byte, maxPacket int) []byte {
	if maxPacket <= 2 {
		return dst
	}
	for off := 0; off < len(raw); off += maxPacket {
		end := off + maxPacket
		if end > len(raw) {
			end = len(raw)
		}
		if end-off <= 2 {
			continue
		}
		dst = append(dst, raw[off+2:end]...)
	}
	return dst
}

// readBufSize sizes the bulk scratch buffer: a packet-size multiple near 8 KiB
// so a partial trailing packet can never overflow the transfer.
func readBufSize(maxPacket int) int {
	if maxPacket <= 0 {
		return 8192
	}
	n := 8192 / maxPacket
	if n < 1 {
		n = 1
	}
	return n * maxPacket
}

// Package bbusb drives a BitBabbler hardware RNG: an FTDI chip in MPSSE mode
// behind a USB bulk pipe. It covers device selection, interface claiming,
// MPSSE initialization with the bad-command sync handshake, chunked entropy
// reads, and XOR-folding of the raw stream.
//
// Usage:
//
//	d, err := bbusb.Open(bbusb.Config{})
//	if err != nil { ... }
//	defer d.Close()
//	buf, err := d.ReadEntropyFolded(context.Background(), 4096, 1)
package bbusb

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// FTDI vendor/product for BitBabbler
const (
	ftdiVendorID = 0x0403
	bbProductID  = 0x7840
)

// mpsse command bytes
const (
	mpsseNoClkDiv5     = 0x8A
	mpsseNoAdaptiveClk = 0x97
	mpsseNo3PhaseClk   = 0x8D
	mpsseSetDataLow    = 0x80
	mpsseSetDataHigh   = 0x82
	mpsseNoLoopback    = 0x85
	mpsseSetClkDivisor = 0x86
	mpsseSendImmediate = 0x87

	// read bytes in, MSB first, sample on +ve edge
	mpsseDataByteInPosMSB = 0x20

	// response prefix the engine emits for an unknown command byte
	mpsseBadCmdEcho = 0xFA
)

// ftdi SIO requests (vendor-specific)
const (
	ftdiReqReset        = 0x00
	ftdiReqSetFlowCtrl  = 0x02
	ftdiReqSetEventChar = 0x06
	ftdiReqSetErrorChar = 0x07
	ftdiReqSetLatency   = 0x09
	ftdiReqSetBitmode   = 0x0B
)

// ftdi reset values
const (
	ftdiResetSIO = 0
)

// ftdi flow control
const (
	ftdiFlowRtsCts = 0x0100
)

// ftdi bitmodes
const (
	ftdiBitmodeReset = 0x0000
	ftdiBitmodeMpsse = 0x0200
)

// Control requests address FTDI channel A.
const ftdiInterfaceA = 1

// Bitrate limits of the MPSSE clock divisor (60 MHz base, /2, 16-bit divisor).
const (
	MinBitrate     = 458
	MaxBitrate     = 30_000_000
	DefaultBitrate = 2_500_000
)

// DefaultMaxTransfer is the largest read a single MPSSE data command can carry
// (16-bit length field, so 65536 bytes).
const DefaultMaxTransfer = 65536

// Error categories. Failures are wrapped around one of these sentinels and
// matched with errors.Is.
var (
	// ErrBackendUnavailable means libusb could not be initialized.
	ErrBackendUnavailable = errors.New("usb backend unavailable")
	// ErrDeviceNotFound means no attached device matched the selection criteria.
	ErrDeviceNotFound = errors.New("no BitBabbler device found")
	// ErrAmbiguousDevice means several devices matched and no serial was given.
	ErrAmbiguousDevice = errors.New("multiple BitBabbler devices found")
	// ErrClaim means the device was found but its interface could not be claimed.
	ErrClaim = errors.New("interface claim failed")
	// ErrSync means the MPSSE handshake never saw the bad-command echo.
	ErrSync = errors.New("mpsse sync failed")
	// ErrTimeout means an individual bulk transfer exceeded its timeout.
	ErrTimeout = errors.New("bulk transfer timed out")
	// ErrIO covers any other transport failure, including persistent short reads.
	ErrIO = errors.New("bulk transfer failed")
)

// Config selects and configures a device. The zero value opens the only
// attached BitBabbler with vendor defaults.
type Config struct {
	// Serial restricts the match to an exact serial number. Empty matches any.
	Serial string
	// TakeFirst picks the first enumerated device when several match and no
	// Serial is given, instead of failing with ErrAmbiguousDevice. Enumeration
	// order is platform-defined, so which device wins is not a guarantee.
	TakeFirst bool

	// Bitrate is the MPSSE clock in Hz. 0 means DefaultBitrate. The hardware
	// quantizes to the divisor grid; see RealBitrate.
	Bitrate uint
	// Latency is the FTDI latency timer in ms (1-255). 0 derives a value from
	// the bitrate and packet size.
	Latency uint8

	// ReadTimeout and WriteTimeout bound each bulk transfer, not a whole
	// logical read. 0 means one second.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// MaxTransfer caps the bytes requested per MPSSE read command. 0 means
	// DefaultMaxTransfer; values above it are clamped.
	MaxTransfer int

	// Logger receives debug detail of the init sequence and transfers.
	// Nil discards.
	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.Bitrate == 0 {
		c.Bitrate = DefaultBitrate
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = time.Second
	}
	if c.MaxTransfer <= 0 || c.MaxTransfer > DefaultMaxTransfer {
		c.MaxTransfer = DefaultMaxTransfer
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// RealBitrate returns the bitrate the hardware will actually run at for a
// requested rate: the divisor is an integer, so the clock snaps to
// 30 MHz / (30 MHz / rate). Rates outside [MinBitrate, MaxBitrate] are
// rejected.
func RealBitrate(rate uint) (uint, error) {
	if rate == 0 {
		rate = DefaultBitrate
	}
	if rate < MinBitrate || rate > MaxBitrate {
		return 0, fmt.Errorf("bitrate %d out of range [%d, %d]", rate, MinBitrate, MaxBitrate)
	}
	return MaxBitrate / (MaxBitrate / rate), nil
}

// clockDivisor maps a bitrate onto the 16-bit MPSSE divisor.
func clockDivisor(rate uint) (uint16, error) {
	actual, err := RealBitrate(rate)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSync, err)
	}
	return uint16(MaxBitrate/actual - 1), nil
}

// defaultLatency picks a latency timer that lets the chip fill a packet at the
// given bitrate before flushing: one packet time in ms, plus slack, clamped to
// the 1-255 register range.
func defaultLatency(rate uint, maxPacket int) uint8 {
	ms := maxPacket*8000/int(rate) + 2
	if ms < 1 {
		ms = 1
	}
	if ms > 255 {
		ms = 255
	}
	return uint8(ms)
}

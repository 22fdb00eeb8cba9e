package cmd

import (
	"log/slog"
	"time"

	"github.com/Thiagojm/go-bitbabbler/bbusb"
)

// DeviceFlags are the selection and tuning options shared by every command
// that opens hardware.
type DeviceFlags struct {
	Serial  string        `help:"Select the device with this serial number" env:"BB_SERIAL"`
	First   bool          `help:"When several devices match, take the first instead of failing" env:"BB_FIRST"`
	Bitrate uint          `help:"Generator bitrate in Hz (quantized by the hardware)" default:"2500000" env:"BB_BITRATE"`
	Latency uint8         `help:"FTDI latency timer in ms, 1-255 (0 derives one from the bitrate)" env:"BB_LATENCY"`
	Timeout time.Duration `help:"Per-transfer USB timeout" default:"1s" env:"BB_TIMEOUT"`
}

func (f DeviceFlags) deviceConfig(logger *slog.Logger) bbusb.Config {
	return bbusb.Config{
		Serial:       f.Serial,
		TakeFirst:    f.First,
		Bitrate:      f.Bitrate,
		Latency:      f.Latency,
		ReadTimeout:  f.Timeout,
		WriteTimeout: f.Timeout,
		Logger:       logger,
	}
}

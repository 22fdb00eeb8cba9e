//go:build !windows

package bbusb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.bug.st/serial/enumerator"
)

func TestPortIsBitBabbler(t *testing.T) {
	tests := []struct {
		name string
		port enumerator.PortDetails
		want bool
	}{
		{
			name: "vid pid match",
			port: enumerator.PortDetails{Name: "/dev/ttyUSB0", IsUSB: true, VID: "0403", PID: "7840"},
			want: true,
		},
		{
			name: "lowercase product string",
			port: enumerator.PortDetails{IsUSB: true, VID: "0403", PID: "6001", Product: "bitbabbler black"},
			want: true,
		},
		{
			name: "product string",
			port: enumerator.PortDetails{IsUSB: true, VID: "0403", PID: "6001", Product: "BitBabbler White"},
			want: true,
		},
		{
			name: "vendor serial format",
			port: enumerator.PortDetails{IsUSB: true, VID: "0403", PID: "6001", SerialNumber: "BB000017"},
			want: true,
		},
		{
			name: "plain ftdi adapter",
			port: enumerator.PortDetails{IsUSB: true, VID: "0403", PID: "6001", Product: "FT232R USB UART"},
			want: false,
		},
		{
			name: "not usb",
			port: enumerator.PortDetails{Name: "/dev/ttyS0"},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, portIsBitBabbler(&tt.port))
		})
	}
}

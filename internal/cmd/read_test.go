package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMustRefuseTTY(t *testing.T) {
	tests := []struct {
		name   string
		asHex  bool
		out    string
		tty    bool
		refuse bool
	}{
		{"raw to tty", false, "", true, true},
		{"raw to pipe", false, "", false, false},
		{"hex to tty", true, "", true, false},
		{"raw to file", false, "out.bin", true, false},
		{"hex to file", true, "out.bin", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.refuse, mustRefuseTTY(tt.asHex, tt.out, tt.tty))
		})
	}
}

func TestWriteOutput(t *testing.T) {
	data := []byte{0xDE, 0xAD, 0xBE, 0xEF}

	var raw bytes.Buffer
	require.NoError(t, writeOutput(&raw, data, false))
	assert.Equal(t, data, raw.Bytes())

	var hexed bytes.Buffer
	require.NoError(t, writeOutput(&hexed, data, true))
	assert.Equal(t, "deadbeef", hexed.String())
}

package cmd

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/Thiagojm/go-bitbabbler/bbusb"
)

// BitsCmd reads a bit string and prints it as hex, decimal and binary.
type BitsCmd struct {
	Bits int `short:"b" help:"Number of bits to read" default:"2048"`
	Fold int `short:"f" help:"XOR-fold count (0 = none)" default:"0"`

	DeviceFlags `embed:""`
}

func (c *BitsCmd) Run(logger *slog.Logger) error {
	if c.Bits <= 0 {
		return errors.New("--bits must be greater than zero")
	}
	if c.Fold < 0 {
		return errors.New("--fold must be zero or positive")
	}

	ctx, stop := interruptContext()
	defer stop()

	data, err := bbusb.ReadBits(ctx, c.deviceConfig(logger), c.Bits, c.Fold)
	if err != nil {
		return err
	}

	hexStr, intStr, binStr := formatBits(data, c.Bits)
	fmt.Printf("HEX: %s\n", hexStr)
	fmt.Printf("INT: %s\n", intStr)
	fmt.Printf("BIN: %s\n", binStr)
	return nil
}

// formatBits renders data as hex, decimal and a binary string of exactly
// bits digits. The last byte carries the excess bits, so it contributes only
// its low bits to the string.
func formatBits(data []byte, bits int) (hexStr, intStr, binStr string) {
	hexStr = hex.EncodeToString(data)
	intStr = new(big.Int).SetBytes(data).String()

	var sb strings.Builder
	excess := (8 - bits%8) % 8
	for i, b := range data {
		if i == len(data)-1 && excess != 0 {
			fmt.Fprintf(&sb, "%0*b", 8-excess, b)
		} else {
			fmt.Fprintf(&sb, "%08b", b)
		}
	}
	binStr = sb.String()
	if len(binStr) > bits {
		binStr = binStr[:bits]
	}
	return hexStr, intStr, binStr
}

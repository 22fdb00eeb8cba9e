package cmd

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/Thiagojm/go-bitbabbler/bbusb"
)

// ReadCmd reads entropy and writes it to stdout or a file.
type ReadCmd struct {
	Bytes int    `help:"Number of output bytes to read (after folding)" required:""`
	Fold  int    `help:"XOR-fold count (0 = none)" default:"0"`
	Hex   bool   `help:"Print hex instead of raw bytes"`
	Out   string `short:"o" help:"Output file (defaults to stdout)" type:"path"`

	DeviceFlags `embed:""`
}

func (c *ReadCmd) Run(logger *slog.Logger) error {
	if c.Bytes <= 0 {
		return errors.New("--bytes must be greater than zero")
	}
	if c.Fold < 0 {
		return errors.New("--fold must be zero or positive")
	}
	if mustRefuseTTY(c.Hex, c.Out, term.IsTerminal(int(os.Stdout.Fd()))) {
		return errors.New("refusing to write raw bytes to a terminal, use --hex or --out")
	}

	ctx, stop := interruptContext()
	defer stop()

	dev, err := bbusb.Open(c.deviceConfig(logger))
	if err != nil {
		return err
	}
	defer dev.Close()
	logger.Debug("device open", "serial", dev.Info().Serial, "bitrate", dev.Bitrate())

	data, err := dev.ReadEntropyFolded(ctx, c.Bytes, c.Fold)
	if err != nil {
		return err
	}

	if c.Out != "" {
		f, err := os.Create(c.Out)
		if err != nil {
			return err
		}
		if err := writeOutput(f, data, c.Hex); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}

	if err := writeOutput(os.Stdout, data, c.Hex); err != nil {
		return err
	}
	if c.Hex {
		fmt.Println()
	}
	return nil
}

// mustRefuseTTY reports whether raw entropy would land on an interactive
// terminal.
func mustRefuseTTY(asHex bool, outPath string, stdoutIsTTY bool) bool {
	return outPath == "" && !asHex && stdoutIsTTY
}

func writeOutput(w io.Writer, data []byte, asHex bool) error {
	if asHex {
		_, err := io.WriteString(w, hex.EncodeToString(data))
		return err
	}
	_, err := w.Write(data)
	return err
}

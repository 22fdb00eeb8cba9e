package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Thiagojm/go-bitbabbler/bbusb"
	"github.com/Thiagojm/go-bitbabbler/randstat"
)

// StatCmd runs the statistical screens over a sample read from hardware or
// loaded from a file.
type StatCmd struct {
	Bytes int    `help:"Read this many bytes from the device" xor:"source" required:""`
	File  string `help:"Analyze an existing sample file instead of reading hardware" xor:"source" required:"" type:"existingfile"`
	Fold  int    `help:"XOR-fold count applied before analysis" default:"0"`
	Hex   bool   `help:"Print the sample as hex before the report"`

	DeviceFlags `embed:""`
}

func (c *StatCmd) Run(logger *slog.Logger) error {
	if c.Fold < 0 {
		return errors.New("--fold must be zero or positive")
	}

	var data []byte
	if c.File != "" {
		b, err := os.ReadFile(c.File)
		if err != nil {
			return err
		}
		data = b
		if c.Fold > 0 {
			data = bbusb.Fold(data, c.Fold)
		}
	} else {
		if c.Bytes <= 0 {
			return errors.New("--bytes must be greater than zero")
		}
		ctx, stop := interruptContext()
		defer stop()

		dev, err := bbusb.Open(c.deviceConfig(logger))
		if err != nil {
			return err
		}
		defer dev.Close()

		data, err = dev.ReadEntropyFolded(ctx, c.Bytes, c.Fold)
		if err != nil {
			return err
		}
	}

	if len(data) < 1024 {
		logger.Warn("samples smaller than 1 KiB give unreliable statistics", "size", len(data))
	}
	if c.Hex {
		fmt.Printf("sample: %x\n\n", data)
	}
	fmt.Print(randstat.Evaluate(data).String())
	return nil
}

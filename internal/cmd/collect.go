package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/bits"
	"os"
	"time"

	"github.com/Thiagojm/go-bitbabbler/bbusb"
	"github.com/Thiagojm/go-bitbabbler/naming"
)

const csvTimeLayout = "20060102T15:04:05"

// CollectCmd samples the device on a fixed interval and appends each sample
// to a .bin byte stream plus a .csv of per-sample ones counts. The file pair
// is named so later tooling can recover the sample size and interval.
type CollectCmd struct {
	Bits     int    `help:"Bits per sample (after folding)" default:"2048"`
	Interval int    `help:"Seconds between samples" default:"1"`
	Fold     int    `help:"XOR-fold count applied to each sample" default:"0"`
	OutDir   string `help:"Output directory for the sample files" default:"data" type:"path"`

	DeviceFlags `embed:""`
}

func (c *CollectCmd) Run(logger *slog.Logger) error {
	if c.Bits <= 0 {
		return errors.New("--bits must be greater than zero")
	}
	if c.Interval <= 0 {
		return errors.New("--interval must be greater than zero")
	}
	if c.Fold < 0 {
		return errors.New("--fold must be zero or positive")
	}
	if err := os.MkdirAll(c.OutDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	params := naming.Params{
		Time:            time.Now(),
		Bits:            c.Bits,
		IntervalSeconds: c.Interval,
		Folds:           c.Fold,
	}
	binPath, csvPath, err := params.BinCSVPaths(c.OutDir)
	if err != nil {
		return err
	}

	binFile, err := os.OpenFile(binPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer binFile.Close()
	binW := bufio.NewWriter(binFile)
	defer binW.Flush()

	csvFile, err := os.OpenFile(csvPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer csvFile.Close()
	csvW := bufio.NewWriter(csvFile)
	defer csvW.Flush()

	ctx, stop := interruptContext()
	defer stop()

	dev, err := bbusb.Open(c.deviceConfig(logger))
	if err != nil {
		return err
	}
	defer dev.Close()

	samples, err := dev.Collect(ctx, c.Bits, c.Fold, time.Duration(c.Interval)*time.Second)
	if err != nil {
		return err
	}

	logger.Info("collecting",
		"bits", c.Bits, "interval_s", c.Interval, "folds", c.Fold,
		"bin", binPath, "csv", csvPath, "serial", dev.Info().Serial)

	n := 0
	for s := range samples {
		if s.Err != nil {
			// A read cut short by the interrupt is a clean shutdown, not a
			// device fault.
			if ctx.Err() != nil || errors.Is(s.Err, context.Canceled) {
				break
			}
			logger.Error("sample read failed", "error", s.Err)
			return s.Err
		}
		ones, err := writeSample(binW, csvW, s)
		if err != nil {
			return err
		}
		// Keep both files consistent on disk between samples.
		if err := binW.Flush(); err != nil {
			return err
		}
		if err := csvW.Flush(); err != nil {
			return err
		}
		n++
		fmt.Printf("sample %d: ones=%d/%d at %s\n", n, ones, s.Bits, s.Time.Format(csvTimeLayout))
	}

	logger.Info("collection stopped", "samples", n)
	return nil
}

// writeSample appends one sample to the binary stream and its ones count to
// the CSV, returning the count.
func writeSample(binW, csvW io.Writer, s bbusb.Sample) (int, error) {
	if _, err := binW.Write(s.Data); err != nil {
		return 0, fmt.Errorf("writing bin: %w", err)
	}
	ones := onesCount(s.Data)
	if _, err := fmt.Fprintf(csvW, "%s,%d\n", s.Time.Format(csvTimeLayout), ones); err != nil {
		return 0, fmt.Errorf("writing csv: %w", err)
	}
	return ones, nil
}

func onesCount(buf []byte) int {
	total := 0
	for _, b := range buf {
		total += bits.OnesCount8(b)
	}
	return total
}

package bbusb

import (
	"context"
	"fmt"
	"time"
)

// ReadBits opens a device, reads the requested number of bits after folding,
// and closes it again. The final byte is masked so the buffer carries exactly
// bits bits.
func ReadBits(ctx context.Context, cfg Config, bits, folds int) ([]byte, error) {
	if bits <= 0 {
		return nil, fmt.Errorf("bits must be > 0, got %d", bits)
	}
	d, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	defer d.Close()

	buf, err := d.ReadEntropyFolded(ctx, (bits+7)/8, folds)
	if err != nil {
		return nil, err
	}
	maskExcessBits(buf, bits)
	return buf, nil
}

// maskExcessBits zeroes the top bits of the final byte beyond the requested
// count.
func maskExcessBits(buf []byte, bits int) {
	if bits%8 != 0 && len(buf) > 0 {
		buf[len(buf)-1] &= 0xFF >> (8 - bits%8)
	}
}

// Sample is one periodic read delivered by Collect.
type Sample struct {
	// Time the read completed.
	Time time.Time
	// Bits requested for this sample.
	Bits int
	// Folds applied to the raw stream before delivery.
	Folds int
	// Data holds ceil(Bits/8) bytes with the excess bits of the last byte
	// masked off. Nil when Err is set.
	Data []byte
	// Err is non-nil if this cycle's read failed.
	Err error
}

// Collect reads bits bits every interval and delivers each result on the
// returned channel until ctx is cancelled. The collector goroutine owns the
// device for the duration of the run, which keeps reads serialized; the
// channel is closed when the run ends. A failed cycle is reported as a Sample
// with Err set and the run stops, since a handle that missed a read is not
// resumed.
func (d *Device) Collect(ctx context.Context, bits, folds int, interval time.Duration) (<-chan Sample, error) {
	if bits <= 0 {
		return nil, fmt.Errorf("bits must be > 0, got %d", bits)
	}
	if folds < 0 {
		return nil, fmt.Errorf("folds must be non-negative, got %d", folds)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("interval must be > 0, got %v", interval)
	}

	out := make(chan Sample)
	numBytes := (bits + 7) / 8

	go func() {
		defer close(out)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			buf, err := d.ReadEntropyFolded(ctx, numBytes, folds)
			if err == nil {
				maskExcessBits(buf, bits)
			}
			s := Sample{Time: time.Now(), Bits: bits, Folds: folds, Data: buf, Err: err}

			select {
			case out <- s:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

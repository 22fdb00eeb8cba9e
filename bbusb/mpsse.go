package bbusb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	// syncAttempts bounds how often the full init sequence is retried before
	// the handshake is declared failed.
	syncAttempts = 3
	// syncPolls bounds the read polls per probe while waiting for its echo.
	syncPolls = 10
	// purgePolls bounds the drain loop on a purge.
	purgePolls = 10
)

// initMPSSE drives the chip into MPSSE mode and proves the command channel is
// aligned before any entropy read: SIO reset, latency and flow-control setup,
// mode switch, then the bad-command probes 0xAA and 0xAB, each of which must
// echo back as 0xFA followed by the probe byte. The whole sequence is retried
// a bounded number of times; stale buffer contents from a previous session
// are the usual reason a first attempt misses.
func initMPSSE(ctx context.Context, tr Transport, bitrate uint, latency uint8, log *slog.Logger) error {
	divisor, err := clockDivisor(bitrate)
	if err != nil {
		return err
	}
	if latency == 0 {
		latency = defaultLatency(bitrate, tr.MaxPacket())
	}

	synced := false
	for attempt := 1; attempt <= syncAttempts; attempt++ {
		if err := enterMPSSE(ctx, tr, latency); err != nil {
			return err
		}
		if probeSync(ctx, tr, 0xAA) && probeSync(ctx, tr, 0xAB) {
			log.Debug("mpsse sync", "attempt", attempt)
			synced = true
			break
		}
		log.Debug("mpsse sync missed", "attempt", attempt)
	}
	if !synced {
		return fmt.Errorf("%w: no bad-command echo after %d attempts", ErrSync, syncAttempts)
	}

	// Commit the clock setup in one command block.
	cmd := []byte{
		mpsseNoClkDiv5,
		mpsseNoAdaptiveClk,
		mpsseNo3PhaseClk,
		mpsseSetDataLow,
		0x00, // low pins idle low
		0x0B, // CLK, DO, CS driven
		mpsseSetDataHigh,
		0x00,
		0x00,
		mpsseSetClkDivisor,
		byte(divisor & 0xFF),
		byte(divisor >> 8),
		mpsseNoLoopback,
	}
	if _, err := tr.BulkWrite(ctx, cmd); err != nil {
		return err
	}
	time.Sleep(30 * time.Millisecond)
	purgeRead(ctx, tr)
	log.Debug("mpsse ready", "divisor", divisor, "latency_ms", latency)
	return nil
}

// enterMPSSE runs the SIO control sequence up to the point where the engine
// accepts commands. Control failures are fatal, not retried.
func enterMPSSE(ctx context.Context, tr Transport, latency uint8) error {
	if err := tr.Control(ftdiReqReset, ftdiResetSIO, ftdiInterfaceA); err != nil {
		return err
	}
	purgeRead(ctx, tr)
	// No event or error characters.
	if err := tr.Control(ftdiReqSetEventChar, 0, ftdiInterfaceA); err != nil {
		return err
	}
	if err := tr.Control(ftdiReqSetErrorChar, 0, ftdiInterfaceA); err != nil {
		return err
	}
	if err := tr.Control(ftdiReqSetLatency, uint16(latency), ftdiInterfaceA); err != nil {
		return err
	}
	if err := tr.Control(ftdiReqSetFlowCtrl, 0, ftdiFlowRtsCts|ftdiInterfaceA); err != nil {
		return err
	}
	if err := tr.Control(ftdiReqSetBitmode, ftdiBitmodeReset, ftdiInterfaceA); err != nil {
		return err
	}
	if err := tr.Control(ftdiReqSetBitmode, ftdiBitmodeMpsse, ftdiInterfaceA); err != nil {
		return err
	}
	time.Sleep(50 * time.Millisecond)
	return nil
}

// probeSync sends one deliberately invalid command byte and watches the read
// stream for the 0xFA echo pair, scanning past whatever stale bytes precede
// it. false means this probe saw no echo within its poll allowance.
func probeSync(ctx context.Context, tr Transport, probe byte) bool {
	if _, err := tr.BulkWrite(ctx, []byte{probe, mpsseSendImmediate}); err != nil {
		return false
	}
	buf := make([]byte, 512)
	var prev byte
	havePrev := false
	for poll := 0; poll < syncPolls; poll++ {
		n, err := tr.BulkRead(ctx, buf)
		if err != nil {
			if errors.Is(err, ErrTimeout) {
				// Nothing buffered this interval; poll again.
				continue
			}
			return false
		}
		for _, c := range appendStripped(nil, buf[:n], tr.MaxPacket()) {
			if havePrev && prev == mpsseBadCmdEcho && c == probe {
				return true
			}
			prev, havePrev = c, true
		}
	}
	return false
}

// purgeRead drains whatever the chip has buffered. Best effort: polling stops
// at the first interval that carries no payload.
func purgeRead(ctx context.Context, tr Transport) {
	buf := make([]byte, 8192)
	for poll := 0; poll < purgePolls; poll++ {
		n, err := tr.BulkRead(ctx, buf)
		if err != nil || n <= 2 {
			return
		}
	}
}

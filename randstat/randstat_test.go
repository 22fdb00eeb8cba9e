package randstat

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonobit(t *testing.T) {
	tests := []struct {
		name      string
		data      []byte
		wantOnes  int
		wantZeros int
		wantZ     float64
		wantPHigh bool
	}{
		{
			name:      "balanced alternating bits",
			data:      bytes.Repeat([]byte{0xAA}, 64),
			wantOnes:  256,
			wantZeros: 256,
			wantZ:     0,
			wantPHigh: true,
		},
		{
			name:      "all ones",
			data:      bytes.Repeat([]byte{0xFF}, 128),
			wantOnes:  1024,
			wantZeros: 0,
			wantZ:     32,
			wantPHigh: false,
		},
		{
			name:      "all zeros",
			data:      make([]byte, 128),
			wantOnes:  0,
			wantZeros: 1024,
			wantZ:     32,
			wantPHigh: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Monobit(tt.data)
			assert.Equal(t, tt.wantOnes, got.Ones)
			assert.Equal(t, tt.wantZeros, got.Zeros)
			assert.InDelta(t, tt.wantZ, got.Z, 1e-9)
			if tt.wantPHigh {
				assert.Greater(t, got.P, 0.99)
			} else {
				assert.Less(t, got.P, 1e-9)
			}
		})
	}
}

func TestMonobitEmpty(t *testing.T) {
	got := Monobit(nil)
	assert.Zero(t, got.Ones)
	assert.Zero(t, got.Zeros)
	assert.Zero(t, got.Z)
	assert.Zero(t, got.P)
}

func TestRunsAlternating(t *testing.T) {
	// 0xAA bytes flip on every bit, so every bit starts a new run.
	data := bytes.Repeat([]byte{0xAA}, 64)
	got := Runs(data)
	assert.Equal(t, 512, got.Runs)
	assert.InDelta(t, 257, got.Expected, 1e-9)
	assert.Greater(t, got.Z, 10.0)
	assert.Less(t, got.P, 1e-9)
}

func TestRunsClumped(t *testing.T) {
	// 0xF0 bytes produce two runs per byte: far fewer than random.
	data := bytes.Repeat([]byte{0xF0}, 64)
	got := Runs(data)
	assert.Equal(t, 128, got.Runs)
	assert.InDelta(t, 257, got.Expected, 1e-9)
	assert.Less(t, got.Z, -10.0)
	assert.Less(t, got.P, 1e-9)
}

func TestRunsDegenerate(t *testing.T) {
	got := Runs(bytes.Repeat([]byte{0xFF}, 16))
	assert.Equal(t, 1, got.Runs)
	assert.True(t, got.Z > 1e9 || got.P == 0)

	assert.Zero(t, Runs(nil).Runs)
}

func TestChiSquareBytes(t *testing.T) {
	t.Run("uniform ramp", func(t *testing.T) {
		data := make([]byte, 0, 4096)
		for i := 0; i < 16; i++ {
			for v := 0; v < 256; v++ {
				data = append(data, byte(v))
			}
		}
		got := ChiSquareBytes(data)
		assert.InDelta(t, 0, got.Chi, 1e-9)
		assert.Greater(t, got.P, 0.999)
	})

	t.Run("constant byte", func(t *testing.T) {
		got := ChiSquareBytes(bytes.Repeat([]byte{0x41}, 256))
		assert.InDelta(t, 65280, got.Chi, 1e-6)
		assert.Less(t, got.P, 1e-9)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Zero(t, ChiSquareBytes(nil).Chi)
	})
}

func TestShannonEntropy(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want float64
	}{
		{"empty", nil, 0},
		{"constant", bytes.Repeat([]byte{7}, 100), 0},
		{"two symbols", append(bytes.Repeat([]byte{0}, 50), bytes.Repeat([]byte{1}, 50)...), 1},
		{"uniform ramp", rampBytes(4), 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ShannonEntropy(tt.data), 1e-9)
		})
	}
}

func TestSerialCorrelation(t *testing.T) {
	t.Run("constant is defined as zero", func(t *testing.T) {
		assert.Zero(t, SerialCorrelation(bytes.Repeat([]byte{42}, 64)))
	})

	t.Run("alternating extremes anticorrelate", func(t *testing.T) {
		data := bytes.Repeat([]byte{0, 255}, 32)
		assert.InDelta(t, -1, SerialCorrelation(data), 1e-9)
	})

	t.Run("ramp correlates", func(t *testing.T) {
		assert.Greater(t, SerialCorrelation(rampBytes(1)), 0.9)
	})

	t.Run("too short", func(t *testing.T) {
		assert.Zero(t, SerialCorrelation([]byte{1}))
	})
}

func TestEvaluateReport(t *testing.T) {
	data := rampBytes(1)
	got := Evaluate(data)
	require.Equal(t, 256, got.Size)
	assert.InDelta(t, 8, got.Entropy, 1e-9)
	assert.Equal(t, Monobit(data), got.Monobit)
	assert.Equal(t, Runs(data), got.Runs)
	assert.Equal(t, ChiSquareBytes(data), got.ChiSquare)

	out := got.String()
	assert.Contains(t, out, "Sample size: 256 bytes")
	assert.Contains(t, out, "Shannon entropy: 8.00000 / 8.00000 bits/byte")
	assert.Contains(t, out, "Monobit frequency:")
	assert.Contains(t, out, "Runs test:")
	assert.Contains(t, out, "chi^2:")
	assert.Contains(t, out, "df=255")
}

// rampBytes returns reps copies of the byte sequence 0x00..0xFF.
func rampBytes(reps int) []byte {
	data := make([]byte, 0, reps*256)
	for i := 0; i < reps; i++ {
		for v := 0; v < 256; v++ {
			data = append(data, byte(v))
		}
	}
	return data
}

package bbusb

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFoldIdentity(t *testing.T) {
	in := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	out := Fold(in, 0)

	assert.Equal(t, in, out)
	// A copy, not the same backing array.
	out[0] ^= 0xFF
	assert.Equal(t, byte(0xDE), in[0])
}

func TestFoldHalvesLength(t *testing.T) {
	in := make([]byte, 64)
	for folds := 0; folds <= 6; folds++ {
		assert.Len(t, Fold(in, folds), 64>>folds, "folds=%d", folds)
	}
}

func TestFoldXORsHalves(t *testing.T) {
	tests := []struct {
		name  string
		in    []byte
		folds int
		want  []byte
	}{
		{
			name:  "single fold",
			in:    []byte{0x0F, 0xF0, 0xFF, 0x00},
			folds: 1,
			want:  []byte{0x0F ^ 0xFF, 0xF0 ^ 0x00},
		},
		{
			name:  "double fold",
			in:    []byte{0x01, 0x02, 0x04, 0x08},
			folds: 2,
			want:  []byte{0x01 ^ 0x04 ^ 0x02 ^ 0x08},
		},
		{
			name:  "complementary pair",
			in:    []byte{0xAA, 0x55},
			folds: 1,
			want:  []byte{0xFF},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fold(tt.in, tt.folds))
		})
	}
}

func TestFoldComposition(t *testing.T) {
	// Folding twice by one equals folding once by two, for any length
	// divisible by four.
	rng := rand.New(rand.NewSource(1))
	for _, n := range []int{4, 16, 256, 4096} {
		in := make([]byte, n)
		_, err := rng.Read(in)
		require.NoError(t, err)

		assert.Equal(t, Fold(in, 2), Fold(Fold(in, 1), 1), "n=%d", n)
	}
}

func TestFoldDeterministic(t *testing.T) {
	in := make([]byte, 128)
	rand.New(rand.NewSource(2)).Read(in)

	assert.Equal(t, Fold(in, 3), Fold(in, 3))
}

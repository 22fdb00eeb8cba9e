package naming

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var collectedAt = time.Date(2026, 8, 25, 14, 30, 5, 0, time.UTC)

func TestBaseName(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		want    string
		wantErr bool
	}{
		{
			name:   "unfolded",
			params: Params{Time: collectedAt, Bits: 2048, IntervalSeconds: 1},
			want:   "20260825T143005_bitb_s2048_i1",
		},
		{
			name:   "folded",
			params: Params{Time: collectedAt, Bits: 256, IntervalSeconds: 60, Folds: 3},
			want:   "20260825T143005_bitb_s256_i60_f3",
		},
		{
			name:    "zero bits",
			params:  Params{Time: collectedAt, IntervalSeconds: 1},
			wantErr: true,
		},
		{
			name:    "zero interval",
			params:  Params{Time: collectedAt, Bits: 64},
			wantErr: true,
		},
		{
			name:    "negative folds",
			params:  Params{Time: collectedAt, Bits: 64, IntervalSeconds: 1, Folds: -1},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.params.BaseName()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBinCSVPaths(t *testing.T) {
	p := Params{Time: collectedAt, Bits: 2048, IntervalSeconds: 1}

	bin, csv, err := p.BinCSVPaths("data")

	require.NoError(t, err)
	assert.Equal(t, JoinDir("data", "20260825T143005_bitb_s2048_i1.bin"), bin)
	assert.Equal(t, JoinDir("data", "20260825T143005_bitb_s2048_i1.csv"), csv)

	bin, _, err = p.BinCSVPaths("")
	require.NoError(t, err)
	assert.Equal(t, "20260825T143005_bitb_s2048_i1.bin", bin)
}

func TestWithExt(t *testing.T) {
	assert.Equal(t, "base.bin", WithExt("base", "bin"))
	assert.Equal(t, "base.bin", WithExt("base", ".bin"))
	assert.Equal(t, "base", WithExt("base", ""))
}

func TestParseRoundTrip(t *testing.T) {
	p := Params{Time: collectedAt, Bits: 2048, IntervalSeconds: 5, Folds: 2}
	base, err := p.BaseName()
	require.NoError(t, err)
	path := JoinDir("some/dir", WithExt(base, "bin"))

	bits, err := ParseBitCount(path)
	require.NoError(t, err)
	assert.Equal(t, 2048, bits)

	interval, err := ParseInterval(path)
	require.NoError(t, err)
	assert.Equal(t, 5, interval)

	folds, err := ParseFolds(path)
	require.NoError(t, err)
	assert.Equal(t, 2, folds)
}

func TestParseFoldsDefaultsToZero(t *testing.T) {
	folds, err := ParseFolds("20260825T143005_bitb_s2048_i1.csv")

	require.NoError(t, err)
	assert.Zero(t, folds)
}

func TestParseMissingFields(t *testing.T) {
	_, err := ParseBitCount("random_data.bin")
	assert.Error(t, err)

	_, err = ParseInterval("random_data.bin")
	assert.Error(t, err)
}

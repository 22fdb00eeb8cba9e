package cmd

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestBinRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "20260825T143005_bitb_s16_i1.bin")
	// Three full 16-bit blocks and one partial.
	require.NoError(t, os.WriteFile(path, []byte{
		0xFF, 0xFF, // 16 ones
		0x00, 0x00, // 0 ones
		0xF0, 0x0F, // 8 ones
		0xAA, // partial block, 4 ones
	}, 0o644))

	rows, err := binRows(path, 16)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, zscoreRow{Label: "1", Ones: 16}, rows[0])
	assert.Equal(t, zscoreRow{Label: "2", Ones: 0}, rows[1])
	assert.Equal(t, zscoreRow{Label: "3", Ones: 8}, rows[2])
	assert.Equal(t, zscoreRow{Label: "4", Ones: 4}, rows[3])
}

func TestBinRowsRejectsBadBlockSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.bin")
	require.NoError(t, os.WriteFile(path, []byte{0}, 0o644))

	_, err := binRows(path, 12)
	assert.Error(t, err)
	_, err = binRows(path, 0)
	assert.Error(t, err)
}

func TestCSVRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "20260825T143005_bitb_s16_i1.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"20260825T14:30:05,9\n20260825T14:30:06,7\n"), 0o644))

	rows, err := csvRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, zscoreRow{Label: "14:30:05", Ones: 9}, rows[0])
	assert.Equal(t, zscoreRow{Label: "14:30:06", Ones: 7}, rows[1])
}

func TestCSVRowsRejectsBadCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("14:30:05,notanumber\n"), 0o644))

	_, err := csvRows(path)
	assert.Error(t, err)
}

func TestTimeLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"20260825T14:30:05", "14:30:05"},
		{"2026-08-25 14:30:05", "14:30:05"},
		{"14:30:05", "14:30:05"},
		{"14:30", "14:30:00"},
		{"not a time", "not a time"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, timeLabel(tt.in), "input %q", tt.in)
	}
}

func TestComputeZScores(t *testing.T) {
	t.Run("balanced counts stay at zero", func(t *testing.T) {
		rows := []zscoreRow{{Ones: 4}, {Ones: 4}, {Ones: 4}}
		computeZScores(rows, 8)
		for _, r := range rows {
			assert.InDelta(t, 4, r.CumulativeMean, 1e-9)
			assert.InDelta(t, 0, r.ZScore, 1e-9)
		}
	})

	t.Run("drift accumulates", func(t *testing.T) {
		rows := []zscoreRow{{Ones: 8}, {Ones: 8}}
		computeZScores(rows, 8)
		// sd = sqrt(8*0.25) = sqrt(2); z1 = (8-4)/sqrt(2), z2 = (8-4)/(sqrt(2)/sqrt(2)).
		assert.InDelta(t, 4/math.Sqrt2, rows[0].ZScore, 1e-9)
		assert.InDelta(t, 4, rows[1].ZScore, 1e-9)
		assert.InDelta(t, 8, rows[1].CumulativeMean, 1e-9)
	})
}

func TestWriteWorkbook(t *testing.T) {
	rows := []zscoreRow{
		{Label: "1", Ones: 10, CumulativeMean: 10, ZScore: 1.5},
		{Label: "2", Ones: 6, CumulativeMean: 8, ZScore: 0},
	}
	out := filepath.Join(t.TempDir(), "sample.xlsx")
	require.NoError(t, writeWorkbook(rows, out, "sample.bin", 16, 1, "samples"))

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{zscoreSheet}, f.GetSheetList())

	a1, err := f.GetCellValue(zscoreSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "samples", a1)

	b2, err := f.GetCellValue(zscoreSheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "10", b2)

	d3, err := f.GetCellValue(zscoreSheet, "D3")
	require.NoError(t, err)
	assert.Equal(t, "0.000000", d3)
}

func TestWriteWorkbookEmpty(t *testing.T) {
	err := writeWorkbook(nil, filepath.Join(t.TempDir(), "x.xlsx"), "x", 8, 1, "samples")
	assert.Error(t, err)
}

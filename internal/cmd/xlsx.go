package cmd

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/bits"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Thiagojm/go-bitbabbler/naming"
)

const zscoreSheet = "Zscore"

// XlsxCmd turns a collected .bin or .csv sample file into an Excel workbook
// with per-block ones counts, the cumulative mean, running z-scores and a
// line chart. Sample size and interval are recovered from the file name.
type XlsxCmd struct {
	Input string `arg:"" help:"Path to a collected .bin or .csv file" type:"existingfile"`
	Out   string `short:"o" help:"Workbook path (defaults to the input with a .xlsx extension)"`
}

// zscoreRow is one charted block: its label, ones count and derived stats.
type zscoreRow struct {
	Label          string
	Ones           int
	CumulativeMean float64
	ZScore         float64
}

func (c *XlsxCmd) Run(logger *slog.Logger) error {
	blockSize, err := naming.ParseBitCount(c.Input)
	if err != nil {
		return err
	}
	interval, err := naming.ParseInterval(c.Input)
	if err != nil {
		return err
	}

	var rows []zscoreRow
	header := "samples"
	switch strings.ToLower(filepath.Ext(c.Input)) {
	case ".bin":
		rows, err = binRows(c.Input, blockSize)
	case ".csv":
		rows, err = csvRows(c.Input)
		header = "time"
	default:
		return fmt.Errorf("unsupported file type: %s", filepath.Ext(c.Input))
	}
	if err != nil {
		return err
	}

	computeZScores(rows, blockSize)

	out := c.Out
	if out == "" {
		out = strings.TrimSuffix(c.Input, filepath.Ext(c.Input)) + ".xlsx"
	}
	if err := writeWorkbook(rows, out, filepath.Base(c.Input), blockSize, interval, header); err != nil {
		return err
	}
	logger.Info("workbook written", "path", out, "rows", len(rows))
	return nil
}

// binRows splits a raw sample stream into blockSize-bit blocks and counts the
// ones in each. A partial final block is kept.
func binRows(path string, blockSize int) ([]zscoreRow, error) {
	if blockSize <= 0 || blockSize%8 != 0 {
		return nil, fmt.Errorf("block size must be a positive multiple of 8 bits, got %d", blockSize)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	buf := make([]byte, blockSize/8)
	rows := make([]zscoreRow, 0, 1024)
	for block := 1; ; block++ {
		n, err := io.ReadFull(reader, buf)
		if n == 0 {
			break
		}
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, err
		}
		ones := 0
		for _, b := range buf[:n] {
			ones += bits.OnesCount8(b)
		}
		rows = append(rows, zscoreRow{Label: strconv.Itoa(block), Ones: ones})
		if n < len(buf) {
			break
		}
	}
	return rows, nil
}

// csvRows reads a headerless CSV of timestamp,ones pairs as written by the
// collect command.
func csvRows(path string) ([]zscoreRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	rows := make([]zscoreRow, 0, len(records))
	for _, rec := range records {
		if len(rec) < 2 {
			continue
		}
		onesStr := strings.TrimSpace(rec[1])
		ones, err := strconv.Atoi(onesStr)
		if err != nil {
			return nil, fmt.Errorf("invalid ones value %q: %w", onesStr, err)
		}
		rows = append(rows, zscoreRow{Label: timeLabel(strings.TrimSpace(rec[0])), Ones: ones})
	}
	return rows, nil
}

// timeLabel reduces a timestamp to HH:MM:SS for the chart axis, passing
// through anything it cannot parse.
func timeLabel(s string) string {
	layouts := []string{
		csvTimeLayout,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006/01/02 15:04:05",
		"15:04:05",
		"15:04",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04:05")
		}
	}
	return s
}

// computeZScores fills the cumulative mean and z-score of each row in place.
// A block of blockSize fair coin flips has mean blockSize/2 and standard
// deviation sqrt(blockSize)/2; the z-score tracks how far the running mean
// drifts from that as samples accumulate.
func computeZScores(rows []zscoreRow, blockSize int) {
	expectedMean := 0.5 * float64(blockSize)
	expectedStdDev := math.Sqrt(float64(blockSize) * 0.25)
	if expectedStdDev == 0 {
		return
	}
	sum := 0
	for i := range rows {
		sum += rows[i].Ones
		cum := float64(sum) / float64(i+1)
		rows[i].CumulativeMean = cum
		rows[i].ZScore = (cum - expectedMean) / (expectedStdDev / math.Sqrt(float64(i+1)))
	}
}

func writeWorkbook(rows []zscoreRow, outPath, title string, blockSize, interval int, firstHeader string) error {
	if len(rows) == 0 {
		return errors.New("no data to write")
	}
	f := excelize.NewFile()
	defer f.Close()

	defaultSheet := f.GetSheetName(0)
	if defaultSheet != zscoreSheet {
		if _, err := f.NewSheet(zscoreSheet); err != nil {
			return err
		}
		if err := f.DeleteSheet(defaultSheet); err != nil {
			return err
		}
	}

	_ = f.SetCellStr(zscoreSheet, "A1", firstHeader)
	_ = f.SetCellStr(zscoreSheet, "B1", "ones")
	_ = f.SetCellStr(zscoreSheet, "C1", "cumulative_mean")
	_ = f.SetCellStr(zscoreSheet, "D1", "z_test")

	for i, r := range rows {
		rowIdx := i + 2
		_ = f.SetCellStr(zscoreSheet, fmt.Sprintf("A%d", rowIdx), r.Label)
		_ = f.SetCellInt(zscoreSheet, fmt.Sprintf("B%d", rowIdx), r.Ones)
		_ = f.SetCellFloat(zscoreSheet, fmt.Sprintf("C%d", rowIdx), r.CumulativeMean, 6, 64)
		_ = f.SetCellFloat(zscoreSheet, fmt.Sprintf("D%d", rowIdx), r.ZScore, 6, 64)
	}

	endRow := len(rows) + 1
	chart := &excelize.Chart{
		Type: excelize.Line,
		Series: []excelize.ChartSeries{
			{
				Name:       fmt.Sprintf("%s!$D$1", zscoreSheet),
				Categories: fmt.Sprintf("%s!$A$2:$A$%d", zscoreSheet, endRow),
				Values:     fmt.Sprintf("%s!$D$2:$D$%d", zscoreSheet, endRow),
			},
		},
		Title:  []excelize.RichTextRun{{Text: title}},
		Legend: excelize.ChartLegend{Position: "none"},
		XAxis: excelize.ChartAxis{
			Title: []excelize.RichTextRun{{Text: fmt.Sprintf("Number of samples - one sample every %d second(s)", interval)}},
		},
		YAxis: excelize.ChartAxis{
			Title:          []excelize.RichTextRun{{Text: fmt.Sprintf("Z-score - sample size = %d bits", blockSize)}},
			MajorGridLines: true,
		},
	}
	if err := f.AddChart(zscoreSheet, "F2", chart); err != nil {
		return err
	}
	return f.SaveAs(outPath)
}

// Package naming implements the sample-file naming convention shared by the
// collection and analysis commands:
//
//	YYYYMMDDTHHMMSS_bitb_s{bits}_i{interval}[_f{folds}]
//
// with .bin, .csv, or .xlsx extensions. The parameters embedded in the name
// let the analysis side recover block size, interval, and fold depth from a
// path alone, so data files stay self-describing.
package naming

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// deviceTag identifies the entropy source in file names.
const deviceTag = "bitb"

const stampLayout = "20060102T150405"

var (
	reBits     = regexp.MustCompile(`_s(\d+)_i`)
	reInterval = regexp.MustCompile(`_i(\d+)`)
	reFolds    = regexp.MustCompile(`_f(\d+)`)
)

// Params carries everything a sample file name encodes.
type Params struct {
	// Time of the start of collection.
	Time time.Time
	// Bits per sample block.
	Bits int
	// IntervalSeconds between blocks.
	IntervalSeconds int
	// Folds applied to each block. 0 is omitted from the name.
	Folds int
}

// BaseName renders the name without directory or extension.
func (p Params) BaseName() (string, error) {
	if p.Bits <= 0 {
		return "", errors.New("bits must be > 0")
	}
	if p.IntervalSeconds <= 0 {
		return "", errors.New("interval must be > 0")
	}
	if p.Folds < 0 {
		return "", errors.New("folds must be non-negative")
	}
	base := fmt.Sprintf("%s_%s_s%d_i%d", p.Time.Format(stampLayout), deviceTag, p.Bits, p.IntervalSeconds)
	if p.Folds > 0 {
		base += fmt.Sprintf("_f%d", p.Folds)
	}
	return base, nil
}

// BinCSVPaths renders the .bin and .csv file pair inside dir (dir may be
// empty for the working directory).
func (p Params) BinCSVPaths(dir string) (binPath, csvPath string, err error) {
	base, err := p.BaseName()
	if err != nil {
		return "", "", err
	}
	return JoinDir(dir, WithExt(base, "bin")), JoinDir(dir, WithExt(base, "csv")), nil
}

// WithExt appends an extension to a base name; a leading dot on ext is
// accepted and not doubled. Empty ext returns base unchanged.
func WithExt(base, ext string) string {
	if ext == "" {
		return base
	}
	return base + "." + strings.TrimPrefix(ext, ".")
}

// JoinDir joins an optional directory with a file name.
func JoinDir(dir, name string) string {
	if dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}

// ParseBitCount recovers the block size in bits from a sample file path.
func ParseBitCount(path string) (int, error) {
	return parseField(reBits, path, "bit count")
}

// ParseInterval recovers the sampling interval in seconds from a sample file
// path.
func ParseInterval(path string) (int, error) {
	return parseField(reInterval, path, "interval")
}

// ParseFolds recovers the fold depth from a sample file path. A name without
// a fold field means unfolded data, so 0 is returned.
func ParseFolds(path string) (int, error) {
	m := reFolds.FindStringSubmatch(filepath.Base(path))
	if len(m) < 2 {
		return 0, nil
	}
	return strconv.Atoi(m[1])
}

func parseField(re *regexp.Regexp, path, what string) (int, error) {
	m := re.FindStringSubmatch(filepath.Base(path))
	if len(m) < 2 {
		return 0, fmt.Errorf("%s not found in file name: %s", what, filepath.Base(path))
	}
	return strconv.Atoi(m[1])
}

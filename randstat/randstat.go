// Package randstat implements quick statistical sanity checks for collected
// entropy: monobit frequency, Wald-Wolfowitz runs, byte-distribution
// chi-square, Shannon entropy, and serial correlation. These are indicative
// screens for spotting a broken or badly biased generator, not a substitute
// for full suites like NIST STS or Dieharder, and small samples give
// unreliable results.
package randstat

import (
	"fmt"
	"math"
	"math/bits"
	"strings"
)

// MonobitResult reports the bit-frequency test: under randomness the count of
// ones and zeros should agree within sampling noise.
type MonobitResult struct {
	Ones  int
	Zeros int
	// Z is |ones-zeros|/sqrt(n), the normal approximation of the imbalance.
	Z float64
	// P is the two-sided p-value.
	P float64
}

// Monobit runs the bit-frequency test over data.
func Monobit(data []byte) MonobitResult {
	n := len(data) * 8
	if n == 0 {
		return MonobitResult{}
	}
	ones := 0
	for _, b := range data {
		ones += bits.OnesCount8(b)
	}
	zeros := n - ones
	z := math.Abs(float64(ones-zeros)) / math.Sqrt(float64(n))
	return MonobitResult{
		Ones:  ones,
		Zeros: zeros,
		Z:     z,
		P:     math.Erfc(z / math.Sqrt2),
	}
}

// RunsResult reports the Wald-Wolfowitz runs test: too few runs mean the bit
// stream clumps, too many mean it oscillates.
type RunsResult struct {
	// Runs is the number of maximal same-bit sequences observed.
	Runs int
	// Expected is the run count a random sequence of this composition has.
	Expected float64
	Z        float64
	P        float64
}

// Runs executes the runs test over the bit sequence of data, MSB first.
func Runs(data []byte) RunsResult {
	n := len(data) * 8
	if n < 2 {
		return RunsResult{}
	}
	ones := 0
	for _, b := range data {
		ones += bits.OnesCount8(b)
	}
	zeros := n - ones
	if ones == 0 || zeros == 0 {
		return RunsResult{Runs: 1, Z: math.Inf(1)}
	}

	runs := 1
	prev := data[0] >> 7
	for _, b := range data {
		for i := 7; i >= 0; i-- {
			bit := (b >> i) & 1
			if bit != prev {
				runs++
				prev = bit
			}
		}
	}

	fn := float64(n)
	oz := 2 * float64(ones) * float64(zeros)
	expected := 1 + oz/fn
	variance := oz * (oz - fn) / (fn * fn * (fn - 1))
	if variance <= 0 {
		return RunsResult{Runs: runs, Expected: expected, Z: math.Inf(1)}
	}
	z := (float64(runs) - expected) / math.Sqrt(variance)
	return RunsResult{
		Runs:     runs,
		Expected: expected,
		Z:        z,
		P:        math.Erfc(math.Abs(z) / math.Sqrt2),
	}
}

// ChiSquareResult reports the byte-distribution chi-square statistic over 256
// bins with 255 degrees of freedom.
type ChiSquareResult struct {
	Chi float64
	// P approximates the upper-tail probability via the Wilson-Hilferty
	// transform; rough, but enough to flag a skewed distribution.
	P float64
}

// ChiSquareBytes measures how far the byte histogram of data strays from
// uniform.
func ChiSquareBytes(data []byte) ChiSquareResult {
	n := len(data)
	if n == 0 {
		return ChiSquareResult{}
	}
	var counts [256]int
	for _, b := range data {
		counts[b]++
	}
	expected := float64(n) / 256
	chi := 0.0
	for _, c := range counts {
		diff := float64(c) - expected
		chi += diff * diff / expected
	}

	const df = 255.0
	cube := math.Cbrt(chi / df)
	mu := 1 - 2/(9*df)
	sigma := math.Sqrt(2 / (9 * df))
	z := (cube - mu) / sigma
	p := 1 - 0.5*(1+math.Erf(z/math.Sqrt2))
	return ChiSquareResult{Chi: chi, P: p}
}

// ShannonEntropy returns the entropy of the byte distribution in bits per
// byte; a perfect source approaches 8.
func ShannonEntropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}
	var counts [256]int
	for _, b := range data {
		counts[b]++
	}
	n := float64(len(data))
	entropy := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// SerialCorrelation returns the lag-1 correlation coefficient of adjacent
// bytes, computed circularly. Near zero is what a random stream looks like.
func SerialCorrelation(data []byte) float64 {
	n := len(data)
	if n < 2 {
		return 0
	}
	var s1, s2, s12 float64
	for i, b := range data {
		v := float64(b)
		s1 += v
		s2 += v * v
		s12 += v * float64(data[(i+1)%n])
	}
	fn := float64(n)
	denominator := fn*s2 - s1*s1
	if denominator == 0 {
		return 0
	}
	return (fn*s12 - s1*s1) / denominator
}

// Report aggregates all checks over one sample.
type Report struct {
	Size        int
	Entropy     float64
	Correlation float64
	Monobit     MonobitResult
	Runs        RunsResult
	ChiSquare   ChiSquareResult
}

// Evaluate runs every check over data.
func Evaluate(data []byte) Report {
	return Report{
		Size:        len(data),
		Entropy:     ShannonEntropy(data),
		Correlation: SerialCorrelation(data),
		Monobit:     Monobit(data),
		Runs:        Runs(data),
		ChiSquare:   ChiSquareBytes(data),
	}
}

func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sample size: %d bytes\n", r.Size)
	fmt.Fprintf(&b, "Shannon entropy: %.5f / 8.00000 bits/byte\n", r.Entropy)
	fmt.Fprintf(&b, "Serial correlation: %.6f\n\n", r.Correlation)
	fmt.Fprintf(&b, "Monobit frequency:\n")
	fmt.Fprintf(&b, "  ones: %d zeros: %d\n", r.Monobit.Ones, r.Monobit.Zeros)
	fmt.Fprintf(&b, "  z: %.4f p-value: %.6f\n\n", r.Monobit.Z, r.Monobit.P)
	fmt.Fprintf(&b, "Runs test:\n")
	fmt.Fprintf(&b, "  runs: %d expected: %.2f\n", r.Runs.Runs, r.Runs.Expected)
	fmt.Fprintf(&b, "  z: %.4f p-value: %.6f\n\n", r.Runs.Z, r.Runs.P)
	fmt.Fprintf(&b, "Byte chi-square:\n")
	fmt.Fprintf(&b, "  chi^2: %.2f df=255 p~: %.6f\n", r.ChiSquare.Chi, r.ChiSquare.P)
	return b.String()
}

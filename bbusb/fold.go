package bbusb

// Fold XOR-compresses a raw entropy buffer: each fold splits the buffer in
// half and XORs the halves together, so the result is len(b)>>folds bytes.
// folds = 0 returns an unchanged copy. Fold is pure and trusts the caller to
// supply a length divisible by 1<<folds; whoever requests the raw bytes is
// responsible for asking for outputLen<<folds of them.
func Fold(b []byte, folds int) []byte {
	out := append([]byte(nil), b...)
	return foldInPlace(out, folds)
}

func foldInPlace(b []byte, folds int) []byte {
	for ; folds > 0; folds-- {
		half := len(b) / 2
		for i := 0; i < half; i++ {
			b[i] ^= b[half+i]
		}
		b = b[:half]
	}
	return b
}

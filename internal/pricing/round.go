package pricing

import "math"

// Round2 rounds to 2 decimal places using round-half-up, ties away from zero.
// Every pricing step rounds independently through this helper so totals are
// reproducible bit-for-bit across runs. The small epsilon absorbs binary
// float representation error on exact half-cent inputs (e.g. 9.995*100).
func Round2(v float64) float64 {
	if v < 0 {
		return -Round2(-v)
	}
	return math.Floor(v*100+0.5+1e-9) / 100
}

// SPDX-License-Identifier: MIT
/*
Package bitint provides the power-of-two helpers used to size analysis
windows. Both functions are allocation free and safe to call from the audio
thread.

	window := bitint.NextPowerOfTwo(300) // 512
	ok := bitint.IsPowerOfTwo(window)    // true
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size, or 1 when size is
// not positive. Subtracting one first keeps exact powers of two unchanged.
//
//	Input  Output
//	4      4
//	5      8
//	0      1
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n has exactly one bit set.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

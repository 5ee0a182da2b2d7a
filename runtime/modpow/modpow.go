// Package modpow provides the Go-side reference implementation of the
// three-argument modular exponentiation routine a transformed module links
// against at runtime. modpow.c in this directory is the C translation unit
// an actual compile of the rewritten IR would link in; this file exists so
// the runtime's numeric behavior can be tested and reasoned about in Go
// without a C toolchain, and so synthesized polynomial functions can be
// evaluated end to end from a test by calling this instead of the external
// declaration they call at the IR level.
package modpow

import "github.com/ir-polyfold/interpolate/numtheory"

// ModPow computes base^exp mod m with the runtime helper's signature,
// returning 0 <= result < m for m > 0. It multiplies with a 128-bit
// intermediate, while modpow.c multiplies in int64, so the two agree for a
// non-negative base as long as (m-1)*(m-1) fits in an int64.
func ModPow(base, exp, m int64) int64 {
	return numtheory.ModPow(base, exp, m)
}

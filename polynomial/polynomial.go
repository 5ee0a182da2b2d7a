// Package polynomial implements dense polynomial arithmetic over a prime
// modulus, as used by the Lagrange interpolator: coefficient-wise addition,
// classical convolution, leading-zero trimming and evaluation.
package polynomial

import (
	"strconv"
	"strings"

	"github.com/ir-polyfold/interpolate/numtheory"
)

// Polynomial is c0 + c1*X + ... + cd*X^d, with every coefficient in
// [0, Modulus). The zero-value is not usable; construct with New.
//
// Invariant: either Coeffs is the singleton [0], or its last element is
// nonzero. New, Add and Mul all restore this invariant (via trim) on their
// result.
type Polynomial struct {
	Coeffs  []int64
	Modulus int64
}

// New builds a Polynomial from already-reduced coefficients, trimming any
// trailing zero terms.
func New(coeffs []int64, modulus int64) *Polynomial {
	p := &Polynomial{Coeffs: append([]int64(nil), coeffs...), Modulus: modulus}
	p.trim()

	return p
}

// Zero returns the additive identity polynomial [0] over modulus.
func Zero(modulus int64) *Polynomial {
	return &Polynomial{Coeffs: []int64{0}, Modulus: modulus}
}

// Constant returns the degree-0 polynomial [c mod modulus].
func Constant(c, modulus int64) *Polynomial {
	return New([]int64{numtheory.Mod(c, modulus)}, modulus)
}

func (p *Polynomial) trim() {
	last := len(p.Coeffs) - 1
	for last > 0 && p.Coeffs[last] == 0 {
		last--
	}
	p.Coeffs = p.Coeffs[:last+1]
}

// IsZero reports whether p is the zero polynomial.
func (p *Polynomial) IsZero() bool {
	return len(p.Coeffs) == 1 && p.Coeffs[0] == 0
}

// Degree returns the degree of p; the zero polynomial has degree 0.
func (p *Polynomial) Degree() int {
	return len(p.Coeffs) - 1
}

// Add returns p + q modulo the shared modulus, trimmed.
func (p *Polynomial) Add(q *Polynomial) *Polynomial {
	size := len(p.Coeffs)
	if len(q.Coeffs) > size {
		size = len(q.Coeffs)
	}

	sum := make([]int64, size)
	for i := range sum {
		var a, b int64
		if i < len(p.Coeffs) {
			a = p.Coeffs[i]
		}
		if i < len(q.Coeffs) {
			b = q.Coeffs[i]
		}
		sum[i] = numtheory.Mod(a+b, p.Modulus)
	}

	return New(sum, p.Modulus)
}

// Mul returns p * q modulo the shared modulus via classical O(n*m)
// convolution, trimmed.
func (p *Polynomial) Mul(q *Polynomial) *Polynomial {
	prod := make([]int64, len(p.Coeffs)+len(q.Coeffs)-1)

	for i, a := range p.Coeffs {
		if a == 0 {
			continue
		}
		for j, b := range q.Coeffs {
			term := numtheory.MulMod(a, b, p.Modulus)
			prod[i+j] = numtheory.Mod(prod[i+j]+term, p.Modulus)
		}
	}

	return New(prod, p.Modulus)
}

// Eval computes p(x) mod Modulus using Horner's rule.
func (p *Polynomial) Eval(x int64) int64 {
	result := int64(0)
	xr := numtheory.Mod(x, p.Modulus)

	for i := len(p.Coeffs) - 1; i >= 0; i-- {
		result = numtheory.Mod(numtheory.MulMod(result, xr, p.Modulus)+p.Coeffs[i], p.Modulus)
	}

	return result
}

// Copy returns an independent copy of p.
func (p *Polynomial) Copy() *Polynomial {
	return New(p.Coeffs, p.Modulus)
}

func (p *Polynomial) String() string {
	if p.IsZero() {
		return "0"
	}

	var b strings.Builder
	first := true
	for i := len(p.Coeffs) - 1; i >= 0; i-- {
		if p.Coeffs[i] == 0 {
			continue
		}
		if !first {
			b.WriteString(" + ")
		}
		first = false

		b.WriteString(strconv.FormatInt(p.Coeffs[i], 10))
		if i > 0 {
			b.WriteString("*x^")
			b.WriteString(strconv.Itoa(i))
		}
	}

	return b.String()
}

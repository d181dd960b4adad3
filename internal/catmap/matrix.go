// Package catmap implements the arithmetic of the cat map M = [[2,1],[3,2]] on the
// 2-torus: exact 2x2 big-integer matrix powers and the order search that yields the
// classical and quantum periods of M modulo N.
//
// Matrix entries are *big.Int throughout. Powers of M grow like (2+√3)^k, so any
// fixed-width representation overflows long before the order is found for moderate N.
package catmap

import (
	"fmt"
	"math/big"
)

// Mat2 is a 2x2 integer matrix. Operations return fresh matrices and never
// mutate their arguments, so a Mat2 may be shared freely once built.
type Mat2 [2][2]*big.Int

// New builds a Mat2 from row-major int64 entries.
func New(a, b, c, d int64) Mat2 {
	return Mat2{
		{big.NewInt(a), big.NewInt(b)},
		{big.NewInt(c), big.NewInt(d)},
	}
}

// Cat returns a fresh copy of the cat matrix [[2,1],[3,2]] (det 1, trace 4).
func Cat() Mat2 { return New(2, 1, 3, 2) }

// Identity returns a fresh 2x2 identity matrix.
func Identity() Mat2 { return New(1, 0, 0, 1) }

// Clone returns a deep copy of m.
func (m Mat2) Clone() Mat2 {
	var out Mat2
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			out[i][j] = new(big.Int).Set(m[i][j])
		}
	}
	return out
}

// At returns entry (i, j). The returned value must not be modified.
func (m Mat2) At(i, j int) *big.Int { return m[i][j] }

// Mul returns a·b.
func Mul(a, b Mat2) Mat2 {
	var out Mat2
	t := new(big.Int)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			v := new(big.Int).Mul(a[i][0], b[0][j])
			v.Add(v, t.Mul(a[i][1], b[1][j]))
			out[i][j] = v
		}
	}
	return out
}

// Pow returns m^k by binary exponentiation without any modular reduction.
// Pow(m, 0) is the identity. k must be non-negative.
func Pow(m Mat2, k int) Mat2 {
	if k < 0 {
		panic(fmt.Sprintf("catmap: negative exponent %d", k))
	}
	result := Identity()
	base := m.Clone()
	for k > 0 {
		if k&1 == 1 {
			result = Mul(result, base)
		}
		k >>= 1
		if k > 0 {
			base = Mul(base, base)
		}
	}
	return result
}

// Sub returns a−b.
func Sub(a, b Mat2) Mat2 {
	var out Mat2
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			out[i][j] = new(big.Int).Sub(a[i][j], b[i][j])
		}
	}
	return out
}

// Mod reduces every entry of m into [0, n). n must be positive.
func Mod(m Mat2, n *big.Int) Mat2 {
	var out Mat2
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			// big.Int.Mod is Euclidean: the result is always non-negative.
			out[i][j] = new(big.Int).Mod(m[i][j], n)
		}
	}
	return out
}

// Div floor-divides every entry of m by n. n must be positive.
func Div(m Mat2, n *big.Int) Mat2 {
	var out Mat2
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			out[i][j] = new(big.Int).Div(m[i][j], n)
		}
	}
	return out
}

// Equal reports whether a and b have identical entries.
func Equal(a, b Mat2) bool {
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if a[i][j].Cmp(b[i][j]) != 0 {
				return false
			}
		}
	}
	return true
}

// Det returns the determinant of m.
func Det(m Mat2) *big.Int {
	d := new(big.Int).Mul(m[0][0], m[1][1])
	return d.Sub(d, new(big.Int).Mul(m[0][1], m[1][0]))
}

// Trace returns the trace of m.
func Trace(m Mat2) *big.Int {
	return new(big.Int).Add(m[0][0], m[1][1])
}

// IsIdentityMod reports whether m ≡ I (mod n) entrywise.
//
// Expectations:
//   - Works on unreduced and negative entries (reduction is Euclidean)
//   - Every matrix is the identity mod 1
func IsIdentityMod(m Mat2, n *big.Int) bool {
	r := new(big.Int)
	one := new(big.Int).Mod(big.NewInt(1), n)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			r.Mod(m[i][j], n)
			want := one
			if i != j {
				want = zero
			}
			if r.Cmp(want) != 0 {
				return false
			}
		}
	}
	return true
}

// String renders m as [[a b] [c d]].
func (m Mat2) String() string {
	return fmt.Sprintf("[[%s %s] [%s %s]]", m[0][0], m[0][1], m[1][0], m[1][1])
}

var zero = big.NewInt(0)

package catmap

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/haricheung/catperiod/internal/types"
)

var (
	// ErrInvalidModulus is returned for N < 2.
	ErrInvalidModulus = errors.New("invalid modulus")
	// ErrNonTerminating is returned when the search passes its iteration bound.
	ErrNonTerminating = errors.New("order search exceeded iteration bound")
)

// OrderError attributes a search failure to a single modulus.
type OrderError struct {
	N   int
	Err error
}

func (e *OrderError) Error() string { return fmt.Sprintf("N=%d: %v", e.N, e.Err) }

func (e *OrderError) Unwrap() error { return e.Err }

// Strategy selects how M^k is carried through the linear search.
type Strategy int

const (
	// StrategyReduced iterates M^k mod 2N. Equal output to StrategyExact at a
	// fraction of the cost for large N.
	StrategyReduced Strategy = iota
	// StrategyExact keeps M^k exact and unreduced; only the identity test and
	// the parity remainder reduce by N.
	StrategyExact
)

func (s Strategy) String() string {
	switch s {
	case StrategyReduced:
		return "reduced"
	case StrategyExact:
		return "exact"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// ParseStrategy maps "reduced" / "exact" to a Strategy. Empty selects StrategyReduced.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "", "reduced":
		return StrategyReduced, nil
	case "exact":
		return StrategyExact, nil
	}
	return 0, fmt.Errorf("unknown strategy %q", s)
}

// DefaultBoundFactor scales N into the default iteration bound. Periods of the
// cat map never exceed 3N, so 6N leaves a wide margin.
const DefaultBoundFactor = 6

// cancelCheckInterval is how many iterations pass between context checks.
const cancelCheckInterval = 256

// Finder searches for the order of the cat matrix modulo N.
// The zero value is ready to use (StrategyReduced, default bound).
// A Finder holds no mutable state and is safe for concurrent use.
type Finder struct {
	Strategy Strategy
	// MaxIterations caps k. Zero selects DefaultBoundFactor*N.
	MaxIterations int

	gen *Mat2 // nil selects Cat(); overridden only in tests
}

func (f *Finder) generator() Mat2 {
	if f != nil && f.gen != nil {
		return *f.gen
	}
	return Cat()
}

func (f *Finder) bound(n int) int {
	if f != nil && f.MaxIterations > 0 {
		return f.MaxIterations
	}
	return DefaultBoundFactor * n
}

// FindOrder returns the classical and quantum periods of the cat matrix mod n.
func FindOrder(n int) (types.Period, error) {
	var f Finder
	return f.FindOrderContext(context.Background(), n)
}

// FindOrder is FindOrderContext with a background context.
func (f *Finder) FindOrder(n int) (types.Period, error) {
	return f.FindOrderContext(context.Background(), n)
}

// FindOrderContext searches k = 1, 2, … for the first k with M^k ≡ I (mod n) and
// derives the quantum period from it.
//
// Expectations:
//   - Returns *OrderError wrapping ErrInvalidModulus for n < 2 without searching
//   - Returns *OrderError wrapping ErrNonTerminating once k passes the bound
//   - Returns ctx.Err() (wrapped in *OrderError) when ctx is cancelled mid-search
//   - Odd n: Quantum == Classical
//   - Even n: Quantum == Classical iff both off-diagonals of (M^k − I)/n are even,
//     otherwise Quantum == 2*Classical
//   - Strategy does not change the result
func (f *Finder) FindOrderContext(ctx context.Context, n int) (types.Period, error) {
	if n < 2 {
		return types.Period{}, &OrderError{N: n, Err: ErrInvalidModulus}
	}
	strategy := StrategyReduced
	if f != nil {
		strategy = f.Strategy
	}
	var (
		order    int
		oddOffDg bool
		err      error
	)
	switch strategy {
	case StrategyExact:
		order, oddOffDg, err = f.searchExact(ctx, n)
	default:
		order, oddOffDg, err = f.searchReduced(ctx, n)
	}
	if err != nil {
		return types.Period{}, &OrderError{N: n, Err: err}
	}
	return types.Period{N: n, Classical: order, Quantum: QuantumPeriod(n, order, oddOffDg)}, nil
}

// QuantumPeriod applies the parity correction to a classical period.
// oddRemainder reports whether either off-diagonal entry of (M^order − I)/n is odd.
func QuantumPeriod(n, order int, oddRemainder bool) int {
	if n%2 == 1 || !oddRemainder {
		return order
	}
	return 2 * order
}

// searchExact multiplies the exact power by M at every step. Entries grow without
// bound; the remainder is taken from the exact M^order.
func (f *Finder) searchExact(ctx context.Context, n int) (int, bool, error) {
	gen := f.generator()
	bigN := big.NewInt(int64(n))
	limit := f.bound(n)

	cur := gen.Clone()
	order := 1
	for !IsIdentityMod(cur, bigN) {
		if order >= limit {
			return 0, false, fmt.Errorf("%w (%d)", ErrNonTerminating, limit)
		}
		if order%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return 0, false, err
			}
		}
		order++
		cur = Mul(cur, gen)
	}
	if n%2 == 1 {
		return order, false, nil
	}
	rem := Div(Sub(cur, Identity()), bigN)
	return order, isOdd(rem[0][1]) || isOdd(rem[1][0]), nil
}

// searchReduced carries M^k mod 2n. At the order, n divides every entry of
// M^k − I, so each off-diagonal residue mod 2n is either 0 or n and its quotient
// by n has the parity of the exact remainder entry.
func (f *Finder) searchReduced(ctx context.Context, n int) (int, bool, error) {
	gen := f.generator()
	bigN := big.NewInt(int64(n))
	modulus := new(big.Int).Lsh(bigN, 1)
	limit := f.bound(n)

	step := Mod(gen, modulus)
	cur := step
	order := 1
	for !IsIdentityMod(cur, bigN) {
		if order >= limit {
			return 0, false, fmt.Errorf("%w (%d)", ErrNonTerminating, limit)
		}
		if order%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return 0, false, err
			}
		}
		order++
		cur = Mod(Mul(cur, step), modulus)
	}
	if n%2 == 1 {
		return order, false, nil
	}
	q01 := new(big.Int).Div(cur[0][1], bigN)
	q10 := new(big.Int).Div(cur[1][0], bigN)
	return order, isOdd(q01) || isOdd(q10), nil
}

func isOdd(x *big.Int) bool { return x.Bit(0) == 1 }

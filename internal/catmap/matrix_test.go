package catmap

import (
	"math/big"
	"testing"
)

func TestCat_IsHyperbolicWithUnitDeterminant(t *testing.T) {
	m := Cat()
	if got := Det(m).Int64(); got != 1 {
		t.Errorf("det = %d, want 1", got)
	}
	if got := Trace(m).Int64(); got != 4 {
		t.Errorf("trace = %d, want 4", got)
	}
}

func TestCat_ReturnsIndependentCopies(t *testing.T) {
	a := Cat()
	a[0][0].SetInt64(99)
	if b := Cat(); b[0][0].Int64() != 2 {
		t.Errorf("Cat() shares storage across calls: got %d", b[0][0].Int64())
	}
}

func TestPow_SmallExponents(t *testing.T) {
	cases := []struct {
		k    int
		want Mat2
	}{
		{0, Identity()},
		{1, New(2, 1, 3, 2)},
		{2, New(7, 4, 12, 7)},
		{3, New(26, 15, 45, 26)},
		{4, New(97, 56, 168, 97)},
	}
	for _, c := range cases {
		if got := Pow(Cat(), c.k); !Equal(got, c.want) {
			t.Errorf("Pow(M, %d) = %s, want %s", c.k, got, c.want)
		}
	}
}

func TestPow_MatchesRepeatedMultiplication(t *testing.T) {
	m := Cat()
	acc := Identity()
	for k := 0; k <= 80; k++ {
		if got := Pow(m, k); !Equal(got, acc) {
			t.Fatalf("Pow(M, %d) = %s, repeated product = %s", k, got, acc)
		}
		acc = Mul(acc, m)
	}
}

func TestPow_DoesNotMutateInput(t *testing.T) {
	m := Cat()
	_ = Pow(m, 17)
	if !Equal(m, Cat()) {
		t.Errorf("Pow mutated its argument: %s", m)
	}
}

func TestPow_GrowsBeyondInt64(t *testing.T) {
	// (2+√3)^k exceeds 2^63 well before k=40.
	p := Pow(Cat(), 40)
	if p[0][0].IsInt64() {
		t.Errorf("expected M^40 entries to overflow int64, got %s", p[0][0])
	}
	if got := Det(p).Int64(); got != 1 {
		t.Errorf("det(M^40) = %d, want 1", got)
	}
}

func TestPow_NegativeExponentPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for negative exponent")
		}
	}()
	Pow(Cat(), -1)
}

func TestModAndDiv(t *testing.T) {
	m := New(7, -4, 12, 7)
	n := big.NewInt(5)
	if got, want := Mod(m, n), New(2, 1, 2, 2); !Equal(got, want) {
		t.Errorf("Mod = %s, want %s", got, want)
	}
	// floor division: -4 div 5 = -1
	if got, want := Div(m, n), New(1, -1, 2, 1); !Equal(got, want) {
		t.Errorf("Div = %s, want %s", got, want)
	}
}

func TestSub(t *testing.T) {
	if got, want := Sub(New(7, 4, 12, 7), Identity()), New(6, 4, 12, 6); !Equal(got, want) {
		t.Errorf("Sub = %s, want %s", got, want)
	}
}

func TestIsIdentityMod(t *testing.T) {
	cases := []struct {
		m    Mat2
		n    int64
		want bool
	}{
		{Pow(Cat(), 2), 2, true},
		{Cat(), 2, false},
		{Pow(Cat(), 3), 5, true},
		{New(1, 0, 0, 1), 7, true},
		{New(-6, 7, 14, 8), 7, true},
		{New(8, 0, 0, 1), 7, true},
		{New(8, 1, 0, 1), 7, false},
		{New(5, 3, 2, 9), 1, true},
	}
	for _, c := range cases {
		if got := IsIdentityMod(c.m, big.NewInt(c.n)); got != c.want {
			t.Errorf("IsIdentityMod(%s, %d) = %v, want %v", c.m, c.n, got, c.want)
		}
	}
}

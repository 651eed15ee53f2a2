// Package rat implements exact rational arithmetic over machine ints.
//
// The lowering passes position every chord at an exact fraction of a beat
// and compute durations, gcds and tuplet ratios from those positions, so we
// need a small value type with cheap comparison rather than big.Rat.
package rat

import "fmt"

// Rat is a rational number. The zero value is 0. Values are kept
// normalized: den > 0 and gcd(|num|, den) == 1.
type Rat struct {
	num int
	den int
}

var (
	Zero = Rat{0, 1}
	One  = Rat{1, 1}
)

func gcdInt(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// New returns num/den in lowest terms. den must not be zero.
func New(num, den int) Rat {
	if den == 0 {
		panic("rat: zero denominator")
	}
	if den < 0 {
		num, den = -num, -den
	}
	if g := gcdInt(num, den); g > 1 {
		num /= g
		den /= g
	}
	if num == 0 {
		den = 1
	}
	return Rat{num, den}
}

// FromInt returns n as a rational.
func FromInt(n int) Rat { return Rat{n, 1} }

func (r Rat) norm() Rat {
	if r.den == 0 { // zero value of the struct
		return Rat{0, 1}
	}
	return r
}

// Num returns the normalized numerator (can be negative).
func (r Rat) Num() int { return r.norm().num }

// Den returns the normalized denominator (always positive).
func (r Rat) Den() int { return r.norm().den }

func (r Rat) IsZero() bool { return r.Num() == 0 }

// IsInt reports whether the value is a whole number.
func (r Rat) IsInt() bool { return r.Den() == 1 }

func (r Rat) Add(o Rat) Rat {
	r, o = r.norm(), o.norm()
	return New(r.num*o.den+o.num*r.den, r.den*o.den)
}

func (r Rat) Sub(o Rat) Rat {
	r, o = r.norm(), o.norm()
	return New(r.num*o.den-o.num*r.den, r.den*o.den)
}

func (r Rat) Mul(o Rat) Rat {
	r, o = r.norm(), o.norm()
	return New(r.num*o.num, r.den*o.den)
}

// Div divides by o, which must not be zero.
func (r Rat) Div(o Rat) Rat {
	r, o = r.norm(), o.norm()
	return New(r.num*o.den, r.den*o.num)
}

func (r Rat) AddInt(n int) Rat { return r.Add(FromInt(n)) }
func (r Rat) SubInt(n int) Rat { return r.Sub(FromInt(n)) }
func (r Rat) MulInt(n int) Rat { return r.Mul(FromInt(n)) }
func (r Rat) DivInt(n int) Rat { return r.Div(FromInt(n)) }

func (r Rat) Neg() Rat {
	r = r.norm()
	return Rat{-r.num, r.den}
}

// Inv returns the reciprocal. r must not be zero.
func (r Rat) Inv() Rat {
	r = r.norm()
	return New(r.den, r.num)
}

// Cmp returns -1, 0 or +1 depending on whether r is less than, equal to or
// greater than o.
func (r Rat) Cmp(o Rat) int {
	r, o = r.norm(), o.norm()
	lhs := r.num * o.den
	rhs := o.num * r.den
	switch {
	case lhs < rhs:
		return -1
	case lhs > rhs:
		return 1
	default:
		return 0
	}
}

func (r Rat) Equal(o Rat) bool   { return r.Cmp(o) == 0 }
func (r Rat) Less(o Rat) bool    { return r.Cmp(o) < 0 }
func (r Rat) LessEq(o Rat) bool  { return r.Cmp(o) <= 0 }
func (r Rat) Greater(o Rat) bool { return r.Cmp(o) > 0 }

func (r Rat) EqualInt(n int) bool { return r.Equal(FromInt(n)) }

// Gcd returns the greatest common divisor of two rationals: the numerator
// gcd over the denominator lcm.
func Gcd(a, b Rat) Rat {
	a, b = a.norm(), b.norm()
	d := a.den / gcdInt(a.den, b.den) * b.den
	an := a.num * (d / a.den)
	bn := b.num * (d / b.den)
	return New(gcdInt(an, bn), d)
}

func (r Rat) String() string {
	r = r.norm()
	if r.den == 1 {
		return fmt.Sprintf("%d", r.num)
	}
	return fmt.Sprintf("%d/%d", r.num, r.den)
}

package fullmath

import (
	cons "github.com/ftchann/uniswap-custodian/lib/constants"
	"github.com/ftchann/uniswap-custodian/lib/invariant"

	ui "github.com/holiman/uint256"
)

// MulDiv computes floor(a*b/denominator) with a 512-bit intermediate.
func MulDiv(a, b, denominator *ui.Int) *ui.Int {
	invariant.Invariant(!denominator.IsZero(), "mulDiv by zero")
	result, overflow := new(ui.Int).MulDivOverflow(a, b, denominator)
	invariant.Invariant(!overflow, "mulDiv overflow")
	return result
}

func MulDivRoundingUp(a, b, denominator *ui.Int) *ui.Int {
	if a.IsZero() || b.IsZero() {
		return ui.NewInt(0)
	}
	result := MulDiv(a, b, denominator)
	rem := new(ui.Int).MulMod(a, b, denominator)
	if !rem.IsZero() {
		invariant.Invariant(result.Lt(cons.MaxUint256), "mulDiv overflow")
		result.Add(result, cons.One)
	}
	return result
}

// DivRoundingUp returns ceil(x/y).
func DivRoundingUp(x, y *ui.Int) *ui.Int {
	invariant.Invariant(!y.IsZero(), "division by zero")
	quotient, rem := new(ui.Int).DivMod(x, y, new(ui.Int))
	if !rem.IsZero() {
		quotient.Add(quotient, cons.One)
	}
	return quotient
}

func Min(a, b *ui.Int) *ui.Int {
	if a.Lt(b) {
		return a.Clone()
	}
	return b.Clone()
}

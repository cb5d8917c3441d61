package sqrtprice_math

import (
	cons "github.com/ftchann/uniswap-custodian/lib/constants"
	fm "github.com/ftchann/uniswap-custodian/lib/fullmath"
	"github.com/ftchann/uniswap-custodian/lib/invariant"

	ui "github.com/holiman/uint256"
)

var MaxUint160 = new(ui.Int).Sub(new(ui.Int).Lsh(cons.One, 160), cons.One)

// GetAmount0Delta is liquidity * (sqrtB - sqrtA) / (sqrtA * sqrtB).
func GetAmount0Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity *ui.Int, roundUp bool) *ui.Int {
	if sqrtRatioAX96.Cmp(sqrtRatioBX96) > 0 {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}
	invariant.Invariant(!sqrtRatioAX96.IsZero(), "sqrt ratio is zero")

	numerator1 := new(ui.Int).Lsh(liquidity, 96)
	numerator2 := new(ui.Int).Sub(sqrtRatioBX96, sqrtRatioAX96)

	if roundUp {
		return fm.DivRoundingUp(fm.MulDivRoundingUp(numerator1, numerator2, sqrtRatioBX96), sqrtRatioAX96)
	}
	res := fm.MulDiv(numerator1, numerator2, sqrtRatioBX96)
	return res.Div(res, sqrtRatioAX96)
}

// GetAmount1Delta is liquidity * (sqrtB - sqrtA).
func GetAmount1Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity *ui.Int, roundUp bool) *ui.Int {
	if sqrtRatioAX96.Cmp(sqrtRatioBX96) > 0 {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}
	diff := new(ui.Int).Sub(sqrtRatioBX96, sqrtRatioAX96)
	if roundUp {
		return fm.MulDivRoundingUp(liquidity, diff, cons.Q96)
	}
	return fm.MulDiv(liquidity, diff, cons.Q96)
}

// GetNextSqrtPriceFromInput moves the price by amountIn of the input token.
func GetNextSqrtPriceFromInput(sqrtPX96, liquidity, amountIn *ui.Int, zeroForOne bool) *ui.Int {
	invariant.Invariant(!sqrtPX96.IsZero() && !liquidity.IsZero(), "invalid price or liquidity")
	if zeroForOne {
		return getNextSqrtPriceFromAmount0RoundingUp(sqrtPX96, liquidity, amountIn)
	}
	return getNextSqrtPriceFromAmount1RoundingDown(sqrtPX96, liquidity, amountIn)
}

func getNextSqrtPriceFromAmount0RoundingUp(sqrtPX96, liquidity, amount *ui.Int) *ui.Int {
	if amount.IsZero() {
		return sqrtPX96.Clone()
	}
	numerator1 := new(ui.Int).Lsh(liquidity, 96)

	product, overflow := new(ui.Int).MulOverflow(amount, sqrtPX96)
	if !overflow {
		denominator, carry := new(ui.Int).AddOverflow(numerator1, product)
		if !carry {
			return fm.MulDivRoundingUp(numerator1, sqrtPX96, denominator)
		}
	}
	return fm.DivRoundingUp(numerator1, new(ui.Int).Add(new(ui.Int).Div(numerator1, sqrtPX96), amount))
}

func getNextSqrtPriceFromAmount1RoundingDown(sqrtPX96, liquidity, amount *ui.Int) *ui.Int {
	var quotient *ui.Int
	if amount.Cmp(MaxUint160) <= 0 {
		quotient = new(ui.Int).Div(new(ui.Int).Lsh(amount, 96), liquidity)
	} else {
		quotient = fm.MulDiv(amount, cons.Q96, liquidity)
	}
	return new(ui.Int).Add(sqrtPX96, quotient)
}

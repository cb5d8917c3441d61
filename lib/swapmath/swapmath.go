package swapmath

import (
	fm "github.com/ftchann/uniswap-custodian/lib/fullmath"
	sqrtmath "github.com/ftchann/uniswap-custodian/lib/sqrtprice_math"

	ui "github.com/holiman/uint256"
)

var MaxFee = ui.NewInt(1_000_000)

// ComputeSwapStep swaps an exact input amount toward sqrtRatioTargetX96 and
// stops at the target or when the input is exhausted, whichever comes first.
func ComputeSwapStep(sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, amountRemaining *ui.Int, feePips int) (sqrtRatioNextX96, amountIn, amountOut, feeAmount *ui.Int) {
	zeroForOne := sqrtRatioCurrentX96.Cmp(sqrtRatioTargetX96) >= 0
	fee := ui.NewInt(uint64(feePips))

	amountRemainingLessFee := fm.MulDiv(amountRemaining, new(ui.Int).Sub(MaxFee, fee), MaxFee)
	if zeroForOne {
		amountIn = sqrtmath.GetAmount0Delta(sqrtRatioTargetX96, sqrtRatioCurrentX96, liquidity, true)
	} else {
		amountIn = sqrtmath.GetAmount1Delta(sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, true)
	}
	if amountRemainingLessFee.Cmp(amountIn) >= 0 {
		sqrtRatioNextX96 = sqrtRatioTargetX96.Clone()
	} else {
		sqrtRatioNextX96 = sqrtmath.GetNextSqrtPriceFromInput(sqrtRatioCurrentX96, liquidity, amountRemainingLessFee, zeroForOne)
	}

	max := sqrtRatioTargetX96.Eq(sqrtRatioNextX96)
	if zeroForOne {
		if !max {
			amountIn = sqrtmath.GetAmount0Delta(sqrtRatioNextX96, sqrtRatioCurrentX96, liquidity, true)
		}
		amountOut = sqrtmath.GetAmount1Delta(sqrtRatioNextX96, sqrtRatioCurrentX96, liquidity, false)
	} else {
		if !max {
			amountIn = sqrtmath.GetAmount1Delta(sqrtRatioCurrentX96, sqrtRatioNextX96, liquidity, true)
		}
		amountOut = sqrtmath.GetAmount0Delta(sqrtRatioCurrentX96, sqrtRatioNextX96, liquidity, false)
	}

	if !max {
		// we didn't reach the target, so take the remainder of the maximum input as fee
		feeAmount = new(ui.Int).Sub(amountRemaining, amountIn)
	} else {
		feeAmount = fm.MulDivRoundingUp(amountIn, fee, new(ui.Int).Sub(MaxFee, fee))
	}
	return
}

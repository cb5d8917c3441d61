package liquidity_amounts

import (
	cons "github.com/ftchann/uniswap-custodian/lib/constants"
	"github.com/ftchann/uniswap-custodian/lib/fullmath"
	"github.com/ftchann/uniswap-custodian/lib/sqrtprice_math"

	ui "github.com/holiman/uint256"
)

func GetLiquidityForAmount0(sqrtRatioAX96, sqrtRatioBX96, amount0 *ui.Int) *ui.Int {
	if sqrtRatioAX96.Cmp(sqrtRatioBX96) > 0 {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}
	intermediate := fullmath.MulDiv(sqrtRatioAX96, sqrtRatioBX96, cons.Q96)
	return fullmath.MulDiv(amount0, intermediate, new(ui.Int).Sub(sqrtRatioBX96, sqrtRatioAX96))
}

func GetLiquidityForAmount1(sqrtRatioAX96, sqrtRatioBX96, amount1 *ui.Int) *ui.Int {
	if sqrtRatioAX96.Cmp(sqrtRatioBX96) > 0 {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}
	return fullmath.MulDiv(amount1, cons.Q96, new(ui.Int).Sub(sqrtRatioBX96, sqrtRatioAX96))
}

// GetLiquidityForAmounts is the most liquidity both amounts can back at the
// current price. Below the range only token0 counts, above it only token1.
func GetLiquidityForAmounts(sqrtRatioX96, sqrtRatioAX96, sqrtRatioBX96, amount0, amount1 *ui.Int) *ui.Int {
	if sqrtRatioAX96.Cmp(sqrtRatioBX96) > 0 {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}
	if sqrtRatioX96.Cmp(sqrtRatioAX96) <= 0 {
		return GetLiquidityForAmount0(sqrtRatioAX96, sqrtRatioBX96, amount0)
	}
	if sqrtRatioX96.Cmp(sqrtRatioBX96) < 0 {
		liquidity0 := GetLiquidityForAmount0(sqrtRatioX96, sqrtRatioBX96, amount0)
		liquidity1 := GetLiquidityForAmount1(sqrtRatioAX96, sqrtRatioX96, amount1)
		return fullmath.Min(liquidity0, liquidity1)
	}
	return GetLiquidityForAmount1(sqrtRatioAX96, sqrtRatioBX96, amount1)
}

// GetAmountsForLiquidity is the token amounts a liquidity value represents.
// roundUp is what a depositor owes, round down is what a withdrawal pays.
func GetAmountsForLiquidity(sqrtRatioX96, sqrtRatioAX96, sqrtRatioBX96, liquidity *ui.Int, roundUp bool) (amount0, amount1 *ui.Int) {
	if sqrtRatioAX96.Cmp(sqrtRatioBX96) > 0 {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}
	amount0, amount1 = ui.NewInt(0), ui.NewInt(0)
	if sqrtRatioX96.Cmp(sqrtRatioAX96) <= 0 {
		amount0 = sqrtprice_math.GetAmount0Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity, roundUp)
	} else if sqrtRatioX96.Cmp(sqrtRatioBX96) < 0 {
		amount0 = sqrtprice_math.GetAmount0Delta(sqrtRatioX96, sqrtRatioBX96, liquidity, roundUp)
		amount1 = sqrtprice_math.GetAmount1Delta(sqrtRatioAX96, sqrtRatioX96, liquidity, roundUp)
	} else {
		amount1 = sqrtprice_math.GetAmount1Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity, roundUp)
	}
	return
}

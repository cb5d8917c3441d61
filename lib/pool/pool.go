package pool

import (
	"fmt"

	cons "github.com/ftchann/uniswap-custodian/lib/constants"
	"github.com/ftchann/uniswap-custodian/lib/fullmath"
	"github.com/ftchann/uniswap-custodian/lib/invariant"
	"github.com/ftchann/uniswap-custodian/lib/liquidity_amounts"
	"github.com/ftchann/uniswap-custodian/lib/position"
	"github.com/ftchann/uniswap-custodian/lib/sqrtprice_math"
	"github.com/ftchann/uniswap-custodian/lib/swapmath"
	td "github.com/ftchann/uniswap-custodian/lib/tickdata"
	"github.com/ftchann/uniswap-custodian/lib/tickmath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	ui "github.com/holiman/uint256"
)

type StepComputations struct {
	sqrtPriceStartX96 *ui.Int
	tickNext          int
	initialized       bool
	sqrtPriceNextX96  *ui.Int
	amountIn          *ui.Int
	amountOut         *ui.Int
	feeAmount         *ui.Int
}

type stateStruct struct {
	amountRemaining     *ui.Int
	amountCalculated    *ui.Int
	sqrtPriceX96        *ui.Int
	tick                int
	feeGrowthGlobalX128 *ui.Int
	liquidity           *ui.Int
}

// Key identifies a pool. Token0 sorts before Token1.
type Key struct {
	Token0 common.Address
	Token1 common.Address
	Fee    int
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%d", k.Token0.Hex(), k.Token1.Hex(), k.Fee)
}

// Address is the account holding the pool's reserves.
func (k Key) Address() common.Address {
	return common.BytesToAddress(crypto.Keccak256(k.Token0.Bytes(), k.Token1.Bytes(), ui.NewInt(uint64(k.Fee)).Bytes()))
}

type Pool struct {
	Token0               common.Address
	Token1               common.Address
	Fee                  int
	SqrtRatioX96         *ui.Int
	Liquidity            *ui.Int
	FeeGrowthGlobal0X128 *ui.Int
	FeeGrowthGlobal1X128 *ui.Int
	TickSpacing          int
	TickCurrent          int
	TickData             *td.TickData
	Positions            map[position.Key]*position.Info
}

func NewPool(token0, token1 common.Address, fee int, sqrtRatioX96 *ui.Int) *Pool {
	tickSpacing, ok := cons.TickSpaces[fee]
	invariant.Invariant(ok, "unsupported fee tier")
	invariant.Invariant(token0.Cmp(token1) < 0, "token0 must sort before token1")
	tickCurrent := tickmath.GetTickAtSqrtRatio(sqrtRatioX96)

	return &Pool{
		token0,
		token1,
		fee,
		sqrtRatioX96.Clone(),
		ui.NewInt(0),
		ui.NewInt(0),
		ui.NewInt(0),
		tickSpacing,
		tickCurrent,
		td.NewTickData(tickSpacing),
		make(map[position.Key]*position.Info),
	}
}

func (p *Pool) Key() Key {
	return Key{p.Token0, p.Token1, p.Fee}
}

func (p *Pool) Clone() *Pool {
	positions := make(map[position.Key]*position.Info, len(p.Positions))
	for k, v := range p.Positions {
		positions[k] = v.Clone()
	}
	return &Pool{
		Token0:               p.Token0,
		Token1:               p.Token1,
		Fee:                  p.Fee,
		SqrtRatioX96:         p.SqrtRatioX96.Clone(),
		Liquidity:            p.Liquidity.Clone(),
		FeeGrowthGlobal0X128: p.FeeGrowthGlobal0X128.Clone(),
		FeeGrowthGlobal1X128: p.FeeGrowthGlobal1X128.Clone(),
		TickSpacing:          p.TickSpacing,
		TickCurrent:          p.TickCurrent,
		TickData:             p.TickData.Clone(),
		Positions:            positions,
	}
}

func (p *Pool) Position(key position.Key) (*position.Info, bool) {
	pos, ok := p.Positions[key]
	return pos, ok
}

// MaxLiquidityPerTick is the most gross liquidity a single tick may
// reference, so that active liquidity can never leave 128 bits.
func MaxLiquidityPerTick(tickSpacing int) *ui.Int {
	minTick := (tickmath.MinTick / tickSpacing) * tickSpacing
	maxTick := (tickmath.MaxTick / tickSpacing) * tickSpacing
	numTicks := uint64((maxTick-minTick)/tickSpacing) + 1
	return new(ui.Int).Div(cons.MaxUint128, ui.NewInt(numTicks))
}

func (p *Pool) checkTicks(tickLower, tickUpper int) {
	invariant.Invariant(tickLower < tickUpper, "tickLower must be below tickUpper")
	invariant.Invariant(tickLower >= tickmath.MinTick && tickUpper <= tickmath.MaxTick, "tick out of range")
	invariant.Invariant(tickLower%p.TickSpacing == 0 && tickUpper%p.TickSpacing == 0, "tick not aligned to spacing")
}

// modifyPosition applies a signed liquidity delta and returns the token
// amounts it moves: rounded up when adding, rounded down when removing.
func (p *Pool) modifyPosition(owner common.Address, tickLower, tickUpper int, liquidityDelta *ui.Int) (pos *position.Info, amount0, amount1 *ui.Int) {
	p.checkTicks(tickLower, tickUpper)
	key := position.Key{Owner: owner, TickLower: tickLower, TickUpper: tickUpper}
	pos = p.Positions[key]
	if pos == nil {
		invariant.Invariant(liquidityDelta.Sign() > 0, "position does not exist")
		pos = position.NewPosition()
		p.Positions[key] = pos
	}

	var flippedLower, flippedUpper bool
	if !liquidityDelta.IsZero() {
		flippedLower = p.TickData.UpdateTick(tickLower, p.TickCurrent, liquidityDelta, p.FeeGrowthGlobal0X128, p.FeeGrowthGlobal1X128, false)
		flippedUpper = p.TickData.UpdateTick(tickUpper, p.TickCurrent, liquidityDelta, p.FeeGrowthGlobal0X128, p.FeeGrowthGlobal1X128, true)
	}
	if liquidityDelta.Sign() > 0 {
		maxPerTick := MaxLiquidityPerTick(p.TickSpacing)
		for _, index := range []int{tickLower, tickUpper} {
			tick, _ := p.TickData.GetTick(index)
			invariant.Invariant(!tick.LiquidityGross.Gt(maxPerTick), "liquidity per tick above maximum")
		}
	}
	feeGrowthInside0X128, feeGrowthInside1X128 := p.TickData.GetFeeGrowthInside(tickLower, tickUpper, p.TickCurrent, p.FeeGrowthGlobal0X128, p.FeeGrowthGlobal1X128)
	pos.Update(liquidityDelta, feeGrowthInside0X128, feeGrowthInside1X128)

	remove := liquidityDelta.Sign() < 0
	if remove {
		if flippedLower {
			p.TickData.Clear(tickLower)
		}
		if flippedUpper {
			p.TickData.Clear(tickUpper)
		}
	}

	magnitude := liquidityDelta.Clone()
	if remove {
		magnitude.Neg(magnitude)
	}
	sqrtLower := tickmath.GetSqrtRatioAtTick(tickLower)
	sqrtUpper := tickmath.GetSqrtRatioAtTick(tickUpper)
	amount0, amount1 = ui.NewInt(0), ui.NewInt(0)
	if p.TickCurrent < tickLower {
		amount0 = sqrtprice_math.GetAmount0Delta(sqrtLower, sqrtUpper, magnitude, !remove)
	} else if p.TickCurrent < tickUpper {
		amount0 = sqrtprice_math.GetAmount0Delta(p.SqrtRatioX96, sqrtUpper, magnitude, !remove)
		amount1 = sqrtprice_math.GetAmount1Delta(sqrtLower, p.SqrtRatioX96, magnitude, !remove)
		p.Liquidity.Add(p.Liquidity, liquidityDelta)
		invariant.Invariant(!p.Liquidity.Gt(cons.MaxUint128), "pool liquidity above 128 bits")
	} else {
		amount1 = sqrtprice_math.GetAmount1Delta(sqrtLower, sqrtUpper, magnitude, !remove)
	}
	return
}

// Mint adds liquidity for owner and returns the amounts the owner must pay in.
func (p *Pool) Mint(owner common.Address, tickLower, tickUpper int, amount *ui.Int) (amount0, amount1 *ui.Int) {
	invariant.Invariant(amount.Sign() > 0, "mint amount must be positive")
	_, amount0, amount1 = p.modifyPosition(owner, tickLower, tickUpper, amount)
	return
}

// Burn removes liquidity. Nothing is paid out: the amounts are credited to the
// position's tokens owed and leave the pool through Collect.
func (p *Pool) Burn(owner common.Address, tickLower, tickUpper int, amount *ui.Int) (amount0, amount1 *ui.Int) {
	amountMinus := new(ui.Int).Neg(amount)
	pos, amount0, amount1 := p.modifyPosition(owner, tickLower, tickUpper, amountMinus)
	pos.TokensOwed0.Add(pos.TokensOwed0, amount0)
	pos.TokensOwed1.Add(pos.TokensOwed1, amount1)
	return amount0, amount1
}

// Collect pays out up to the requested amounts of tokens owed.
func (p *Pool) Collect(owner common.Address, tickLower, tickUpper int, amount0Requested, amount1Requested *ui.Int) (amount0, amount1 *ui.Int) {
	key := position.Key{Owner: owner, TickLower: tickLower, TickUpper: tickUpper}
	pos := p.Positions[key]
	if pos == nil {
		return ui.NewInt(0), ui.NewInt(0)
	}
	amount0 = fullmath.Min(amount0Requested, pos.TokensOwed0)
	amount1 = fullmath.Min(amount1Requested, pos.TokensOwed1)
	pos.TokensOwed0.Sub(pos.TokensOwed0, amount0)
	pos.TokensOwed1.Sub(pos.TokensOwed1, amount1)
	return
}

// Poke settles fees earned so far into tokens owed without changing liquidity.
func (p *Pool) Poke(owner common.Address, tickLower, tickUpper int) {
	key := position.Key{Owner: owner, TickLower: tickLower, TickUpper: tickUpper}
	if pos := p.Positions[key]; pos != nil && !pos.Liquidity.IsZero() {
		p.modifyPosition(owner, tickLower, tickUpper, ui.NewInt(0))
	}
}

// ExactInputSwap swaps amountIn of tokenIn until the input is spent or the
// price reaches sqrtPriceLimitX96 (zero means no limit).
func (p *Pool) ExactInputSwap(amountIn *ui.Int, tokenIn common.Address, sqrtPriceLimitX96 *ui.Int) (consumed, amountOut *ui.Int) {
	invariant.Invariant(tokenIn == p.Token0 || tokenIn == p.Token1, "token not in pool")
	invariant.Invariant(amountIn.Sign() > 0, "swap amount must be positive")
	return p.swap(tokenIn == p.Token0, amountIn, sqrtPriceLimitX96)
}

func (p *Pool) swap(zeroForOne bool, amountSpecified *ui.Int, sqrtPriceLimitX96In *ui.Int) (*ui.Int, *ui.Int) {
	sqrtPriceLimitX96 := sqrtPriceLimitX96In.Clone()
	if sqrtPriceLimitX96.IsZero() {
		if zeroForOne {
			sqrtPriceLimitX96.Add(tickmath.MinSqrtRatio, cons.One)
		} else {
			sqrtPriceLimitX96.Sub(tickmath.MaxSqrtRatio, cons.One)
		}
	}
	if zeroForOne {
		invariant.Invariant(sqrtPriceLimitX96.Lt(p.SqrtRatioX96) && sqrtPriceLimitX96.Gt(tickmath.MinSqrtRatio), "invalid price limit")
	} else {
		invariant.Invariant(sqrtPriceLimitX96.Gt(p.SqrtRatioX96) && sqrtPriceLimitX96.Lt(tickmath.MaxSqrtRatio), "invalid price limit")
	}

	var feeGrowthGlobalX128 *ui.Int
	if zeroForOne {
		feeGrowthGlobalX128 = p.FeeGrowthGlobal0X128.Clone()
	} else {
		feeGrowthGlobalX128 = p.FeeGrowthGlobal1X128.Clone()
	}
	state := stateStruct{
		amountSpecified.Clone(),
		ui.NewInt(0),
		p.SqrtRatioX96.Clone(),
		p.TickCurrent,
		feeGrowthGlobalX128,
		p.Liquidity.Clone(),
	}

	for !state.amountRemaining.IsZero() && !state.sqrtPriceX96.Eq(sqrtPriceLimitX96) {
		var step StepComputations
		step.sqrtPriceStartX96 = state.sqrtPriceX96
		step.tickNext, step.initialized = p.TickData.NextInitializedTick(state.tick, zeroForOne)

		if step.tickNext < tickmath.MinTick {
			step.tickNext = tickmath.MinTick
		} else if step.tickNext > tickmath.MaxTick {
			step.tickNext = tickmath.MaxTick
		}
		step.sqrtPriceNextX96 = tickmath.GetSqrtRatioAtTick(step.tickNext)

		targetValue := step.sqrtPriceNextX96
		if zeroForOne && step.sqrtPriceNextX96.Lt(sqrtPriceLimitX96) {
			targetValue = sqrtPriceLimitX96
		} else if !zeroForOne && step.sqrtPriceNextX96.Gt(sqrtPriceLimitX96) {
			targetValue = sqrtPriceLimitX96
		}

		state.sqrtPriceX96, step.amountIn, step.amountOut, step.feeAmount =
			swapmath.ComputeSwapStep(state.sqrtPriceX96, targetValue, state.liquidity, state.amountRemaining, p.Fee)

		state.amountRemaining.Sub(state.amountRemaining, new(ui.Int).Add(step.amountIn, step.feeAmount))
		state.amountCalculated.Add(state.amountCalculated, step.amountOut)

		if state.liquidity.Sign() > 0 {
			fee := fullmath.MulDiv(step.feeAmount, cons.Q128, state.liquidity)
			state.feeGrowthGlobalX128.Add(state.feeGrowthGlobalX128, fee)
		}

		if state.sqrtPriceX96.Eq(step.sqrtPriceNextX96) {
			if step.initialized {
				var feeGrowthGlobal0X128, feeGrowthGlobal1X128 *ui.Int
				if zeroForOne {
					feeGrowthGlobal0X128 = state.feeGrowthGlobalX128
					feeGrowthGlobal1X128 = p.FeeGrowthGlobal1X128
				} else {
					feeGrowthGlobal0X128 = p.FeeGrowthGlobal0X128
					feeGrowthGlobal1X128 = state.feeGrowthGlobalX128
				}
				liquidityNet := p.TickData.Cross(step.tickNext, feeGrowthGlobal0X128, feeGrowthGlobal1X128)
				if zeroForOne {
					state.liquidity.Sub(state.liquidity, liquidityNet)
				} else {
					state.liquidity.Add(state.liquidity, liquidityNet)
				}
			}
			if zeroForOne {
				state.tick = step.tickNext - 1
			} else {
				state.tick = step.tickNext
			}
		} else if !state.sqrtPriceX96.Eq(step.sqrtPriceStartX96) {
			state.tick = tickmath.GetTickAtSqrtRatio(state.sqrtPriceX96)
		}
	}

	// Update Slot0
	p.TickCurrent = state.tick
	p.Liquidity = state.liquidity
	p.SqrtRatioX96 = state.sqrtPriceX96
	if zeroForOne {
		p.FeeGrowthGlobal0X128 = state.feeGrowthGlobalX128
	} else {
		p.FeeGrowthGlobal1X128 = state.feeGrowthGlobalX128
	}

	consumed := new(ui.Int).Sub(amountSpecified, state.amountRemaining)
	return consumed, state.amountCalculated
}

// AmountsForLiquidity values liquidity in [tickLower, tickUpper) at the
// current price, rounding down.
func (p *Pool) AmountsForLiquidity(tickLower, tickUpper int, liquidity *ui.Int) (amount0, amount1 *ui.Int) {
	return liquidity_amounts.GetAmountsForLiquidity(p.SqrtRatioX96,
		tickmath.GetSqrtRatioAtTick(tickLower), tickmath.GetSqrtRatioAtTick(tickUpper), liquidity, false)
}

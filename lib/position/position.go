package position

import (
	cons "github.com/ftchann/uniswap-custodian/lib/constants"
	"github.com/ftchann/uniswap-custodian/lib/fullmath"
	"github.com/ftchann/uniswap-custodian/lib/invariant"

	"github.com/ethereum/go-ethereum/common"
	ui "github.com/holiman/uint256"
)

// Key identifies a pool position by the account that owns it and its range.
type Key struct {
	Owner     common.Address
	TickLower int
	TickUpper int
}

type Info struct {
	Liquidity                *ui.Int
	FeeGrowthInside0LastX128 *ui.Int
	FeeGrowthInside1LastX128 *ui.Int
	TokensOwed0              *ui.Int
	TokensOwed1              *ui.Int
}

func NewPosition() *Info {
	return &Info{
		Liquidity:                ui.NewInt(0),
		FeeGrowthInside0LastX128: ui.NewInt(0),
		FeeGrowthInside1LastX128: ui.NewInt(0),
		TokensOwed0:              ui.NewInt(0),
		TokensOwed1:              ui.NewInt(0),
	}
}

func (i *Info) Clone() *Info {
	return &Info{
		Liquidity:                i.Liquidity.Clone(),
		FeeGrowthInside0LastX128: i.FeeGrowthInside0LastX128.Clone(),
		FeeGrowthInside1LastX128: i.FeeGrowthInside1LastX128.Clone(),
		TokensOwed0:              i.TokensOwed0.Clone(),
		TokensOwed1:              i.TokensOwed1.Clone(),
	}
}

// Update credits fees earned since the last snapshot at the old liquidity,
// then applies the signed liquidityDelta.
func (i *Info) Update(liquidityDelta, feeGrowthInside0X128, feeGrowthInside1X128 *ui.Int) {
	if liquidityDelta.IsZero() {
		invariant.Invariant(!i.Liquidity.IsZero(), "poke on empty position")
	}
	liquidityNext := new(ui.Int).Add(i.Liquidity, liquidityDelta)
	if liquidityDelta.Sign() < 0 {
		invariant.Invariant(liquidityNext.Cmp(i.Liquidity) < 0, "liquidity underflow")
	}

	temp0 := new(ui.Int).Sub(feeGrowthInside0X128, i.FeeGrowthInside0LastX128)
	temp1 := new(ui.Int).Sub(feeGrowthInside1X128, i.FeeGrowthInside1LastX128)
	tokensOwed0 := fullmath.MulDiv(temp0, i.Liquidity, cons.Q128)
	tokensOwed1 := fullmath.MulDiv(temp1, i.Liquidity, cons.Q128)

	i.Liquidity = liquidityNext
	i.FeeGrowthInside0LastX128 = feeGrowthInside0X128.Clone()
	i.FeeGrowthInside1LastX128 = feeGrowthInside1X128.Clone()
	i.TokensOwed0.Add(i.TokensOwed0, tokensOwed0)
	i.TokensOwed1.Add(i.TokensOwed1, tokensOwed1)
}

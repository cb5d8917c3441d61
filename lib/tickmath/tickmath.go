package tickmath

import (
	"math"

	cons "github.com/ftchann/uniswap-custodian/lib/constants"
	"github.com/ftchann/uniswap-custodian/lib/invariant"

	ui "github.com/holiman/uint256"
)

const (
	MinTick int = -887272  // The minimum tick that can be used on any pool.
	MaxTick int = -MinTick // The maximum tick that can be used on any pool.
)

var (
	Q32             = ui.NewInt(1 << 32)
	MinSqrtRatio    = ui.NewInt(4295128739) // The sqrt ratio corresponding to the minimum tick that could be used on any pool.
	MaxSqrtRatio, _ = ui.FromDecimal("1461446703485210103287273052203988822378723970342")
)

// sqrt(1.0001)^-(2^i) in Q128.128, for bit i = 1..19 of |tick|
var magic = mustHexes(
	"0xfff97272373d413259a46990580e213a",
	"0xfff2e50f5f656932ef12357cf3c7fdcc",
	"0xffe5caca7e10e4e61c3624eaa0941cd0",
	"0xffcb9843d60f6159c9db58835c926644",
	"0xff973b41fa98c081472e6896dfb254c0",
	"0xff2ea16466c96a3843ec78b326b52861",
	"0xfe5dee046a99a2a811c461f1969c3053",
	"0xfcbe86c7900a88aedcffc83b479aa3a4",
	"0xf987a7253ac413176f2b074cf7815e54",
	"0xf3392b0822b70005940c7a398e4b70f3",
	"0xe7159475a2c29b7443b29c7fa6e889d9",
	"0xd097f3bdfd2022b8845ad8f792aa5825",
	"0xa9f746462d870fdf8a65dc1f90e061e5",
	"0x70d869a156d2a1b890bb3df62baf32f7",
	"0x31be135f97d08fd981231505542fcfa6",
	"0x9aa508b5b7a84e1c677de54f3e99bc9",
	"0x5d6af8dedb81196699c329225ee604",
	"0x2216e584f5fa1ea926041bedfe98",
	"0x48a170391f7dc42444e8fa2",
)

var (
	ratioOdd, _  = ui.FromHex("0xfffcb933bd6fad37aa2d162d1a594001")
	ratioEven, _ = ui.FromHex("0x100000000000000000000000000000000")
)

func mustHexes(values ...string) []*ui.Int {
	out := make([]*ui.Int, len(values))
	for i, v := range values {
		out[i] = ui.MustFromHex(v)
	}
	return out
}

func Round(ix, iunit int) int {
	x := float64(ix)
	unit := float64(iunit)
	return int(math.Round(x/unit) * unit)
}

func Ceil(ix, iunit int) int {
	x := float64(ix)
	unit := float64(iunit)
	return int(math.Ceil(x/unit) * unit)
}

func Floor(ix, iunit int) int {
	x := float64(ix)
	unit := float64(iunit)
	return int(math.Floor(x/unit) * unit)
}

// UsableRange is the widest [lower, upper] aligned to tickSpacing.
func UsableRange(tickSpacing int) (int, int) {
	lower := Ceil(MinTick, tickSpacing)
	upper := Floor(MaxTick, tickSpacing)
	return lower, upper
}

// GetSqrtRatioAtTick
// Returns the sqrt ratio as a Q64.96 for the given tick. The sqrt ratio is computed as sqrt(1.0001)^tick
func GetSqrtRatioAtTick(tick int) *ui.Int {
	absTick := tick
	if tick < 0 {
		absTick = -tick
	}
	invariant.Invariant(absTick <= MaxTick, "tick out of range")

	var ratio *ui.Int
	if absTick&0x1 != 0 {
		ratio = ratioOdd.Clone()
	} else {
		ratio = ratioEven.Clone()
	}
	for i, m := range magic {
		if absTick&(0x2<<i) != 0 {
			ratio = mulShift(ratio, m)
		}
	}
	if tick > 0 {
		ratio = new(ui.Int).Div(cons.MaxUint256, ratio)
	}

	// back to Q96, rounding up
	quotient, rem := new(ui.Int).DivMod(ratio, Q32, new(ui.Int))
	if !rem.IsZero() {
		quotient.Add(quotient, cons.One)
	}
	return quotient
}

// GetTickAtSqrtRatio returns the greatest tick whose sqrt ratio is <= sqrtRatioX96.
func GetTickAtSqrtRatio(sqrtRatioX96 *ui.Int) int {
	invariant.Invariant(sqrtRatioX96.Cmp(MinSqrtRatio) >= 0 && sqrtRatioX96.Cmp(MaxSqrtRatio) < 0, "sqrtRatioX96 must be between MinSqrtRatio and MaxSqrtRatio")
	l := MinTick
	r := MaxTick
	for l < r {
		// upper mid so the loop always shrinks
		mid := l + (r-l+1)/2
		if GetSqrtRatioAtTick(mid).Cmp(sqrtRatioX96) > 0 {
			r = mid - 1
		} else {
			l = mid
		}
	}
	return l
}

func mulShift(val, mulBy *ui.Int) *ui.Int {
	return new(ui.Int).Rsh(new(ui.Int).Mul(val, mulBy), 128)
}

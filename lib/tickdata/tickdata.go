package tickdata

import (
	"fmt"
	"sort"

	"github.com/ftchann/uniswap-custodian/lib/tickmath"

	ui "github.com/holiman/uint256"
)

// Tick holds the state of one initialized tick. LiquidityNet is a signed
// two's complement value.
type Tick struct {
	Index                 int
	LiquidityGross        *ui.Int
	LiquidityNet          *ui.Int
	FeeGrowthOutside0X128 *ui.Int
	FeeGrowthOutside1X128 *ui.Int
}

func (t Tick) Clone() Tick {
	return Tick{
		Index:                 t.Index,
		LiquidityGross:        t.LiquidityGross.Clone(),
		LiquidityNet:          t.LiquidityNet.Clone(),
		FeeGrowthOutside0X128: t.FeeGrowthOutside0X128.Clone(),
		FeeGrowthOutside1X128: t.FeeGrowthOutside1X128.Clone(),
	}
}

// TickData keeps initialized ticks sorted by index.
type TickData struct {
	ticks       []Tick
	tickSpacing int
}

func NewTickData(tickSpacing int) *TickData {
	return &TickData{
		nil,
		tickSpacing,
	}
}

func (t *TickData) Clone() *TickData {
	newTickData := &TickData{
		ticks:       make([]Tick, len(t.ticks)),
		tickSpacing: t.tickSpacing,
	}
	for i, tick := range t.ticks {
		newTickData.ticks[i] = tick.Clone()
	}
	return newTickData
}

func (t *TickData) String() string {
	s := ""
	for _, c := range t.ticks {
		s += fmt.Sprintf("%d ", c.Index)
	}
	return s
}

func (t *TickData) Len() int {
	return len(t.ticks)
}

func (t *TickData) search(index int) (int, bool) {
	i := sort.Search(len(t.ticks), func(i int) bool { return t.ticks[i].Index >= index })
	return i, i < len(t.ticks) && t.ticks[i].Index == index
}

func (t *TickData) GetTick(index int) (Tick, bool) {
	i, ok := t.search(index)
	if !ok {
		return Tick{}, false
	}
	return t.ticks[i], true
}

// UpdateTick applies a signed liquidity delta to the tick at index and reports
// whether the tick flipped between initialized and uninitialized.
func (t *TickData) UpdateTick(index, tickCurrent int, liquidityDelta, feeGrowthGlobal0X128, feeGrowthGlobal1X128 *ui.Int, upper bool) bool {
	i, ok := t.search(index)
	if !ok {
		tick := Tick{
			Index:                 index,
			LiquidityGross:        ui.NewInt(0),
			LiquidityNet:          ui.NewInt(0),
			FeeGrowthOutside0X128: ui.NewInt(0),
			FeeGrowthOutside1X128: ui.NewInt(0),
		}
		// by convention all growth before initialization happened below the tick
		if index <= tickCurrent {
			tick.FeeGrowthOutside0X128.Set(feeGrowthGlobal0X128)
			tick.FeeGrowthOutside1X128.Set(feeGrowthGlobal1X128)
		}
		t.ticks = append(t.ticks, Tick{})
		copy(t.ticks[i+1:], t.ticks[i:])
		t.ticks[i] = tick
	}
	tick := &t.ticks[i]
	grossBefore := tick.LiquidityGross.Clone()
	tick.LiquidityGross.Add(tick.LiquidityGross, liquidityDelta)
	if upper {
		tick.LiquidityNet.Sub(tick.LiquidityNet, liquidityDelta)
	} else {
		tick.LiquidityNet.Add(tick.LiquidityNet, liquidityDelta)
	}
	return grossBefore.IsZero() != tick.LiquidityGross.IsZero()
}

// Clear removes a tick whose gross liquidity dropped to zero.
func (t *TickData) Clear(index int) {
	if i, ok := t.search(index); ok {
		t.ticks = append(t.ticks[:i], t.ticks[i+1:]...)
	}
}

// GetFeeGrowthInside is the fee growth per unit of liquidity between lower and upper.
func (t *TickData) GetFeeGrowthInside(tickLower, tickUpper, tickCurrent int, feeGrowthGlobal0X128, feeGrowthGlobal1X128 *ui.Int) (*ui.Int, *ui.Int) {
	lower0, lower1 := t.outside(tickLower)
	upper0, upper1 := t.outside(tickUpper)

	var below0, below1, above0, above1 *ui.Int
	if tickCurrent >= tickLower {
		below0, below1 = lower0, lower1
	} else {
		below0 = new(ui.Int).Sub(feeGrowthGlobal0X128, lower0)
		below1 = new(ui.Int).Sub(feeGrowthGlobal1X128, lower1)
	}
	if tickCurrent < tickUpper {
		above0, above1 = upper0, upper1
	} else {
		above0 = new(ui.Int).Sub(feeGrowthGlobal0X128, upper0)
		above1 = new(ui.Int).Sub(feeGrowthGlobal1X128, upper1)
	}

	// wrapping subtraction is intended
	inside0 := new(ui.Int).Sub(new(ui.Int).Sub(feeGrowthGlobal0X128, below0), above0)
	inside1 := new(ui.Int).Sub(new(ui.Int).Sub(feeGrowthGlobal1X128, below1), above1)
	return inside0, inside1
}

func (t *TickData) outside(index int) (*ui.Int, *ui.Int) {
	tick, ok := t.GetTick(index)
	if !ok {
		return ui.NewInt(0), ui.NewInt(0)
	}
	return tick.FeeGrowthOutside0X128, tick.FeeGrowthOutside1X128
}

// Cross flips the fee growth outside of a tick and returns its signed net liquidity.
func (t *TickData) Cross(index int, feeGrowthGlobal0X128, feeGrowthGlobal1X128 *ui.Int) *ui.Int {
	i, ok := t.search(index)
	if !ok {
		return ui.NewInt(0)
	}
	tick := &t.ticks[i]
	tick.FeeGrowthOutside0X128 = new(ui.Int).Sub(feeGrowthGlobal0X128, tick.FeeGrowthOutside0X128)
	tick.FeeGrowthOutside1X128 = new(ui.Int).Sub(feeGrowthGlobal1X128, tick.FeeGrowthOutside1X128)
	return tick.LiquidityNet.Clone()
}

// NextInitializedTick searches down (lte) for the greatest initialized tick <= tick,
// or up for the smallest initialized tick > tick. Without a hit it returns the
// pool bound and false.
func (t *TickData) NextInitializedTick(tick int, lte bool) (int, bool) {
	if lte {
		i := sort.Search(len(t.ticks), func(i int) bool { return t.ticks[i].Index > tick })
		if i == 0 {
			return tickmath.MinTick, false
		}
		return t.ticks[i-1].Index, true
	}
	i := sort.Search(len(t.ticks), func(i int) bool { return t.ticks[i].Index > tick })
	if i == len(t.ticks) {
		return tickmath.MaxTick, false
	}
	return t.ticks[i].Index, true
}

package sqrtprice_math

import (
	"testing"

	cons "github.com/ftchann/uniswap-custodian/lib/constants"

	ui "github.com/holiman/uint256"
)

func TestGetAmountDeltas(t *testing.T) {
	// price 1 -> 2^96, price 4 -> 2 * 2^96
	sqrtA := cons.Q96.Clone()
	sqrtB := new(ui.Int).Lsh(cons.Q96, 1)
	liquidity := ui.NewInt(1_000_000_001)

	// L * (2 - 1)
	if got := GetAmount1Delta(sqrtA, sqrtB, liquidity, false); got.Uint64() != 1_000_000_001 {
		t.Errorf("GetAmount1Delta() = %v, want 1000000001", got)
	}
	// L * (1/1 - 1/2) = 500000000.5
	if got := GetAmount0Delta(sqrtA, sqrtB, liquidity, false); got.Uint64() != 500_000_000 {
		t.Errorf("GetAmount0Delta(down) = %v, want 500000000", got)
	}
	if got := GetAmount0Delta(sqrtA, sqrtB, liquidity, true); got.Uint64() != 500_000_001 {
		t.Errorf("GetAmount0Delta(up) = %v, want 500000001", got)
	}
	// argument order does not matter
	if got := GetAmount1Delta(sqrtB, sqrtA, liquidity, false); got.Uint64() != 1_000_000_001 {
		t.Errorf("GetAmount1Delta(swapped) = %v, want 1000000001", got)
	}
}

func TestGetNextSqrtPriceFromInput(t *testing.T) {
	liquidity := ui.NewInt(1_000_000)
	price := cons.Q96.Clone()

	if got := GetNextSqrtPriceFromInput(price, liquidity, ui.NewInt(0), true); !got.Eq(price) {
		t.Errorf("zero input moved price to %v", got)
	}
	up := GetNextSqrtPriceFromInput(price, liquidity, ui.NewInt(1000), false)
	if up.Cmp(price) <= 0 {
		t.Errorf("token1 input should raise price, got %v", up)
	}
	down := GetNextSqrtPriceFromInput(price, liquidity, ui.NewInt(1000), true)
	if down.Cmp(price) >= 0 {
		t.Errorf("token0 input should lower price, got %v", down)
	}
}

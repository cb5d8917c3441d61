package position

import (
	"testing"

	cons "github.com/ftchann/uniswap-custodian/lib/constants"
	"github.com/ftchann/uniswap-custodian/lib/invariant"

	ui "github.com/holiman/uint256"
)

func TestUpdateAccruesFeesAtOldLiquidity(t *testing.T) {
	pos := NewPosition()
	zero := ui.NewInt(0)
	pos.Update(ui.NewInt(1000), zero, zero)

	// 3 units of token0 and 1 of token1 per unit of liquidity, in Q128
	growth0 := new(ui.Int).Mul(ui.NewInt(3), cons.Q128)
	growth1 := cons.Q128.Clone()
	pos.Update(ui.NewInt(500), growth0, growth1)

	if pos.TokensOwed0.Uint64() != 3000 || pos.TokensOwed1.Uint64() != 1000 {
		t.Fatalf("owed = (%v, %v), want (3000, 1000)", pos.TokensOwed0, pos.TokensOwed1)
	}
	if pos.Liquidity.Uint64() != 1500 {
		t.Fatalf("liquidity = %v, want 1500", pos.Liquidity)
	}
}

func TestCloneIsDeep(t *testing.T) {
	pos := NewPosition()
	pos.TokensOwed0.SetUint64(7)
	pos.TokensOwed1.SetUint64(9)
	clone := pos.Clone()
	clone.TokensOwed0.SetUint64(1)

	if pos.TokensOwed0.Uint64() != 7 {
		t.Errorf("clone aliases the original")
	}
	if clone.TokensOwed1.Uint64() != 9 {
		t.Errorf("clone owed1 = %v, want 9", clone.TokensOwed1)
	}
}

func TestUpdateRejectsUnderflow(t *testing.T) {
	pos := NewPosition()
	zero := ui.NewInt(0)
	pos.Update(ui.NewInt(10), zero, zero)
	defer func() {
		if _, ok := recover().(invariant.Violation); !ok {
			t.Fatal("expected invariant violation")
		}
	}()
	pos.Update(new(ui.Int).Neg(ui.NewInt(11)), zero, zero)
}

package settlement_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ui "github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftchann/uniswap-custodian/lib/settlement"
	"github.com/ftchann/uniswap-custodian/lib/token"
	"github.com/ftchann/uniswap-custodian/lib/types"
)

var (
	usdc      = common.HexToAddress("0xa0")
	alice     = common.HexToAddress("0xa11")
	custodian = common.HexToAddress("0xc0")
	registry  = common.HexToAddress("0x9e")
)

func setup(t *testing.T) (*settlement.Router, *token.Bank) {
	t.Helper()
	bank := token.NewBank()
	bank.Mint(usdc, alice, ui.NewInt(100))
	return settlement.NewRouter(bank, custodian), bank
}

func TestPullInNeedsAllowance(t *testing.T) {
	router, bank := setup(t)

	err := router.PullIn(usdc, alice, ui.NewInt(10))
	require.ErrorIs(t, err, types.ErrInsufficientFunds)

	require.NoError(t, bank.Approve(alice, usdc, custodian, ui.NewInt(10)))
	require.NoError(t, router.PullIn(usdc, alice, ui.NewInt(10)))
	assert.Equal(t, uint64(10), bank.BalanceOf(usdc, custodian).Uint64())
	assert.Equal(t, uint64(90), bank.BalanceOf(usdc, alice).Uint64())
}

func TestPullInZeroIsNoop(t *testing.T) {
	router, _ := setup(t)
	require.NoError(t, router.PullIn(usdc, alice, ui.NewInt(0)))
}

func TestPushOut(t *testing.T) {
	router, bank := setup(t)
	bank.Mint(usdc, custodian, ui.NewInt(5))

	err := router.PushOut(usdc, alice, ui.NewInt(6))
	require.ErrorIs(t, err, types.ErrInsufficientFunds)

	require.NoError(t, router.PushOut(usdc, alice, ui.NewInt(5)))
	assert.True(t, bank.BalanceOf(usdc, custodian).IsZero())
	assert.Equal(t, uint64(105), bank.BalanceOf(usdc, alice).Uint64())
}

func TestRefundExcess(t *testing.T) {
	tests := []struct {
		name                string
		requested, consumed uint64
		refund              uint64
	}{
		{"partial fill", 50, 30, 20},
		{"full fill", 50, 50, 0},
		{"nothing consumed", 50, 0, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, bank := setup(t)
			bank.Mint(usdc, custodian, ui.NewInt(tt.requested))

			refund, err := router.RefundExcess(usdc, alice, ui.NewInt(tt.requested), ui.NewInt(tt.consumed))
			require.NoError(t, err)
			assert.Equal(t, tt.refund, refund.Uint64())
			assert.Equal(t, 100+tt.refund, bank.BalanceOf(usdc, alice).Uint64())
		})
	}
}

func TestApproveActsForCustody(t *testing.T) {
	router, bank := setup(t)
	require.NoError(t, router.Approve(usdc, registry, ui.NewInt(42)))
	assert.Equal(t, uint64(42), bank.Allowance(usdc, custodian, registry).Uint64())
	assert.Equal(t, custodian, router.Custody())
}

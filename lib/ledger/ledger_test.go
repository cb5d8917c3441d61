package ledger_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ui "github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftchann/uniswap-custodian/lib/ledger"
	"github.com/ftchann/uniswap-custodian/lib/types"
)

var (
	alice = common.HexToAddress("0xa11")
	bob   = common.HexToAddress("0xb0b")
	usdc  = common.HexToAddress("0xa0")
	weth  = common.HexToAddress("0xb0")
)

func TestCreateAndRead(t *testing.T) {
	store := ledger.NewStore()
	require.NoError(t, store.Create(1, alice, usdc, weth, ui.NewInt(100)))

	record, err := store.Read(1)
	require.NoError(t, err)
	assert.Equal(t, alice, record.Owner)
	assert.Equal(t, usdc, record.AssetA)
	assert.Equal(t, weth, record.AssetB)
	assert.Equal(t, uint64(100), record.Liquidity.Uint64())
}

func TestCreateDoesNotOverwrite(t *testing.T) {
	store := ledger.NewStore()
	require.NoError(t, store.Create(1, alice, usdc, weth, ui.NewInt(100)))

	err := store.Create(1, bob, usdc, weth, ui.NewInt(5))
	require.ErrorIs(t, err, types.ErrAlreadyExists)

	record, err := store.Read(1)
	require.NoError(t, err)
	assert.Equal(t, alice, record.Owner)
	assert.Equal(t, uint64(100), record.Liquidity.Uint64())
}

func TestCreateRejectsZeroOwner(t *testing.T) {
	store := ledger.NewStore()
	err := store.Create(1, common.Address{}, usdc, weth, ui.NewInt(1))
	require.ErrorIs(t, err, types.ErrInvalidOwner)
	assert.False(t, store.Has(1))
}

func TestMissingRecord(t *testing.T) {
	store := ledger.NewStore()

	tests := []struct {
		name string
		op   func() error
	}{
		{"read", func() error { _, err := store.Read(9); return err }},
		{"update", func() error { return store.UpdateLiquidity(9, ui.NewInt(1)) }},
		{"erase", func() error { return store.Erase(9) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.op(), types.ErrNotFound)
		})
	}
	assert.Equal(t, 0, store.Len())
}

func TestReadReturnsCopy(t *testing.T) {
	store := ledger.NewStore()
	liquidity := ui.NewInt(100)
	require.NoError(t, store.Create(1, alice, usdc, weth, liquidity))
	liquidity.SetUint64(1)

	record, _ := store.Read(1)
	record.Liquidity.SetUint64(7)

	again, _ := store.Read(1)
	assert.Equal(t, uint64(100), again.Liquidity.Uint64())
}

func TestUpdateAndErase(t *testing.T) {
	store := ledger.NewStore()
	require.NoError(t, store.Create(2, alice, usdc, weth, ui.NewInt(100)))
	require.NoError(t, store.Create(1, bob, usdc, weth, ui.NewInt(3)))
	assert.Equal(t, []uint64{1, 2}, store.IDs())

	require.NoError(t, store.UpdateLiquidity(2, ui.NewInt(250)))
	record, _ := store.Read(2)
	assert.Equal(t, uint64(250), record.Liquidity.Uint64())

	require.NoError(t, store.Erase(2))
	_, err := store.Read(2)
	require.ErrorIs(t, err, types.ErrNotFound)
	assert.Equal(t, []uint64{1}, store.IDs())
}

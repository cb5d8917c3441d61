package custody

import (
	"testing"

	ui "github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cons "github.com/ftchann/uniswap-custodian/lib/constants"
	"github.com/ftchann/uniswap-custodian/lib/ledger"
	"github.com/ftchann/uniswap-custodian/lib/registry"
	"github.com/ftchann/uniswap-custodian/lib/token"
	"github.com/ftchann/uniswap-custodian/lib/types"
)

func newGate(t *testing.T) (*Gate, *fakeRegistry, *ledger.Store) {
	t.Helper()
	reg := newFakeRegistry(registryAddr, token.NewBank())
	reg.views[5] = &registry.PositionView{
		Token0:    tokenA,
		Token1:    tokenB,
		Fee:       3000,
		Liquidity: ui.NewInt(1234),
	}
	store := ledger.NewStore()
	return NewGate(reg, store), reg, store
}

func TestGateDirectTransfer(t *testing.T) {
	g, _, store := newGate(t)

	require.NoError(t, g.OnOwnershipTokenReceived(registryAddr, bob, bob, 5))
	rec, err := store.Read(5)
	require.NoError(t, err)
	assert.Equal(t, ledger.Record{Owner: bob, Liquidity: ui.NewInt(1234), AssetA: tokenA, AssetB: tokenB}, rec)

	err = g.OnOwnershipTokenReceived(registryAddr, bob, bob, 5)
	assert.ErrorIs(t, err, types.ErrAlreadyExists)
}

func TestGateRejectsUnexpectedReceipts(t *testing.T) {
	g, _, store := newGate(t)

	err := g.OnOwnershipTokenReceived(bob, bob, bob, 5)
	require.ErrorIs(t, err, types.ErrUnexpectedReceipt)

	// a mint outside a create
	err = g.OnOwnershipTokenReceived(registryAddr, bob, cons.ZeroAddress, 5)
	require.ErrorIs(t, err, types.ErrUnexpectedReceipt)

	// a mint of a different pair
	done := g.expect(alice, tokenA, custodian)
	err = g.OnOwnershipTokenReceived(registryAddr, custodian, cons.ZeroAddress, 5)
	done()
	require.ErrorIs(t, err, types.ErrUnexpectedReceipt)

	// unknown token
	err = g.OnOwnershipTokenReceived(registryAddr, bob, bob, 6)
	require.ErrorIs(t, err, types.ErrRegistryRejected)

	assert.Zero(t, store.Len())
}

func TestGateCreditsPendingCreateOnce(t *testing.T) {
	g, reg, store := newGate(t)
	reg.views[6] = reg.views[5]

	done := g.expect(alice, tokenB, tokenA)
	defer done()
	require.NoError(t, g.OnOwnershipTokenReceived(registryAddr, custodian, cons.ZeroAddress, 5))
	rec, err := store.Read(5)
	require.NoError(t, err)
	assert.Equal(t, alice, rec.Owner)
	assert.Equal(t, tokenB, rec.AssetA)
	assert.Equal(t, tokenA, rec.AssetB)

	err = g.OnOwnershipTokenReceived(registryAddr, custodian, cons.ZeroAddress, 6)
	assert.ErrorIs(t, err, types.ErrUnexpectedReceipt)
}

func TestAuthorize(t *testing.T) {
	g, _, store := newGate(t)
	require.NoError(t, store.Create(5, alice, tokenA, tokenB, ui.NewInt(10)))

	rec, err := g.Authorize(alice, 5)
	require.NoError(t, err)
	assert.Equal(t, alice, rec.Owner)

	_, err = g.Authorize(bob, 5)
	assert.ErrorIs(t, err, types.ErrUnauthorized)
	_, err = g.Authorize(alice, 6)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

package custody

import (
	"cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"

	cons "github.com/ftchann/uniswap-custodian/lib/constants"
	"github.com/ftchann/uniswap-custodian/lib/ledger"
	"github.com/ftchann/uniswap-custodian/lib/types"
)

// Gate records ownership of tokens the registry delivers to the custodian
// and answers who may act on a recorded position.
type Gate struct {
	registry PositionRegistry
	ledger   *ledger.Store
	pending  *pendingCreate
}

// pendingCreate is the Create call currently minting.
type pendingCreate struct {
	caller common.Address
	assetA common.Address
	assetB common.Address
}

func NewGate(registry PositionRegistry, store *ledger.Store) *Gate {
	return &Gate{registry: registry, ledger: store}
}

// OnOwnershipTokenReceived is called by the registry when an ownership token
// arrives at the custodian. A fresh mint (from is the zero address) is only
// accepted while a Create is in flight and belongs to its caller; a transfer
// belongs to the previous holder. An error aborts the delivery.
func (g *Gate) OnOwnershipTokenReceived(sender, operator, from common.Address, id uint64) error {
	if sender != g.registry.Address() {
		return errors.Wrapf(types.ErrUnexpectedReceipt, "token %d from %s, not the registry", id, sender.Hex())
	}
	view, err := g.registry.Positions(id)
	if err != nil {
		return err
	}
	if from != cons.ZeroAddress {
		return g.ledger.Create(id, from, view.Token0, view.Token1, view.Liquidity)
	}

	pending := g.pending
	if pending == nil {
		return errors.Wrapf(types.ErrUnexpectedReceipt, "mint of token %d outside a create", id)
	}
	if token0, token1 := orient(pending.assetA, pending.assetB, pending.assetA, pending.assetB); token0 != view.Token0 || token1 != view.Token1 {
		return errors.Wrapf(types.ErrUnexpectedReceipt, "token %d holds %s/%s, create asked for %s/%s", id,
			view.Token0.Hex(), view.Token1.Hex(), pending.assetA.Hex(), pending.assetB.Hex())
	}
	g.pending = nil
	return g.ledger.Create(id, pending.caller, pending.assetA, pending.assetB, view.Liquidity)
}

// Authorize returns the record of id if caller owns it.
func (g *Gate) Authorize(caller common.Address, id uint64) (ledger.Record, error) {
	rec, err := g.ledger.Read(id)
	if err != nil {
		return ledger.Record{}, err
	}
	if rec.Owner != caller {
		return ledger.Record{}, errors.Wrapf(types.ErrUnauthorized, "%s does not own position %d", caller.Hex(), id)
	}
	return rec, nil
}

// expect opens the window in which one minted token of the pair is credited
// to caller. The returned func closes it.
func (g *Gate) expect(caller, assetA, assetB common.Address) func() {
	g.pending = &pendingCreate{caller: caller, assetA: assetA, assetB: assetB}
	return func() { g.pending = nil }
}

// orient maps a pair given in a record's asset order to the registry's
// sorted order and back.
func orient[T any](assetA, assetB common.Address, a, b T) (T, T) {
	if assetA.Cmp(assetB) < 0 {
		return a, b
	}
	return b, a
}

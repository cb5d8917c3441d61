package custody

import (
	"cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	ui "github.com/holiman/uint256"

	cons "github.com/ftchann/uniswap-custodian/lib/constants"
	"github.com/ftchann/uniswap-custodian/lib/exchange"
	"github.com/ftchann/uniswap-custodian/lib/fullmath"
	"github.com/ftchann/uniswap-custodian/lib/registry"
	"github.com/ftchann/uniswap-custodian/lib/token"
	"github.com/ftchann/uniswap-custodian/lib/types"
)

// fakeRegistry is a scripted registry: it consumes what it is told to and
// reports the liquidity it is told to, holding the funds itself.
type fakeRegistry struct {
	address  common.Address
	bank     *token.Bank
	receiver registry.Receiver

	// nil means consume everything offered
	consume0 *ui.Int
	consume1 *ui.Int
	// liquidity reported by Mint and IncreaseLiquidity
	liquidity *ui.Int
	// amounts paid per DecreaseLiquidity call
	decreaseOut0 *ui.Int
	decreaseOut1 *ui.Int

	failMint     error
	failIncrease error
	failDecrease error
	failCollect  error
	failTransfer error

	nextID    uint64
	views     map[uint64]*registry.PositionView
	owners    map[uint64]common.Address
	decreases []*ui.Int
	collects  []registry.CollectParams
}

func newFakeRegistry(address common.Address, bank *token.Bank) *fakeRegistry {
	return &fakeRegistry{
		address:      address,
		bank:         bank,
		liquidity:    ui.NewInt(100),
		decreaseOut0: ui.NewInt(0),
		decreaseOut1: ui.NewInt(0),
		views:        make(map[uint64]*registry.PositionView),
		owners:       make(map[uint64]common.Address),
	}
}

func (f *fakeRegistry) Address() common.Address {
	return f.address
}

func (f *fakeRegistry) take(sender common.Address, token0, token1 common.Address, desired0, desired1 *ui.Int) (*ui.Int, *ui.Int, error) {
	used0, used1 := desired0, desired1
	if f.consume0 != nil {
		used0 = fullmath.Min(f.consume0, desired0)
	}
	if f.consume1 != nil {
		used1 = fullmath.Min(f.consume1, desired1)
	}
	if !used0.IsZero() {
		if err := f.bank.TransferFrom(f.address, token0, sender, f.address, used0); err != nil {
			return nil, nil, err
		}
	}
	if !used1.IsZero() {
		if err := f.bank.TransferFrom(f.address, token1, sender, f.address, used1); err != nil {
			return nil, nil, err
		}
	}
	return used0, used1, nil
}

func (f *fakeRegistry) Mint(sender common.Address, p registry.MintParams) (registry.MintResult, error) {
	if f.failMint != nil {
		return registry.MintResult{}, f.failMint
	}
	used0, used1, err := f.take(sender, p.Token0, p.Token1, p.Amount0Desired, p.Amount1Desired)
	if err != nil {
		return registry.MintResult{}, err
	}
	f.nextID++
	id := f.nextID
	f.views[id] = &registry.PositionView{
		Token0:      p.Token0,
		Token1:      p.Token1,
		Fee:         p.Fee,
		TickLower:   p.TickLower,
		TickUpper:   p.TickUpper,
		Liquidity:   f.liquidity.Clone(),
		TokensOwed0: ui.NewInt(0),
		TokensOwed1: ui.NewInt(0),
	}
	f.owners[id] = p.Recipient
	if f.receiver != nil {
		if err := f.receiver.OnOwnershipTokenReceived(f.address, sender, cons.ZeroAddress, id); err != nil {
			delete(f.views, id)
			delete(f.owners, id)
			_ = f.bank.Transfer(f.address, p.Token0, sender, used0)
			_ = f.bank.Transfer(f.address, p.Token1, sender, used1)
			return registry.MintResult{}, err
		}
	}
	return registry.MintResult{TokenID: id, Liquidity: f.liquidity.Clone(), Amount0: used0, Amount1: used1}, nil
}

func (f *fakeRegistry) IncreaseLiquidity(sender common.Address, p registry.IncreaseParams) (registry.IncreaseResult, error) {
	if f.failIncrease != nil {
		return registry.IncreaseResult{}, f.failIncrease
	}
	view, ok := f.views[p.TokenID]
	if !ok {
		return registry.IncreaseResult{}, errors.Wrap(types.ErrRegistryRejected, "unknown token")
	}
	used0, used1, err := f.take(sender, view.Token0, view.Token1, p.Amount0Desired, p.Amount1Desired)
	if err != nil {
		return registry.IncreaseResult{}, err
	}
	view.Liquidity.Add(view.Liquidity, f.liquidity)
	return registry.IncreaseResult{Liquidity: f.liquidity.Clone(), Amount0: used0, Amount1: used1}, nil
}

func (f *fakeRegistry) DecreaseLiquidity(sender common.Address, p registry.DecreaseParams) (*ui.Int, *ui.Int, error) {
	if f.failDecrease != nil {
		return nil, nil, f.failDecrease
	}
	view, ok := f.views[p.TokenID]
	if !ok {
		return nil, nil, errors.Wrap(types.ErrRegistryRejected, "unknown token")
	}
	f.decreases = append(f.decreases, p.Liquidity.Clone())
	if view.Liquidity.Lt(p.Liquidity) {
		return nil, nil, errors.Wrap(types.ErrRegistryRejected, "not enough liquidity")
	}
	view.Liquidity.Sub(view.Liquidity, p.Liquidity)
	view.TokensOwed0.Add(view.TokensOwed0, f.decreaseOut0)
	view.TokensOwed1.Add(view.TokensOwed1, f.decreaseOut1)
	return f.decreaseOut0.Clone(), f.decreaseOut1.Clone(), nil
}

func (f *fakeRegistry) Collect(sender common.Address, p registry.CollectParams) (*ui.Int, *ui.Int, error) {
	view, ok := f.views[p.TokenID]
	if !ok {
		return nil, nil, errors.Wrap(types.ErrRegistryRejected, "unknown token")
	}
	if f.failCollect != nil {
		return nil, nil, f.failCollect
	}
	f.collects = append(f.collects, p)
	amount0 := fullmath.Min(p.Amount0Max, view.TokensOwed0)
	amount1 := fullmath.Min(p.Amount1Max, view.TokensOwed1)
	if err := f.bank.Transfer(f.address, view.Token0, p.Recipient, amount0); err != nil {
		return nil, nil, err
	}
	if err := f.bank.Transfer(f.address, view.Token1, p.Recipient, amount1); err != nil {
		return nil, nil, err
	}
	view.TokensOwed0.Sub(view.TokensOwed0, amount0)
	view.TokensOwed1.Sub(view.TokensOwed1, amount1)
	return amount0, amount1, nil
}

func (f *fakeRegistry) Positions(id uint64) (registry.PositionView, error) {
	view, ok := f.views[id]
	if !ok {
		return registry.PositionView{}, errors.Wrap(types.ErrRegistryRejected, "unknown token")
	}
	return *view, nil
}

func (f *fakeRegistry) SafeTransferFrom(sender, from, to common.Address, id uint64) error {
	if f.failTransfer != nil {
		return f.failTransfer
	}
	if f.owners[id] != from {
		return errors.Wrap(types.ErrRegistryRejected, "not the holder")
	}
	f.owners[id] = to
	return nil
}

// accrue credits fees to a position, funded by the registry.
func (f *fakeRegistry) accrue(id uint64, fee0, fee1 *ui.Int) {
	view := f.views[id]
	f.bank.Mint(view.Token0, f.address, fee0)
	f.bank.Mint(view.Token1, f.address, fee1)
	view.TokensOwed0.Add(view.TokensOwed0, fee0)
	view.TokensOwed1.Add(view.TokensOwed1, fee1)
}

type fakeExchange struct {
	address common.Address
	bank    *token.Bank
	// nil means consume everything offered
	consume *ui.Int
	out     *ui.Int
	fail    error
	last    exchange.ExactInputSingleParams
}

func (e *fakeExchange) Address() common.Address {
	return e.address
}

func (e *fakeExchange) ExactInputSingle(sender common.Address, p exchange.ExactInputSingleParams) (*ui.Int, error) {
	e.last = p
	if e.fail != nil {
		return nil, e.fail
	}
	used := p.AmountIn
	if e.consume != nil {
		used = fullmath.Min(e.consume, p.AmountIn)
	}
	if err := e.bank.TransferFrom(e.address, p.TokenIn, sender, e.address, used); err != nil {
		return nil, err
	}
	if err := e.bank.Transfer(e.address, p.TokenOut, p.Recipient, e.out); err != nil {
		return nil, err
	}
	return e.out.Clone(), nil
}

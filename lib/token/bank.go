package token

import (
	"cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	ui "github.com/holiman/uint256"

	cons "github.com/ftchann/uniswap-custodian/lib/constants"
	"github.com/ftchann/uniswap-custodian/lib/types"
)

type allowanceKey struct {
	asset   common.Address
	owner   common.Address
	spender common.Address
}

// Bank holds balances and allowances of every fungible asset, keyed by the
// asset address. An allowance of MaxUint256 is never decreased.
type Bank struct {
	balances   map[common.Address]map[common.Address]*ui.Int
	allowances map[allowanceKey]*ui.Int
}

func NewBank() *Bank {
	return &Bank{
		balances:   make(map[common.Address]map[common.Address]*ui.Int),
		allowances: make(map[allowanceKey]*ui.Int),
	}
}

// Mint credits new units of asset to an account.
func (b *Bank) Mint(asset, to common.Address, amount *ui.Int) {
	balance := b.balance(asset, to)
	balance.Add(balance, amount)
}

func (b *Bank) balance(asset, account common.Address) *ui.Int {
	accounts, ok := b.balances[asset]
	if !ok {
		accounts = make(map[common.Address]*ui.Int)
		b.balances[asset] = accounts
	}
	balance, ok := accounts[account]
	if !ok {
		balance = ui.NewInt(0)
		accounts[account] = balance
	}
	return balance
}

func (b *Bank) BalanceOf(asset, account common.Address) *ui.Int {
	if accounts, ok := b.balances[asset]; ok {
		if balance, ok := accounts[account]; ok {
			return balance.Clone()
		}
	}
	return ui.NewInt(0)
}

func (b *Bank) Allowance(asset, owner, spender common.Address) *ui.Int {
	if allowance, ok := b.allowances[allowanceKey{asset, owner, spender}]; ok {
		return allowance.Clone()
	}
	return ui.NewInt(0)
}

func (b *Bank) Approve(owner, asset, spender common.Address, amount *ui.Int) error {
	if spender == cons.ZeroAddress {
		return errors.Wrap(types.ErrInvalidRequest, "approve to the zero address")
	}
	b.allowances[allowanceKey{asset, owner, spender}] = amount.Clone()
	return nil
}

func (b *Bank) Transfer(sender, asset, to common.Address, amount *ui.Int) error {
	return b.move(asset, sender, to, amount)
}

// TransferFrom moves funds of from on behalf of spender, spending allowance.
func (b *Bank) TransferFrom(spender, asset, from, to common.Address, amount *ui.Int) error {
	key := allowanceKey{asset, from, spender}
	allowance, ok := b.allowances[key]
	if !ok || allowance.Lt(amount) {
		return errors.Wrapf(types.ErrInsufficientFunds, "allowance of %s for %s on %s is below %s", from.Hex(), spender.Hex(), asset.Hex(), amount.Dec())
	}
	if err := b.move(asset, from, to, amount); err != nil {
		return err
	}
	if !allowance.Eq(cons.MaxUint256) {
		allowance.Sub(allowance, amount)
	}
	return nil
}

func (b *Bank) move(asset, from, to common.Address, amount *ui.Int) error {
	if to == cons.ZeroAddress {
		return errors.Wrap(types.ErrInvalidRequest, "transfer to the zero address")
	}
	if amount.IsZero() {
		return nil
	}
	src := b.balance(asset, from)
	if src.Lt(amount) {
		return errors.Wrapf(types.ErrInsufficientFunds, "balance of %s on %s is %s, need %s", from.Hex(), asset.Hex(), src.Dec(), amount.Dec())
	}
	dst := b.balance(asset, to)
	src.Sub(src, amount)
	dst.Add(dst, amount)
	return nil
}

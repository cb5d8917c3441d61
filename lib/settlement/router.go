// Package settlement moves fungible balances between callers, the custodian
// and the registry.
package settlement

import (
	"cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	ui "github.com/holiman/uint256"

	"github.com/ftchann/uniswap-custodian/lib/types"
)

// Bank is the value-transfer collaborator.
type Bank interface {
	TransferFrom(spender, asset, from, to common.Address, amount *ui.Int) error
	Transfer(sender, asset, to common.Address, amount *ui.Int) error
	Approve(owner, asset, spender common.Address, amount *ui.Int) error
	BalanceOf(asset, account common.Address) *ui.Int
}

// Router acts for the custody account. Zero amounts never reach the bank.
type Router struct {
	bank    Bank
	custody common.Address
}

func NewRouter(bank Bank, custody common.Address) *Router {
	return &Router{bank: bank, custody: custody}
}

func (r *Router) Custody() common.Address {
	return r.custody
}

// Held is the custody balance of asset.
func (r *Router) Held(asset common.Address) *ui.Int {
	return r.bank.BalanceOf(asset, r.custody)
}

// PullIn moves amount of asset from an account into custody. The account must
// have approved the custodian.
func (r *Router) PullIn(asset, from common.Address, amount *ui.Int) error {
	if amount.IsZero() {
		return nil
	}
	if err := r.bank.TransferFrom(r.custody, asset, from, r.custody, amount); err != nil {
		return errors.Wrapf(err, "pull %s of %s from %s", amount.Dec(), asset.Hex(), from.Hex())
	}
	return nil
}

func (r *Router) PushOut(asset, to common.Address, amount *ui.Int) error {
	if amount.IsZero() {
		return nil
	}
	if held := r.Held(asset); held.Lt(amount) {
		return errors.Wrapf(types.ErrInsufficientFunds, "custody holds %s of %s, need %s", held.Dec(), asset.Hex(), amount.Dec())
	}
	if err := r.bank.Transfer(r.custody, asset, to, amount); err != nil {
		return errors.Wrapf(err, "push %s of %s to %s", amount.Dec(), asset.Hex(), to.Hex())
	}
	return nil
}

// RefundExcess returns requested-consumed to the account and reports the
// refunded amount.
func (r *Router) RefundExcess(asset, to common.Address, requested, consumed *ui.Int) (*ui.Int, error) {
	if consumed.Cmp(requested) >= 0 {
		return ui.NewInt(0), nil
	}
	refund := new(ui.Int).Sub(requested, consumed)
	if err := r.PushOut(asset, to, refund); err != nil {
		return nil, err
	}
	return refund, nil
}

func (r *Router) Approve(asset, spender common.Address, amount *ui.Int) error {
	return r.bank.Approve(r.custody, asset, spender, amount)
}

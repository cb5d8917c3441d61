// Package exchange is a single-hop swap router over the simulated pools.
package exchange

import (
	"log/slog"
	"time"

	"cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	ui "github.com/holiman/uint256"

	cons "github.com/ftchann/uniswap-custodian/lib/constants"
	"github.com/ftchann/uniswap-custodian/lib/invariant"
	"github.com/ftchann/uniswap-custodian/lib/pool"
	"github.com/ftchann/uniswap-custodian/lib/types"
)

type Bank interface {
	TransferFrom(spender, asset, from, to common.Address, amount *ui.Int) error
	Transfer(sender, asset, to common.Address, amount *ui.Int) error
}

// ExactInputSingleParams describes a swap of a fixed input amount through one
// pool. A zero SqrtPriceLimitX96 means no limit.
type ExactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               int
	Recipient         common.Address
	Deadline          time.Time
	AmountIn          *ui.Int
	AmountOutMinimum  *ui.Int
	SqrtPriceLimitX96 *ui.Int
}

type Exchange struct {
	address common.Address
	bank    Bank
	pools   *pool.Book
	now     func() time.Time
	logger  *slog.Logger
}

type Option func(*Exchange)

func WithClock(now func() time.Time) Option {
	return func(e *Exchange) { e.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Exchange) { e.logger = logger }
}

func New(address common.Address, bank Bank, pools *pool.Book, opts ...Option) *Exchange {
	e := &Exchange{
		address: address,
		bank:    bank,
		pools:   pools,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Exchange) Address() common.Address {
	return e.address
}

// ExactInputSingle pulls the consumed input from sender and pays the output
// to the recipient. The pool may consume less than AmountIn when the price
// limit is reached.
func (e *Exchange) ExactInputSingle(sender common.Address, p ExactInputSingleParams) (amountOut *ui.Int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			v, ok := rec.(invariant.Violation)
			if !ok {
				panic(rec)
			}
			amountOut, err = nil, errors.Wrap(types.ErrRegistryRejected, v.Error())
		}
	}()

	if now := e.now(); now.After(p.Deadline) {
		return nil, errors.Wrapf(types.ErrRegistryRejected, "transaction too old: deadline %s", p.Deadline.Format(time.RFC3339))
	}
	if p.Recipient == cons.ZeroAddress {
		return nil, errors.Wrap(types.ErrRegistryRejected, "swap to the zero address")
	}
	if p.AmountIn == nil || p.AmountIn.IsZero() {
		return nil, errors.Wrap(types.ErrRegistryRejected, "zero input amount")
	}
	if p.TokenIn == p.TokenOut {
		return nil, errors.Wrap(types.ErrRegistryRejected, "identical tokens")
	}
	token0, token1 := pool.SortTokens(p.TokenIn, p.TokenOut)
	key := pool.Key{Token0: token0, Token1: token1, Fee: p.Fee}
	current, ok := e.pools.Get(key)
	if !ok {
		return nil, errors.Wrapf(types.ErrRegistryRejected, "pool %s not found", key)
	}

	limit := p.SqrtPriceLimitX96
	if limit == nil {
		limit = ui.NewInt(0)
	}
	next := current.Clone()
	consumed, amountOut := next.ExactInputSwap(p.AmountIn, p.TokenIn, limit)
	if p.AmountOutMinimum != nil && amountOut.Lt(p.AmountOutMinimum) {
		return nil, errors.Wrapf(types.ErrRegistryRejected, "too little received: %s < %s", amountOut.Dec(), p.AmountOutMinimum.Dec())
	}

	reserve := key.Address()
	if err := e.bank.TransferFrom(e.address, p.TokenIn, sender, reserve, consumed); err != nil {
		return nil, err
	}
	if err := e.bank.Transfer(reserve, p.TokenOut, p.Recipient, amountOut); err != nil {
		_ = e.bank.Transfer(reserve, p.TokenIn, sender, consumed)
		return nil, err
	}
	e.pools.Put(next)

	e.logger.Debug("swap", "pool", key.String(), "tokenIn", p.TokenIn.Hex(),
		"amountIn", consumed.Dec(), "amountOut", amountOut.Dec(), "recipient", p.Recipient.Hex())
	return amountOut, nil
}

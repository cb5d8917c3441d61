// Package registry simulates a non-fungible position manager: it opens
// concentrated-liquidity positions in pools from lib/pool and issues an
// ownership token per position.
package registry

import (
	"log/slog"
	"time"

	"cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	ui "github.com/holiman/uint256"

	cons "github.com/ftchann/uniswap-custodian/lib/constants"
	"github.com/ftchann/uniswap-custodian/lib/invariant"
	"github.com/ftchann/uniswap-custodian/lib/liquidity_amounts"
	"github.com/ftchann/uniswap-custodian/lib/pool"
	"github.com/ftchann/uniswap-custodian/lib/position"
	"github.com/ftchann/uniswap-custodian/lib/tickmath"
	"github.com/ftchann/uniswap-custodian/lib/types"
)

// Bank is the value-transfer collaborator the registry settles through.
type Bank interface {
	TransferFrom(spender, asset, from, to common.Address, amount *ui.Int) error
	Transfer(sender, asset, to common.Address, amount *ui.Int) error
}

// Receiver is implemented by accounts that must acknowledge ownership tokens
// sent to them. An error aborts the transfer that delivered the token.
type Receiver interface {
	OnOwnershipTokenReceived(sender, operator, from common.Address, id uint64) error
}

type MintParams struct {
	Token0         common.Address
	Token1         common.Address
	Fee            int
	TickLower      int
	TickUpper      int
	Amount0Desired *ui.Int
	Amount1Desired *ui.Int
	Amount0Min     *ui.Int
	Amount1Min     *ui.Int
	Recipient      common.Address
	Deadline       time.Time
}

type MintResult struct {
	TokenID   uint64
	Liquidity *ui.Int
	Amount0   *ui.Int
	Amount1   *ui.Int
}

type IncreaseParams struct {
	TokenID        uint64
	Amount0Desired *ui.Int
	Amount1Desired *ui.Int
	Amount0Min     *ui.Int
	Amount1Min     *ui.Int
	Deadline       time.Time
}

// IncreaseResult reports the liquidity added by the call, not the new total.
type IncreaseResult struct {
	Liquidity *ui.Int
	Amount0   *ui.Int
	Amount1   *ui.Int
}

type DecreaseParams struct {
	TokenID    uint64
	Liquidity  *ui.Int
	Amount0Min *ui.Int
	Amount1Min *ui.Int
	Deadline   time.Time
}

type CollectParams struct {
	TokenID    uint64
	Recipient  common.Address
	Amount0Max *ui.Int
	Amount1Max *ui.Int
}

// PositionView is the public state of one ownership token's position.
type PositionView struct {
	Token0      common.Address
	Token1      common.Address
	Fee         int
	TickLower   int
	TickUpper   int
	Liquidity   *ui.Int
	TokensOwed0 *ui.Int
	TokensOwed1 *ui.Int
}

type tokenPosition struct {
	key       pool.Key
	tickLower int
	tickUpper int
}

type Registry struct {
	address common.Address
	bank    Bank
	pools   *pool.Book
	now     func() time.Time
	logger  *slog.Logger

	nextID    uint64
	positions map[uint64]tokenPosition
	owners    map[uint64]common.Address
	approvals map[uint64]common.Address
	receivers map[common.Address]Receiver
}

type Option func(*Registry)

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

func New(address common.Address, bank Bank, pools *pool.Book, opts ...Option) *Registry {
	r := &Registry{
		address:   address,
		bank:      bank,
		pools:     pools,
		now:       time.Now,
		logger:    slog.Default(),
		positions: make(map[uint64]tokenPosition),
		owners:    make(map[uint64]common.Address),
		approvals: make(map[uint64]common.Address),
		receivers: make(map[common.Address]Receiver),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) Address() common.Address {
	return r.address
}

func (r *Registry) Pools() *pool.Book {
	return r.pools
}

// CreatePool opens a pool at the given price. Tokens must be sorted.
func (r *Registry) CreatePool(token0, token1 common.Address, fee int, sqrtPriceX96 *ui.Int) (err error) {
	defer guard(&err)
	if token0.Cmp(token1) >= 0 {
		return errors.Wrapf(types.ErrRegistryRejected, "tokens %s and %s are not sorted", token0.Hex(), token1.Hex())
	}
	if !r.pools.Add(pool.NewPool(token0, token1, fee, sqrtPriceX96)) {
		return errors.Wrapf(types.ErrRegistryRejected, "pool %s exists", pool.Key{Token0: token0, Token1: token1, Fee: fee})
	}
	r.logger.Debug("pool created", "token0", token0.Hex(), "token1", token1.Hex(), "fee", fee)
	return nil
}

// RegisterReceiver makes account acknowledge ownership tokens through recv.
func (r *Registry) RegisterReceiver(account common.Address, recv Receiver) {
	r.receivers[account] = recv
}

// positionOwner is the pool-level owner of one token's liquidity, so fees are
// accounted per token.
func (r *Registry) positionOwner(id uint64) common.Address {
	return common.BytesToAddress(crypto.Keccak256(r.address.Bytes(), ui.NewInt(id).Bytes()))
}

func (r *Registry) Mint(sender common.Address, p MintParams) (res MintResult, err error) {
	defer guard(&err)
	if err := r.checkDeadline(p.Deadline); err != nil {
		return MintResult{}, err
	}
	if p.Recipient == cons.ZeroAddress {
		return MintResult{}, errors.Wrap(types.ErrRegistryRejected, "mint to the zero address")
	}
	if p.Token0.Cmp(p.Token1) >= 0 {
		return MintResult{}, errors.Wrapf(types.ErrRegistryRejected, "tokens %s and %s are not sorted", p.Token0.Hex(), p.Token1.Hex())
	}
	key := pool.Key{Token0: p.Token0, Token1: p.Token1, Fee: p.Fee}
	current, ok := r.pools.Get(key)
	if !ok {
		return MintResult{}, errors.Wrapf(types.ErrRegistryRejected, "pool %s not found", key)
	}

	id := r.nextID + 1
	next := current.Clone()
	liquidity, amount0, amount1, err := r.addLiquidity(next, r.positionOwner(id), p.TickLower, p.TickUpper,
		p.Amount0Desired, p.Amount1Desired, p.Amount0Min, p.Amount1Min)
	if err != nil {
		return MintResult{}, err
	}
	if err := r.pay(sender, key, amount0, amount1); err != nil {
		return MintResult{}, err
	}

	r.pools.Put(next)
	r.nextID = id
	r.positions[id] = tokenPosition{key, p.TickLower, p.TickUpper}
	r.owners[id] = p.Recipient

	if err := r.notify(sender, cons.ZeroAddress, p.Recipient, id); err != nil {
		r.pools.Put(current)
		r.nextID = id - 1
		delete(r.positions, id)
		delete(r.owners, id)
		r.refund(sender, key, amount0, amount1)
		return MintResult{}, err
	}

	r.logger.Debug("position minted", "id", id, "recipient", p.Recipient.Hex(),
		"liquidity", liquidity.Dec(), "amount0", amount0.Dec(), "amount1", amount1.Dec())
	return MintResult{TokenID: id, Liquidity: liquidity, Amount0: amount0, Amount1: amount1}, nil
}

// IncreaseLiquidity adds to an existing position. Anyone may pay in.
func (r *Registry) IncreaseLiquidity(sender common.Address, p IncreaseParams) (res IncreaseResult, err error) {
	defer guard(&err)
	if err := r.checkDeadline(p.Deadline); err != nil {
		return IncreaseResult{}, err
	}
	tp, err := r.position(p.TokenID)
	if err != nil {
		return IncreaseResult{}, err
	}
	current, _ := r.pools.Get(tp.key)
	next := current.Clone()
	liquidity, amount0, amount1, err := r.addLiquidity(next, r.positionOwner(p.TokenID), tp.tickLower, tp.tickUpper,
		p.Amount0Desired, p.Amount1Desired, p.Amount0Min, p.Amount1Min)
	if err != nil {
		return IncreaseResult{}, err
	}
	if err := r.pay(sender, tp.key, amount0, amount1); err != nil {
		return IncreaseResult{}, err
	}
	r.pools.Put(next)

	r.logger.Debug("liquidity increased", "id", p.TokenID, "liquidity", liquidity.Dec(),
		"amount0", amount0.Dec(), "amount1", amount1.Dec())
	return IncreaseResult{Liquidity: liquidity, Amount0: amount0, Amount1: amount1}, nil
}

// DecreaseLiquidity burns liquidity and credits the amounts to tokens owed;
// they leave the registry through Collect.
func (r *Registry) DecreaseLiquidity(sender common.Address, p DecreaseParams) (amount0, amount1 *ui.Int, err error) {
	defer guard(&err)
	if err := r.checkDeadline(p.Deadline); err != nil {
		return nil, nil, err
	}
	tp, err := r.authorized(sender, p.TokenID)
	if err != nil {
		return nil, nil, err
	}
	if p.Liquidity == nil || p.Liquidity.IsZero() {
		return nil, nil, errors.Wrap(types.ErrRegistryRejected, "zero liquidity")
	}
	current, _ := r.pools.Get(tp.key)
	owner := r.positionOwner(p.TokenID)
	if pos, _ := current.Position(r.ownerKey(owner, tp)); pos == nil || pos.Liquidity.Lt(p.Liquidity) {
		return nil, nil, errors.Wrapf(types.ErrRegistryRejected, "position %d holds less than %s liquidity", p.TokenID, p.Liquidity.Dec())
	}

	next := current.Clone()
	amount0, amount1 = next.Burn(owner, tp.tickLower, tp.tickUpper, p.Liquidity)
	if amount0.Lt(orZero(p.Amount0Min)) || amount1.Lt(orZero(p.Amount1Min)) {
		return nil, nil, errors.Wrap(types.ErrRegistryRejected, "price slippage check")
	}
	r.pools.Put(next)

	r.logger.Debug("liquidity decreased", "id", p.TokenID, "liquidity", p.Liquidity.Dec(),
		"amount0", amount0.Dec(), "amount1", amount1.Dec())
	return amount0, amount1, nil
}

// Collect pays tokens owed, including fees accrued up to now, to the recipient.
func (r *Registry) Collect(sender common.Address, p CollectParams) (amount0, amount1 *ui.Int, err error) {
	defer guard(&err)
	tp, err := r.authorized(sender, p.TokenID)
	if err != nil {
		return nil, nil, err
	}
	if p.Recipient == cons.ZeroAddress {
		return nil, nil, errors.Wrap(types.ErrRegistryRejected, "collect to the zero address")
	}
	if orZero(p.Amount0Max).IsZero() && orZero(p.Amount1Max).IsZero() {
		return nil, nil, errors.Wrap(types.ErrRegistryRejected, "nothing to collect")
	}

	current, _ := r.pools.Get(tp.key)
	owner := r.positionOwner(p.TokenID)
	next := current.Clone()
	next.Poke(owner, tp.tickLower, tp.tickUpper)
	amount0, amount1 = next.Collect(owner, tp.tickLower, tp.tickUpper, orZero(p.Amount0Max), orZero(p.Amount1Max))

	if err := r.payOut(tp.key, p.Recipient, amount0, amount1); err != nil {
		return nil, nil, err
	}
	r.pools.Put(next)

	r.logger.Debug("fees collected", "id", p.TokenID, "recipient", p.Recipient.Hex(),
		"amount0", amount0.Dec(), "amount1", amount1.Dec())
	return amount0, amount1, nil
}

func (r *Registry) Positions(id uint64) (PositionView, error) {
	tp, err := r.position(id)
	if err != nil {
		return PositionView{}, err
	}
	p, _ := r.pools.Get(tp.key)
	view := PositionView{
		Token0:      tp.key.Token0,
		Token1:      tp.key.Token1,
		Fee:         tp.key.Fee,
		TickLower:   tp.tickLower,
		TickUpper:   tp.tickUpper,
		Liquidity:   ui.NewInt(0),
		TokensOwed0: ui.NewInt(0),
		TokensOwed1: ui.NewInt(0),
	}
	if pos, ok := p.Position(r.ownerKey(r.positionOwner(id), tp)); ok {
		view.Liquidity = pos.Liquidity.Clone()
		view.TokensOwed0 = pos.TokensOwed0.Clone()
		view.TokensOwed1 = pos.TokensOwed1.Clone()
	}
	return view, nil
}

func (r *Registry) OwnerOf(id uint64) (common.Address, error) {
	owner, ok := r.owners[id]
	if !ok {
		return common.Address{}, errors.Wrapf(types.ErrRegistryRejected, "token %d does not exist", id)
	}
	return owner, nil
}

func (r *Registry) Approve(sender, to common.Address, id uint64) error {
	owner, err := r.OwnerOf(id)
	if err != nil {
		return err
	}
	if sender != owner {
		return errors.Wrapf(types.ErrRegistryRejected, "%s may not approve token %d", sender.Hex(), id)
	}
	r.approvals[id] = to
	return nil
}

// SafeTransferFrom moves an ownership token. If the new holder is a
// registered receiver it must acknowledge, otherwise the transfer is undone.
func (r *Registry) SafeTransferFrom(sender, from, to common.Address, id uint64) error {
	owner, err := r.OwnerOf(id)
	if err != nil {
		return err
	}
	if owner != from {
		return errors.Wrapf(types.ErrRegistryRejected, "token %d is not held by %s", id, from.Hex())
	}
	if _, err := r.authorized(sender, id); err != nil {
		return err
	}
	if to == cons.ZeroAddress {
		return errors.Wrap(types.ErrRegistryRejected, "transfer to the zero address")
	}

	approval, hadApproval := r.approvals[id]
	r.owners[id] = to
	delete(r.approvals, id)
	if err := r.notify(sender, from, to, id); err != nil {
		r.owners[id] = from
		if hadApproval {
			r.approvals[id] = approval
		}
		return err
	}
	r.logger.Debug("token transferred", "id", id, "from", from.Hex(), "to", to.Hex())
	return nil
}

func (r *Registry) position(id uint64) (tokenPosition, error) {
	tp, ok := r.positions[id]
	if !ok {
		return tokenPosition{}, errors.Wrapf(types.ErrRegistryRejected, "token %d does not exist", id)
	}
	return tp, nil
}

func (r *Registry) authorized(sender common.Address, id uint64) (tokenPosition, error) {
	tp, err := r.position(id)
	if err != nil {
		return tokenPosition{}, err
	}
	owner := r.owners[id]
	if sender != owner && r.approvals[id] != sender {
		return tokenPosition{}, errors.Wrapf(types.ErrRegistryRejected, "%s is not approved for token %d", sender.Hex(), id)
	}
	return tp, nil
}

func (r *Registry) notify(operator, from, to common.Address, id uint64) error {
	recv, ok := r.receivers[to]
	if !ok {
		return nil
	}
	return recv.OnOwnershipTokenReceived(r.address, operator, from, id)
}

func (r *Registry) checkDeadline(deadline time.Time) error {
	if now := r.now(); now.After(deadline) {
		return errors.Wrapf(types.ErrRegistryRejected, "transaction too old: deadline %s, now %s", deadline.Format(time.RFC3339), now.Format(time.RFC3339))
	}
	return nil
}

func (r *Registry) addLiquidity(p *pool.Pool, owner common.Address, tickLower, tickUpper int, amount0Desired, amount1Desired, amount0Min, amount1Min *ui.Int) (liquidity, amount0, amount1 *ui.Int, err error) {
	liquidity = liquidity_amounts.GetLiquidityForAmounts(p.SqrtRatioX96,
		tickmath.GetSqrtRatioAtTick(tickLower), tickmath.GetSqrtRatioAtTick(tickUpper),
		orZero(amount0Desired), orZero(amount1Desired))
	if liquidity.IsZero() {
		return nil, nil, nil, errors.Wrap(types.ErrRegistryRejected, "zero liquidity")
	}
	if liquidity.Gt(cons.MaxUint128) {
		return nil, nil, nil, errors.Wrapf(types.ErrRegistryRejected, "liquidity %s does not fit in 128 bits", liquidity.Dec())
	}
	amount0, amount1 = p.Mint(owner, tickLower, tickUpper, liquidity)
	if amount0.Lt(orZero(amount0Min)) || amount1.Lt(orZero(amount1Min)) {
		return nil, nil, nil, errors.Wrap(types.ErrRegistryRejected, "price slippage check")
	}
	return liquidity, amount0, amount1, nil
}

// pay pulls both amounts from the payer into the pool reserve, or neither.
func (r *Registry) pay(payer common.Address, key pool.Key, amount0, amount1 *ui.Int) error {
	reserve := key.Address()
	if !amount0.IsZero() {
		if err := r.bank.TransferFrom(r.address, key.Token0, payer, reserve, amount0); err != nil {
			return err
		}
	}
	if !amount1.IsZero() {
		if err := r.bank.TransferFrom(r.address, key.Token1, payer, reserve, amount1); err != nil {
			r.refund(payer, key, amount0, ui.NewInt(0))
			return err
		}
	}
	return nil
}

// payOut sends both amounts from the pool reserve, or neither.
func (r *Registry) payOut(key pool.Key, recipient common.Address, amount0, amount1 *ui.Int) error {
	reserve := key.Address()
	if err := r.bank.Transfer(reserve, key.Token0, recipient, amount0); err != nil {
		return err
	}
	if err := r.bank.Transfer(reserve, key.Token1, recipient, amount1); err != nil {
		// the reserve just paid amount0 to the recipient, so it can be taken back
		_ = r.bank.Transfer(recipient, key.Token0, reserve, amount0)
		return err
	}
	return nil
}

func (r *Registry) refund(payer common.Address, key pool.Key, amount0, amount1 *ui.Int) {
	reserve := key.Address()
	_ = r.bank.Transfer(reserve, key.Token0, payer, amount0)
	_ = r.bank.Transfer(reserve, key.Token1, payer, amount1)
}

func (r *Registry) ownerKey(owner common.Address, tp tokenPosition) position.Key {
	return position.Key{Owner: owner, TickLower: tp.tickLower, TickUpper: tp.tickUpper}
}

func orZero(v *ui.Int) *ui.Int {
	if v == nil {
		return ui.NewInt(0)
	}
	return v
}

// guard turns an invariant violation from the pool math into a rejection.
func guard(err *error) {
	if rec := recover(); rec != nil {
		v, ok := rec.(invariant.Violation)
		if !ok {
			panic(rec)
		}
		*err = errors.Wrap(types.ErrRegistryRejected, v.Error())
	}
}

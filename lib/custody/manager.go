// Package custody holds concentrated-liquidity positions on behalf of their
// owners. Positions are created, topped up, drained and handed back through
// the Manager; the Gate decides who owns what.
package custody

import (
	"time"

	"cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	ui "github.com/holiman/uint256"

	cons "github.com/ftchann/uniswap-custodian/lib/constants"
	"github.com/ftchann/uniswap-custodian/lib/exchange"
	"github.com/ftchann/uniswap-custodian/lib/ledger"
	"github.com/ftchann/uniswap-custodian/lib/registry"
	"github.com/ftchann/uniswap-custodian/lib/settlement"
	"github.com/ftchann/uniswap-custodian/lib/types"
)

// Params are fixed for the lifetime of a Manager.
type Params struct {
	FeeTier   int
	TickLower int
	TickUpper int
	// ResyncOnDecrease refreshes the recorded liquidity from the registry
	// after DecreaseLiquidityInHalf. Off, the record keeps the value of the
	// last create or increase.
	ResyncOnDecrease bool
}

type CreateRequest struct {
	AssetA  common.Address
	AssetB  common.Address
	AmountA *ui.Int
	AmountB *ui.Int
	MinA    *ui.Int
	MinB    *ui.Int
}

// CreateResult amounts follow the asset order of the request.
type CreateResult struct {
	ID        uint64
	Liquidity *ui.Int
	AmountA   *ui.Int
	AmountB   *ui.Int
	RefundA   *ui.Int
	RefundB   *ui.Int
}

// IncreaseResult amounts follow the asset order of the record.
type IncreaseResult struct {
	Liquidity *ui.Int
	AmountA   *ui.Int
	AmountB   *ui.Int
	RefundA   *ui.Int
	RefundB   *ui.Int
}

type SwapRequest struct {
	AssetIn           common.Address
	AssetOut          common.Address
	AmountIn          *ui.Int
	AmountOutMinimum  *ui.Int
	SqrtPriceLimitX96 *ui.Int
}

type Manager struct {
	gate     *Gate
	ledger   *ledger.Store
	router   *settlement.Router
	registry PositionRegistry
	exchange Exchange
	params   Params
	now      func() time.Time
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager wires a manager and its gate. The gate must be registered as
// the receiver for the router's custody account.
func NewManager(store *ledger.Store, router *settlement.Router, reg PositionRegistry, ex Exchange, params Params, opts ...Option) *Manager {
	m := &Manager{
		gate:     NewGate(reg, store),
		ledger:   store,
		router:   router,
		registry: reg,
		exchange: ex,
		params:   params,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Gate() *Gate {
	return m.gate
}

func (m *Manager) Params() Params {
	return m.params
}

// Deposit returns the record of id.
func (m *Manager) Deposit(id uint64) (ledger.Record, error) {
	return m.ledger.Read(id)
}

// Create opens a position in the configured range with the caller's funds.
// The caller becomes the owner and gets back whatever the registry did not
// consume.
func (m *Manager) Create(caller common.Address, req CreateRequest) (CreateResult, error) {
	amountA, amountB := orZero(req.AmountA), orZero(req.AmountB)
	if req.AssetA == req.AssetB {
		return CreateResult{}, errors.Wrap(types.ErrInvalidRequest, "assets must differ")
	}
	if amountA.IsZero() && amountB.IsZero() {
		return CreateResult{}, errors.Wrap(types.ErrInvalidRequest, "nothing to deposit")
	}

	spender := m.registry.Address()
	if err := m.fund(caller, spender, req.AssetA, amountA, req.AssetB, amountB); err != nil {
		return CreateResult{}, err
	}

	token0, token1 := orient(req.AssetA, req.AssetB, req.AssetA, req.AssetB)
	desired0, desired1 := orient(req.AssetA, req.AssetB, amountA, amountB)
	min0, min1 := orient(req.AssetA, req.AssetB, orZero(req.MinA), orZero(req.MinB))

	defer m.gate.expect(caller, req.AssetA, req.AssetB)()
	res, err := m.registry.Mint(m.router.Custody(), registry.MintParams{
		Token0:         token0,
		Token1:         token1,
		Fee:            m.params.FeeTier,
		TickLower:      m.params.TickLower,
		TickUpper:      m.params.TickUpper,
		Amount0Desired: desired0,
		Amount1Desired: desired1,
		Amount0Min:     min0,
		Amount1Min:     min1,
		Recipient:      m.router.Custody(),
		Deadline:       m.now(),
	})
	if err != nil {
		return CreateResult{}, m.unwind(caller, spender, req.AssetA, amountA, req.AssetB, amountB, errors.Wrap(err, "mint position"))
	}

	usedA, usedB := orient(req.AssetA, req.AssetB, res.Amount0, res.Amount1)
	refundA, refundB, err := m.settle(caller, spender, req.AssetA, amountA, usedA, req.AssetB, amountB, usedB)
	if err != nil {
		return CreateResult{}, err
	}
	return CreateResult{
		ID:        res.TokenID,
		Liquidity: res.Liquidity,
		AmountA:   usedA,
		AmountB:   usedB,
		RefundA:   refundA,
		RefundB:   refundB,
	}, nil
}

// IncreaseLiquidity adds the caller's funds to a recorded position. Anyone
// may pay in; the position stays with its owner.
func (m *Manager) IncreaseLiquidity(caller common.Address, id uint64, amountA, amountB, minA, minB *ui.Int) (IncreaseResult, error) {
	rec, err := m.ledger.Read(id)
	if err != nil {
		return IncreaseResult{}, err
	}
	amountA, amountB = orZero(amountA), orZero(amountB)
	if amountA.IsZero() && amountB.IsZero() {
		return IncreaseResult{}, errors.Wrap(types.ErrInvalidRequest, "nothing to deposit")
	}

	spender := m.registry.Address()
	if err := m.fund(caller, spender, rec.AssetA, amountA, rec.AssetB, amountB); err != nil {
		return IncreaseResult{}, err
	}
	desired0, desired1 := orient(rec.AssetA, rec.AssetB, amountA, amountB)
	min0, min1 := orient(rec.AssetA, rec.AssetB, orZero(minA), orZero(minB))
	res, err := m.registry.IncreaseLiquidity(m.router.Custody(), registry.IncreaseParams{
		TokenID:        id,
		Amount0Desired: desired0,
		Amount1Desired: desired1,
		Amount0Min:     min0,
		Amount1Min:     min1,
		Deadline:       m.now(),
	})
	if err != nil {
		return IncreaseResult{}, m.unwind(caller, spender, rec.AssetA, amountA, rec.AssetB, amountB, errors.Wrapf(err, "increase position %d", id))
	}
	if err := m.ledger.UpdateLiquidity(id, new(ui.Int).Add(rec.Liquidity, res.Liquidity)); err != nil {
		return IncreaseResult{}, err
	}

	usedA, usedB := orient(rec.AssetA, rec.AssetB, res.Amount0, res.Amount1)
	refundA, refundB, err := m.settle(caller, spender, rec.AssetA, amountA, usedA, rec.AssetB, amountB, usedB)
	if err != nil {
		return IncreaseResult{}, err
	}
	return IncreaseResult{
		Liquidity: res.Liquidity,
		AmountA:   usedA,
		AmountB:   usedB,
		RefundA:   refundA,
		RefundB:   refundB,
	}, nil
}

// DecreaseLiquidityInHalf withdraws half of the recorded liquidity and pays
// the proceeds to the owner.
func (m *Manager) DecreaseLiquidityInHalf(caller common.Address, id uint64) (amountA, amountB *ui.Int, err error) {
	rec, err := m.gate.Authorize(caller, id)
	if err != nil {
		return nil, nil, err
	}
	half := new(ui.Int).Rsh(rec.Liquidity, 1)
	if half.IsZero() {
		return nil, nil, errors.Wrapf(types.ErrInvalidRequest, "position %d has no liquidity to halve", id)
	}

	custody := m.router.Custody()
	amount0, amount1, err := m.registry.DecreaseLiquidity(custody, registry.DecreaseParams{
		TokenID:    id,
		Liquidity:  half,
		Amount0Min: ui.NewInt(0),
		Amount1Min: ui.NewInt(0),
		Deadline:   m.now(),
	})
	if err != nil {
		return nil, nil, errors.Wrapf(err, "decrease position %d", id)
	}
	// only the withdrawn amounts; accrued fees stay owed for CollectAllFees
	if !amount0.IsZero() || !amount1.IsZero() {
		if _, _, err := m.registry.Collect(custody, registry.CollectParams{
			TokenID:    id,
			Recipient:  custody,
			Amount0Max: amount0,
			Amount1Max: amount1,
		}); err != nil {
			return nil, nil, errors.Wrapf(err, "collect decrease of position %d", id)
		}
	}

	if m.params.ResyncOnDecrease {
		view, err := m.registry.Positions(id)
		if err != nil {
			return nil, nil, err
		}
		if err := m.ledger.UpdateLiquidity(id, view.Liquidity); err != nil {
			return nil, nil, err
		}
	}

	amountA, amountB = orient(rec.AssetA, rec.AssetB, amount0, amount1)
	if err := m.pay(rec, amountA, amountB); err != nil {
		return nil, nil, err
	}
	return amountA, amountB, nil
}

// CollectAllFees sweeps everything the registry owes the position to its
// owner. Any caller may trigger it.
func (m *Manager) CollectAllFees(caller common.Address, id uint64) (amountA, amountB *ui.Int, err error) {
	rec, err := m.ledger.Read(id)
	if err != nil {
		return nil, nil, err
	}
	custody := m.router.Custody()
	amount0, amount1, err := m.registry.Collect(custody, registry.CollectParams{
		TokenID:    id,
		Recipient:  custody,
		Amount0Max: cons.MaxUint128,
		Amount1Max: cons.MaxUint128,
	})
	if err != nil {
		return nil, nil, errors.Wrapf(err, "collect position %d", id)
	}
	amountA, amountB = orient(rec.AssetA, rec.AssetB, amount0, amount1)
	if err := m.pay(rec, amountA, amountB); err != nil {
		return nil, nil, err
	}
	return amountA, amountB, nil
}

// Retrieve hands the ownership token back to its owner and forgets the
// position.
func (m *Manager) Retrieve(caller common.Address, id uint64) error {
	rec, err := m.gate.Authorize(caller, id)
	if err != nil {
		return err
	}
	if err := m.ledger.Erase(id); err != nil {
		return err
	}
	custody := m.router.Custody()
	if err := m.registry.SafeTransferFrom(custody, custody, rec.Owner, id); err != nil {
		if restoreErr := m.ledger.Create(id, rec.Owner, rec.AssetA, rec.AssetB, rec.Liquidity); restoreErr != nil {
			return errors.Wrapf(restoreErr, "restore position %d after %v", id, err)
		}
		return errors.Wrapf(err, "return position %d", id)
	}
	return nil
}

// SwapExactInputSingle swaps the caller's funds through the configured fee
// tier. Output goes straight to the caller, as does any input the pool did
// not take.
func (m *Manager) SwapExactInputSingle(caller common.Address, req SwapRequest) (*ui.Int, error) {
	amountIn := orZero(req.AmountIn)
	if amountIn.IsZero() {
		return nil, errors.Wrap(types.ErrInvalidRequest, "nothing to swap")
	}
	if req.AssetIn == req.AssetOut {
		return nil, errors.Wrap(types.ErrInvalidRequest, "assets must differ")
	}

	spender := m.exchange.Address()
	held := m.router.Held(req.AssetIn)
	if err := m.router.PullIn(req.AssetIn, caller, amountIn); err != nil {
		return nil, err
	}
	if err := m.router.Approve(req.AssetIn, spender, amountIn); err != nil {
		return nil, m.unwind(caller, spender, req.AssetIn, amountIn, common.Address{}, nil, err)
	}

	limit := req.SqrtPriceLimitX96
	if limit == nil {
		limit = ui.NewInt(0)
	}
	out, err := m.exchange.ExactInputSingle(m.router.Custody(), exchange.ExactInputSingleParams{
		TokenIn:           req.AssetIn,
		TokenOut:          req.AssetOut,
		Fee:               m.params.FeeTier,
		Recipient:         caller,
		Deadline:          m.now(),
		AmountIn:          amountIn,
		AmountOutMinimum:  orZero(req.AmountOutMinimum),
		SqrtPriceLimitX96: limit,
	})
	if err != nil {
		return nil, m.unwind(caller, spender, req.AssetIn, amountIn, common.Address{}, nil, errors.Wrap(err, "swap"))
	}
	if err := m.router.Approve(req.AssetIn, spender, ui.NewInt(0)); err != nil {
		return nil, err
	}

	remaining := m.router.Held(req.AssetIn)
	if remaining.Gt(held) {
		consumed := new(ui.Int).Sub(amountIn, new(ui.Int).Sub(remaining, held))
		if _, err := m.router.RefundExcess(req.AssetIn, caller, amountIn, consumed); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// fund pulls both amounts from caller and approves spender for them. On
// failure nothing stays in custody.
func (m *Manager) fund(caller, spender, assetA common.Address, amountA *ui.Int, assetB common.Address, amountB *ui.Int) error {
	if err := m.router.PullIn(assetA, caller, amountA); err != nil {
		return err
	}
	if err := m.router.PullIn(assetB, caller, amountB); err != nil {
		return m.unwind(caller, spender, assetA, amountA, common.Address{}, nil, err)
	}
	if err := m.router.Approve(assetA, spender, amountA); err != nil {
		return m.unwind(caller, spender, assetA, amountA, assetB, amountB, err)
	}
	if err := m.router.Approve(assetB, spender, amountB); err != nil {
		return m.unwind(caller, spender, assetA, amountA, assetB, amountB, err)
	}
	return nil
}

// unwind resets the approvals and returns pulled funds to caller, then
// reports cause. A nil amount marks an asset that was never pulled.
func (m *Manager) unwind(caller, spender, assetA common.Address, amountA *ui.Int, assetB common.Address, amountB *ui.Int, cause error) error {
	for _, leg := range []struct {
		asset  common.Address
		amount *ui.Int
	}{{assetA, amountA}, {assetB, amountB}} {
		if leg.amount == nil {
			continue
		}
		if err := m.router.Approve(leg.asset, spender, ui.NewInt(0)); err != nil {
			return errors.Wrapf(err, "unwind after %v", cause)
		}
		if err := m.router.PushOut(leg.asset, caller, leg.amount); err != nil {
			return errors.Wrapf(err, "unwind after %v", cause)
		}
	}
	return cause
}

// settle resets the approvals and refunds what the registry did not consume.
func (m *Manager) settle(caller, spender, assetA common.Address, requestedA, consumedA *ui.Int, assetB common.Address, requestedB, consumedB *ui.Int) (refundA, refundB *ui.Int, err error) {
	if err := m.router.Approve(assetA, spender, ui.NewInt(0)); err != nil {
		return nil, nil, err
	}
	if err := m.router.Approve(assetB, spender, ui.NewInt(0)); err != nil {
		return nil, nil, err
	}
	if refundA, err = m.router.RefundExcess(assetA, caller, requestedA, consumedA); err != nil {
		return nil, nil, err
	}
	if refundB, err = m.router.RefundExcess(assetB, caller, requestedB, consumedB); err != nil {
		return nil, nil, err
	}
	return refundA, refundB, nil
}

// pay sends withdrawn amounts to the recorded owner.
func (m *Manager) pay(rec ledger.Record, amountA, amountB *ui.Int) error {
	if err := m.router.PushOut(rec.AssetA, rec.Owner, amountA); err != nil {
		return err
	}
	return m.router.PushOut(rec.AssetB, rec.Owner, amountB)
}

func orZero(v *ui.Int) *ui.Int {
	if v == nil {
		return ui.NewInt(0)
	}
	return v
}

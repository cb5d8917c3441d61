// Package executor replays a scenario against a custodian wired to the pool
// simulators and reports the outcome.
package executor

import (
	"fmt"
	"log/slog"

	"cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	ui "github.com/holiman/uint256"

	"github.com/ftchann/uniswap-custodian/lib/config"
	"github.com/ftchann/uniswap-custodian/lib/custody"
	"github.com/ftchann/uniswap-custodian/lib/pool"
	"github.com/ftchann/uniswap-custodian/lib/registry"
	"github.com/ftchann/uniswap-custodian/lib/result"
	ent "github.com/ftchann/uniswap-custodian/lib/transaction"
	"github.com/ftchann/uniswap-custodian/lib/types"
)

type Execution struct {
	RunID        uuid.UUID
	Env          *Environment
	Transactions []ent.Transaction
	Steps        []result.Step
	logger       *slog.Logger
}

func CreateExecution(env *Environment, transactions []ent.Transaction, logger *slog.Logger) *Execution {
	runID := uuid.New()
	return &Execution{
		RunID:        runID,
		Env:          env,
		Transactions: transactions,
		Steps:        make([]result.Step, 0, len(transactions)),
		logger:       logger.With("run", runID.String()),
	}
}

// Run applies every transaction in order. A call that fails without
// expectError, or succeeds or fails differently than expected, stops the run.
func (e *Execution) Run() error {
	for i, trans := range e.Transactions {
		id, outputs, err := e.apply(trans)
		step := result.Step{
			Index:   i,
			Type:    trans.Type,
			Caller:  trans.Caller,
			ID:      id,
			Status:  result.StatusOK,
			Outputs: outputs,
		}
		if err != nil {
			step.Status = result.StatusRejected
			step.Error = err.Error()
		}
		e.Steps = append(e.Steps, step)
		e.logger.Info("step", "index", i, "type", trans.Type, "caller", trans.Caller,
			"id", id, "status", step.Status, "error", step.Error, slog.Any("outputs", outputs))

		if err := checkExpectation(trans, err); err != nil {
			return fmt.Errorf("step %d (%s by %s): %w", i, trans.Type, trans.Caller, err)
		}
	}
	return nil
}

func checkExpectation(trans ent.Transaction, err error) error {
	if trans.ExpectError == "" {
		if err != nil {
			return fmt.Errorf("unexpected failure: %w", err)
		}
		return nil
	}
	want, ok := types.ByName[trans.ExpectError]
	if !ok {
		return fmt.Errorf("unknown expected error %q", trans.ExpectError)
	}
	if err == nil {
		return fmt.Errorf("expected %s, call succeeded", trans.ExpectError)
	}
	if !errors.IsOf(err, want) {
		return fmt.Errorf("expected %s, got: %w", trans.ExpectError, err)
	}
	return nil
}

func (e *Execution) apply(trans ent.Transaction) (uint64, map[string]string, error) {
	env := e.Env
	caller, err := env.Account(trans.Caller)
	if err != nil {
		return 0, nil, err
	}

	switch trans.Type {
	case ent.Create:
		assetA, assetB, err := e.pair(trans)
		if err != nil {
			return 0, nil, err
		}
		res, err := env.Manager.Create(caller, custody.CreateRequest{
			AssetA:  assetA,
			AssetB:  assetB,
			AmountA: trans.AmountA,
			AmountB: trans.AmountB,
			MinA:    trans.MinA,
			MinB:    trans.MinB,
		})
		if err != nil {
			return 0, nil, err
		}
		return res.ID, amounts(
			"liquidity", res.Liquidity,
			"amountA", res.AmountA, "amountB", res.AmountB,
			"refundA", res.RefundA, "refundB", res.RefundB,
		), nil

	case ent.Increase:
		res, err := env.Manager.IncreaseLiquidity(caller, trans.ID, trans.AmountA, trans.AmountB, trans.MinA, trans.MinB)
		if err != nil {
			return trans.ID, nil, err
		}
		return trans.ID, amounts(
			"liquidity", res.Liquidity,
			"amountA", res.AmountA, "amountB", res.AmountB,
			"refundA", res.RefundA, "refundB", res.RefundB,
		), nil

	case ent.DecreaseHalf:
		amountA, amountB, err := env.Manager.DecreaseLiquidityInHalf(caller, trans.ID)
		if err != nil {
			return trans.ID, nil, err
		}
		return trans.ID, amounts("amountA", amountA, "amountB", amountB), nil

	case ent.Collect:
		amountA, amountB, err := env.Manager.CollectAllFees(caller, trans.ID)
		if err != nil {
			return trans.ID, nil, err
		}
		return trans.ID, amounts("amountA", amountA, "amountB", amountB), nil

	case ent.Retrieve:
		return trans.ID, nil, env.Manager.Retrieve(caller, trans.ID)

	case ent.Swap:
		assetIn, err := env.Asset(trans.AssetIn)
		if err != nil {
			return 0, nil, err
		}
		assetOut, err := env.Asset(trans.AssetOut)
		if err != nil {
			return 0, nil, err
		}
		out, err := env.Manager.SwapExactInputSingle(caller, custody.SwapRequest{
			AssetIn:           assetIn,
			AssetOut:          assetOut,
			AmountIn:          trans.AmountIn,
			AmountOutMinimum:  trans.AmountOutMinimum,
			SqrtPriceLimitX96: trans.SqrtPriceLimitX96,
		})
		if err != nil {
			return 0, nil, err
		}
		return 0, amounts("amountOut", out), nil

	case ent.Mint:
		return e.mint(caller, trans)

	case ent.Approve:
		spender, err := env.Account(trans.Spender)
		if err != nil {
			return trans.ID, nil, err
		}
		return trans.ID, nil, env.Registry.Approve(caller, spender, trans.ID)

	case ent.Transfer:
		from := caller
		if trans.From != "" {
			if from, err = env.Account(trans.From); err != nil {
				return trans.ID, nil, err
			}
		}
		return trans.ID, nil, env.Registry.SafeTransferFrom(caller, from, env.Custodian, trans.ID)
	}
	return 0, nil, fmt.Errorf("unknown transaction type %q", trans.Type)
}

// mint opens a position for the caller on the registry with the custodian's
// fee tier and range, so it can later be transferred into custody.
func (e *Execution) mint(caller common.Address, trans ent.Transaction) (uint64, map[string]string, error) {
	assetA, assetB, err := e.pair(trans)
	if err != nil {
		return 0, nil, err
	}
	amountA, amountB, minA, minB := trans.AmountA, trans.AmountB, trans.MinA, trans.MinB
	token0, token1 := pool.SortTokens(assetA, assetB)
	if token0 != assetA {
		amountA, amountB, minA, minB = amountB, amountA, minB, minA
	}
	params := e.Env.Manager.Params()
	res, err := e.Env.Registry.Mint(caller, registry.MintParams{
		Token0:         token0,
		Token1:         token1,
		Fee:            params.FeeTier,
		TickLower:      params.TickLower,
		TickUpper:      params.TickUpper,
		Amount0Desired: amountA,
		Amount1Desired: amountB,
		Amount0Min:     minA,
		Amount1Min:     minB,
		Recipient:      caller,
		Deadline:       e.Env.now(),
	})
	if err != nil {
		return 0, nil, err
	}
	return res.TokenID, amounts("liquidity", res.Liquidity, "amount0", res.Amount0, "amount1", res.Amount1), nil
}

func (e *Execution) pair(trans ent.Transaction) (common.Address, common.Address, error) {
	assetA, err := e.Env.Asset(trans.AssetA)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	assetB, err := e.Env.Asset(trans.AssetB)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	return assetA, assetB, nil
}

// amounts turns alternating name, value pairs into step outputs.
func amounts(pairs ...any) map[string]string {
	out := make(map[string]string, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		name := pairs[i].(string)
		if v, ok := pairs[i+1].(*ui.Int); ok && v != nil {
			out[name] = v.Dec()
		}
	}
	return out
}

// Result reports the steps so far and the final state of custody, accounts
// and pools.
func (e *Execution) Result() result.Save {
	env := e.Env
	params := env.Manager.Params()
	save := result.Save{
		RunID:     e.RunID.String(),
		FeeTier:   params.FeeTier,
		TickLower: params.TickLower,
		TickUpper: params.TickUpper,
		Steps:     e.Steps,
		Deposits:  []result.Deposit{},
		Balances:  []result.Balance{},
		Pools:     []result.PoolState{},
	}

	for _, id := range env.Ledger.IDs() {
		rec, err := env.Ledger.Read(id)
		if err != nil {
			continue
		}
		dep := result.Deposit{
			ID:        id,
			Owner:     env.Name(rec.Owner),
			AssetA:    env.Name(rec.AssetA),
			AssetB:    env.Name(rec.AssetB),
			Liquidity: rec.Liquidity.Dec(),
		}
		if view, err := env.Registry.Positions(id); err == nil {
			dep.RegistryLiquidity = view.Liquidity.Dec()
			if p, ok := env.Pools.Get(pool.Key{Token0: view.Token0, Token1: view.Token1, Fee: view.Fee}); ok {
				amountA, amountB := p.AmountsForLiquidity(view.TickLower, view.TickUpper, view.Liquidity)
				if rec.AssetA != view.Token0 {
					amountA, amountB = amountB, amountA
				}
				dep.AmountA = result.FormatAmount(amountA, env.decimals(rec.AssetA))
				dep.AmountB = result.FormatAmount(amountB, env.decimals(rec.AssetB))
			}
		}
		save.Deposits = append(save.Deposits, dep)
	}

	holders := append(env.AccountNames(), config.ReservedAccount)
	for _, name := range holders {
		addr := env.Custodian
		if name != config.ReservedAccount {
			addr = env.accounts[name]
		}
		for _, symbol := range env.TokenSymbols() {
			t, _ := env.cfg.Token(symbol)
			raw := env.Bank.BalanceOf(t.Addr(), addr)
			save.Balances = append(save.Balances, result.Balance{
				Account: name,
				Token:   symbol,
				Raw:     raw.Dec(),
				Amount:  result.FormatAmount(raw, t.Decimals),
			})
		}
	}

	for _, key := range env.Pools.Keys() {
		p, _ := env.Pools.Get(key)
		save.Pools = append(save.Pools, result.PoolState{
			Token0:       env.Name(p.Token0),
			Token1:       env.Name(p.Token1),
			Fee:          p.Fee,
			SqrtPriceX96: p.SqrtRatioX96.Dec(),
			Tick:         p.TickCurrent,
			Liquidity:    p.Liquidity.Dec(),
		})
	}
	return save
}

// String is a one-line summary for logs.
func (e *Execution) String() string {
	rejected := 0
	for _, s := range e.Steps {
		if s.Status == result.StatusRejected {
			rejected++
		}
	}
	return fmt.Sprintf("run %s: %d steps, %d rejected", e.RunID, len(e.Steps), rejected)
}

package executor

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"

	cons "github.com/ftchann/uniswap-custodian/lib/constants"
	"github.com/ftchann/uniswap-custodian/lib/config"
	"github.com/ftchann/uniswap-custodian/lib/custody"
	"github.com/ftchann/uniswap-custodian/lib/exchange"
	"github.com/ftchann/uniswap-custodian/lib/ledger"
	"github.com/ftchann/uniswap-custodian/lib/pool"
	"github.com/ftchann/uniswap-custodian/lib/registry"
	"github.com/ftchann/uniswap-custodian/lib/settlement"
	"github.com/ftchann/uniswap-custodian/lib/tickmath"
	"github.com/ftchann/uniswap-custodian/lib/token"
)

// Environment is a custodian wired to simulated markets, with every
// configured pool open and every account funded.
type Environment struct {
	Bank      *token.Bank
	Pools     *pool.Book
	Registry  *registry.Registry
	Exchange  *exchange.Exchange
	Ledger    *ledger.Store
	Manager   *custody.Manager
	Custodian common.Address

	now      func() time.Time
	cfg      *config.Config
	accounts map[string]common.Address
	names    map[common.Address]string
}

// NewEnvironment builds the deployment described by cfg. Accounts approve
// the custodian and the registry for every token.
func NewEnvironment(cfg *config.Config, logger *slog.Logger, now func() time.Time) (*Environment, error) {
	bank := token.NewBank()
	book := pool.NewBook()
	reg := registry.New(cfg.RegistryAddress(), bank, book, registry.WithClock(now), registry.WithLogger(logger))
	ex := exchange.New(cfg.ExchangeAddress(), bank, book, exchange.WithClock(now), exchange.WithLogger(logger))
	store := ledger.NewStore()
	custodian := cfg.CustodianAddress()
	manager := custody.NewManager(store, settlement.NewRouter(bank, custodian), reg, ex, cfg.CustodyParams(), custody.WithClock(now))
	reg.RegisterReceiver(custodian, manager.Gate())

	env := &Environment{
		Bank:      bank,
		Pools:     reg.Pools(),
		Registry:  reg,
		Exchange:  ex,
		Ledger:    store,
		Manager:   manager,
		Custodian: custodian,
		now:       now,
		cfg:       cfg,
		accounts:  make(map[string]common.Address),
		names:     map[common.Address]string{custodian: config.ReservedAccount},
	}

	for _, p := range cfg.Pools {
		a, _ := cfg.Token(p.Token0)
		b, _ := cfg.Token(p.Token1)
		token0, token1 := pool.SortTokens(a.Addr(), b.Addr())
		if err := reg.CreatePool(token0, token1, p.Fee, tickmath.GetSqrtRatioAtTick(p.Tick)); err != nil {
			return nil, fmt.Errorf("pool %s/%s: %w", p.Token0, p.Token1, err)
		}
	}

	for _, a := range cfg.Accounts {
		addr := a.Addr()
		env.accounts[a.Name] = addr
		env.names[addr] = a.Name
		for _, t := range cfg.Tokens {
			if err := bank.Approve(addr, t.Addr(), custodian, cons.MaxUint256); err != nil {
				return nil, err
			}
			if err := bank.Approve(addr, t.Addr(), reg.Address(), cons.MaxUint256); err != nil {
				return nil, err
			}
		}
		for symbol, raw := range a.Balances {
			amount, err := config.ParseAmount(raw)
			if err != nil {
				return nil, err
			}
			t, _ := cfg.Token(symbol)
			bank.Mint(t.Addr(), addr, amount)
		}
	}
	return env, nil
}

func (env *Environment) Account(name string) (common.Address, error) {
	addr, ok := env.accounts[name]
	if !ok {
		return common.Address{}, fmt.Errorf("unknown account %q", name)
	}
	return addr, nil
}

func (env *Environment) Asset(symbol string) (common.Address, error) {
	t, ok := env.cfg.Token(symbol)
	if !ok {
		return common.Address{}, fmt.Errorf("unknown token %q", symbol)
	}
	return t.Addr(), nil
}

// Name is the configured name of an account or token address, or its hex.
func (env *Environment) Name(addr common.Address) string {
	if name, ok := env.names[addr]; ok {
		return name
	}
	for _, t := range env.cfg.Tokens {
		if t.Addr() == addr {
			return t.Symbol
		}
	}
	return addr.Hex()
}

func (env *Environment) AccountNames() []string {
	names := make([]string, 0, len(env.accounts))
	for name := range env.accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (env *Environment) TokenSymbols() []string {
	symbols := make([]string, 0, len(env.cfg.Tokens))
	for _, t := range env.cfg.Tokens {
		symbols = append(symbols, t.Symbol)
	}
	sort.Strings(symbols)
	return symbols
}

func (env *Environment) decimals(asset common.Address) int32 {
	for _, t := range env.cfg.Tokens {
		if t.Addr() == asset {
			return t.Decimals
		}
	}
	return 0
}

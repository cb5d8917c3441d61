// Package config loads the YAML description of a custodian deployment: the
// custodian itself, the simulated registry and exchange, tokens, pools,
// funded accounts and the scenario to replay.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	ui "github.com/holiman/uint256"
	"gopkg.in/yaml.v3"

	cons "github.com/ftchann/uniswap-custodian/lib/constants"
	"github.com/ftchann/uniswap-custodian/lib/custody"
	"github.com/ftchann/uniswap-custodian/lib/tickmath"
	"github.com/ftchann/uniswap-custodian/lib/types"
)

const (
	DefaultFeeTier  = 3000
	DefaultLogLevel = "info"
	DefaultOutput   = "result.json"
	// ReservedAccount names the custodian in reports.
	ReservedAccount = "custodian"
)

type Config struct {
	Custodian Custodian `yaml:"custodian"`

	Registry struct {
		Address string `yaml:"address"`
	} `yaml:"registry"`

	Exchange struct {
		Address string `yaml:"address"`
	} `yaml:"exchange"`

	Tokens   []Token   `yaml:"tokens"`
	Pools    []Pool    `yaml:"pools"`
	Accounts []Account `yaml:"accounts"`

	Scenario string `yaml:"scenario"`
	Output   string `yaml:"output"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// Custodian fixes the fee tier and range of every position it opens. An unset
// bound defaults to the widest range usable at the tier's tick spacing.
type Custodian struct {
	Address          string `yaml:"address"`
	FeeTier          int    `yaml:"fee_tier"`
	TickLower        *int   `yaml:"tick_lower"`
	TickUpper        *int   `yaml:"tick_upper"`
	ResyncOnDecrease bool   `yaml:"resync_on_decrease"`
}

type Token struct {
	Symbol   string `yaml:"symbol"`
	Address  string `yaml:"address"`
	Decimals int32  `yaml:"decimals"`
}

// Pool is opened at Tick before the scenario runs. Tokens are symbols.
type Pool struct {
	Token0 string `yaml:"token0"`
	Token1 string `yaml:"token1"`
	Fee    int    `yaml:"fee"`
	Tick   int    `yaml:"tick"`
}

// Account balances are raw token units keyed by symbol.
type Account struct {
	Name     string            `yaml:"name"`
	Address  string            `yaml:"address"`
	Balances map[string]string `yaml:"balances"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes, applies defaults and environment overrides, then validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(types.ErrInvalidConfig, "decode: %v", err)
	}
	cfg.applyDefaults()
	if err := overrideWithEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Custodian.FeeTier == 0 {
		c.Custodian.FeeTier = DefaultFeeTier
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Output == "" {
		c.Output = DefaultOutput
	}
}

func overrideWithEnv(cfg *Config) error {
	if fee := os.Getenv("CUSTODIAN_FEE_TIER"); fee != "" {
		v, err := strconv.Atoi(fee)
		if err != nil {
			return errors.Wrapf(types.ErrInvalidConfig, "CUSTODIAN_FEE_TIER=%q", fee)
		}
		cfg.Custodian.FeeTier = v
	}
	if level := os.Getenv("CUSTODIAN_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	return nil
}

func (c *Config) Validate() error {
	spacing, ok := cons.TickSpaces[c.Custodian.FeeTier]
	if !ok {
		return errors.Wrapf(types.ErrInvalidConfig, "unsupported fee tier %d", c.Custodian.FeeTier)
	}
	lower, upper := c.Range()
	if lower >= upper || lower < tickmath.MinTick || upper > tickmath.MaxTick {
		return errors.Wrapf(types.ErrInvalidConfig, "tick range [%d, %d)", lower, upper)
	}
	if lower%spacing != 0 || upper%spacing != 0 {
		return errors.Wrapf(types.ErrInvalidConfig, "tick range [%d, %d) not aligned to spacing %d", lower, upper, spacing)
	}

	// every account in the environment holds its own balances
	roles := map[common.Address]string{}
	claim := func(name, address string) error {
		addr, err := parseAddress(name, address)
		if err != nil {
			return err
		}
		if other, dup := roles[addr]; dup {
			return errors.Wrapf(types.ErrInvalidConfig, "%s and %s share address %s", other, name, addr.Hex())
		}
		roles[addr] = name
		return nil
	}
	for _, role := range []struct{ name, address string }{
		{"custodian", c.Custodian.Address},
		{"registry", c.Registry.Address},
		{"exchange", c.Exchange.Address},
	} {
		if err := claim(role.name, role.address); err != nil {
			return err
		}
	}

	symbols := map[string]bool{}
	for _, t := range c.Tokens {
		if t.Symbol == "" || symbols[t.Symbol] {
			return errors.Wrapf(types.ErrInvalidConfig, "token symbol %q empty or repeated", t.Symbol)
		}
		symbols[t.Symbol] = true
		if err := claim("token "+t.Symbol, t.Address); err != nil {
			return err
		}
		if t.Decimals < 0 || t.Decimals > 36 {
			return errors.Wrapf(types.ErrInvalidConfig, "token %s decimals %d", t.Symbol, t.Decimals)
		}
	}

	for _, p := range c.Pools {
		if !symbols[p.Token0] || !symbols[p.Token1] || p.Token0 == p.Token1 {
			return errors.Wrapf(types.ErrInvalidConfig, "pool %s/%s needs two distinct known tokens", p.Token0, p.Token1)
		}
		if _, ok := cons.TickSpaces[p.Fee]; !ok {
			return errors.Wrapf(types.ErrInvalidConfig, "pool %s/%s unsupported fee %d", p.Token0, p.Token1, p.Fee)
		}
		if p.Tick < tickmath.MinTick || p.Tick > tickmath.MaxTick {
			return errors.Wrapf(types.ErrInvalidConfig, "pool %s/%s tick %d", p.Token0, p.Token1, p.Tick)
		}
	}

	names := map[string]bool{}
	for _, a := range c.Accounts {
		if a.Name == "" || a.Name == ReservedAccount || names[a.Name] {
			return errors.Wrapf(types.ErrInvalidConfig, "account name %q empty or repeated", a.Name)
		}
		names[a.Name] = true
		if err := claim("account "+a.Name, a.Address); err != nil {
			return err
		}
		for symbol, amount := range a.Balances {
			if !symbols[symbol] {
				return errors.Wrapf(types.ErrInvalidConfig, "account %s holds unknown token %s", a.Name, symbol)
			}
			if _, err := ParseAmount(amount); err != nil {
				return errors.Wrapf(types.ErrInvalidConfig, "account %s balance of %s: %v", a.Name, symbol, err)
			}
		}
	}

	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// Range is the custodian's tick range after defaults.
func (c *Config) Range() (int, int) {
	lower, upper := 0, 0
	if spacing, ok := cons.TickSpaces[c.Custodian.FeeTier]; ok {
		lower, upper = tickmath.UsableRange(spacing)
	}
	if c.Custodian.TickLower != nil {
		lower = *c.Custodian.TickLower
	}
	if c.Custodian.TickUpper != nil {
		upper = *c.Custodian.TickUpper
	}
	return lower, upper
}

func (c *Config) CustodyParams() custody.Params {
	lower, upper := c.Range()
	return custody.Params{
		FeeTier:          c.Custodian.FeeTier,
		TickLower:        lower,
		TickUpper:        upper,
		ResyncOnDecrease: c.Custodian.ResyncOnDecrease,
	}
}

func (c *Config) Token(symbol string) (Token, bool) {
	for _, t := range c.Tokens {
		if t.Symbol == symbol {
			return t, true
		}
	}
	return Token{}, false
}

func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.Logging.Level))); err != nil {
		return 0, errors.Wrapf(types.ErrInvalidConfig, "log level %q", c.Logging.Level)
	}
	return level, nil
}

// Addresses are validated, so these never fail after Parse.

func (c *Config) CustodianAddress() common.Address { return common.HexToAddress(c.Custodian.Address) }
func (c *Config) RegistryAddress() common.Address  { return common.HexToAddress(c.Registry.Address) }
func (c *Config) ExchangeAddress() common.Address  { return common.HexToAddress(c.Exchange.Address) }
func (t Token) Addr() common.Address               { return common.HexToAddress(t.Address) }
func (a Account) Addr() common.Address             { return common.HexToAddress(a.Address) }

// ParseAmount reads a base-10 token amount.
func ParseAmount(s string) (*ui.Int, error) {
	v, err := ui.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("amount %q: %w", s, err)
	}
	return v, nil
}

func parseAddress(what, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, errors.Wrapf(types.ErrInvalidConfig, "%s address %q", what, s)
	}
	addr := common.HexToAddress(s)
	if addr == cons.ZeroAddress {
		return common.Address{}, errors.Wrapf(types.ErrInvalidConfig, "%s address is zero", what)
	}
	return addr, nil
}

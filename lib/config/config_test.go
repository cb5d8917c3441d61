package config

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftchann/uniswap-custodian/lib/custody"
	"github.com/ftchann/uniswap-custodian/lib/types"
)

const valid = `
custodian:
  address: "0x00000000000000000000000000000000000000c0"
registry:
  address: "0x00000000000000000000000000000000000000f1"
exchange:
  address: "0x00000000000000000000000000000000000000f2"
tokens:
  - symbol: USDC
    address: "0x000000000000000000000000000000000000000a"
    decimals: 6
  - symbol: WETH
    address: "0x000000000000000000000000000000000000000b"
    decimals: 18
pools:
  - token0: USDC
    token1: WETH
    fee: 3000
    tick: 0
accounts:
  - name: alice
    address: "0x00000000000000000000000000000000000a11ce"
    balances:
      USDC: "1000000000"
      WETH: "1000000000000000000"
scenario: scenario.json
`

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(valid))
	require.NoError(t, err)

	assert.Equal(t, DefaultFeeTier, cfg.Custodian.FeeTier)
	assert.Equal(t, DefaultOutput, cfg.Output)
	lower, upper := cfg.Range()
	assert.Equal(t, -887220, lower)
	assert.Equal(t, 887220, upper)

	level, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)

	assert.Equal(t, custody.Params{FeeTier: 3000, TickLower: -887220, TickUpper: 887220}, cfg.CustodyParams())
	usdc, ok := cfg.Token("USDC")
	require.True(t, ok)
	assert.Equal(t, int32(6), usdc.Decimals)
	assert.Equal(t, "0x000000000000000000000000000000000000000A", usdc.Addr().Hex())
	_, ok = cfg.Token("DAI")
	assert.False(t, ok)
}

func TestParseExplicitRange(t *testing.T) {
	data := strings.Replace(valid, `  address: "0x00000000000000000000000000000000000000c0"`,
		`  address: "0x00000000000000000000000000000000000000c0"
  fee_tier: 500
  tick_lower: -1000
  tick_upper: 1000
  resync_on_decrease: true`, 1)
	cfg, err := Parse([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, custody.Params{FeeTier: 500, TickLower: -1000, TickUpper: 1000, ResyncOnDecrease: true}, cfg.CustodyParams())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CUSTODIAN_FEE_TIER", "10000")
	t.Setenv("CUSTODIAN_LOG_LEVEL", "debug")

	cfg, err := Parse([]byte(valid))
	require.NoError(t, err)
	assert.Equal(t, 10000, cfg.Custodian.FeeTier)
	level, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
	lower, _ := cfg.Range()
	assert.Equal(t, -887200, lower)

	t.Setenv("CUSTODIAN_FEE_TIER", "lots")
	_, err = Parse([]byte(valid))
	assert.ErrorIs(t, err, types.ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name, old, new string
	}{
		{"fee tier", "custodian:\n", "custodian:\n  fee_tier: 42\n"},
		{"unaligned range", "custodian:\n", "custodian:\n  tick_lower: -59\n"},
		{"inverted range", "custodian:\n", "custodian:\n  tick_lower: 600\n  tick_upper: 60\n"},
		{"bad address", `"0x00000000000000000000000000000000000000f1"`, `"0xnope"`},
		{"zero address", `"0x00000000000000000000000000000000000000f2"`, `"0x0000000000000000000000000000000000000000"`},
		{"shared address", `"0x00000000000000000000000000000000000000f2"`, `"0x00000000000000000000000000000000000000f1"`},
		{"repeated token", "symbol: WETH", "symbol: USDC"},
		{"unknown pool token", "token1: WETH", "token1: DAI"},
		{"pool fee", "fee: 3000", "fee: 1"},
		{"unknown balance token", "WETH: \"1000000000000000000\"", "DAI: \"1\""},
		{"bad balance", "USDC: \"1000000000\"", "USDC: \"ten\""},
		{"reserved account", "name: alice", "name: custodian"},
		{"account at custodian", `"0x00000000000000000000000000000000000a11ce"`, `"0x00000000000000000000000000000000000000c0"`},
		{"account at registry", `"0x00000000000000000000000000000000000a11ce"`, `"0x00000000000000000000000000000000000000f1"`},
		{"account at token", `"0x00000000000000000000000000000000000a11ce"`, `"0x000000000000000000000000000000000000000b"`},
		{"token at exchange", `"0x000000000000000000000000000000000000000a"`, `"0x00000000000000000000000000000000000000f2"`},
		{"log level", "scenario: scenario.json", "scenario: scenario.json\nlogging:\n  level: loud"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := strings.Replace(valid, tt.old, tt.new, 1)
			require.NotEqual(t, valid, data)
			_, err := Parse([]byte(data))
			assert.ErrorIs(t, err, types.ErrInvalidConfig)
		})
	}
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount("115792089237316195423570985008687907853269984665640564039457584007913129639935")
	require.NoError(t, err)
	assert.Equal(t, 256, v.BitLen())

	_, err = ParseAmount("1e18")
	assert.Error(t, err)
}

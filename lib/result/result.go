// Package result is the JSON report written after a scenario run.
package result

import (
	ui "github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

type Step struct {
	Index   int               `json:"index"`
	Type    string            `json:"type"`
	Caller  string            `json:"caller"`
	ID      uint64            `json:"id,omitempty"`
	Status  string            `json:"status"`
	Error   string            `json:"error,omitempty"`
	Outputs map[string]string `json:"outputs,omitempty"`
}

const (
	StatusOK       = "ok"
	StatusRejected = "rejected"
)

// Deposit is a custodied position valued at the pool's final price.
type Deposit struct {
	ID        uint64 `json:"id"`
	Owner     string `json:"owner"`
	AssetA    string `json:"assetA"`
	AssetB    string `json:"assetB"`
	Liquidity string `json:"liquidity"`
	// registry-side liquidity; differs from Liquidity after a decrease
	RegistryLiquidity string `json:"registryLiquidity"`
	AmountA           string `json:"amountA"`
	AmountB           string `json:"amountB"`
}

type Balance struct {
	Account string `json:"account"`
	Token   string `json:"token"`
	Raw     string `json:"raw"`
	Amount  string `json:"amount"`
}

type PoolState struct {
	Token0       string `json:"token0"`
	Token1       string `json:"token1"`
	Fee          int    `json:"fee"`
	SqrtPriceX96 string `json:"sqrtPriceX96"`
	Tick         int    `json:"tick"`
	Liquidity    string `json:"liquidity"`
}

type Save struct {
	RunID     string      `json:"run_id"`
	FeeTier   int         `json:"fee_tier"`
	TickLower int         `json:"tick_lower"`
	TickUpper int         `json:"tick_upper"`
	Steps     []Step      `json:"steps"`
	Deposits  []Deposit   `json:"deposits"`
	Balances  []Balance   `json:"balances"`
	Pools     []PoolState `json:"pools"`
}

// FormatAmount renders raw token units as a decimal number of whole tokens.
func FormatAmount(raw *ui.Int, decimals int32) string {
	return decimal.NewFromBigInt(raw.ToBig(), -decimals).String()
}

// Package transaction reads the scenario replayed against the custodian: one
// record per call, in order.
package transaction

import (
	"encoding/json"
	"fmt"
	"os"

	ui "github.com/holiman/uint256"
)

const (
	Create       = "Create"
	Increase     = "Increase"
	DecreaseHalf = "DecreaseHalf"
	Collect      = "Collect"
	Retrieve     = "Retrieve"
	Swap         = "Swap"
	// Mint opens a position on the registry directly, outside custody.
	Mint = "Mint"
	// Approve lets another account move one registry position.
	Approve = "Approve"
	// Transfer sends a registry position into custody, from the caller or
	// from an account that approved the caller.
	Transfer = "Transfer"
)

type TransactionInput struct {
	Type              string `json:"type"`
	Caller            string `json:"caller"`
	ID                uint64 `json:"id,omitempty"`
	AssetA            string `json:"assetA,omitempty"`
	AssetB            string `json:"assetB,omitempty"`
	AmountA           string `json:"amountA,omitempty"`
	AmountB           string `json:"amountB,omitempty"`
	MinA              string `json:"minA,omitempty"`
	MinB              string `json:"minB,omitempty"`
	AssetIn           string `json:"assetIn,omitempty"`
	AssetOut          string `json:"assetOut,omitempty"`
	AmountIn          string `json:"amountIn,omitempty"`
	AmountOutMinimum  string `json:"amountOutMinimum,omitempty"`
	SqrtPriceLimitX96 string `json:"sqrtPriceLimitX96,omitempty"`
	Spender           string `json:"spender,omitempty"`
	From              string `json:"from,omitempty"`
	ExpectError       string `json:"expectError,omitempty"`
}

// Transaction is a decoded record. Callers and assets are names resolved by
// the executor; missing amounts are nil.
type Transaction struct {
	Type              string
	Caller            string
	ID                uint64
	AssetA            string
	AssetB            string
	AmountA           *ui.Int
	AmountB           *ui.Int
	MinA              *ui.Int
	MinB              *ui.Int
	AssetIn           string
	AssetOut          string
	AmountIn          *ui.Int
	AmountOutMinimum  *ui.Int
	SqrtPriceLimitX96 *ui.Int
	Spender           string
	From              string
	ExpectError       string
}

func (t Transaction) MarshalJSON() ([]byte, error) {
	switch t.Type {
	case Create, Mint:
		return json.Marshal(&TransactionInput{
			Type:        t.Type,
			Caller:      t.Caller,
			AssetA:      t.AssetA,
			AssetB:      t.AssetB,
			AmountA:     toString(t.AmountA),
			AmountB:     toString(t.AmountB),
			MinA:        toString(t.MinA),
			MinB:        toString(t.MinB),
			ExpectError: t.ExpectError,
		})
	case Increase:
		return json.Marshal(&TransactionInput{
			Type:        t.Type,
			Caller:      t.Caller,
			ID:          t.ID,
			AmountA:     toString(t.AmountA),
			AmountB:     toString(t.AmountB),
			MinA:        toString(t.MinA),
			MinB:        toString(t.MinB),
			ExpectError: t.ExpectError,
		})
	case DecreaseHalf, Collect, Retrieve:
		return json.Marshal(&TransactionInput{
			Type:        t.Type,
			Caller:      t.Caller,
			ID:          t.ID,
			ExpectError: t.ExpectError,
		})
	case Approve:
		return json.Marshal(&TransactionInput{
			Type:        t.Type,
			Caller:      t.Caller,
			ID:          t.ID,
			Spender:     t.Spender,
			ExpectError: t.ExpectError,
		})
	case Transfer:
		return json.Marshal(&TransactionInput{
			Type:        t.Type,
			Caller:      t.Caller,
			ID:          t.ID,
			From:        t.From,
			ExpectError: t.ExpectError,
		})
	case Swap:
		return json.Marshal(&TransactionInput{
			Type:              t.Type,
			Caller:            t.Caller,
			AssetIn:           t.AssetIn,
			AssetOut:          t.AssetOut,
			AmountIn:          toString(t.AmountIn),
			AmountOutMinimum:  toString(t.AmountOutMinimum),
			SqrtPriceLimitX96: toString(t.SqrtPriceLimitX96),
			ExpectError:       t.ExpectError,
		})
	}
	return nil, fmt.Errorf("unknown transaction type %q", t.Type)
}

func Load(path string) ([]Transaction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) ([]Transaction, error) {
	var inputs []TransactionInput
	if err := json.Unmarshal(data, &inputs); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	transactions := make([]Transaction, 0, len(inputs))
	for i, in := range inputs {
		trans, err := in.decode()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		transactions = append(transactions, trans)
	}
	return transactions, nil
}

func (in TransactionInput) decode() (Transaction, error) {
	if in.Caller == "" {
		return Transaction{}, fmt.Errorf("%s without caller", in.Type)
	}
	trans := Transaction{
		Type:        in.Type,
		Caller:      in.Caller,
		ID:          in.ID,
		AssetA:      in.AssetA,
		AssetB:      in.AssetB,
		AssetIn:     in.AssetIn,
		AssetOut:    in.AssetOut,
		Spender:     in.Spender,
		From:        in.From,
		ExpectError: in.ExpectError,
	}
	amounts := []struct {
		dst **ui.Int
		src string
	}{
		{&trans.AmountA, in.AmountA},
		{&trans.AmountB, in.AmountB},
		{&trans.MinA, in.MinA},
		{&trans.MinB, in.MinB},
		{&trans.AmountIn, in.AmountIn},
		{&trans.AmountOutMinimum, in.AmountOutMinimum},
		{&trans.SqrtPriceLimitX96, in.SqrtPriceLimitX96},
	}
	for _, a := range amounts {
		v, err := stringToUint256(a.src)
		if err != nil {
			return Transaction{}, err
		}
		*a.dst = v
	}

	switch in.Type {
	case Create, Mint:
		if in.AssetA == "" || in.AssetB == "" {
			return Transaction{}, fmt.Errorf("%s needs assetA and assetB", in.Type)
		}
	case Increase, DecreaseHalf, Collect, Retrieve, Transfer:
		if in.ID == 0 {
			return Transaction{}, fmt.Errorf("%s needs a position id", in.Type)
		}
	case Approve:
		if in.ID == 0 || in.Spender == "" {
			return Transaction{}, fmt.Errorf("approve needs a position id and a spender")
		}
	case Swap:
		if in.AssetIn == "" || in.AssetOut == "" {
			return Transaction{}, fmt.Errorf("swap needs assetIn and assetOut")
		}
	default:
		return Transaction{}, fmt.Errorf("unknown transaction type %q", in.Type)
	}
	return trans, nil
}

func stringToUint256(amount string) (*ui.Int, error) {
	if amount == "" {
		return nil, nil
	}
	v, err := ui.FromDecimal(amount)
	if err != nil {
		return nil, fmt.Errorf("amount %q: %w", amount, err)
	}
	return v, nil
}

func toString(v *ui.Int) string {
	if v == nil {
		return ""
	}
	return v.Dec()
}

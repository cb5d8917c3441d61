package transaction

import (
	"encoding/json"
	"testing"

	ui "github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenario = `[
  {"type": "Create", "caller": "alice", "assetA": "USDC", "assetB": "WETH", "amountA": "50", "amountB": "50"},
  {"type": "Increase", "caller": "bob", "id": 1, "amountA": "10", "amountB": "0", "minA": "1"},
  {"type": "Swap", "caller": "bob", "assetIn": "USDC", "assetOut": "WETH", "amountIn": "1000"},
  {"type": "DecreaseHalf", "caller": "bob", "id": 1, "expectError": "Unauthorized"},
  {"type": "Retrieve", "caller": "alice", "id": 1}
]`

func TestParse(t *testing.T) {
	transactions, err := Parse([]byte(scenario))
	require.NoError(t, err)
	require.Len(t, transactions, 5)

	create := transactions[0]
	assert.Equal(t, Create, create.Type)
	assert.Equal(t, "alice", create.Caller)
	assert.Equal(t, ui.NewInt(50), create.AmountA)
	assert.Nil(t, create.MinA)

	increase := transactions[1]
	assert.Equal(t, uint64(1), increase.ID)
	assert.True(t, increase.AmountB.IsZero())
	assert.Equal(t, ui.NewInt(1), increase.MinA)

	assert.Equal(t, ui.NewInt(1000), transactions[2].AmountIn)
	assert.Equal(t, "Unauthorized", transactions[3].ExpectError)
}

func TestParseRejects(t *testing.T) {
	tests := map[string]string{
		"unknown type":     `[{"type": "Flash", "caller": "a"}]`,
		"no caller":        `[{"type": "Retrieve", "id": 1}]`,
		"no id":            `[{"type": "Collect", "caller": "a"}]`,
		"no assets":        `[{"type": "Create", "caller": "a", "assetA": "USDC"}]`,
		"no swap assets":   `[{"type": "Swap", "caller": "a", "assetIn": "USDC"}]`,
		"no spender":       `[{"type": "Approve", "caller": "a", "id": 1}]`,
		"bad amount":       `[{"type": "Create", "caller": "a", "assetA": "X", "assetB": "Y", "amountA": "1.5"}]`,
		"not a json array": `{"type": "Create"}`,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestMarshalJSONOmitsUnusedFields(t *testing.T) {
	transactions, err := Parse([]byte(scenario))
	require.NoError(t, err)

	out, err := json.Marshal(transactions[4])
	require.NoError(t, err)
	assert.JSONEq(t, `{"type": "Retrieve", "caller": "alice", "id": 1}`, string(out))

	out, err = json.Marshal(transactions[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"type": "Create", "caller": "alice", "assetA": "USDC", "assetB": "WETH", "amountA": "50", "amountB": "50"}`, string(out))

	_, err = json.Marshal(Transaction{Type: "Flash"})
	assert.Error(t, err)
}

func TestApproveAndTransferFrom(t *testing.T) {
	transactions, err := Parse([]byte(`[
  {"type": "Approve", "caller": "alice", "id": 2, "spender": "bob"},
  {"type": "Transfer", "caller": "bob", "id": 2, "from": "alice"}
]`))
	require.NoError(t, err)
	require.Len(t, transactions, 2)
	assert.Equal(t, "bob", transactions[0].Spender)
	assert.Equal(t, "alice", transactions[1].From)

	out, err := json.Marshal(transactions[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"type": "Approve", "caller": "alice", "id": 2, "spender": "bob"}`, string(out))
	out, err = json.Marshal(transactions[1])
	require.NoError(t, err)
	assert.JSONEq(t, `{"type": "Transfer", "caller": "bob", "id": 2, "from": "alice"}`, string(out))
}

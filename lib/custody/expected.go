package custody

import (
	"github.com/ethereum/go-ethereum/common"
	ui "github.com/holiman/uint256"

	"github.com/ftchann/uniswap-custodian/lib/exchange"
	"github.com/ftchann/uniswap-custodian/lib/registry"
)

// PositionRegistry issues and manages the ownership tokens the custodian
// holds. Every call names the account acting on the registry.
type PositionRegistry interface {
	Address() common.Address
	Mint(sender common.Address, p registry.MintParams) (registry.MintResult, error)
	IncreaseLiquidity(sender common.Address, p registry.IncreaseParams) (registry.IncreaseResult, error)
	DecreaseLiquidity(sender common.Address, p registry.DecreaseParams) (amount0, amount1 *ui.Int, err error)
	Collect(sender common.Address, p registry.CollectParams) (amount0, amount1 *ui.Int, err error)
	Positions(id uint64) (registry.PositionView, error)
	SafeTransferFrom(sender, from, to common.Address, id uint64) error
}

type Exchange interface {
	Address() common.Address
	ExactInputSingle(sender common.Address, p exchange.ExactInputSingleParams) (*ui.Int, error)
}

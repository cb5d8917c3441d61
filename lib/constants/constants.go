package constants

import (
	"github.com/ethereum/go-ethereum/common"
	ui "github.com/holiman/uint256"
)

var (
	Zero          = new(ui.Int)
	One           = new(ui.Int).SetOne()
	MaxUint256, _ = ui.FromHex("0xffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff")
	// collect "everything owed"
	MaxUint128, _ = ui.FromHex("0xffffffffffffffffffffffffffffffff")
	// used in liquidity amount math
	Q96  = new(ui.Int).Lsh(ui.NewInt(1), 96)
	Q128 = new(ui.Int).Lsh(ui.NewInt(1), 128)
)

var ZeroAddress = common.Address{}

// fee in hundredths of a bip -> tick spacing
var TickSpaces = map[int]int{
	100:   1,
	500:   10,
	3000:  60,
	10000: 200,
}

package types

import "cosmossdk.io/errors"

const Codespace = "custodian"

var (
	ErrUnauthorized      = errors.Register(Codespace, 2, "caller is not the position owner")
	ErrNotFound          = errors.Register(Codespace, 3, "position not found")
	ErrInsufficientFunds = errors.Register(Codespace, 4, "insufficient balance or allowance")
	ErrRegistryRejected  = errors.Register(Codespace, 5, "registry rejected the request")
	ErrAlreadyExists     = errors.Register(Codespace, 6, "position already recorded")
	ErrInvalidOwner      = errors.Register(Codespace, 7, "invalid owner")
	ErrUnexpectedReceipt = errors.Register(Codespace, 8, "unexpected ownership token receipt")
	ErrInvalidRequest    = errors.Register(Codespace, 9, "invalid request")
	ErrInvalidConfig     = errors.Register(Codespace, 10, "invalid configuration")
)

// ByName resolves the names scenario files use for expected failures.
var ByName = map[string]*errors.Error{
	"Unauthorized":      ErrUnauthorized,
	"NotFound":          ErrNotFound,
	"InsufficientFunds": ErrInsufficientFunds,
	"RegistryRejected":  ErrRegistryRejected,
	"AlreadyExists":     ErrAlreadyExists,
	"InvalidOwner":      ErrInvalidOwner,
	"UnexpectedReceipt": ErrUnexpectedReceipt,
	"InvalidRequest":    ErrInvalidRequest,
	"InvalidConfig":     ErrInvalidConfig,
}

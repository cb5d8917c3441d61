package types_test

import (
	"testing"

	"cosmossdk.io/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftchann/uniswap-custodian/lib/types"
)

func TestWrappedErrorsKeepTheirKind(t *testing.T) {
	err := errors.Wrapf(types.ErrUnauthorized, "position %d", 7)
	require.ErrorIs(t, err, types.ErrUnauthorized)
	assert.NotErrorIs(t, err, types.ErrNotFound)
	assert.Contains(t, err.Error(), "position 7")

	codespace, code, _ := errors.ABCIInfo(err, false)
	assert.Equal(t, types.Codespace, codespace)
	assert.Equal(t, uint32(2), code)
}

func TestByNameCoversEveryCode(t *testing.T) {
	codes := map[uint32]bool{}
	for name, err := range types.ByName {
		assert.Equal(t, types.Codespace, err.Codespace(), name)
		codes[err.ABCICode()] = true
	}
	for code := uint32(2); code <= 10; code++ {
		assert.True(t, codes[code], "code %d has no name", code)
	}
}

// Package ledger records which account is entitled to each custodied
// position. It is plain state: no locking, no logging, no external calls.
package ledger

import (
	"sort"

	"cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	ui "github.com/holiman/uint256"

	cons "github.com/ftchann/uniswap-custodian/lib/constants"
	"github.com/ftchann/uniswap-custodian/lib/types"
)

// Record is the custodian's view of one position. Liquidity is a snapshot of
// the registry's value as of the last create or increase.
type Record struct {
	Owner     common.Address
	Liquidity *ui.Int
	AssetA    common.Address
	AssetB    common.Address
}

func (r Record) Clone() Record {
	return Record{
		Owner:     r.Owner,
		Liquidity: r.Liquidity.Clone(),
		AssetA:    r.AssetA,
		AssetB:    r.AssetB,
	}
}

type Store struct {
	records map[uint64]*Record
}

func NewStore() *Store {
	return &Store{records: make(map[uint64]*Record)}
}

func (s *Store) Create(id uint64, owner, assetA, assetB common.Address, liquidity *ui.Int) error {
	if owner == cons.ZeroAddress {
		return errors.Wrapf(types.ErrInvalidOwner, "position %d", id)
	}
	if _, ok := s.records[id]; ok {
		return errors.Wrapf(types.ErrAlreadyExists, "position %d", id)
	}
	s.records[id] = &Record{
		Owner:     owner,
		Liquidity: liquidity.Clone(),
		AssetA:    assetA,
		AssetB:    assetB,
	}
	return nil
}

// Read returns a copy of the record; mutating it does not touch the store.
func (s *Store) Read(id uint64) (Record, error) {
	r, ok := s.records[id]
	if !ok {
		return Record{}, errors.Wrapf(types.ErrNotFound, "position %d", id)
	}
	return r.Clone(), nil
}

func (s *Store) UpdateLiquidity(id uint64, liquidity *ui.Int) error {
	r, ok := s.records[id]
	if !ok {
		return errors.Wrapf(types.ErrNotFound, "position %d", id)
	}
	r.Liquidity = liquidity.Clone()
	return nil
}

func (s *Store) Erase(id uint64) error {
	if _, ok := s.records[id]; !ok {
		return errors.Wrapf(types.ErrNotFound, "position %d", id)
	}
	delete(s.records, id)
	return nil
}

func (s *Store) Has(id uint64) bool {
	_, ok := s.records[id]
	return ok
}

func (s *Store) Len() int {
	return len(s.records)
}

// IDs lists recorded identifiers in ascending order.
func (s *Store) IDs() []uint64 {
	ids := make([]uint64, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

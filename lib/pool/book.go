package pool

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// Book indexes the pools of one deployment by key. Callers work on a Clone of
// a pool and Put it back to commit.
type Book struct {
	pools map[Key]*Pool
}

func NewBook() *Book {
	return &Book{pools: make(map[Key]*Pool)}
}

// SortTokens orders a pair the way pool keys expect.
func SortTokens(tokenA, tokenB common.Address) (common.Address, common.Address) {
	if tokenA.Cmp(tokenB) > 0 {
		return tokenB, tokenA
	}
	return tokenA, tokenB
}

func (b *Book) Get(key Key) (*Pool, bool) {
	p, ok := b.pools[key]
	return p, ok
}

// Add registers a new pool and reports false if the key is taken.
func (b *Book) Add(p *Pool) bool {
	if _, ok := b.pools[p.Key()]; ok {
		return false
	}
	b.pools[p.Key()] = p
	return true
}

func (b *Book) Put(p *Pool) {
	b.pools[p.Key()] = p
}

func (b *Book) Keys() []Key {
	keys := make([]Key, 0, len(b.pools))
	for k := range b.pools {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	return keys
}

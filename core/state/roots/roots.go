package roots

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cosmos/iavl"
	"github.com/flexa/capacity-smart-contracts/types"
)

const mainPrefix = byte('w')

type RRoots interface {
	Export(state *types.AppState)
	GetGeneration(root types.Hash) uint64
	List() []types.WithdrawalRoot
}

// Roots is the withdrawal root registry. A root that is not registered has generation 0.
type Roots struct {
	list  map[types.Hash]uint64
	dirty map[types.Hash]struct{}

	db atomic.Value

	lock sync.RWMutex
}

func NewRoots(db *iavl.ImmutableTree) *Roots {
	immutableTree := atomic.Value{}
	if db != nil {
		immutableTree.Store(db)
	}
	return &Roots{db: immutableTree, list: map[types.Hash]uint64{}, dirty: map[types.Hash]struct{}{}}
}

func (r *Roots) immutableTree() *iavl.ImmutableTree {
	db := r.db.Load()
	if db == nil {
		return nil
	}
	return db.(*iavl.ImmutableTree)
}

func (r *Roots) SetImmutableTree(immutableTree *iavl.ImmutableTree) {
	r.db.Store(immutableTree)
}

func (r *Roots) Commit(db *iavl.MutableTree, _ int64) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	dirty := make([]types.Hash, 0, len(r.dirty))
	for root := range r.dirty {
		dirty = append(dirty, root)
	}
	sort.Slice(dirty, func(i, j int) bool { return bytes.Compare(dirty[i][:], dirty[j][:]) < 0 })

	for _, root := range dirty {
		delete(r.dirty, root)

		path := pathOf(root)
		generation := r.list[root]
		if generation == 0 {
			db.Remove(path)
			delete(r.list, root)
			continue
		}

		value := make([]byte, 8)
		binary.BigEndian.PutUint64(value, generation)
		db.Set(path, value)
	}

	return nil
}

// GetGeneration returns the generation root was registered with, or 0.
func (r *Roots) GetGeneration(root types.Hash) uint64 {
	r.lock.RLock()
	generation, ok := r.list[root]
	r.lock.RUnlock()
	if ok {
		return generation
	}

	_, enc := r.immutableTree().Get(pathOf(root))
	if len(enc) == 0 {
		return 0
	}
	if len(enc) != 8 {
		panic(fmt.Sprintf("failed to decode withdrawal root %s", root.String()))
	}
	generation = binary.BigEndian.Uint64(enc)

	r.lock.Lock()
	if cached, ok := r.list[root]; ok {
		generation = cached
	} else {
		r.list[root] = generation
	}
	r.lock.Unlock()

	return generation
}

func (r *Roots) Add(root types.Hash, generation uint64) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.list[root] = generation
	r.dirty[root] = struct{}{}
}

// Remove unregisters root and returns the generation it had. It returns 0 if root was not
// registered.
func (r *Roots) Remove(root types.Hash) uint64 {
	generation := r.GetGeneration(root)
	if generation == 0 {
		return 0
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	r.list[root] = 0
	r.dirty[root] = struct{}{}

	return generation
}

// List returns the registered roots ordered by generation.
func (r *Roots) List() []types.WithdrawalRoot {
	seen := map[types.Hash]struct{}{}
	var result []types.WithdrawalRoot

	r.immutableTree().IterateRange([]byte{mainPrefix}, []byte{mainPrefix + 1}, true, func(key []byte, _ []byte) bool {
		seen[types.BytesToHash(key[1:])] = struct{}{}
		return false
	})

	r.lock.RLock()
	for root := range r.list {
		seen[root] = struct{}{}
	}
	r.lock.RUnlock()

	for root := range seen {
		if generation := r.GetGeneration(root); generation != 0 {
			result = append(result, types.WithdrawalRoot{Root: root, Generation: generation})
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Generation == result[j].Generation {
			return result[i].Root.Compare(result[j].Root) < 0
		}
		return result[i].Generation < result[j].Generation
	})

	return result
}

func (r *Roots) Export(state *types.AppState) {
	state.WithdrawalRoots = append(state.WithdrawalRoots, r.List()...)
}

func pathOf(root types.Hash) []byte {
	return append([]byte{mainPrefix}, root[:]...)
}

package deposits

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cosmos/iavl"
	"github.com/flexa/capacity-smart-contracts/types"
	"github.com/google/btree"
	"github.com/tendermint/go-amino"
)

const mainPrefix = byte('p')

var cdc = amino.NewCodec()

type RDeposits interface {
	Export(state *types.AppState)
	Get(nonce uint64) *Model
	List(from uint64, limit int) []*Model
}

// Deposits stores deposits that are not yet covered by the fallback root, keyed by their nonce.
type Deposits struct {
	list  map[uint64]*Model
	dirty map[uint64]struct{}
	// index orders the cached live deposits by nonce
	index *btree.BTree

	db atomic.Value

	lock sync.RWMutex
}

type nonceItem uint64

func (n nonceItem) Less(than btree.Item) bool {
	return n < than.(nonceItem)
}

func NewDeposits(db *iavl.ImmutableTree) *Deposits {
	immutableTree := atomic.Value{}
	if db != nil {
		immutableTree.Store(db)
	}
	return &Deposits{
		db:    immutableTree,
		list:  map[uint64]*Model{},
		dirty: map[uint64]struct{}{},
		index: btree.New(32),
	}
}

func (d *Deposits) immutableTree() *iavl.ImmutableTree {
	db := d.db.Load()
	if db == nil {
		return nil
	}
	return db.(*iavl.ImmutableTree)
}

func (d *Deposits) SetImmutableTree(immutableTree *iavl.ImmutableTree) {
	d.db.Store(immutableTree)
}

func (d *Deposits) Commit(db *iavl.MutableTree, _ int64) error {
	d.lock.Lock()
	defer d.lock.Unlock()

	nonces := make([]uint64, 0, len(d.dirty))
	for nonce := range d.dirty {
		nonces = append(nonces, nonce)
	}
	sort.Slice(nonces, func(i, j int) bool { return nonces[i] < nonces[j] })

	for _, nonce := range nonces {
		deposit := d.list[nonce]
		delete(d.dirty, nonce)

		path := pathOf(nonce)
		if deposit.isDeleted() {
			db.Remove(path)
			delete(d.list, nonce)
			continue
		}

		data, err := cdc.MarshalBinaryBare(deposit)
		if err != nil {
			return fmt.Errorf("can't encode pending deposit %d: %v", nonce, err)
		}

		db.Set(path, data)
	}

	return nil
}

// Get returns the pending deposit with nonce or nil.
func (d *Deposits) Get(nonce uint64) *Model {
	deposit := d.get(nonce)
	if deposit == nil || deposit.isDeleted() {
		return nil
	}
	return deposit
}

// Create records a new pending deposit.
func (d *Deposits) Create(nonce uint64, depositor types.Address, amount *big.Int) *Model {
	deposit := &Model{
		Nonce:     nonce,
		Depositor: depositor,
		Amount:    amount.String(),
		markDirty: d.markDirty,
	}

	d.lock.Lock()
	d.list[nonce] = deposit
	d.index.ReplaceOrInsert(nonceItem(nonce))
	d.lock.Unlock()

	d.markDirty(nonce)
	return deposit
}

// Delete removes the pending deposit with nonce. It reports whether the deposit existed.
func (d *Deposits) Delete(nonce uint64) bool {
	deposit := d.get(nonce)
	if deposit == nil || deposit.isDeleted() {
		return false
	}

	deposit.delete()

	d.lock.Lock()
	d.index.Delete(nonceItem(nonce))
	d.lock.Unlock()

	return true
}

// DeleteRange removes every pending deposit with a nonce in (from, to] and returns the number
// of removed deposits.
func (d *Deposits) DeleteRange(from, to uint64) int {
	if to <= from {
		return 0
	}

	nonces := d.storedNonces(from+1, to)

	d.lock.RLock()
	d.index.AscendGreaterOrEqual(nonceItem(from+1), func(item btree.Item) bool {
		nonce := uint64(item.(nonceItem))
		if nonce > to {
			return false
		}
		nonces = append(nonces, nonce)
		return true
	})
	d.lock.RUnlock()

	removed := 0
	for _, nonce := range nonces {
		if d.Delete(nonce) {
			removed++
		}
	}

	return removed
}

// List returns up to limit pending deposits with nonce >= from in nonce order. A limit of 0
// returns all of them.
func (d *Deposits) List(from uint64, limit int) []*Model {
	nonces := d.storedNonces(from, math.MaxUint64)

	d.lock.RLock()
	d.index.AscendGreaterOrEqual(nonceItem(from), func(item btree.Item) bool {
		nonces = append(nonces, uint64(item.(nonceItem)))
		return true
	})
	d.lock.RUnlock()

	sort.Slice(nonces, func(i, j int) bool { return nonces[i] < nonces[j] })

	var result []*Model
	var last uint64
	for i, nonce := range nonces {
		if i > 0 && nonce == last {
			continue
		}
		last = nonce

		if deposit := d.Get(nonce); deposit != nil {
			result = append(result, deposit)
			if limit > 0 && len(result) == limit {
				break
			}
		}
	}

	return result
}

func (d *Deposits) Export(state *types.AppState) {
	for _, deposit := range d.List(0, 0) {
		state.PendingDeposits = append(state.PendingDeposits, types.PendingDeposit{
			Nonce:     deposit.Nonce,
			Depositor: deposit.Depositor,
			Amount:    deposit.Amount,
		})
	}
}

// storedNonces lists the nonces in [from, to] saved in the last committed version.
func (d *Deposits) storedNonces(from, to uint64) []uint64 {
	var nonces []uint64

	end := []byte{mainPrefix + 1}
	if to < math.MaxUint64 {
		end = pathOf(to + 1)
	}

	d.immutableTree().IterateRange(pathOf(from), end, true, func(key []byte, _ []byte) bool {
		nonces = append(nonces, binary.BigEndian.Uint64(key[1:]))
		return false
	})

	return nonces
}

func (d *Deposits) get(nonce uint64) *Model {
	d.lock.RLock()
	deposit, ok := d.list[nonce]
	d.lock.RUnlock()
	if ok {
		return deposit
	}

	_, enc := d.immutableTree().Get(pathOf(nonce))
	if len(enc) == 0 {
		return nil
	}

	deposit = &Model{}
	if err := cdc.UnmarshalBinaryBare(enc, deposit); err != nil {
		panic(fmt.Sprintf("failed to decode pending deposit %d: %s", nonce, err))
	}
	deposit.Nonce = nonce
	deposit.markDirty = d.markDirty

	d.lock.Lock()
	if cached, ok := d.list[nonce]; ok {
		deposit = cached
	} else {
		d.list[nonce] = deposit
		d.index.ReplaceOrInsert(nonceItem(nonce))
	}
	d.lock.Unlock()

	return deposit
}

func (d *Deposits) markDirty(nonce uint64) {
	d.lock.Lock()
	defer d.lock.Unlock()

	d.dirty[nonce] = struct{}{}
}

func pathOf(nonce uint64) []byte {
	path := make([]byte, 9)
	path[0] = mainPrefix
	binary.BigEndian.PutUint64(path[1:], nonce)
	return path
}

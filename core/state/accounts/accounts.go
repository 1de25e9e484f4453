package accounts

import (
	"bytes"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cosmos/iavl"
	"github.com/flexa/capacity-smart-contracts/types"
	"github.com/tendermint/go-amino"
)

const mainPrefix = byte('a')

var cdc = amino.NewCodec()

type RAccounts interface {
	Export(state *types.AppState)
	GetAccount(address types.Address) *Model
	GetProgress(address types.Address) uint64
	GetCumulativeWithdrawn(address types.Address) *big.Int
	GetNonce(address types.Address) uint64
}

// Accounts keeps the per-account withdrawal progress, the lifetime withdrawn total and the
// transaction nonce of every sender.
type Accounts struct {
	list  map[types.Address]*Model
	dirty map[types.Address]struct{}

	db atomic.Value

	lock sync.RWMutex
}

func NewAccounts(db *iavl.ImmutableTree) *Accounts {
	immutableTree := atomic.Value{}
	if db != nil {
		immutableTree.Store(db)
	}
	return &Accounts{db: immutableTree, list: map[types.Address]*Model{}, dirty: map[types.Address]struct{}{}}
}

func (a *Accounts) immutableTree() *iavl.ImmutableTree {
	db := a.db.Load()
	if db == nil {
		return nil
	}
	return db.(*iavl.ImmutableTree)
}

func (a *Accounts) SetImmutableTree(immutableTree *iavl.ImmutableTree) {
	a.db.Store(immutableTree)
}

func (a *Accounts) Commit(db *iavl.MutableTree, _ int64) error {
	accounts := a.getOrderedDirtyAccounts()
	for _, address := range accounts {
		account := a.getFromMap(address)
		a.lock.Lock()
		delete(a.dirty, address)
		a.lock.Unlock()

		account.lock.Lock()
		data, err := cdc.MarshalBinaryBare(account)
		account.lock.Unlock()
		if err != nil {
			return fmt.Errorf("can't encode object at %x: %v", address[:], err)
		}

		path := []byte{mainPrefix}
		path = append(path, address[:]...)
		db.Set(path, data)
	}

	return nil
}

func (a *Accounts) getOrderedDirtyAccounts() []types.Address {
	a.lock.RLock()
	keys := make([]types.Address, 0, len(a.dirty))
	for k := range a.dirty {
		keys = append(keys, k)
	}
	a.lock.RUnlock()

	sort.SliceStable(keys, func(i, j int) bool {
		return bytes.Compare(keys[i].Bytes(), keys[j].Bytes()) == 1
	})

	return keys
}

func (a *Accounts) GetAccount(address types.Address) *Model {
	return a.getOrNew(address)
}

func (a *Accounts) GetProgress(address types.Address) uint64 {
	return a.getOrNew(address).getProgress()
}

func (a *Accounts) SetProgress(address types.Address, progress uint64) {
	a.getOrNew(address).setProgress(progress)
}

func (a *Accounts) GetCumulativeWithdrawn(address types.Address) *big.Int {
	return a.getOrNew(address).getCumulativeWithdrawn()
}

func (a *Accounts) SetCumulativeWithdrawn(address types.Address, amount *big.Int) {
	a.getOrNew(address).setCumulativeWithdrawn(amount)
}

func (a *Accounts) GetNonce(address types.Address) uint64 {
	return a.getOrNew(address).getNonce()
}

func (a *Accounts) SetNonce(address types.Address, nonce uint64) {
	a.getOrNew(address).setNonce(nonce)
}

func (a *Accounts) Export(state *types.AppState) {
	a.immutableTree().IterateRange([]byte{mainPrefix}, []byte{mainPrefix + 1}, true, func(key []byte, _ []byte) bool {
		a.get(types.BytesToAddress(key[1:]))
		return false
	})

	a.lock.RLock()
	addresses := make([]types.Address, 0, len(a.list))
	for address := range a.list {
		addresses = append(addresses, address)
	}
	a.lock.RUnlock()

	sort.Slice(addresses, func(i, j int) bool { return addresses[i].Compare(addresses[j]) < 0 })

	for _, address := range addresses {
		account := a.getFromMap(address)
		if account.isEmpty() {
			continue
		}

		account.lock.RLock()
		state.Accounts = append(state.Accounts, types.Account{
			Address:             address,
			Progress:            account.Progress,
			CumulativeWithdrawn: account.CumulativeWithdrawn,
			TxNonce:             account.Nonce,
		})
		account.lock.RUnlock()
	}
}

func (a *Accounts) get(address types.Address) *Model {
	if account := a.getFromMap(address); account != nil {
		return account
	}

	path := []byte{mainPrefix}
	path = append(path, address[:]...)
	_, enc := a.immutableTree().Get(path)
	if len(enc) == 0 {
		return nil
	}

	account := &Model{}
	if err := cdc.UnmarshalBinaryBare(enc, account); err != nil {
		panic(fmt.Sprintf("failed to decode account at address %s: %s", address.String(), err))
	}

	account.address = address
	account.markDirty = a.markDirty
	a.setToMap(address, account)

	return account
}

func (a *Accounts) getOrNew(address types.Address) *Model {
	account := a.get(address)
	if account == nil {
		account = &Model{
			CumulativeWithdrawn: "0",
			address:             address,
			markDirty:           a.markDirty,
		}
		a.setToMap(address, account)
	}

	return account
}

func (a *Accounts) markDirty(addr types.Address) {
	a.lock.Lock()
	defer a.lock.Unlock()

	a.dirty[addr] = struct{}{}
}

func (a *Accounts) getFromMap(address types.Address) *Model {
	a.lock.RLock()
	defer a.lock.RUnlock()

	return a.list[address]
}

func (a *Accounts) setToMap(address types.Address, model *Model) {
	a.lock.Lock()
	defer a.lock.Unlock()

	if _, ok := a.list[address]; ok {
		return
	}
	a.list[address] = model
}

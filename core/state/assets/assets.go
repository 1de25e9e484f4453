// Package assets is the built-in fungible asset used when the ledger runs as a standalone node.
// Every account has a balance and an allowance that caps what the ledger may pull from it.
package assets

import (
	"bytes"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cosmos/iavl"
	"github.com/flexa/capacity-smart-contracts/core/asset"
	"github.com/flexa/capacity-smart-contracts/types"
	"github.com/tendermint/go-amino"
)

const mainPrefix = byte('t')

// CustodyAddress holds the funds in custody of the ledger.
var CustodyAddress = types.HexToAddress("0xffffffffffffffffffffffffffffffffffffffff")

var cdc = amino.NewCodec()

type RAssets interface {
	Export(state *types.AppState)
	GetBalance(address types.Address) *big.Int
	GetAllowance(address types.Address) *big.Int
}

type Assets struct {
	list  map[types.Address]*Model
	dirty map[types.Address]struct{}

	db atomic.Value

	lock sync.RWMutex
}

var _ asset.Transfer = (*Assets)(nil)

func NewAssets(db *iavl.ImmutableTree) *Assets {
	immutableTree := atomic.Value{}
	if db != nil {
		immutableTree.Store(db)
	}
	return &Assets{db: immutableTree, list: map[types.Address]*Model{}, dirty: map[types.Address]struct{}{}}
}

func (a *Assets) immutableTree() *iavl.ImmutableTree {
	db := a.db.Load()
	if db == nil {
		return nil
	}
	return db.(*iavl.ImmutableTree)
}

func (a *Assets) SetImmutableTree(immutableTree *iavl.ImmutableTree) {
	a.db.Store(immutableTree)
}

func (a *Assets) Commit(db *iavl.MutableTree, _ int64) error {
	a.lock.Lock()
	defer a.lock.Unlock()

	addresses := make([]types.Address, 0, len(a.dirty))
	for address := range a.dirty {
		addresses = append(addresses, address)
	}
	sort.Slice(addresses, func(i, j int) bool { return bytes.Compare(addresses[i][:], addresses[j][:]) < 0 })

	for _, address := range addresses {
		delete(a.dirty, address)
		model := a.list[address]

		path := append([]byte{mainPrefix}, address[:]...)
		if model.isEmpty() {
			db.Remove(path)
			continue
		}

		model.mx.RLock()
		data, err := cdc.MarshalBinaryBare(model)
		model.mx.RUnlock()
		if err != nil {
			return fmt.Errorf("can't encode asset entry of %s: %v", address.String(), err)
		}

		db.Set(path, data)
	}

	return nil
}

func (a *Assets) GetBalance(address types.Address) *big.Int {
	return a.getOrNew(address).getBalance()
}

func (a *Assets) SetBalance(address types.Address, amount *big.Int) {
	a.getOrNew(address).setBalance(amount)
}

func (a *Assets) GetAllowance(address types.Address) *big.Int {
	return a.getOrNew(address).getAllowance()
}

// Approve sets the amount the ledger may pull from address.
func (a *Assets) Approve(address types.Address, amount *big.Int) {
	a.getOrNew(address).setAllowance(amount)
}

// Pull moves amount from the account into custody, consuming allowance.
func (a *Assets) Pull(from types.Address, amount *big.Int) error {
	model := a.getOrNew(from)

	allowance := model.getAllowance()
	if allowance.Cmp(amount) < 0 {
		return asset.ErrInsufficientAllowance
	}

	balance := model.getBalance()
	if balance.Cmp(amount) < 0 {
		return asset.ErrInsufficientBalance
	}

	model.setAllowance(new(big.Int).Sub(allowance, amount))
	model.setBalance(new(big.Int).Sub(balance, amount))

	custody := a.getOrNew(CustodyAddress)
	custody.setBalance(new(big.Int).Add(custody.getBalance(), amount))

	return nil
}

// Push moves amount out of custody to the account.
func (a *Assets) Push(to types.Address, amount *big.Int) error {
	custody := a.getOrNew(CustodyAddress)

	balance := custody.getBalance()
	if balance.Cmp(amount) < 0 {
		return asset.ErrInsufficientBalance
	}
	custody.setBalance(new(big.Int).Sub(balance, amount))

	model := a.getOrNew(to)
	model.setBalance(new(big.Int).Add(model.getBalance(), amount))

	return nil
}

func (a *Assets) Export(state *types.AppState) {
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
		model := a.getFromMap(address)
		if model.isEmpty() {
			continue
		}

		state.Balances = append(state.Balances, types.Balance{
			Address:   address,
			Balance:   model.getBalance().String(),
			Allowance: model.getAllowance().String(),
		})
	}
}

func (a *Assets) get(address types.Address) *Model {
	if model := a.getFromMap(address); model != nil {
		return model
	}

	_, enc := a.immutableTree().Get(append([]byte{mainPrefix}, address[:]...))
	if len(enc) == 0 {
		return nil
	}

	model := &Model{}
	if err := cdc.UnmarshalBinaryBare(enc, model); err != nil {
		panic(fmt.Sprintf("failed to decode asset entry of %s: %s", address.String(), err))
	}

	model.address = address
	model.markDirty = a.markDirty
	return a.setToMap(address, model)
}

func (a *Assets) getOrNew(address types.Address) *Model {
	model := a.get(address)
	if model == nil {
		model = a.setToMap(address, &Model{
			Balance:   "0",
			Allowance: "0",
			address:   address,
			markDirty: a.markDirty,
		})
	}

	return model
}

func (a *Assets) markDirty(address types.Address) {
	a.lock.Lock()
	defer a.lock.Unlock()

	a.dirty[address] = struct{}{}
}

func (a *Assets) getFromMap(address types.Address) *Model {
	a.lock.RLock()
	defer a.lock.RUnlock()

	return a.list[address]
}

func (a *Assets) setToMap(address types.Address, model *Model) *Model {
	a.lock.Lock()
	defer a.lock.Unlock()

	if cached, ok := a.list[address]; ok {
		return cached
	}
	a.list[address] = model
	return model
}

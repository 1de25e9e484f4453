package deposits

import (
	"math/big"
	"sync"

	"github.com/flexa/capacity-smart-contracts/helpers"
	"github.com/flexa/capacity-smart-contracts/types"
)

type Model struct {
	Nonce     uint64
	Depositor types.Address
	Amount    string

	deleted bool

	markDirty func(nonce uint64)
	lock      sync.RWMutex
}

func (model *Model) GetAmount() *big.Int {
	return helpers.StringToBigInt(model.Amount)
}

func (model *Model) isDeleted() bool {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return model.deleted
}

func (model *Model) delete() {
	model.lock.Lock()
	model.deleted = true
	model.lock.Unlock()

	model.markDirty(model.Nonce)
}

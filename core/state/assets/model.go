package assets

import (
	"math/big"
	"sync"

	"github.com/flexa/capacity-smart-contracts/helpers"
	"github.com/flexa/capacity-smart-contracts/types"
)

type Model struct {
	Balance   string
	Allowance string

	address types.Address

	markDirty func(types.Address)
	mx        sync.RWMutex
}

func (model *Model) getBalance() *big.Int {
	model.mx.RLock()
	defer model.mx.RUnlock()

	return helpers.StringToBigInt(model.Balance)
}

func (model *Model) setBalance(amount *big.Int) {
	model.mx.Lock()
	model.Balance = amount.String()
	model.mx.Unlock()

	model.markDirty(model.address)
}

func (model *Model) getAllowance() *big.Int {
	model.mx.RLock()
	defer model.mx.RUnlock()

	return helpers.StringToBigInt(model.Allowance)
}

func (model *Model) setAllowance(amount *big.Int) {
	model.mx.Lock()
	model.Allowance = amount.String()
	model.mx.Unlock()

	model.markDirty(model.address)
}

func (model *Model) isEmpty() bool {
	model.mx.RLock()
	defer model.mx.RUnlock()

	return model.Balance == "0" && model.Allowance == "0"
}

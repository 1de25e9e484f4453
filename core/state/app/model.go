package app

import (
	"math/big"
	"sync"

	"github.com/flexa/capacity-smart-contracts/helpers"
)

type Model struct {
	DepositNonce  uint64
	MaxGeneration uint64
	// Budget is a signed decimal, it may go below zero through modifyBudget.
	Budget string

	markDirty func()
	mx        sync.RWMutex
}

func (model *Model) getDepositNonce() uint64 {
	model.mx.RLock()
	defer model.mx.RUnlock()

	return model.DepositNonce
}

func (model *Model) setDepositNonce(nonce uint64) {
	model.mx.Lock()
	changed := model.DepositNonce != nonce
	model.DepositNonce = nonce
	model.mx.Unlock()

	if changed {
		model.markDirty()
	}
}

func (model *Model) getMaxGeneration() uint64 {
	model.mx.RLock()
	defer model.mx.RUnlock()

	return model.MaxGeneration
}

func (model *Model) setMaxGeneration(generation uint64) {
	model.mx.Lock()
	changed := model.MaxGeneration != generation
	model.MaxGeneration = generation
	model.mx.Unlock()

	if changed {
		model.markDirty()
	}
}

func (model *Model) getBudget() *big.Int {
	model.mx.RLock()
	defer model.mx.RUnlock()

	return helpers.StringToBigInt(model.Budget)
}

func (model *Model) setBudget(budget *big.Int) {
	model.mx.Lock()
	changed := model.Budget != budget.String()
	model.Budget = budget.String()
	model.mx.Unlock()

	if changed {
		model.markDirty()
	}
}

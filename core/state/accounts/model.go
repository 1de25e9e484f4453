package accounts

import (
	"math/big"
	"sync"

	"github.com/flexa/capacity-smart-contracts/helpers"
	"github.com/flexa/capacity-smart-contracts/types"
)

type Model struct {
	// Progress is the highest generation the account can no longer withdraw at.
	Progress uint64
	// CumulativeWithdrawn is the lifetime total paid out to the account.
	CumulativeWithdrawn string
	// Nonce is the last transaction nonce used by the account as a sender.
	Nonce uint64

	address types.Address

	markDirty func(types.Address)
	lock      sync.RWMutex
}

func (model *Model) Address() types.Address {
	return model.address
}

func (model *Model) getProgress() uint64 {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return model.Progress
}

func (model *Model) setProgress(progress uint64) {
	model.lock.Lock()
	model.Progress = progress
	model.lock.Unlock()

	model.markDirty(model.address)
}

func (model *Model) getCumulativeWithdrawn() *big.Int {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return helpers.StringToBigInt(model.CumulativeWithdrawn)
}

func (model *Model) setCumulativeWithdrawn(amount *big.Int) {
	model.lock.Lock()
	model.CumulativeWithdrawn = amount.String()
	model.lock.Unlock()

	model.markDirty(model.address)
}

func (model *Model) getNonce() uint64 {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return model.Nonce
}

func (model *Model) setNonce(nonce uint64) {
	model.lock.Lock()
	model.Nonce = nonce
	model.lock.Unlock()

	model.markDirty(model.address)
}

func (model *Model) isEmpty() bool {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return model.Progress == 0 && model.Nonce == 0 && (model.CumulativeWithdrawn == "0" || model.CumulativeWithdrawn == "")
}

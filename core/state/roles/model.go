package roles

import (
	"sync"

	"github.com/flexa/capacity-smart-contracts/types"
)

type Model struct {
	Owner               types.Address
	CandidateOwner      types.Address
	WithdrawalPublisher types.Address
	FallbackPublisher   types.Address
	LimitPublisher      types.Address

	markDirty func()
	mx        sync.RWMutex
}

func (model *Model) get(field func(m *Model) types.Address) types.Address {
	model.mx.RLock()
	defer model.mx.RUnlock()

	return field(model)
}

func (model *Model) set(field func(m *Model) *types.Address, address types.Address) {
	model.mx.Lock()
	target := field(model)
	changed := *target != address
	*target = address
	model.mx.Unlock()

	if changed {
		model.markDirty()
	}
}
